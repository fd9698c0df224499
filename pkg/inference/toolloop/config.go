package toolloop

import "github.com/go-go-golems/trustagent/pkg/conversation"

const DefaultMaxIterations = 20

// LoopConfig bounds a run.
type LoopConfig struct {
	// MaxIterations is the number of rounds after which a run fails with
	// ErrIterationsExhausted.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
	// WindowSize is the number of non-initial turns sent with each completion
	// call.
	WindowSize int `json:"window_size" yaml:"window_size"`
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxIterations: DefaultMaxIterations,
		WindowSize:    conversation.DefaultWindowSize,
	}
}

func (c LoopConfig) WithMaxIterations(maxIterations int) LoopConfig {
	c.MaxIterations = maxIterations
	return c
}

func (c LoopConfig) WithWindowSize(windowSize int) LoopConfig {
	c.WindowSize = windowSize
	return c
}
