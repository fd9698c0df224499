package toolloop

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/go-go-golems/trustagent/pkg/conversation"
)

var ErrIterationsExhausted = errors.New("maximum iterations reached")

// IterationsExhaustedError is returned when a run reaches its round cap
// without a final answer. It carries the conversation so far, so that a caller
// can offer to continue.
type IterationsExhaustedError struct {
	MaxIterations int
	Conversation  []conversation.Turn
}

func (e *IterationsExhaustedError) Error() string {
	return fmt.Sprintf("max iterations (%d) reached without a final answer", e.MaxIterations)
}

func (e *IterationsExhaustedError) Is(target error) bool {
	return target == ErrIterationsExhausted
}
