// Package factory creates completion engines from step settings.
package factory

import (
	"github.com/pkg/errors"

	"github.com/go-go-golems/trustagent/pkg/inference/engine"
	"github.com/go-go-golems/trustagent/pkg/inference/middleware"
	"github.com/go-go-golems/trustagent/pkg/steps/ai/openai"
	"github.com/go-go-golems/trustagent/pkg/steps/ai/settings"
	"github.com/go-go-golems/trustagent/pkg/steps/ai/types"
)

// EngineFactory creates engines from settings.
type EngineFactory interface {
	CreateEngine(s *settings.StepSettings, middlewares ...middleware.Middleware) (engine.Engine, error)
	SupportedProviders() []string
}

// StandardEngineFactory creates engines for every OpenAI compatible provider.
type StandardEngineFactory struct{}

func NewStandardEngineFactory() *StandardEngineFactory {
	return &StandardEngineFactory{}
}

func (f *StandardEngineFactory) CreateEngine(s *settings.StepSettings, middlewares ...middleware.Middleware) (engine.Engine, error) {
	if s == nil {
		return nil, errors.New("settings cannot be nil")
	}

	var e engine.Engine
	switch apiType := s.ApiType(); apiType {
	case types.ApiTypeOpenAI, types.ApiTypeAnyScale, types.ApiTypeFireworks, types.ApiTypeOllama:
		oe, err := openai.NewOpenAIEngine(s)
		if err != nil {
			return nil, err
		}
		e = oe
	default:
		return nil, errors.Errorf("unsupported provider %s, supported: %v", apiType, f.SupportedProviders())
	}

	if len(middlewares) == 0 {
		return e, nil
	}
	return middleware.NewEngineWithMiddleware(e, middlewares...), nil
}

func (f *StandardEngineFactory) SupportedProviders() []string {
	return []string{
		string(types.ApiTypeOpenAI),
		string(types.ApiTypeAnyScale),
		string(types.ApiTypeFireworks),
		string(types.ApiTypeOllama),
	}
}

var _ EngineFactory = (*StandardEngineFactory)(nil)

// NewEngineFromStepSettings is a shortcut for the standard factory.
func NewEngineFromStepSettings(s *settings.StepSettings, middlewares ...middleware.Middleware) (engine.Engine, error) {
	return NewStandardEngineFactory().CreateEngine(s, middlewares...)
}
