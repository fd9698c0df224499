package factory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/trustagent/pkg/inference/middleware"
	"github.com/go-go-golems/trustagent/pkg/steps/ai/openai"
	"github.com/go-go-golems/trustagent/pkg/steps/ai/settings"
	"github.com/go-go-golems/trustagent/pkg/steps/ai/types"
)

func TestCreateEngine(t *testing.T) {
	s := settings.NewStepSettings()
	s.API.SetAPIKey(types.ApiTypeOpenAI, "sk-test")

	e, err := NewEngineFromStepSettings(s)
	require.NoError(t, err)
	require.IsType(t, &openai.OpenAIEngine{}, e)

	e, err = NewEngineFromStepSettings(s, func(next middleware.HandlerFunc) middleware.HandlerFunc { return next })
	require.NoError(t, err)
	require.IsType(t, &middleware.EngineWithMiddleware{}, e)
}

func TestCreateEngineUnsupported(t *testing.T) {
	s := settings.NewStepSettings()
	apiType := types.ApiType("claude")
	s.Chat.ApiType = &apiType
	s.API.SetAPIKey(apiType, "x")
	s.API.SetBaseURL(apiType, "http://localhost")

	_, err := NewEngineFromStepSettings(s)
	require.Error(t, err)
}

func TestCreateEngineMissingKey(t *testing.T) {
	_, err := NewEngineFromStepSettings(settings.NewStepSettings())
	require.ErrorIs(t, err, settings.ErrMissingAPIKey)
}
