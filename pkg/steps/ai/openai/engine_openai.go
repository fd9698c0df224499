package openai

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/inference/engine"
	"github.com/go-go-golems/trustagent/pkg/steps/ai/settings"
)

// OpenAIEngine implements engine.Engine against any OpenAI compatible chat
// completion endpoint.
type OpenAIEngine struct {
	settings *settings.StepSettings
}

// NewOpenAIEngine validates and copies settings.
func NewOpenAIEngine(s *settings.StepSettings) (*OpenAIEngine, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &OpenAIEngine{settings: s.Clone()}, nil
}

// Complete sends messages and returns the content of the first choice. A
// reply without choices or content is engine.NoResponseText. Every failure,
// including cancellation, is an *engine.TransportError carrying the client
// error text unchanged.
func (e *OpenAIEngine) Complete(ctx context.Context, messages []conversation.Turn) (string, error) {
	client, err := MakeClient(e.settings)
	if err != nil {
		return "", engine.NewTransportError("create client", err)
	}

	req := MakeCompletionRequest(e.settings, messages)
	log.Debug().Str("model", req.Model).Int("num_messages", len(req.Messages)).Msg("OpenAI Complete started")

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", engine.NewTransportError("chat completion", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Debug().Int("choices", len(resp.Choices)).Msg("OpenAI Complete: empty reply")
		return engine.NoResponseText, nil
	}

	log.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Msg("OpenAI Complete finished")
	return resp.Choices[0].Message.Content, nil
}

var _ engine.Engine = (*OpenAIEngine)(nil)
