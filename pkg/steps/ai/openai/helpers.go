package openai

import (
	"net/http"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/steps/ai/settings"
)

// MakeClient builds a go-openai client from the api and client settings.
func MakeClient(s *settings.StepSettings) (*go_openai.Client, error) {
	apiType := s.ApiType()
	apiKey, ok := s.API.APIKeys[settings.APIKeyKey(apiType)]
	if !ok || apiKey == "" {
		return nil, errors.Wrapf(settings.ErrMissingAPIKey, "no API key for %s", apiType)
	}
	baseURL, ok := s.API.BaseUrls[settings.BaseURLKey(apiType)]
	if !ok || baseURL == "" {
		return nil, errors.Errorf("no base URL for %s", apiType)
	}

	config := go_openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	if s.Client != nil {
		if s.Client.Organization != nil {
			config.OrgID = *s.Client.Organization
		}
		switch {
		case s.Client.HTTPClient != nil:
			config.HTTPClient = s.Client.HTTPClient
		case s.Client.Timeout != nil:
			config.HTTPClient = &http.Client{Timeout: *s.Client.Timeout}
		}
	}
	return go_openai.NewClientWithConfig(config), nil
}

// MakeCompletionRequest maps the prompt turns and chat settings to a
// non-streaming chat completion request.
func MakeCompletionRequest(s *settings.StepSettings, messages []conversation.Turn) go_openai.ChatCompletionRequest {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    roleToOpenAI(m.Role),
			Content: m.Content,
		})
	}

	req := go_openai.ChatCompletionRequest{
		Model:    s.Model(),
		Messages: msgs,
	}
	if chat := s.Chat; chat != nil {
		if chat.MaxResponseTokens != nil {
			req.MaxTokens = *chat.MaxResponseTokens
		}
		if chat.Temperature != nil {
			req.Temperature = float32(*chat.Temperature)
		}
		if chat.TopP != nil {
			req.TopP = float32(*chat.TopP)
		}
		if len(chat.Stop) > 0 {
			req.Stop = chat.Stop
		}
	}
	return req
}

func roleToOpenAI(r conversation.Role) string {
	switch r {
	case conversation.RoleSystem:
		return go_openai.ChatMessageRoleSystem
	case conversation.RoleAssistant:
		return go_openai.ChatMessageRoleAssistant
	default:
		return go_openai.ChatMessageRoleUser
	}
}
