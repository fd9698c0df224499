package settings

import (
	"github.com/huandu/go-clone"

	"github.com/go-go-golems/trustagent/pkg/steps/ai/types"
)

const DefaultEngine = "gpt-4-turbo"

type ChatSettings struct {
	Engine            *string        `yaml:"engine,omitempty"`
	ApiType           *types.ApiType `yaml:"api_type,omitempty"`
	MaxResponseTokens *int           `yaml:"max_response_tokens,omitempty"`
	TopP              *float64       `yaml:"top_p,omitempty"`
	Temperature       *float64       `yaml:"temperature,omitempty"`
	Stop              []string       `yaml:"stop,omitempty"`
}

func NewChatSettings() *ChatSettings {
	engine := DefaultEngine
	apiType := types.ApiTypeOpenAI
	return &ChatSettings{
		Engine:  &engine,
		ApiType: &apiType,
		Stop:    []string{},
	}
}

func (s *ChatSettings) Clone() *ChatSettings {
	return clone.Clone(s).(*ChatSettings)
}
