package settings

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/trustagent/pkg/steps/ai/types"
)

var ErrMissingAPIKey = errors.New("missing api key")

// StepSettings is everything needed to talk to a completion endpoint.
type StepSettings struct {
	API    *APISettings    `yaml:"api,omitempty"`
	Chat   *ChatSettings   `yaml:"chat,omitempty"`
	Client *ClientSettings `yaml:"client,omitempty"`
}

func NewStepSettings() *StepSettings {
	return &StepSettings{
		API:    NewAPISettings(),
		Chat:   NewChatSettings(),
		Client: NewClientSettings(),
	}
}

func NewStepSettingsFromYAML(r io.Reader) (*StepSettings, error) {
	ret := NewStepSettings()
	if err := yaml.NewDecoder(r).Decode(ret); err != nil {
		return nil, errors.Wrap(err, "could not decode step settings")
	}
	return ret, nil
}

func (ss *StepSettings) ApiType() types.ApiType {
	if ss.Chat == nil || ss.Chat.ApiType == nil {
		return types.ApiTypeOpenAI
	}
	return *ss.Chat.ApiType
}

func (ss *StepSettings) Model() string {
	if ss.Chat == nil || ss.Chat.Engine == nil {
		return DefaultEngine
	}
	return *ss.Chat.Engine
}

// Validate checks that the settings can be used to issue a request.
func (ss *StepSettings) Validate() error {
	apiType := ss.ApiType()
	if ss.API == nil || ss.API.APIKeys[APIKeyKey(apiType)] == "" {
		return errors.Wrapf(ErrMissingAPIKey, "no API key for %s", apiType)
	}
	if ss.API.BaseUrls[BaseURLKey(apiType)] == "" {
		return errors.Errorf("no base URL for %s", apiType)
	}
	return nil
}

func (ss *StepSettings) GetMetadata() map[string]interface{} {
	metadata := make(map[string]interface{})
	metadata["ai-api-type"] = string(ss.ApiType())
	metadata["ai-engine"] = ss.Model()
	if ss.Chat != nil {
		if ss.Chat.MaxResponseTokens != nil {
			metadata["ai-max-response-tokens"] = *ss.Chat.MaxResponseTokens
		}
		if ss.Chat.Temperature != nil {
			metadata["ai-temperature"] = *ss.Chat.Temperature
		}
		if ss.Chat.TopP != nil {
			metadata["ai-top-p"] = *ss.Chat.TopP
		}
	}
	return metadata
}

func (ss *StepSettings) Clone() *StepSettings {
	ret := &StepSettings{}
	if ss.API != nil {
		ret.API = ss.API.Clone()
	}
	if ss.Chat != nil {
		ret.Chat = ss.Chat.Clone()
	}
	if ss.Client != nil {
		ret.Client = ss.Client.Clone()
	}
	return ret
}
