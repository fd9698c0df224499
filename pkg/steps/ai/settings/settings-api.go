package settings

import (
	"github.com/huandu/go-clone"

	"github.com/go-go-golems/trustagent/pkg/steps/ai/types"
)

// APISettings holds credentials and endpoints, keyed "<api-type>-api-key"
// and "<api-type>-base-url".
type APISettings struct {
	APIKeys  map[string]string `yaml:"api_keys,omitempty"`
	BaseUrls map[string]string `yaml:"base_urls,omitempty"`
}

func NewAPISettings() *APISettings {
	ret := &APISettings{
		APIKeys:  map[string]string{},
		BaseUrls: map[string]string{},
	}
	for apiType, url := range types.DefaultBaseURLs {
		ret.BaseUrls[BaseURLKey(apiType)] = url
	}
	return ret
}

func APIKeyKey(apiType types.ApiType) string {
	return string(apiType) + "-api-key"
}

func BaseURLKey(apiType types.ApiType) string {
	return string(apiType) + "-base-url"
}

func (s *APISettings) SetAPIKey(apiType types.ApiType, key string) {
	if s.APIKeys == nil {
		s.APIKeys = map[string]string{}
	}
	s.APIKeys[APIKeyKey(apiType)] = key
}

func (s *APISettings) SetBaseURL(apiType types.ApiType, url string) {
	if s.BaseUrls == nil {
		s.BaseUrls = map[string]string{}
	}
	s.BaseUrls[BaseURLKey(apiType)] = url
}

func (s *APISettings) Clone() *APISettings {
	return clone.Clone(s).(*APISettings)
}
