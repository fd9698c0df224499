package settings

import (
	"net/http"
	"time"

	"github.com/huandu/go-clone"
	"gopkg.in/yaml.v3"
)

type ClientSettings struct {
	Timeout      *time.Duration `yaml:"timeout,omitempty"`
	Organization *string        `yaml:"organization,omitempty"`
	HTTPClient   *http.Client   `yaml:"-" json:"-"`
}

// UnmarshalYAML accepts the timeout as a number of seconds.
func (cs *ClientSettings) UnmarshalYAML(value *yaml.Node) error {
	aux := struct {
		Timeout      *int    `yaml:"timeout,omitempty"`
		Organization *string `yaml:"organization,omitempty"`
	}{}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.Timeout != nil {
		t := time.Duration(*aux.Timeout) * time.Second
		cs.Timeout = &t
	}
	if aux.Organization != nil {
		cs.Organization = aux.Organization
	}
	return nil
}

// Clone deep-copies the settings. The HTTP client is shared.
func (cs *ClientSettings) Clone() *ClientSettings {
	ret := clone.Clone(&ClientSettings{
		Timeout:      cs.Timeout,
		Organization: cs.Organization,
	}).(*ClientSettings)
	ret.HTTPClient = cs.HTTPClient
	return ret
}

func NewClientSettings() *ClientSettings {
	defaultTimeout := 60 * time.Second
	return &ClientSettings{
		Timeout: &defaultTimeout,
	}
}
