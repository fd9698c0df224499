package tools

import "time"

const DefaultToolTimeout = 60 * time.Second

// RouterConfig controls how tool calls are issued.
type RouterConfig struct {
	// Timeout bounds each backend call. 0 disables the deadline.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// ValidateArguments checks arguments against the tool input schema before
	// calling the backend.
	ValidateArguments bool `json:"validate_arguments" yaml:"validate_arguments"`
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Timeout: DefaultToolTimeout,
	}
}

func (rc RouterConfig) WithTimeout(timeout time.Duration) RouterConfig {
	rc.Timeout = timeout
	return rc
}

func (rc RouterConfig) WithValidateArguments(validate bool) RouterConfig {
	rc.ValidateArguments = validate
	return rc
}
