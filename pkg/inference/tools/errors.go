package tools

import "github.com/pkg/errors"

var (
	// ErrToolNotFound means no descriptor of the run matches the requested tool.
	ErrToolNotFound = errors.New("tool not found")
	// ErrBackendUnavailable means the backend owning a tool is not registered
	// or no longer connected.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
