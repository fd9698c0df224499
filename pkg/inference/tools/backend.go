package tools

import (
	"context"
)

// Backend executes named tools. Implementations must be safe for concurrent
// use by independent runs.
type Backend interface {
	// CallTool invokes name with args. args is nil when the call carries no
	// arguments. A returned error that wraps ErrBackendUnavailable aborts the
	// run; any other error is reported back to the model as a failed call.
	CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error)
}

// ConnectionChecker is implemented by backends that can report whether they
// are still connected.
type ConnectionChecker interface {
	Connected() bool
}

// CallResult is what a backend returns for one call.
type CallResult struct {
	// Payload is either a string or any JSON serializable value.
	Payload any
	// IsError marks a failure reported by the tool itself.
	IsError bool
}

// BackendLookup resolves a backend name to a client.
type BackendLookup interface {
	Backend(name string) (Backend, bool)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, name string, args map[string]any) (*CallResult, error)

func (f BackendFunc) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	return f(ctx, name, args)
}

var _ Backend = BackendFunc(nil)

func isConnected(b Backend) bool {
	if c, ok := b.(ConnectionChecker); ok {
		return c.Connected()
	}
	return true
}
