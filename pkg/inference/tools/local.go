package tools

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// ToolFunc is the implementation of an in-process tool.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// LocalBackend serves Go functions as tools, without any transport.
type LocalBackend struct {
	mu          sync.RWMutex
	funcs       map[string]ToolFunc
	descriptors []ToolDescriptor
}

func NewLocalBackend() *LocalBackend {
	return &LocalBackend{funcs: map[string]ToolFunc{}}
}

// AddTool registers fn under name. inputType, when non-nil, is reflected into
// the tool's input schema.
func (l *LocalBackend) AddTool(name, description string, inputType any, fn ToolFunc) error {
	if name == "" {
		return errors.New("tool name cannot be empty")
	}
	if fn == nil {
		return errors.Errorf("tool %s has no implementation", name)
	}

	var schema json.RawMessage
	if inputType != nil {
		r := &jsonschema.Reflector{DoNotReference: true}
		b, err := json.Marshal(r.Reflect(inputType))
		if err != nil {
			return errors.Wrapf(err, "could not build input schema for %s", name)
		}
		schema = b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.funcs[name]; ok {
		return errors.Errorf("tool %s already registered", name)
	}
	l.funcs[name] = fn
	l.descriptors = append(l.descriptors, ToolDescriptor{
		ToolName:    name,
		Description: description,
		InputSchema: schema,
	})
	return nil
}

// Descriptors returns the registered tools in registration order. BackendName
// is filled in by Registry.Register.
func (l *LocalBackend) Descriptors() []ToolDescriptor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]ToolDescriptor(nil), l.descriptors...)
}

func (l *LocalBackend) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	l.mu.RLock()
	fn, ok := l.funcs[name]
	l.mu.RUnlock()
	if !ok {
		return &CallResult{Payload: "unknown tool " + name, IsError: true}, nil
	}

	ret, err := fn(ctx, args)
	if err != nil {
		return nil, err
	}
	return &CallResult{Payload: ret}, nil
}

var _ Backend = (*LocalBackend)(nil)
