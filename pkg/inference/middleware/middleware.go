package middleware

import (
	"context"

	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/inference/engine"
)

// HandlerFunc produces the assistant reply for the given prompt messages.
type HandlerFunc func(ctx context.Context, messages []conversation.Turn) (string, error)

// Middleware wraps a HandlerFunc with additional functionality.
// Middleware are applied in order: Chain(m1, m2, m3) results in m1(m2(m3(handler))).
type Middleware func(HandlerFunc) HandlerFunc

// Chain composes multiple middleware into a single HandlerFunc.
func Chain(handler HandlerFunc, middlewares ...Middleware) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func engineHandlerFunc(e engine.Engine) HandlerFunc {
	return func(ctx context.Context, messages []conversation.Turn) (string, error) {
		return e.Complete(ctx, messages)
	}
}

// EngineWithMiddleware wraps an Engine with a middleware chain. It is itself
// an Engine.
type EngineWithMiddleware struct {
	handler HandlerFunc
}

func NewEngineWithMiddleware(e engine.Engine, middlewares ...Middleware) *EngineWithMiddleware {
	return &EngineWithMiddleware{
		handler: Chain(engineHandlerFunc(e), middlewares...),
	}
}

func (e *EngineWithMiddleware) Complete(ctx context.Context, messages []conversation.Turn) (string, error) {
	return e.handler(ctx, messages)
}

var _ engine.Engine = (*EngineWithMiddleware)(nil)
