package engine

import (
	"context"

	"github.com/go-go-golems/trustagent/pkg/conversation"
)

// NoResponseText is returned in place of the assistant reply when the
// completion endpoint answers without any content.
const NoResponseText = "No response received"

// Engine is the boundary to a chat-completion endpoint. Given the ordered
// list of turns to submit, it returns the raw text of the next assistant turn.
//
// Implementations must not retain or modify the messages slice. Any transport
// or protocol failure is returned as a *TransportError.
type Engine interface {
	Complete(ctx context.Context, messages []conversation.Turn) (string, error)
}

// EngineFunc adapts a plain function to the Engine interface.
type EngineFunc func(ctx context.Context, messages []conversation.Turn) (string, error)

func (f EngineFunc) Complete(ctx context.Context, messages []conversation.Turn) (string, error) {
	return f(ctx, messages)
}

var _ Engine = EngineFunc(nil)
