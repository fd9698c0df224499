package tools

import (
	"encoding/json"
	"fmt"
	"time"
)

// Outcome is the result of one routed tool call: either a success carrying the
// backend payload or a failure description. Both are fed back to the model.
type Outcome struct {
	ToolName    string
	BackendName string
	Payload     any
	Failed      bool
	Failure     string
	Duration    time.Duration
}

func Success(toolName, backendName string, payload any) *Outcome {
	return &Outcome{ToolName: toolName, BackendName: backendName, Payload: payload}
}

func Failure(toolName, backendName string, description string) *Outcome {
	return &Outcome{ToolName: toolName, BackendName: backendName, Failed: true, Failure: description}
}

// Text renders the outcome for the conversation. String payloads are used as
// is, anything else is serialized to JSON.
func (o *Outcome) Text() string {
	if o.Failed {
		return "Tool execution failed: " + o.Failure
	}
	switch p := o.Payload.(type) {
	case nil:
		return "null"
	case string:
		return p
	case json.RawMessage:
		return string(p)
	}
	b, err := json.Marshal(o.Payload)
	if err != nil {
		return fmt.Sprintf("%v", o.Payload)
	}
	return string(b)
}

// TurnContent is the text of the synthetic turn appended after a tool call.
func (o *Outcome) TurnContent() string {
	return fmt.Sprintf("Tool result for '%s':\n%s", o.ToolName, o.Text())
}
