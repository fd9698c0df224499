package events

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeThinking is emitted once per round, before the completion call.
	EventTypeThinking EventType = "thinking"
	// EventTypeUsingTool is emitted when a reply was parsed as a tool directive.
	EventTypeUsingTool EventType = "using-tool"
	// EventTypeToolResult carries the rendered outcome of a tool call.
	EventTypeToolResult EventType = "tool-result"
	EventTypeFinal      EventType = "final"
	EventTypeError      EventType = "error"
	// EventTypeDiagnostic reports non-fatal anomalies (grammar violations,
	// normalized arguments, ambiguous tool names).
	EventTypeDiagnostic EventType = "diagnostic"
)

type DiagnosticKind string

const (
	DiagnosticFormatViolation     DiagnosticKind = "format-violation"
	DiagnosticArgumentsNormalized DiagnosticKind = "arguments-normalized"
	DiagnosticArgumentsInvalid    DiagnosticKind = "arguments-invalid"
	DiagnosticToolNameCollision   DiagnosticKind = "tool-name-collision"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw JSON payload when the event was decoded with NewEventFromJson
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

// SetPayload stores the raw JSON payload on the event implementation.
func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

var _ Event = &EventImpl{}

type EventThinking struct {
	EventImpl
}

func NewThinkingEvent(metadata EventMetadata) *EventThinking {
	return &EventThinking{
		EventImpl: EventImpl{Type_: EventTypeThinking, Metadata_: metadata},
	}
}

var _ Event = &EventThinking{}

type EventUsingTool struct {
	EventImpl
	ToolName string `json:"tool_name"`
}

func NewUsingToolEvent(metadata EventMetadata, toolName string) *EventUsingTool {
	return &EventUsingTool{
		EventImpl: EventImpl{Type_: EventTypeUsingTool, Metadata_: metadata},
		ToolName:  toolName,
	}
}

var _ Event = &EventUsingTool{}

type ToolResult struct {
	ToolName    string `json:"tool_name"`
	BackendName string `json:"backend_name,omitempty"`
	Result      string `json:"result"`
	Failed      bool   `json:"failed,omitempty"`
	DurationMs  int64  `json:"duration_ms,omitempty"`
}

type EventToolResult struct {
	EventImpl
	ToolResult ToolResult `json:"tool_result"`
}

func NewToolResultEvent(metadata EventMetadata, toolResult ToolResult) *EventToolResult {
	return &EventToolResult{
		EventImpl:  EventImpl{Type_: EventTypeToolResult, Metadata_: metadata},
		ToolResult: toolResult,
	}
}

var _ Event = &EventToolResult{}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal, Metadata_: metadata},
		Text:      text,
	}
}

var _ Event = &EventFinal{}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	s := ""
	if err != nil {
		s = err.Error()
	}
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: metadata},
		ErrorString: s,
	}
}

var _ Event = &EventError{}

type EventDiagnostic struct {
	EventImpl
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	// Detail carries the offending input (raw reply, argument JSON, tool name).
	Detail string `json:"detail,omitempty"`
}

func NewDiagnosticEvent(metadata EventMetadata, kind DiagnosticKind, message string, detail string) *EventDiagnostic {
	return &EventDiagnostic{
		EventImpl: EventImpl{Type_: EventTypeDiagnostic, Metadata_: metadata},
		Kind:      kind,
		Message:   message,
		Detail:    detail,
	}
}

var _ Event = &EventDiagnostic{}

// NewEventFromJson decodes an event previously serialized with json.Marshal,
// e.g. by the WatermillSink.
func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("empty event payload")
	}
	e.payload = b

	var (
		ret Event
		ok  bool
	)
	switch e.Type_ {
	case EventTypeThinking:
		ret, ok = toTypedEvent[EventThinking](b)
	case EventTypeUsingTool:
		ret, ok = toTypedEvent[EventUsingTool](b)
	case EventTypeToolResult:
		ret, ok = toTypedEvent[EventToolResult](b)
	case EventTypeFinal:
		ret, ok = toTypedEvent[EventFinal](b)
	case EventTypeError:
		ret, ok = toTypedEvent[EventError](b)
	case EventTypeDiagnostic:
		ret, ok = toTypedEvent[EventDiagnostic](b)
	default:
		return e, nil
	}
	if !ok {
		return nil, fmt.Errorf("could not decode event of type %s", e.Type_)
	}
	return ret, nil
}

type payloadSetter interface {
	Event
	SetPayload([]byte)
}

func toTypedEvent[T any, PT interface {
	*T
	payloadSetter
}](b []byte) (Event, bool) {
	ret := PT(new(T))
	if err := json.Unmarshal(b, ret); err != nil {
		return nil, false
	}
	ret.SetPayload(b)
	return ret, true
}
