package events

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventMetadata is attached to every event published during a run.
type EventMetadata struct {
	ID uuid.UUID `json:"message_id" yaml:"message_id" mapstructure:"message_id"`
	// RunID identifies one invocation of the tool loop.
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty" mapstructure:"run_id"`
	// SessionID is the chat session the run belongs to, if any.
	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty" mapstructure:"session_id"`
	// Round is 1-based; 0 means the event is not tied to a round.
	Round int    `json:"round,omitempty" yaml:"round,omitempty" mapstructure:"round"`
	Model string `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`
	// Extra carries component specific values
	Extra map[string]interface{} `json:"extra,omitempty" yaml:"extra,omitempty" mapstructure:"extra"`
}

// NewEventMetadata returns metadata with a fresh message id.
func NewEventMetadata(runID string, round int) EventMetadata {
	return EventMetadata{
		ID:    uuid.New(),
		RunID: runID,
		Round: round,
	}
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.RunID != "" {
		e.Str("run_id", em.RunID)
	}
	if em.SessionID != "" {
		e.Str("session_id", em.SessionID)
	}
	if em.Round > 0 {
		e.Int("round", em.Round)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if len(em.Extra) > 0 {
		e.Dict("extra", zerolog.Dict().Fields(em.Extra))
	}
}
