package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/rs/zerolog/log"
)

// ctxKey is an unexported type for keys defined in this package.
type ctxKey int

const (
	ctxKeyEventSinks ctxKey = iota
	ctxKeyEventMetadata
)

// WithEventSinks attaches one or more EventSink instances to the context.
// Downstream code can publish events without access to the loop configuration.
func WithEventSinks(ctx context.Context, sinks ...EventSink) context.Context {
	if len(sinks) == 0 {
		return ctx
	}
	existing := GetEventSinks(ctx)
	combined := append([]EventSink{}, existing...)
	combined = append(combined, sinks...)
	return context.WithValue(ctx, ctxKeyEventSinks, combined)
}

// GetEventSinks returns the list of EventSinks attached to the context.
func GetEventSinks(ctx context.Context) []EventSink {
	if v := ctx.Value(ctxKeyEventSinks); v != nil {
		if sinks, ok := v.([]EventSink); ok {
			return sinks
		}
	}
	return nil
}

// PublishEventToContext publishes the event to all sinks stored in the context.
// If no sinks are present, this is a no-op.
func PublishEventToContext(ctx context.Context, event Event) {
	PublishEvent(event, GetEventSinks(ctx)...)
}

// PublishEvent delivers the event to every sink. Delivery is best-effort:
// errors and panics from a sink are logged and never reach the caller.
func PublishEvent(event Event, sinks ...EventSink) {
	if len(sinks) == 0 {
		log.Trace().Str("component", "events").Str("event_type", string(event.Type())).Msg("PublishEvent: no sinks")
		return
	}
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		publishOne(sink, event)
	}
}

func publishOne(sink EventSink, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("event_type", string(event.Type())).Msg("event sink panicked")
		}
	}()
	if err := sink.PublishEvent(event); err != nil {
		log.Debug().Err(err).Str("event_type", string(event.Type())).Msg("event sink failed")
	}
}

// WithEventMetadata stores the metadata of the current run and round, so that
// events published further down the call stack carry it.
func WithEventMetadata(ctx context.Context, md EventMetadata) context.Context {
	return context.WithValue(ctx, ctxKeyEventMetadata, md)
}

// EventMetadataFromContext returns the metadata stored with WithEventMetadata,
// with a fresh event id.
func EventMetadataFromContext(ctx context.Context) EventMetadata {
	md, _ := ctx.Value(ctxKeyEventMetadata).(EventMetadata)
	md.ID = uuid.New()
	return md
}
