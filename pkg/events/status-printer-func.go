package events

import (
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// StatusPrinterFunc returns a watermill handler that renders run status
// events as short lines on w. Diagnostics are only printed when verbose is set.
func StatusPrinterFunc(w io.Writer, verbose bool) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("message_id", msg.UUID).Msg("could not decode event")
			return nil
		}

		return PrintStatus(w, e, verbose)
	}
}

// PrintStatus writes a one-line rendering of e to w.
func PrintStatus(w io.Writer, e Event, verbose bool) error {
	var err error
	switch ev := e.(type) {
	case *EventThinking:
		_, err = fmt.Fprintf(w, "[round %d] thinking...\n", ev.Metadata().Round)
	case *EventUsingTool:
		_, err = fmt.Fprintf(w, "[round %d] using tool %s\n", ev.Metadata().Round, ev.ToolName)
	case *EventToolResult:
		if !verbose {
			return nil
		}
		status := "ok"
		if ev.ToolResult.Failed {
			status = "failed"
		}
		_, err = fmt.Fprintf(w, "[round %d] tool %s %s (%dms)\n", ev.Metadata().Round, ev.ToolResult.ToolName, status, ev.ToolResult.DurationMs)
	case *EventDiagnostic:
		if !verbose {
			return nil
		}
		_, err = fmt.Fprintf(w, "[round %d] %s: %s\n", ev.Metadata().Round, ev.Kind, ev.Message)
	case *EventError:
		_, err = fmt.Fprintf(w, "error: %s\n", ev.ErrorString)
	case *EventFinal:
		// the answer itself is printed by the caller
	default:
		log.Debug().Str("event_type", string(e.Type())).Msg("unhandled event type")
	}
	return err
}
