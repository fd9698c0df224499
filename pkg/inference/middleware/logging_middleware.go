package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/events"
)

// NewLoggingMiddleware logs every completion call with the run and round it
// belongs to.
func NewLoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, messages []conversation.Turn) (string, error) {
			lg := logger
			// fall back to global if uninitialized
			if lg.GetLevel() == zerolog.NoLevel {
				lg = log.Logger
			}

			md := events.EventMetadataFromContext(ctx)
			var numSystem, numUser, numAssistant int
			for _, m := range messages {
				switch m.Role {
				case conversation.RoleSystem:
					numSystem++
				case conversation.RoleUser:
					numUser++
				case conversation.RoleAssistant:
					numAssistant++
				}
			}

			lg = lg.With().
				Str("run_id", md.RunID).
				Int("round", md.Round).
				Int("message_count", len(messages)).
				Int("system_messages", numSystem).
				Int("user_messages", numUser).
				Int("assistant_messages", numAssistant).
				Logger()

			lg.Debug().Msg("completion: starting")
			start := time.Now()

			reply, err := next(ctx, messages)
			if err != nil {
				lg.Error().Err(err).Dur("duration", time.Since(start)).Msg("completion: failed")
				return reply, err
			}

			lg.Debug().Dur("duration", time.Since(start)).Int("reply_len", len(reply)).Msg("completion: done")
			return reply, nil
		}
	}
}
