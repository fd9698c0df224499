package middleware

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/events"
	"github.com/go-go-golems/trustagent/pkg/tokens"
)

// UsageRecorder receives the token estimate of each completion call.
type UsageRecorder func(ctx context.Context, promptTokens int, completionTokens int)

// NewTokenCountingMiddleware estimates prompt and reply tokens of every
// completion call. Counting errors are logged and never fail the call.
func NewTokenCountingMiddleware(counter *tokens.Counter, record UsageRecorder) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, messages []conversation.Turn) (string, error) {
			md := events.EventMetadataFromContext(ctx)

			prompt, err := counter.CountTurns(messages)
			if err != nil {
				log.Debug().Err(err).Msg("tokens: could not count prompt")
			} else {
				log.Debug().
					Str("run_id", md.RunID).
					Int("round", md.Round).
					Int("window_size", len(messages)).
					Int("prompt_tokens", prompt).
					Msg("tokens: prompt")
			}

			reply, err := next(ctx, messages)
			if err != nil {
				return reply, err
			}

			completion, cerr := counter.Count(reply)
			if cerr != nil {
				log.Debug().Err(cerr).Msg("tokens: could not count reply")
			} else {
				log.Debug().
					Str("run_id", md.RunID).
					Int("round", md.Round).
					Int("prompt_tokens", prompt).
					Int("completion_tokens", completion).
					Msg("tokens: completion")
			}
			if record != nil {
				record(ctx, prompt, completion)
			}
			return reply, nil
		}
	}
}
