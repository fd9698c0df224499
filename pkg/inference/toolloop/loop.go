package toolloop

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/events"
	"github.com/go-go-golems/trustagent/pkg/inference/directive"
	"github.com/go-go-golems/trustagent/pkg/inference/engine"
	"github.com/go-go-golems/trustagent/pkg/inference/systemprompt"
	"github.com/go-go-golems/trustagent/pkg/inference/tools"
)

// Loop drives a completion engine through rounds of reply, optional tool
// call and observation until the model produces a final answer.
//
// A Loop holds no per-run state and can be shared by concurrent runs.
type Loop struct {
	eng     engine.Engine
	router  *tools.Router
	loopCfg LoopConfig
	sinks   []events.EventSink
}

type Option func(*Loop)

func New(opts ...Option) *Loop {
	l := &Loop{
		loopCfg: DefaultLoopConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.router == nil {
		l.router = tools.NewRouter()
	}
	return l
}

func WithEngine(eng engine.Engine) Option {
	return func(l *Loop) { l.eng = eng }
}

func WithRouter(r *tools.Router) Option {
	return func(l *Loop) { l.router = r }
}

func WithLoopConfig(cfg LoopConfig) Option {
	return func(l *Loop) { l.loopCfg = cfg }
}

// WithEventSinks adds sinks receiving the status events of every run, on
// top of the sinks attached to the run context.
func WithEventSinks(sinks ...events.EventSink) Option {
	return func(l *Loop) { l.sinks = append(l.sinks, sinks...) }
}

// Result is the outcome of a successful run.
type Result struct {
	RunID  string
	Answer string
	// Conversation is the full conversation of the run, starting with the
	// system turn and ending with the final answer.
	Conversation []conversation.Turn
	Rounds       int
	// FormatViolations counts directives that were only recovered by the
	// heuristic parser tier.
	FormatViolations int
}

// snapshotter is implemented by shared registries. The loop snapshots them at
// the start of every round.
type snapshotter interface {
	Snapshot() *tools.Snapshot
}

// Run answers the conversation in history, offering descriptors as tools.
// backends resolves the backend names of the descriptors; it is read at the
// start of each round and never locked across a network call.
//
// history is not modified. Errors are *engine.TransportError for completion
// or cancellation failures, tools.ErrToolNotFound and
// tools.ErrBackendUnavailable for unroutable directives and
// *IterationsExhaustedError when the round cap is reached.
func (l *Loop) Run(
	ctx context.Context,
	history []conversation.Turn,
	descriptors []tools.ToolDescriptor,
	backends tools.BackendLookup,
) (*Result, error) {
	if l == nil {
		return nil, errors.New("tool loop is nil")
	}
	if l.eng == nil {
		return nil, errors.New("tool loop engine is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if backends == nil {
		backends = tools.NewSnapshot(nil, nil)
	}

	maxIterations := l.loopCfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultLoopConfig().MaxIterations
	}

	runID := uuid.NewString()
	ctx = events.WithEventSinks(ctx, l.sinks...)
	base := events.EventMetadataFromContext(ctx)
	base.RunID = runID

	lg := log.With().Str("run_id", runID).Logger()

	for _, c := range tools.Collisions(descriptors) {
		lg.Warn().Str("tool", c.ToolName).Str("winner", c.Winner).Strs("shadowed", c.Shadowed).
			Msg("toolloop: tool name offered by several backends, first one wins")
		events.PublishEventToContext(ctx, events.NewDiagnosticEvent(
			withRound(base, 0), events.DiagnosticToolNameCollision, c.String(), c.ToolName,
		))
	}

	conv := conversation.NewConversation(systemprompt.Ensure(history, systemprompt.Compose(descriptors))...)
	violations := 0

	for round := 1; round <= maxIterations; round++ {
		md := withRound(base, round)
		rctx := events.WithEventMetadata(ctx, md)
		roundBackends := backends
		if s, ok := backends.(snapshotter); ok {
			roundBackends = s.Snapshot()
		}

		events.PublishEventToContext(rctx, events.NewThinkingEvent(withRound(base, round)))

		messages := conv.Window(l.loopCfg.WindowSize)
		lg.Debug().Int("round", round).Int("window_size", len(messages)).Int("conversation_size", conv.Len()).
			Msg("toolloop: requesting completion")

		reply, err := l.eng.Complete(rctx, messages)
		if err != nil {
			return nil, l.fail(rctx, base, round, err)
		}

		parsed := directive.Parse(reply)
		if parsed.Kind == directive.KindFinalAnswer {
			conv.Append(conversation.NewAssistantTurn(reply))
			events.PublishEventToContext(rctx, events.NewFinalEvent(withRound(base, round), reply))
			lg.Debug().Int("round", round).Int("format_violations", violations).Msg("toolloop: final answer")
			return &Result{
				RunID:            runID,
				Answer:           reply,
				Conversation:     conv.Turns(),
				Rounds:           round,
				FormatViolations: violations,
			}, nil
		}

		d := parsed.Directive
		if parsed.FormatViolation() {
			violations++
			lg.Warn().Int("round", round).Str("tool", d.ToolName).
				Msg("toolloop: tool directive was surrounded by other text")
			events.PublishEventToContext(rctx, events.NewDiagnosticEvent(
				withRound(base, round), events.DiagnosticFormatViolation,
				"tool directive was not the only content of the reply", reply,
			))
		}

		lg.Info().Int("round", round).Str("tool", d.ToolName).Msg("toolloop: using tool")
		events.PublishEventToContext(rctx, events.NewUsingToolEvent(withRound(base, round), d.ToolName))
		conv.Append(conversation.NewAssistantTurn(reply))

		outcome, err := l.router.Route(rctx, tools.Call{ToolName: d.ToolName, Arguments: d.Arguments}, descriptors, roundBackends)
		if err != nil {
			return nil, l.fail(rctx, base, round, err)
		}
		conv.Append(conversation.NewUserTurn(outcome.TurnContent()))
	}

	lg.Warn().Int("max_iterations", maxIterations).Msg("toolloop: maximum iterations reached")
	err := &IterationsExhaustedError{MaxIterations: maxIterations, Conversation: conv.Turns()}
	events.PublishEventToContext(ctx, events.NewErrorEvent(withRound(base, maxIterations), err))
	return nil, err
}

func (l *Loop) fail(ctx context.Context, base events.EventMetadata, round int, err error) error {
	log.Error().Err(err).Str("run_id", base.RunID).Int("round", round).Msg("toolloop: run failed")
	events.PublishEventToContext(ctx, events.NewErrorEvent(withRound(base, round), err))
	return err
}

func withRound(md events.EventMetadata, round int) events.EventMetadata {
	md.ID = uuid.New()
	md.Round = round
	return md
}
