package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/go-go-golems/trustagent/pkg/events"
	"github.com/go-go-golems/trustagent/pkg/inference/engine"
)

// Call is a tool invocation requested by the model.
type Call struct {
	ToolName string
	// Arguments is the raw JSON value sent by the model, possibly empty.
	Arguments json.RawMessage
}

// Router resolves calls to backends and executes them.
type Router struct {
	config RouterConfig
}

type RouterOption func(*Router)

func WithRouterConfig(config RouterConfig) RouterOption {
	return func(r *Router) {
		r.config = config
	}
}

func NewRouter(options ...RouterOption) *Router {
	r := &Router{config: DefaultRouterConfig()}
	for _, o := range options {
		o(r)
	}
	return r
}

func (r *Router) Config() RouterConfig {
	return r.config
}

// Route executes call against the backend owning the tool.
//
// Unknown tools fail with ErrToolNotFound and missing or disconnected backends
// with ErrBackendUnavailable, before any backend is contacted. Failures
// reported by the tool, backend errors and timeouts are returned as a failed
// Outcome. A cancelled ctx yields an *engine.TransportError.
func (r *Router) Route(ctx context.Context, call Call, descriptors []ToolDescriptor, backends BackendLookup) (*Outcome, error) {
	desc, ok := FindDescriptor(descriptors, call.ToolName)
	if !ok {
		return nil, errors.Wrapf(ErrToolNotFound, "%s", call.ToolName)
	}

	backend, ok := backends.Backend(desc.BackendName)
	if !ok || backend == nil || !isConnected(backend) {
		return nil, errors.Wrapf(ErrBackendUnavailable, "%s (tool %s)", desc.BackendName, desc.ToolName)
	}

	args := r.normalizeArguments(ctx, call)

	if r.config.ValidateArguments && len(desc.InputSchema) > 0 {
		if err := validateArguments(desc.InputSchema, args); err != nil {
			log.Warn().Err(err).Str("tool", desc.ToolName).Msg("tool arguments do not match input schema")
			events.PublishEventToContext(ctx, events.NewDiagnosticEvent(
				events.EventMetadataFromContext(ctx),
				events.DiagnosticArgumentsInvalid,
				fmt.Sprintf("arguments for %s do not match its input schema", desc.ToolName),
				err.Error(),
			))
			out := Failure(desc.ToolName, desc.BackendName, err.Error())
			r.publishResult(ctx, out)
			return out, nil
		}
	}

	out, err := r.execute(ctx, backend, desc, args)
	if err != nil {
		return nil, err
	}
	r.publishResult(ctx, out)
	return out, nil
}

func (r *Router) execute(ctx context.Context, backend Backend, desc ToolDescriptor, args map[string]any) (*Outcome, error) {
	callCtx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	log.Info().Str("backend", desc.BackendName).Str("tool", desc.ToolName).Msg("calling tool")
	start := time.Now()
	res, err := backend.CallTool(callCtx, desc.ToolName, args)
	duration := time.Since(start)

	var out *Outcome
	switch {
	case ctx.Err() != nil:
		return nil, engine.NewTransportError("tool call", ctx.Err())
	case err != nil && errors.Is(err, ErrBackendUnavailable):
		return nil, err
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil):
		out = Failure(desc.ToolName, desc.BackendName, fmt.Sprintf("timed out after %s", r.config.Timeout))
	case err != nil:
		out = Failure(desc.ToolName, desc.BackendName, err.Error())
	case res == nil:
		out = Success(desc.ToolName, desc.BackendName, nil)
	case res.IsError:
		out = Failure(desc.ToolName, desc.BackendName, payloadText(res.Payload))
	default:
		out = Success(desc.ToolName, desc.BackendName, res.Payload)
	}
	out.Duration = duration

	ev := log.Debug()
	if out.Failed {
		ev = log.Warn().Str("failure", out.Failure)
	}
	ev.Str("tool", desc.ToolName).Dur("duration", duration).Msg("tool call finished")

	return out, nil
}

// normalizeArguments maps the raw arguments to what backends accept: an
// object, or nil for no arguments. Other JSON shapes are dropped with a
// diagnostic.
func (r *Router) normalizeArguments(ctx context.Context, call Call) map[string]any {
	raw := bytes.TrimSpace(call.Arguments)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '{' {
		var args map[string]any
		if err := json.Unmarshal(raw, &args); err == nil {
			return args
		}
	}

	log.Warn().Str("tool", call.ToolName).Str("arguments", string(raw)).
		Msg("tool arguments are not an object, calling without arguments")
	events.PublishEventToContext(ctx, events.NewDiagnosticEvent(
		events.EventMetadataFromContext(ctx),
		events.DiagnosticArgumentsNormalized,
		fmt.Sprintf("arguments for %s are not an object and were dropped", call.ToolName),
		string(raw),
	))
	return nil
}

func (r *Router) publishResult(ctx context.Context, out *Outcome) {
	events.PublishEventToContext(ctx, events.NewToolResultEvent(
		events.EventMetadataFromContext(ctx),
		events.ToolResult{
			ToolName:    out.ToolName,
			BackendName: out.BackendName,
			Result:      out.Text(),
			Failed:      out.Failed,
			DurationMs:  out.Duration.Milliseconds(),
		},
	))
}

func validateArguments(schema json.RawMessage, args map[string]any) error {
	var document any = args
	if args == nil {
		document = map[string]any{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return errors.Wrap(err, "could not validate arguments")
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}

func payloadText(p any) string {
	switch v := p.(type) {
	case nil:
		return "unknown error"
	case string:
		return v
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%v", p)
	}
	return string(b)
}
