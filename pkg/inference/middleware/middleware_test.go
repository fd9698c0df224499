package middleware

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/trustagent/pkg/conversation"
	"github.com/go-go-golems/trustagent/pkg/inference/engine"
	"github.com/go-go-golems/trustagent/pkg/tokens"
)

// MockEngine records the prompts it receives and returns a fixed reply.
type MockEngine struct {
	reply   string
	err     error
	prompts [][]conversation.Turn
}

func (m *MockEngine) Complete(ctx context.Context, messages []conversation.Turn) (string, error) {
	m.prompts = append(m.prompts, messages)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func TestMiddlewareChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, messages []conversation.Turn) (string, error) {
				order = append(order, name)
				reply, err := next(ctx, messages)
				return name + "(" + reply + ")", err
			}
		}
	}

	e := NewEngineWithMiddleware(&MockEngine{reply: "hello"}, tag("a"), tag("b"))
	reply, err := e.Complete(context.Background(), []conversation.Turn{conversation.NewUserTurn("hi")})

	require.NoError(t, err)
	require.Equal(t, "a(b(hello))", reply)
	require.Equal(t, []string{"a", "b"}, order)
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	var buf strings.Builder
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	mock := &MockEngine{reply: "hello"}
	e := NewEngineWithMiddleware(mock, NewLoggingMiddleware(logger))
	reply, err := e.Complete(context.Background(), []conversation.Turn{
		conversation.NewSystemTurn("sys"),
		conversation.NewUserTurn("hi"),
	})
	require.NoError(t, err)
	require.Equal(t, "hello", reply)
	require.Len(t, mock.prompts, 1)
	require.Contains(t, buf.String(), "completion: done")

	mock.err = engine.NewTransportError("completion", errors.New("connection refused"))
	_, err = e.Complete(context.Background(), nil)
	require.ErrorIs(t, err, engine.ErrTransport)
	require.Contains(t, buf.String(), "completion: failed")
}

func TestTokenCountingMiddlewareRecordsUsage(t *testing.T) {
	counter, err := tokens.NewCounter("gpt-4", "")
	require.NoError(t, err)

	var prompt, completion int
	e := NewEngineWithMiddleware(&MockEngine{reply: "hello world"}, NewTokenCountingMiddleware(counter,
		func(_ context.Context, p int, c int) {
			prompt, completion = p, c
		}))

	_, err = e.Complete(context.Background(), []conversation.Turn{conversation.NewUserTurn("hello world")})
	require.NoError(t, err)
	require.Greater(t, prompt, 0)
	require.Equal(t, 2, completion)
}

func TestTokenCountingMiddlewareLogsWithoutRecorder(t *testing.T) {
	counter, err := tokens.NewCounter("gpt-4", "")
	require.NoError(t, err)

	var buf strings.Builder
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	}()

	e := NewEngineWithMiddleware(&MockEngine{reply: "hello world"}, NewTokenCountingMiddleware(counter, nil))
	_, err = e.Complete(context.Background(), []conversation.Turn{conversation.NewUserTurn("hello world")})
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"completion_tokens":2`)
}
