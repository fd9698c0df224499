package engine

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestTransportErrorIsVerbatimAndMatchable(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:1: connect: connection refused")
	err := error(NewTransportError("chat completion", cause))

	require.Equal(t, cause.Error(), err.Error())
	require.True(t, errors.Is(err, ErrTransport))
	require.True(t, errors.Is(err, cause))

	wrapped := errors.Wrap(err, "round 2")
	require.True(t, errors.Is(wrapped, ErrTransport))

	var te *TransportError
	require.True(t, errors.As(wrapped, &te))
	require.Equal(t, "chat completion", te.Op)
}

func TestTransportErrorMatchesContextCancellation(t *testing.T) {
	err := NewTransportError("chat completion", context.Canceled)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, ErrTransport)
}
