package engine

import (
	"github.com/pkg/errors"
)

// ErrTransport matches every *TransportError with errors.Is.
var ErrTransport = errors.New("transport error")

// TransportError wraps a failure talking to the completion endpoint or a tool
// backend. Its message is the underlying error text, unchanged.
type TransportError struct {
	Op  string
	Err error
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Op + ": unknown transport failure"
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
