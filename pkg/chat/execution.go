package chat

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var ErrExecutionNil = errors.New("execution is nil")

// Execution is one message being answered in the background. It can be
// cancelled and waited for.
type Execution struct {
	SessionID string

	done chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	reply  *Reply
	err    error
}

// StartMessage runs SendMessage in a goroutine. Cancelling the execution
// cancels the run's context, which surfaces as a transport error.
func (s *Service) StartMessage(ctx context.Context, sessionID string, text string) *Execution {
	ctx, cancel := context.WithCancel(ctx)
	e := &Execution{
		SessionID: sessionID,
		done:      make(chan struct{}),
		cancel:    cancel,
	}
	go func() {
		defer cancel()
		reply, err := s.SendMessage(ctx, sessionID, text)
		e.finish(reply, err)
	}()
	return e
}

func (e *Execution) finish(reply *Reply, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reply = reply
	e.err = err
	e.cancel = nil
	close(e.done)
}

// Cancel stops the execution. It is safe to call more than once.
func (e *Execution) Cancel() {
	if e == nil {
		return
	}
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the execution is done.
func (e *Execution) Wait() (*Reply, error) {
	if e == nil {
		return nil, ErrExecutionNil
	}
	<-e.done
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reply, e.err
}

func (e *Execution) IsRunning() bool {
	if e == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// Done is closed when the execution finishes.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}
