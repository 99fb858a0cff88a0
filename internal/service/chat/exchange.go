package chat

import (
	"context"

	"github.com/kinnect/kinnect-chat/backend/internal/model/chat"
)

// Exchange is one in-flight backend round trip.
type Exchange struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	reply chat.Message
	err   error
}

func newExchange(id string, cancel context.CancelFunc) *Exchange {
	return &Exchange{
		id:     id,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID identifies the exchange in logs and updates.
func (e *Exchange) ID() string {
	return e.id
}

// Done is closed once the reply or failure has been applied to the session.
func (e *Exchange) Done() <-chan struct{} {
	return e.done
}

// Cancel aborts the round trip. The session records it as a failure.
func (e *Exchange) Cancel() {
	e.cancel()
}

// Wait blocks until the exchange resolves or ctx ends. Failures wrap
// ErrBackendUnavailable. Giving up on ctx does not cancel the exchange.
func (e *Exchange) Wait(ctx context.Context) (chat.Message, error) {
	select {
	case <-e.done:
		return e.reply, e.err
	case <-ctx.Done():
		return chat.Message{}, ctx.Err()
	}
}

func (e *Exchange) resolve(reply chat.Message, err error) {
	e.reply = reply
	e.err = err
	close(e.done)
}
