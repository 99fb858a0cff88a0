package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kinnect/kinnect-chat/backend/internal/model/chat"
	"github.com/kinnect/kinnect-chat/backend/internal/model/persona"
)

// Completer is the chat-completion backend: given the ordered history it
// returns one assistant reply or an error.
type Completer interface {
	Complete(ctx context.Context, history []chat.Message) (chat.Message, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, history []chat.Message) (chat.Message, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, history []chat.Message) (chat.Message, error) {
	return f(ctx, history)
}

// Update event names.
const (
	UpdateSnapshot = "snapshot"
	UpdateDelta    = "delta"
	UpdateError    = "error"
)

// Update is pushed to observers whenever the session changes.
type Update struct {
	Event      string        `json:"event"`
	Session    *chat.Session `json:"session,omitempty"`
	ExchangeID string        `json:"exchangeId,omitempty"`
	Delta      string        `json:"delta,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Option customises a Controller.
type Option func(*Controller)

// WithSessionID sets the id reported in snapshots.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.sessionID = id }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIDGenerator replaces uuid message ids, mostly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) {
		if fn != nil {
			c.now = fn
		}
	}
}

// WithExchangeTimeout bounds every backend round trip. Zero means no limit.
func WithExchangeTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// Controller owns one chat session. It is safe for concurrent use; the
// session lock is never held while the backend is working.
type Controller struct {
	personas  persona.Store
	completer Completer
	logger    *zap.Logger
	newID     func() string
	now       func() time.Time
	timeout   time.Duration
	sessionID string

	mu       sync.Mutex
	state    chat.Session
	inflight *Exchange
	subs     map[int]chan Update
	nextSub  int
	closed   bool
}

// NewController initializes a session on the catalog's default persona.
func NewController(personas persona.Store, completer Completer, opts ...Option) (*Controller, error) {
	if personas == nil || len(personas.List()) == 0 {
		return nil, ErrEmptyCatalog
	}
	if completer == nil {
		return nil, errors.New("completer is required")
	}

	c := &Controller{
		personas:  personas,
		completer: completer,
		logger:    zap.NewNop(),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
		subs:      make(map[int]chan Update),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.state = Initialize(c.sessionID, personas.Default(), c.newID(), c.now())
	c.logger = c.logger.With(zap.String("session", c.sessionID))
	return c, nil
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() chat.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// History returns a copy of the message history.
func (c *Controller) History() []chat.Message {
	return c.Snapshot().History
}

// ActivePersona returns the persona the session is currently bound to.
func (c *Controller) ActivePersona() persona.Persona {
	p, _ := c.personas.FindByID(c.Snapshot().ActivePersonaID)
	return p
}

// SelectPersona switches the session to persona id and asks the backend to
// acknowledge the new directive.
func (c *Controller) SelectPersona(ctx context.Context, id string) (*Exchange, error) {
	p, err := c.personas.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownPersona, err)
	}

	ex, err := c.dispatch(ctx, PersonaSelected{Persona: p, MessageID: c.newID(), At: c.now()})
	if err != nil {
		return nil, err
	}
	c.logger.Info("persona selected", zap.String("persona", p.ID), zap.String("exchange", ex.ID()))
	return ex, nil
}

// SubmitUserText appends text as a user message and starts an exchange.
// Blank text, or text sent while a reply is pending, is dropped and both
// return values are nil.
func (c *Controller) SubmitUserText(ctx context.Context, text string) (*Exchange, error) {
	return c.dispatch(ctx, UserTextSubmitted{Text: text, MessageID: c.newID(), At: c.now()})
}

// SubmitFile describes the picked file to the backend. Only the name is used.
func (c *Controller) SubmitFile(ctx context.Context, file chat.FileDescriptor) (*Exchange, error) {
	ex, err := c.dispatch(ctx, FileSubmitted{File: file, MessageID: c.newID(), At: c.now()})
	if err == nil && ex != nil {
		c.logger.Info("file submitted", zap.String("file", file.Name), zap.Int64("size", file.Size))
	}
	return ex, err
}

// Subscribe registers an observer. The current snapshot is delivered first.
// When the buffer is full the oldest pending update is dropped.
func (c *Controller) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Update, buffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotUpdateLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close cancels any in-flight exchange and disconnects observers.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.inflight != nil {
		c.inflight.Cancel()
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Controller) dispatch(ctx context.Context, ev Event) (*Exchange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrSessionClosed
	}

	tr, err := Reduce(c.state, ev)
	if err != nil {
		return nil, err
	}
	if tr.Ignored {
		c.logger.Debug("submission ignored", zap.Bool("pending", c.state.Pending))
		return nil, nil
	}

	c.state = tr.Session
	var ex *Exchange
	if tr.StartExchange {
		ex = c.startExchangeLocked(ctx, tr.Session.Clone().History)
	}
	c.publishLocked(c.snapshotUpdateLocked())
	return ex, nil
}

// startExchangeLocked runs the backend call in its own goroutine. The call
// keeps the caller's context values but not its cancellation, so a client
// that stops waiting does not leave the session without a reply.
func (c *Controller) startExchangeLocked(ctx context.Context, history []chat.Message) *Exchange {
	exCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if c.timeout > 0 {
		var cancelTimeout context.CancelFunc
		exCtx, cancelTimeout = context.WithTimeout(exCtx, c.timeout)
		parentCancel := cancel
		cancel = func() {
			cancelTimeout()
			parentCancel()
		}
	}

	ex := newExchange(c.newID(), cancel)
	c.inflight = ex

	exCtx = chat.WithDeltaHandler(exCtx, func(chunk string) {
		c.publishDelta(ex, chunk)
	})

	go func() {
		defer cancel()
		started := time.Now()
		reply, err := c.completer.Complete(exCtx, history)
		c.finish(ex, reply, err, time.Since(started))
	}()
	return ex
}

func (c *Controller) finish(ex *Exchange, reply chat.Message, err error, elapsed time.Duration) {
	if err == nil && strings.TrimSpace(reply.Content) == "" {
		err = errors.New("empty reply")
	}

	var ev Event
	if err != nil {
		if !errors.Is(err, ErrBackendUnavailable) {
			err = fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		ev = ExchangeFailed{Err: err}
	} else {
		reply = chat.Message{
			ID:        c.newID(),
			Role:      chat.RoleAssistant,
			Content:   reply.Content,
			CreatedAt: c.now(),
		}
		ev = ExchangeSucceeded{Reply: reply}
	}

	c.mu.Lock()
	if c.inflight == ex {
		c.inflight = nil
	}
	tr, reduceErr := Reduce(c.state, ev)
	if reduceErr == nil {
		c.state = tr.Session
		if err != nil {
			c.publishLocked(Update{Event: UpdateError, ExchangeID: ex.ID(), Error: err.Error()})
		}
		c.publishLocked(c.snapshotUpdateLocked())
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("exchange failed", zap.String("exchange", ex.ID()), zap.Duration("elapsed", elapsed), zap.Error(err))
		ex.resolve(chat.Message{}, err)
		return
	}
	c.logger.Info("exchange completed", zap.String("exchange", ex.ID()), zap.Duration("elapsed", elapsed), zap.Int("length", len(reply.Content)))
	ex.resolve(reply, nil)
}

func (c *Controller) publishDelta(ex *Exchange, chunk string) {
	if chunk == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight != ex {
		return
	}
	c.publishLocked(Update{Event: UpdateDelta, ExchangeID: ex.ID(), Delta: chunk})
}

func (c *Controller) snapshotUpdateLocked() Update {
	snap := c.state.Clone()
	return Update{Event: UpdateSnapshot, Session: &snap}
}

func (c *Controller) publishLocked(u Update) {
	for _, ch := range c.subs {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
}
