// Package cancellation provides cooperative cancellation of long-running
// problem operations.
//
// A TokenSource is held by the host application and a Token is handed to
// the problem. The host requests cancellation, the problem notices it at
// a convenient point, cleans up and marks the cancellation completed. Only
// then may the host reset the source and reuse the problem.
package cancellation

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// State is the cancellation state shared by a source and its token.
type State int

const (
	// StateNone means no cancellation has been requested.
	StateNone State = iota
	// StateRequested means cancellation was requested but not handled.
	StateRequested
	// StateCompleted means the problem handled the cancellation.
	StateCompleted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateRequested:
		return "requested"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

var (
	// ErrCancelled is returned by operations that stopped because
	// cancellation was requested.
	ErrCancelled = errors.New("operation cancelled")

	// ErrInvalidState is returned for transitions the current state does
	// not allow.
	ErrInvalidState = errors.New("invalid cancellation state")
)

// TokenSource controls the cancellation state of one token.
type TokenSource struct {
	id        uuid.UUID
	state     State
	done      chan struct{}
	callbacks map[int]func(*Token)
	nextID    int
	token     *Token
	mu        sync.Mutex
}

// NewTokenSource creates a source in StateNone.
func NewTokenSource() *TokenSource {
	s := &TokenSource{
		id:        uuid.New(),
		done:      make(chan struct{}),
		callbacks: make(map[int]func(*Token)),
	}
	s.token = &Token{src: s}
	return s
}

// ID identifies the source in logs.
func (s *TokenSource) ID() uuid.UUID { return s.id }

// Token returns the token controlled by this source.
func (s *TokenSource) Token() *Token { return s.token }

// State returns the current state.
func (s *TokenSource) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancel requests cancellation and runs the registered callbacks. It does
// nothing if cancellation was already requested.
func (s *TokenSource) Cancel() {
	s.mu.Lock()
	if s.state != StateNone {
		s.mu.Unlock()
		return
	}
	s.state = StateRequested
	close(s.done)
	callbacks := make([]func(*Token), 0, len(s.callbacks))
	for _, cb := range s.callbacks {
		callbacks = append(callbacks, cb)
	}
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(s.token)
	}
}

// CanReset reports whether the cancellation has been completed.
func (s *TokenSource) CanReset() bool {
	return s.State() == StateCompleted
}

// Reset returns a completed source to StateNone. Resetting a source that
// was never cancelled does nothing.
func (s *TokenSource) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateNone:
		return nil
	case StateRequested:
		return errors.Join(ErrInvalidState, errors.New("cancellation has not been completed"))
	}
	s.state = StateNone
	s.done = make(chan struct{})
	return nil
}

// Token is the problem's view of a TokenSource. A nil token is never
// cancelled.
type Token struct {
	src *TokenSource
}

// CancellationRequested reports whether cancellation has been requested
// and not yet reset.
func (t *Token) CancellationRequested() bool {
	if t == nil {
		return false
	}
	return t.src.State() != StateNone
}

// RaiseIfCancellationRequested returns ErrCancelled once cancellation has
// been requested.
func (t *Token) RaiseIfCancellationRequested() error {
	if t.CancellationRequested() {
		return ErrCancelled
	}
	return nil
}

// CompleteCancellation marks a requested cancellation as handled.
func (t *Token) CompleteCancellation() error {
	if t == nil {
		return ErrInvalidState
	}
	s := t.src
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRequested {
		return errors.Join(ErrInvalidState, errors.New("no cancellation requested"))
	}
	s.state = StateCompleted
	return nil
}

// CanReset reports whether the source may be reset.
func (t *Token) CanReset() bool {
	return t != nil && t.src.CanReset()
}

// Done returns a channel that is closed when cancellation is requested. A
// nil token returns a nil channel, which blocks forever.
func (t *Token) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	t.src.mu.Lock()
	defer t.src.mu.Unlock()
	return t.src.done
}

// Wait blocks until cancellation is requested or ctx is done.
func (t *Token) Wait(ctx context.Context) error {
	select {
	case <-t.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterCallback calls fn when cancellation is requested. If it already
// was, fn runs immediately. The returned function removes the callback.
func (t *Token) RegisterCallback(fn func(*Token)) (deregister func()) {
	if t == nil {
		return func() {}
	}
	s := t.src
	s.mu.Lock()
	if s.state != StateNone {
		s.mu.Unlock()
		fn(t)
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.callbacks[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.callbacks, id)
	}
}

// Context returns a context that is cancelled together with the token.
func (t *Token) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	stop := t.RegisterCallback(func(*Token) { cancel(ErrCancelled) })
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
