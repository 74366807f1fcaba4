// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/chatrelay/internal/model"
)

// DefaultTurnTimeout bounds a single turn.
const DefaultTurnTimeout = 30 * time.Second

// Streamer sends one conversation to the relay and reports text as it arrives.
type Streamer interface {
	Stream(ctx context.Context, payload model.RequestPayload, onChunk func(string)) error
}

// =============================================================================
// SESSION
// =============================================================================

// Session owns the current State and runs turns in the background.
//
// Every change produces a new snapshot which is passed to the OnChange
// callback outside the session lock, so the callback may call back into the
// Session. Snapshots can arrive out of order across goroutines; compare
// State.Version to discard stale ones.
type Session struct {
	mu       sync.Mutex
	state    State
	streamer Streamer

	timeout  time.Duration
	onChange func(State)
	now      func() time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTimeout sets the turn timeout.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithOnChange registers the change subscriber.
func WithOnChange(fn func(State)) SessionOption {
	return func(s *Session) {
		s.onChange = fn
	}
}

// WithClock overrides the time source used for new conversations.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates a session starting from initial.
func NewSession(initial State, streamer Streamer, opts ...SessionOption) *Session {
	s := &Session{
		state:    initial,
		streamer: streamer,
		timeout:  DefaultTurnTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOnChange replaces the change subscriber. It is used when the subscriber
// is created after the session, such as a UI program.
func (s *Session) SetOnChange(fn func(State)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to the current state and publishes the result.
func (s *Session) Update(fn func(State) State) State {
	s.mu.Lock()
	next := fn(s.state)
	next.version = s.state.version + 1
	s.state = next
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify(next)
	}
	return next
}

// CreateConversation starts a new conversation and makes it active.
func (s *Session) CreateConversation() State {
	now := s.now()
	return s.Update(func(st State) State { return st.CreateConversation(now) })
}

// SwitchConversation makes id active. Unknown ids are ignored.
func (s *Session) SwitchConversation(id string) State {
	return s.Update(func(st State) State { return st.SwitchConversation(id) })
}

// =============================================================================
// TURNS
// =============================================================================

// Turn is the handle of one submitted turn.
type Turn struct {
	// ConversationID is the conversation the turn writes to.
	ConversationID string

	done chan struct{}
	err  error
}

// Done is closed when the turn ends.
func (t *Turn) Done() <-chan struct{} { return t.done }

// Err returns the turn's error. It is valid after Done is closed.
func (t *Turn) Err() error { return t.err }

// Wait blocks until the turn ends and returns its error.
func (t *Turn) Wait() error {
	<-t.done
	return t.err
}

// Submit appends a user turn and streams the response in the background.
//
// A nil Turn with a nil error means there was nothing to submit.
// ErrTurnInFlight is returned while another turn is outstanding. The turn is
// bounded by the session timeout and by ctx.
func (s *Session) Submit(ctx context.Context, text string, attachments []model.Attachment) (*Turn, error) {
	now := s.now()

	s.mu.Lock()
	next, payload, err := s.state.SubmitTurn(text, attachments, now)
	if err != nil || payload == nil {
		s.mu.Unlock()
		return nil, err
	}
	next.version = s.state.version + 1
	s.state = next
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify(next)
	}

	turn := &Turn{
		ConversationID: next.PendingConversationID(),
		done:           make(chan struct{}),
	}
	log.Printf("TURN_SUBMITTED | conversation=%s model=%s messages=%d",
		turn.ConversationID, payload.Model, len(payload.Messages))

	go s.run(ctx, turn, *payload)
	return turn, nil
}

// run streams one turn and records its outcome.
func (s *Session) run(ctx context.Context, turn *Turn, payload model.RequestPayload) {
	defer close(turn.done)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	convID := turn.ConversationID
	start := time.Now()
	err := s.streamer.Stream(ctx, payload, func(chunk string) {
		s.Update(func(st State) State { return st.ApplyChunk(convID, chunk) })
	})

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", ErrTurnTimeout, s.timeout, err)
	}
	turn.err = err

	if err != nil {
		log.Printf("TURN_FAILED | conversation=%s duration=%s error=%v", convID, time.Since(start), err)
		s.Update(func(st State) State { return st.FailTurn(convID, err) })
		return
	}
	log.Printf("TURN_COMPLETE | conversation=%s duration=%s", convID, time.Since(start))
	s.Update(func(st State) State { return st.CompleteTurn(convID) })
}
