// Package session drives one settings page through its submission lifecycle:
//
//	Idle → Editing → Validating → Valid → Encoding → Sent → Idle
//	                            ↘ Invalid → Editing
//
// Opening a session loads previously saved values and resolves them against
// the schema. Submitting validates the edited values, encodes the payload,
// checks it against the payload contract and hands it to the transport. Only
// one submission runs at a time; overlapping calls fail fast.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-devicecfg/pkg/contract"
	"github.com/goliatone/go-devicecfg/pkg/defaults"
	"github.com/goliatone/go-devicecfg/pkg/payload"
	"github.com/goliatone/go-devicecfg/pkg/persistence"
	"github.com/goliatone/go-devicecfg/pkg/schema"
	"github.com/goliatone/go-devicecfg/pkg/transport"
	"github.com/goliatone/go-devicecfg/pkg/validation"
)

var (
	// ErrNotEditing is returned when Submit or Cancel runs outside Editing.
	ErrNotEditing = errors.New("session: not editing")
	// ErrSubmissionInProgress is returned while another submission runs.
	ErrSubmissionInProgress = errors.New("session: submission in progress")
	// ErrInvalid wraps the field errors of a rejected submission.
	ErrInvalid = errors.New("session: invalid values")
	// ErrTransport wraps a delivery failure. It is never a field error.
	ErrTransport = errors.New("session: transport failed")
	// ErrNoTransport is returned by New without WithTransport.
	ErrNoTransport = errors.New("session: transport is required")
)

// Result describes one submission attempt.
type Result struct {
	ID              uuid.UUID
	Payload         payload.Payload
	FieldErrors     map[string]*validation.ValidationError
	TransportFailed bool
}

// Option configures a Session.
type Option func(*Session)

// WithStore sets the persistence bridge. Defaults to an in-memory store.
func WithStore(store persistence.Store) Option {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// WithTransport sets the payload transport.
func WithTransport(t transport.Transport) Option {
	return func(s *Session) {
		s.transport = t
	}
}

// WithMode selects clamp or strict range handling.
func WithMode(mode validation.Mode) Option {
	return func(s *Session) {
		s.mode = mode
	}
}

// WithLogger injects a structured logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithContract checks payloads against c before sending. When unset the
// contract is derived from the schema.
func WithContract(c *contract.Contract) Option {
	return func(s *Session) {
		if c != nil {
			s.contract = c
		}
	}
}

// WithObserver registers a callback receiving every transition. Observers
// run after the session lock is released.
func WithObserver(fn func(Transition)) Option {
	return func(s *Session) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// WithClock overrides the transition timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session is safe for concurrent use.
type Session struct {
	schema    *schema.Schema
	store     persistence.Store
	transport transport.Transport
	contract  *contract.Contract
	mode      validation.Mode
	logger    *slog.Logger
	observers []func(Transition)
	now       func() time.Time

	mu      sync.Mutex
	state   State
	values  map[string]any
	pending []Transition
}

// New builds an idle session for s.
func New(s *schema.Schema, opts ...Option) (*Session, error) {
	if s == nil {
		return nil, fmt.Errorf("session: schema is required")
	}
	sess := &Session{
		schema: s,
		store:  persistence.NewMemory(nil),
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sess)
		}
	}
	if sess.transport == nil {
		return nil, ErrNoTransport
	}
	if sess.contract == nil {
		sess.contract = contract.Build(s)
	}
	return sess, nil
}

// Schema returns the schema the session was built for.
func (s *Session) Schema() *schema.Schema {
	return s.schema
}

// Mode reports the range handling policy.
func (s *Session) Mode() validation.Mode {
	return s.mode
}

// Contract returns the payload contract checked before sending.
func (s *Session) Contract() *contract.Contract {
	return s.contract
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Values returns a copy of the values currently shown to the user.
func (s *Session) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.values)
}

// Open moves Idle → Editing and returns the values to prefill the form.
// Calling Open while editing returns the current values unchanged. A failing
// store is logged and treated as empty.
func (s *Session) Open(ctx context.Context) (map[string]any, error) {
	s.mu.Lock()
	switch s.state {
	case StateEditing:
		values := maps.Clone(s.values)
		s.mu.Unlock()
		return values, nil
	case StateIdle:
	default:
		s.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	s.mu.Unlock()

	previous, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("loading saved values failed, using defaults", "error", err)
		previous = nil
	}
	report := defaults.ResolveReport(s.schema, previous)
	if len(report.Reset) > 0 {
		s.logger.Warn("saved values no longer valid, reset to defaults", "keys", report.Reset)
	}
	if len(report.Dropped) > 0 {
		s.logger.Debug("dropped saved keys unknown to schema", "keys", report.Dropped)
	}

	s.mu.Lock()
	if s.state != StateIdle {
		// A concurrent Open won the race.
		state, values := s.state, maps.Clone(s.values)
		s.mu.Unlock()
		if state != StateEditing {
			return nil, ErrSubmissionInProgress
		}
		return values, nil
	}
	s.values = report.Values
	s.transition(StateEditing, uuid.Nil)
	values := maps.Clone(s.values)
	s.unlock()
	return values, nil
}

// Cancel abandons editing and returns to Idle.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.state != StateEditing {
		state := s.state
		s.mu.Unlock()
		if state == StateIdle {
			return ErrNotEditing
		}
		return ErrSubmissionInProgress
	}
	s.transition(StateIdle, uuid.Nil)
	s.unlock()
	return nil
}

// Submit overlays raw on the current values, validates, encodes and sends
// them. Field errors return ErrInvalid with Result.FieldErrors set; delivery
// failures return ErrTransport with Result.TransportFailed set. Both leave
// the session in Editing. A successful submission saves the values and
// returns the session to Idle.
func (s *Session) Submit(ctx context.Context, raw map[string]any) (Result, error) {
	result := Result{ID: uuid.New()}

	s.mu.Lock()
	switch s.state {
	case StateEditing:
	case StateIdle:
		s.mu.Unlock()
		return result, ErrNotEditing
	default:
		s.mu.Unlock()
		return result, ErrSubmissionInProgress
	}

	merged := maps.Clone(s.values)
	if merged == nil {
		merged = map[string]any{}
	}
	maps.Copy(merged, raw)
	s.values = merged
	s.transition(StateValidating, result.ID)

	validated, err := validation.ValidateAll(s.schema, merged, s.mode)
	if err != nil {
		result.FieldErrors = validation.ByKey(err)
		s.transition(StateInvalid, result.ID)
		s.transition(StateEditing, result.ID)
		s.unlock()
		s.logger.Debug("submission rejected", "submission", result.ID, "fields", len(result.FieldErrors))
		return result, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	s.transition(StateValid, result.ID)
	s.transition(StateEncoding, result.ID)

	p, err := payload.Encode(validated)
	if err == nil {
		err = s.contract.Check(p)
	}
	if err != nil {
		s.transition(StateEditing, result.ID)
		s.unlock()
		s.logger.Error("encoding failed", "submission", result.ID, "error", err)
		return result, err
	}
	result.Payload = p
	s.unlock()

	if err := s.transport.Send(ctx, p.Clone()); err != nil {
		result.TransportFailed = true
		s.mu.Lock()
		s.transition(StateEditing, result.ID)
		s.unlock()
		s.logger.Error("sending payload failed", "submission", result.ID, "error", err)
		return result, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	accepted := p.Map()
	s.mu.Lock()
	s.values = maps.Clone(accepted)
	s.transition(StateSent, result.ID)
	s.unlock()

	if err := s.store.Save(context.WithoutCancel(ctx), accepted); err != nil {
		s.logger.Warn("saving values failed", "submission", result.ID, "error", err)
	}

	s.mu.Lock()
	s.transition(StateIdle, result.ID)
	s.unlock()
	s.logger.Info("payload sent", "submission", result.ID, "keys", len(p))
	return result, nil
}

// transition must run with s.mu held.
func (s *Session) transition(to State, id uuid.UUID) {
	from := s.state
	if !CanTransition(from, to) {
		panic(fmt.Sprintf("session: illegal transition %s → %s", from, to))
	}
	s.state = to
	s.pending = append(s.pending, Transition{From: from, To: to, Submission: id, At: s.now()})
	s.logger.Debug("transition", "from", from.String(), "to", to.String())
}

// unlock releases s.mu and then notifies observers of queued transitions.
func (s *Session) unlock() {
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, tr := range pending {
		for _, fn := range s.observers {
			fn(tr)
		}
	}
}
