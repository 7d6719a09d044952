// Package events is the structured observability hook for the auth flow.
// Components emit named events with named fields instead of narrating
// their progress to a console; sinks decide what to do with them.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names emitted by the auth flow.
const (
	AuthInitiated         = "auth.initiated"
	AuthPopupBlocked      = "auth.popup_blocked"
	AuthMessageReceived   = "auth.message_received"
	AuthMessageDropped    = "auth.message_dropped"
	AuthStateMismatch     = "auth.state_mismatch"
	AuthVerifierMissing   = "auth.verifier_missing"
	AuthExchangeStarted   = "auth.exchange_started"
	AuthExchangeSucceeded = "auth.exchange_succeeded"
	AuthExchangeFailed    = "auth.exchange_failed"
	AuthProfileFetched    = "auth.profile_fetched"
	AuthProfileFailed     = "auth.profile_failed"
	AuthCompleted         = "auth.completed"
	AuthFailed            = "auth.failed"
	AuthLoggedOut         = "auth.logged_out"
	AuthTimeout           = "auth.timeout"
)

// Event is one observed occurrence in the auth flow. Fields never contain
// token or verifier values.
type Event struct {
	// ID uniquely identifies the event.
	ID string

	// Name is one of the Auth* constants.
	Name string

	// Provider is the provider the event concerns, if any.
	Provider string

	// Time is when the event was emitted.
	Time time.Time

	// Fields carries additional named values.
	Fields map[string]any
}

// Emitter receives events from auth flow components.
type Emitter interface {
	Emit(name, provider string, fields map[string]any)
}

// LogEmitter writes events to a slog logger at debug level, with failures
// at warn level.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates an emitter over the given logger; nil uses the
// default logger.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit implements Emitter.
func (e *LogEmitter) Emit(name, provider string, fields map[string]any) {
	attrs := make([]any, 0, 2+2*len(fields))
	attrs = append(attrs, "event_id", uuid.NewString())
	if provider != "" {
		attrs = append(attrs, "provider", provider)
	}
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}

	switch name {
	case AuthPopupBlocked, AuthStateMismatch, AuthVerifierMissing,
		AuthExchangeFailed, AuthProfileFailed, AuthFailed, AuthTimeout:
		e.logger.Warn(name, attrs...)
	default:
		e.logger.Debug(name, attrs...)
	}
}

// Nop discards all events.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(string, string, map[string]any) {}

// Recorder captures events for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements Emitter.
func (r *Recorder) Emit(name, provider string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{
		ID:       uuid.NewString(),
		Name:     name,
		Provider: provider,
		Time:     time.Now(),
		Fields:   fields,
	})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, ev := range r.events {
		names[i] = ev.Name
	}
	return names
}

// Has reports whether an event with the given name was recorded.
func (r *Recorder) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Name == name {
			return true
		}
	}
	return false
}
