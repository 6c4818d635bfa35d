package testing

import (
	"sync"
	"time"

	"github.com/flexinvest/platform/internal/events"
)

// RecordedEvent is one call captured by RecordingEmitter
type RecordedEvent struct {
	Type   events.EventType
	Module string
	Data   events.EventData
}

// RecordingEmitter is an events.Emitter that keeps every emitted event
type RecordingEmitter struct {
	mu     sync.RWMutex
	events []RecordedEvent
}

// NewRecordingEmitter creates an empty recorder
func NewRecordingEmitter() *RecordingEmitter {
	return &RecordingEmitter{}
}

// EmitTyped implements events.Emitter
func (r *RecordingEmitter) EmitTyped(eventType events.EventType, module string, data events.EventData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Type: eventType, Module: module, Data: data})
}

// EmitError implements events.Emitter
func (r *RecordingEmitter) EmitError(module string, err error, context map[string]interface{}) {
	r.EmitTyped(events.ErrorOccurred, module, &events.ErrorEventData{Error: err.Error(), Context: context})
}

// Events returns a copy of everything emitted so far
func (r *RecordingEmitter) Events() []RecordedEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the events of one type
func (r *RecordingEmitter) OfType(eventType events.EventType) []RecordedEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RecordedEvent, 0)
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears recorded events
func (r *RecordingEmitter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Clock is a settable time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock fixed at t
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
