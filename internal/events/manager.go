package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Emitter is what services depend on to publish events after a commit
type Emitter interface {
	EmitTyped(eventType EventType, module string, data EventData)
	EmitError(module string, err error, context map[string]interface{})
}

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus for subscribers
func (m *Manager) Bus() *Bus {
	return m.bus
}

// EmitTyped emits an event with typed data to the bus and logs it
func (m *Manager) EmitTyped(eventType EventType, module string, data EventData) {
	dataMap := convertEventDataToMap(data)

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      dataMap,
		Module:    module,
	}

	m.bus.Emit(eventType, module, dataMap)

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	}
	m.EmitTyped(ErrorOccurred, module, data)
}

// NopEmitter discards every event. Used by tools that run without subscribers.
type NopEmitter struct{}

// EmitTyped implements Emitter
func (NopEmitter) EmitTyped(EventType, string, EventData) {}

// EmitError implements Emitter
func (NopEmitter) EmitError(string, error, map[string]interface{}) {}
