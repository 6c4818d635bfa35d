package notifications

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/events"
)

// Recorder subscribes to user-facing events and appends a message per event
// to the outbox, then wakes the dispatcher.
type Recorder struct {
	bus    *events.Bus
	outbox *Outbox
	wake   func()
	unsub  func()
	log    zerolog.Logger
}

// NewRecorder creates a recorder. wake is called after every append and may be nil.
func NewRecorder(bus *events.Bus, outbox *Outbox, wake func(), log zerolog.Logger) *Recorder {
	if wake == nil {
		wake = func() {}
	}
	return &Recorder{
		bus:    bus,
		outbox: outbox,
		wake:   wake,
		log:    log.With().Str("component", "notification_recorder").Logger(),
	}
}

// Start subscribes to the bus
func (r *Recorder) Start() {
	if r.unsub != nil {
		return
	}
	r.unsub = r.bus.SubscribeMany(UserFacingEvents, r.handle)
}

// Stop unsubscribes from the bus
func (r *Recorder) Stop() {
	if r.unsub != nil {
		r.unsub()
		r.unsub = nil
	}
}

func (r *Recorder) handle(event *events.Event) {
	msg, ok := MessageFromEvent(event)
	if !ok {
		return
	}

	// Emitters have already committed; a lost notification never touches the ledger
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.outbox.Append(ctx, msg); err != nil {
		r.log.Error().Err(err).
			Str("kind", msg.Kind).
			Str("user_id", msg.UserID).
			Msg("Failed to record notification")
		return
	}

	r.wake()
}
