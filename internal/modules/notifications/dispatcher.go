package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/flexinvest/platform/internal/metrics"
)

// DispatcherConfig tunes delivery
type DispatcherConfig struct {
	RatePerSec  int
	MaxAttempts int
	BatchSize   int
	Timeout     time.Duration // per delivery
	Metrics     *metrics.Metrics
}

// Dispatcher drains the outbox into a sink.
// It processes one batch per wake-up; failed rows wait for the next trigger.
type Dispatcher struct {
	outbox      *Outbox
	sink        Sink
	limiter     *rate.Limiter
	maxAttempts int
	batchSize   int
	timeout     time.Duration
	metrics     *metrics.Metrics
	log         zerolog.Logger

	trigger  chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher
func NewDispatcher(outbox *Outbox, sink Sink, cfg DispatcherConfig, log zerolog.Logger) *Dispatcher {
	if cfg.RatePerSec < 1 {
		cfg.RatePerSec = 5
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		outbox:      outbox,
		sink:        sink,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		maxAttempts: cfg.MaxAttempts,
		batchSize:   cfg.BatchSize,
		timeout:     cfg.Timeout,
		metrics:     cfg.Metrics,
		log:         log.With().Str("component", "notification_dispatcher").Str("sink", sink.Name()).Logger(),
		trigger:     make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
		stopped:     make(chan struct{}),
	}
}

// Run starts the dispatch loop. This blocks until Stop() is called.
func (d *Dispatcher) Run() {
	defer close(d.stopped)

	d.log.Info().Msg("Notification dispatcher started")
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.trigger:
			result := d.DrainOnce(d.ctx)
			// A full clean batch means more rows may be waiting
			if result.Sent == d.batchSize {
				d.Trigger()
			}
		}
	}
}

// Stop stops the loop and waits for the in-flight batch to return
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.cancel()
		<-d.stopped
		d.log.Info().Msg("Notification dispatcher stopped")
	})
}

// Trigger wakes up the dispatcher.
// This is non-blocking and can be called from any goroutine.
func (d *Dispatcher) Trigger() {
	select {
	case d.trigger <- struct{}{}:
	default:
		// Trigger already pending
	}
}

// DrainResult counts the outcome of one batch
type DrainResult struct {
	Sent    int
	Retried int
	Failed  int
}

// DrainOnce delivers one batch of pending messages
func (d *Dispatcher) DrainOnce(ctx context.Context) DrainResult {
	var result DrainResult

	entries, err := d.outbox.Pending(ctx, d.batchSize)
	if err != nil {
		d.log.Error().Err(err).Msg("Failed to read outbox")
		return result
	}

	for _, e := range entries {
		if err := d.limiter.Wait(ctx); err != nil {
			// Stopping
			break
		}

		if d.deliver(ctx, e) {
			result.Sent++
			continue
		}
		if e.Attempts+1 >= d.maxAttempts {
			result.Failed++
		} else {
			result.Retried++
		}
	}

	if n, err := d.outbox.CountPending(ctx); err == nil {
		d.metrics.SetNotificationsPending(n)
	}

	if len(entries) > 0 {
		d.log.Debug().
			Int("sent", result.Sent).
			Int("retried", result.Retried).
			Int("failed", result.Failed).
			Msg("Outbox batch processed")
	}
	return result
}

func (d *Dispatcher) deliver(ctx context.Context, e Entry) bool {
	deliverCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	deliveryErr := d.sink.Deliver(deliverCtx, e.Message)
	if deliveryErr == nil {
		if err := d.outbox.MarkSent(ctx, e.ID); err != nil {
			// Delivered but not recorded: the message may be sent again
			d.log.Error().Err(err).Str("notification_id", e.ID).Msg("Failed to mark notification sent")
		}
		d.metrics.ObserveNotification("sent")
		return true
	}

	final, err := d.outbox.MarkAttemptFailed(ctx, e.ID, deliveryErr, d.maxAttempts)
	if err != nil {
		d.log.Error().Err(err).Str("notification_id", e.ID).Msg("Failed to record delivery failure")
	}

	event := d.log.Warn()
	result := "retry"
	if final {
		event = d.log.Error()
		result = "failed"
	}
	event.Err(deliveryErr).
		Str("notification_id", e.ID).
		Str("kind", e.Message.Kind).
		Int("attempt", e.Attempts+1).
		Bool("final", final).
		Msg("Notification delivery failed")
	d.metrics.ObserveNotification(result)
	return false
}
