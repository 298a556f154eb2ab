package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ghbridge/internal/lib/metrics"
	"ghbridge/internal/services/relay/interfaces"
)

// Dispatcher sends notifications in the background. A send never blocks or
// fails the caller; failures are logged and counted.
type Dispatcher struct {
	log      *slog.Logger
	notifier interfaces.Notifier
	timeout  time.Duration
	metrics  *metrics.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(log *slog.Logger, notifier interfaces.Notifier, timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		log:      log,
		notifier: notifier,
		timeout:  timeout,
		metrics:  m,
	}
}

// Dispatch queues text for requesterID. The send outlives ctx cancellation
// but is bounded by the dispatcher timeout. After Wait has been called the
// text is dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, requesterID int64, text string) {
	const op = "relay.Dispatcher.Dispatch"

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.With(slog.String("op", op)).Warn("dispatcher closed, notification dropped",
			slog.Int64("requester_id", requesterID),
		)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.notifier.Notify(ctx, requesterID, text); err != nil {
			d.metrics.IncrementNotificationFailures()
			d.log.With(slog.String("op", op)).Warn("failed to notify requester",
				slog.Int64("requester_id", requesterID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait stops accepting notifications and blocks until every dispatched one
// has finished.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}
