package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anziyang2000/hq-code-sub003/internal/events"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
	"github.com/anziyang2000/hq-code-sub003/internal/observability"
)

// EventRelay publishes committed outbox events to a sink and removes them
// once published. Events go out in commit order; a failed publish stops the
// batch so that later events never overtake it.
type EventRelay struct {
	store        ledger.Store
	sink         events.Sink
	pollInterval time.Duration
	batchSize    int
	stopCh       chan struct{}
	stopOnce     sync.Once

	// mu keeps a final drain from overlapping a ticker batch.
	mu sync.Mutex
}

// NewEventRelay creates a relay polling every second, 100 events at a time.
func NewEventRelay(store ledger.Store, sink events.Sink) *EventRelay {
	return &EventRelay{
		store:        store,
		sink:         sink,
		pollInterval: time.Second,
		batchSize:    100,
		stopCh:       make(chan struct{}),
	}
}

func (w *EventRelay) WithPollInterval(interval time.Duration) *EventRelay {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

func (w *EventRelay) WithBatchSize(size int) *EventRelay {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start blocks until Stop is called or ctx is canceled.
func (w *EventRelay) Start(ctx context.Context) {
	zap.L().Info("event relay starting",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize),
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("event relay context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("event relay stop signal received")
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil {
				zap.L().Warn("event relay batch failed", zap.Error(err))
			}
		}
	}
}

func (w *EventRelay) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the relay in a goroutine and returns its stop function.
func (w *EventRelay) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// ProcessOnce publishes one batch and reports how many events were
// delivered.
func (w *EventRelay) ProcessOnce(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending, err := events.Pending(ctx, w.store, 0)
	if err != nil {
		observability.IncrementWorkerRun("event_relay", "failed")
		return 0, err
	}
	observability.SetOutboxBacklog(len(pending))
	if len(pending) > w.batchSize {
		pending = pending[:w.batchSize]
	}

	sent := 0
	for _, e := range pending {
		if err := w.sink.Publish(ctx, e); err != nil {
			observability.IncrementEventPublished(e.Name, "failed")
			observability.IncrementWorkerRun("event_relay", "failed")
			return sent, fmt.Errorf("publish %s %s: %w", e.Name, e.ID, err)
		}
		if err := events.Ack(ctx, w.store, e); err != nil {
			observability.IncrementWorkerRun("event_relay", "failed")
			return sent, fmt.Errorf("ack %s: %w", e.ID, err)
		}
		observability.IncrementEventPublished(e.Name, "success")
		sent++
	}
	observability.IncrementWorkerRun("event_relay", "success")
	return sent, nil
}

func (w *EventRelay) String() string {
	return fmt.Sprintf("EventRelay(interval=%v, batch=%d)", w.pollInterval, w.batchSize)
}
