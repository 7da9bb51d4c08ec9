package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Sink receives committed events.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// LogSink writes events to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, e Event) error {
	s.logger.Info("ledger_event",
		zap.String("event_id", e.ID),
		zap.String("event", e.Name),
		zap.ByteString("payload", e.Payload),
		zap.Time("occurred_at", e.OccurredAt),
	)
	return nil
}

// StreamSink appends events to a Redis stream.
type StreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamSink(client *redis.Client, stream string) *StreamSink {
	return &StreamSink{client: client, stream: stream, maxLen: 100000}
}

func (s *StreamSink) Publish(ctx context.Context, e Event) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":          e.ID,
			"name":        e.Name,
			"payload":     string(e.Payload),
			"occurred_at": e.OccurredAt.Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// ErrSinkUnavailable is returned while the breaker is open.
var ErrSinkUnavailable = errors.New("event sink unavailable")

// BreakerSink stops calling a failing sink until it has had time to recover.
type BreakerSink struct {
	sink Sink
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerSink(name string, sink Sink, failures uint32, cooldown time.Duration) *BreakerSink {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("event sink breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerSink{sink: sink, cb: cb}
}

func (b *BreakerSink) Publish(ctx context.Context, e Event) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.sink.Publish(ctx, e)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	return err
}

func (b *BreakerSink) State() string {
	return b.cb.State().String()
}
