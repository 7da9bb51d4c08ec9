// Package serial runs contract calls one at a time, the way a ledger host
// orders transactions.
package serial

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Serializer executes fn exclusively with respect to every other call made
// through the same serializer.
type Serializer interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Local serializes calls within one process.
type Local struct {
	mu sync.Mutex
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

const (
	defaultLockExpiry = 30 * time.Second
	defaultLockTries  = 64
	defaultRetryDelay = 50 * time.Millisecond
)

// Distributed serializes calls across processes with a Redis lock.
type Distributed struct {
	rs     *redsync.Redsync
	key    string
	expiry time.Duration
	tries  int
}

func NewDistributed(client *redis.Client, key string) *Distributed {
	return &Distributed{
		rs:     redsync.New(goredis.NewPool(client)),
		key:    key,
		expiry: defaultLockExpiry,
		tries:  defaultLockTries,
	}
}

func (d *Distributed) WithExpiry(expiry time.Duration) *Distributed {
	if expiry > 0 {
		d.expiry = expiry
	}
	return d
}

func (d *Distributed) WithTries(tries int) *Distributed {
	if tries > 0 {
		d.tries = tries
	}
	return d
}

func (d *Distributed) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	mutex := d.rs.NewMutex(
		d.key,
		redsync.WithExpiry(d.expiry),
		redsync.WithTries(d.tries),
		redsync.WithRetryDelay(defaultRetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("acquire ledger lock %s: %w", d.key, err)
	}
	defer func() {
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			zap.L().Warn("failed to release ledger lock", zap.String("key", d.key), zap.Bool("unlock_ok", ok), zap.Error(err))
		}
	}()
	return fn(ctx)
}
