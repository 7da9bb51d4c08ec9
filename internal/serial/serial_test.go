package serial

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, s Serializer) {
	t.Helper()
	var (
		active int32
		peak   int32
		wg     sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Do(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&active, 1)
				if n > atomic.LoadInt32(&peak) {
					atomic.StoreInt32(&peak, n)
				}
				atomic.AddInt32(&active, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestLocal(t *testing.T) {
	exercise(t, NewLocal())

	want := errors.New("boom")
	assert.Equal(t, want, NewLocal().Do(context.Background(), func(context.Context) error { return want }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewLocal().Do(ctx, func(context.Context) error { return nil }), context.Canceled)
}

func TestDistributed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	d := NewDistributed(client, "ticket:lock").WithTries(200)
	exercise(t, d)

	want := errors.New("boom")
	err := d.Do(context.Background(), func(context.Context) error { return want })
	require.ErrorIs(t, err, want)
	assert.False(t, mr.Exists("ticket:lock"))
}
