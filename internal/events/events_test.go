package events

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
)

func TestEncodeDecode(t *testing.T) {
	e, err := New("Mint", map[string]any{"stock_id": "T1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(e.ID, "evt_"))

	b, err := Encode(e)
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)

	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Name, got.Name)
	assert.JSONEq(t, `{"stock_id":"T1"}`, string(got.Payload))
	assert.True(t, e.OccurredAt.Equal(got.OccurredAt))
}

func TestStage_OnlyVisibleAfterCommit(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()

	txn := ledger.Begin(store)
	first, err := Stage(txn, "StoreOrder", []map[string]string{{"order_id": "O1"}})
	require.NoError(t, err)
	second, err := Stage(txn, "PaymentFlow", map[string]string{"amount": "1"})
	require.NoError(t, err)

	pending, err := Pending(ctx, store, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, txn.Commit(ctx))
	pending, err = Pending(ctx, store, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)

	pending, err = Pending(ctx, store, 1)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, Ack(ctx, store, first))
	pending, err = Pending(ctx, store, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "PaymentFlow", pending[0].Name)
}

func TestStreamSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	e, err := New("Burn", map[string]string{"token_id": "T1"})
	require.NoError(t, err)
	require.NoError(t, NewStreamSink(client, "ticket-events").Publish(context.Background(), e))

	msgs, err := client.XRange(context.Background(), "ticket-events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, e.ID, msgs[0].Values["id"])
	assert.Equal(t, "Burn", msgs[0].Values["name"])
}

type failingSink struct{ calls int }

func (f *failingSink) Publish(context.Context, Event) error {
	f.calls++
	return errors.New("down")
}

func TestBreakerSink_OpensAfterFailures(t *testing.T) {
	inner := &failingSink{}
	b := NewBreakerSink("test", inner, 2, time.Minute)
	e, err := New("Mint", nil)
	require.NoError(t, err)

	assert.Error(t, b.Publish(context.Background(), e))
	assert.Error(t, b.Publish(context.Background(), e))
	err = b.Publish(context.Background(), e)
	assert.ErrorIs(t, err, ErrSinkUnavailable)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "open", b.State())
}

func TestLogAndRecorderSinks(t *testing.T) {
	e, err := New("Mint", nil)
	require.NoError(t, err)
	require.NoError(t, NewLogSink(zap.NewNop()).Publish(context.Background(), e))

	r := NewRecorder()
	require.NoError(t, r.Publish(context.Background(), e))
	assert.Len(t, r.Events(), 1)
}
