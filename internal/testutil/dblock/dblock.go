// Package dblock serializes integration tests that share the ledger_state
// table of one database.
package dblock

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// LockKey is the advisory lock id every ledger_state test takes.
const LockKey int64 = 0x6c656467

// Acquire blocks until this test holds the session advisory lock on a
// dedicated pool connection. The lock and the connection are released in
// tb.Cleanup, so the pool must be closed by a cleanup registered earlier.
func Acquire(tb testing.TB, pool *pgxpool.Pool) {
	tb.Helper()
	ctx := context.Background()
	conn, err := pool.Acquire(ctx)
	require.NoError(tb, err, "dblock: acquire connection")
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, LockKey); err != nil {
		conn.Release()
		require.NoError(tb, err, "dblock: advisory lock")
	}
	tb.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, LockKey)
		conn.Release()
	})
}

// Held reports whether any session currently holds the lock.
func Held(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
	var held bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_locks WHERE locktype = 'advisory' AND granted AND ((classid::bigint << 32) | objid::bigint) = $1)`,
		LockKey).Scan(&held)
	return held, err
}
