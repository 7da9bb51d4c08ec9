package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries holds the ledger_state statements.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a query set bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// StateRow is one ledger_state row.
type StateRow struct {
	Key   string
	Value []byte
}

const getState = `SELECT value FROM ledger_state WHERE key = $1`

// GetState returns nil when the key is absent.
func (q *Queries) GetState(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := q.db.QueryRow(ctx, getState, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, nil
}

const putState = `
	INSERT INTO ledger_state (key, value, doc, updated_at)
	VALUES ($1, $2, $3::jsonb, NOW())
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value, doc = EXCLUDED.doc, updated_at = NOW()
`

// PutState upserts a value. JSON objects are mirrored into the doc column.
func (q *Queries) PutState(ctx context.Context, key string, value []byte) error {
	if _, err := q.db.Exec(ctx, putState, key, value, jsonDoc(value)); err != nil {
		return fmt.Errorf("failed to put state %s: %w", key, err)
	}
	return nil
}

const deleteState = `DELETE FROM ledger_state WHERE key = $1`

func (q *Queries) DeleteState(ctx context.Context, key string) error {
	if _, err := q.db.Exec(ctx, deleteState, key); err != nil {
		return fmt.Errorf("failed to delete state %s: %w", key, err)
	}
	return nil
}

const listStateByPrefix = `
	SELECT key, value
	FROM ledger_state
	WHERE key LIKE $1 ESCAPE '\'
	ORDER BY key
`

func (q *Queries) ListStateByPrefix(ctx context.Context, prefix string) ([]StateRow, error) {
	rows, err := q.db.Query(ctx, listStateByPrefix, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list state %q: %w", prefix, err)
	}
	defer rows.Close()

	var out []StateRow
	for rows.Next() {
		var r StateRow
		if err := rows.Scan(&r.Key, &r.Value); err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list state %q: %w", prefix, err)
	}
	return out, nil
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func jsonDoc(value []byte) *string {
	trimmed := strings.TrimSpace(string(value))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	return &trimmed
}
