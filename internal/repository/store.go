package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
)

// Store is the PostgreSQL Ledger Store. It provides access to the query set
// and transaction scoping.
type Store struct {
	db      *pgxpool.Pool
	queries *Queries
}

var (
	_ ledger.Store   = (*Store)(nil)
	_ ledger.Batcher = (*Store)(nil)
	_ ledger.Pinger  = (*Store)(nil)
)

// NewStore creates a store wrapper around a pgx connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		db:      db,
		queries: New(db),
	}
}

// Queries returns the non-transactional query set.
func (s *Store) Queries() *Queries {
	return s.queries
}

// RunInTx executes fn within a database transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.queries.GetState(ctx, key)
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.queries.PutState(ctx, key, value)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.queries.DeleteState(ctx, key)
}

// Query lists rows under the selector prefix and filters fields locally.
func (s *Store) Query(ctx context.Context, sel ledger.Selector) ([]ledger.KV, error) {
	rows, err := s.queries.ListStateByPrefix(ctx, sel.Prefix)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.KV, 0, len(rows))
	for _, r := range rows {
		if sel.Match(r.Key, r.Value) {
			out = append(out, ledger.KV{Key: r.Key, Value: r.Value})
		}
	}
	return out, nil
}

// Apply commits all writes in one transaction.
func (s *Store) Apply(ctx context.Context, writes []ledger.Write) error {
	return s.RunInTx(ctx, func(q *Queries) error {
		for _, w := range writes {
			if w.Delete {
				if err := q.DeleteState(ctx, w.Key); err != nil {
					return err
				}
				continue
			}
			if err := q.PutState(ctx, w.Key, w.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
