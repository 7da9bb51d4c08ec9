package ledger

import (
	"context"
	"encoding/json"
	"sort"

	"go.uber.org/zap"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
)

// Txn stages the writes of one call. Reads see staged writes first. Nothing
// reaches the store until Commit, so a call that fails validation leaves no
// trace.
type Txn struct {
	store  Store
	staged map[string]*Write
	order  []string
}

func Begin(store Store) *Txn {
	return &Txn{store: store, staged: make(map[string]*Write)}
}

// Get returns the value at key, honoring staged writes. Absent keys return nil.
func (t *Txn) Get(ctx context.Context, key string) ([]byte, error) {
	if w, ok := t.staged[key]; ok {
		if w.Delete {
			return nil, nil
		}
		return w.Value, nil
	}
	v, err := t.store.Get(ctx, key)
	if err != nil {
		return nil, domain.Errorf(domain.CodeStoreError, "read %s: %v", key, err)
	}
	return v, nil
}

func (t *Txn) Exists(ctx context.Context, key string) (bool, error) {
	v, err := t.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return len(v) > 0, nil
}

// GetJSON decodes the value at key into dst and reports whether it existed.
func (t *Txn) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	v, err := t.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if len(v) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return false, domain.Errorf(domain.CodeParseError, "decode %s: %v", key, err)
	}
	return true, nil
}

func (t *Txn) Put(key string, value []byte) {
	t.stage(Write{Key: key, Value: value})
}

func (t *Txn) PutJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return domain.Errorf(domain.CodeParseError, "encode %s: %v", key, err)
	}
	t.Put(key, b)
	return nil
}

func (t *Txn) Delete(key string) {
	t.stage(Write{Key: key, Delete: true})
}

func (t *Txn) stage(w Write) {
	if _, ok := t.staged[w.Key]; !ok {
		t.order = append(t.order, w.Key)
	}
	t.staged[w.Key] = &w
}

// Query runs sel against the store and overlays staged writes.
func (t *Txn) Query(ctx context.Context, sel Selector) ([]KV, error) {
	rows, err := t.store.Query(ctx, sel)
	if err != nil {
		return nil, domain.Errorf(domain.CodeStoreError, "query %q: %v", sel.Prefix, err)
	}
	if len(t.staged) == 0 {
		return rows, nil
	}
	merged := make(map[string][]byte, len(rows))
	for _, kv := range rows {
		merged[kv.Key] = kv.Value
	}
	for key, w := range t.staged {
		if w.Delete || !sel.Match(key, w.Value) {
			delete(merged, key)
			continue
		}
		merged[key] = w.Value
	}
	out := make([]KV, 0, len(merged))
	for k, v := range merged {
		out = append(out, KV{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Writes returns the staged writes in first-staged key order, one per key.
func (t *Txn) Writes() []Write {
	out := make([]Write, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, *t.staged[k])
	}
	return out
}

// Commit issues every staged write. Stores implementing Batcher apply them
// atomically; others receive them one at a time in staging order.
func (t *Txn) Commit(ctx context.Context) error {
	writes := t.Writes()
	if len(writes) == 0 {
		return nil
	}
	if b, ok := t.store.(Batcher); ok {
		if err := b.Apply(ctx, writes); err != nil {
			zap.L().Error("ledger commit failed", zap.Int("writes", len(writes)), zap.Error(err))
			return domain.Errorf(domain.CodeStoreError, "commit: %v", err)
		}
		t.reset()
		return nil
	}
	for i, w := range writes {
		var err error
		if w.Delete {
			err = t.store.Delete(ctx, w.Key)
		} else {
			err = t.store.Put(ctx, w.Key, w.Value)
		}
		if err != nil {
			zap.L().Error("ledger commit failed",
				zap.String("key", w.Key),
				zap.Int("applied", i),
				zap.Int("writes", len(writes)),
				zap.Error(err),
			)
			return domain.Errorf(domain.CodeStoreError, "commit %s: %v", w.Key, err)
		}
	}
	t.reset()
	return nil
}

func (t *Txn) reset() {
	t.staged = make(map[string]*Write)
	t.order = nil
}
