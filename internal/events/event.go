// Package events stages business events in the ledger outbox and publishes
// them to a sink once committed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.jetify.com/typeid/v2"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
)

const idPrefix = "evt"

// Event is one emitted business event. Seq is strictly increasing within a
// process and orders the outbox.
type Event struct {
	ID         string          `cbor:"1,keyasint" json:"id"`
	Name       string          `cbor:"2,keyasint" json:"name"`
	Payload    json.RawMessage `cbor:"3,keyasint" json:"payload"`
	OccurredAt time.Time       `cbor:"4,keyasint" json:"occurred_at"`
	Seq        int64           `cbor:"5,keyasint" json:"seq"`
}

// OutboxID is the outbox key suffix of e.
func (e Event) OutboxID() string {
	return fmt.Sprintf("%020d_%s", e.Seq, e.ID)
}

var lastSeq atomic.Int64

func nextSeq() int64 {
	for {
		now := time.Now().UnixNano()
		last := lastSeq.Load()
		if now <= last {
			now = last + 1
		}
		if lastSeq.CompareAndSwap(last, now) {
			return now
		}
	}
}

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// New builds an event with a fresh id.
func New(name string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	tid, err := typeid.Generate(idPrefix)
	if err != nil {
		return Event{}, fmt.Errorf("generate event id: %w", err)
	}
	return Event{
		ID:         tid.String(),
		Name:       name,
		Payload:    body,
		OccurredAt: time.Now().UTC(),
		Seq:        nextSeq(),
	}, nil
}

func Encode(e Event) ([]byte, error) {
	return encMode.Marshal(e)
}

func Decode(b []byte) (Event, error) {
	var e Event
	if err := cbor.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

// Stage writes the event into the outbox of txn. It becomes visible only if
// the call commits.
func Stage(txn *ledger.Txn, name string, payload any) (Event, error) {
	e, err := New(name, payload)
	if err != nil {
		return Event{}, domain.Errorf(domain.CodeParseError, "%v", err)
	}
	b, err := Encode(e)
	if err != nil {
		return Event{}, domain.Errorf(domain.CodeParseError, "encode event %s: %v", name, err)
	}
	txn.Put(domain.OutboxKey(e.OutboxID()), b)
	return e, nil
}

// Pending returns up to limit committed outbox events, oldest first.
func Pending(ctx context.Context, store ledger.Store, limit int) ([]Event, error) {
	rows, err := store.Query(ctx, ledger.Selector{Prefix: domain.KeyPrefixOutbox})
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		e, err := Decode(row.Value)
		if err != nil {
			return nil, fmt.Errorf("outbox %s: %w", strings.TrimPrefix(row.Key, domain.KeyPrefixOutbox), err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Ack removes a published event from the outbox.
func Ack(ctx context.Context, store ledger.Store, e Event) error {
	return store.Delete(ctx, domain.OutboxKey(e.OutboxID()))
}
