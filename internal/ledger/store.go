// Package ledger defines the key-value Ledger Store the contract runs on and
// the staging arena that turns a call's writes into a single commit.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// KV is one stored record.
type KV struct {
	Key   string
	Value []byte
}

// Selector picks records whose key starts with Prefix and whose top-level
// JSON fields equal Fields. Field values compare by their string form, so
// the number 40 matches "40".
type Selector struct {
	Prefix string
	Fields map[string]string
}

// Match reports whether the record at key satisfies the selector.
func (s Selector) Match(key string, value []byte) bool {
	if !strings.HasPrefix(key, s.Prefix) {
		return false
	}
	if len(s.Fields) == 0 {
		return true
	}
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return false
	}
	for field, want := range s.Fields {
		got, ok := doc[field]
		if !ok || fieldString(got) != want {
			return false
		}
	}
	return true
}

func fieldString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Store is the Ledger Store. Get returns nil, nil for an absent key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Query(ctx context.Context, sel Selector) ([]KV, error)
}

// Write is one staged mutation.
type Write struct {
	Key    string
	Value  []byte
	Delete bool
}

// Batcher is implemented by stores that can apply several writes atomically.
type Batcher interface {
	Apply(ctx context.Context, writes []Write) error
}

// Pinger is implemented by stores with a remote dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}
