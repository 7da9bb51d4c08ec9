// Package mongostore keeps the ledger in a MongoDB collection, one document
// per key.
package mongostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
)

// record is the stored document. Doc mirrors JSON object values so the
// collection stays readable from the shell.
type record struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	Doc       bson.M    `bson:"doc,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store implements ledger.Store. Commits run in a session transaction.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var (
	_ ledger.Store   = (*Store)(nil)
	_ ledger.Batcher = (*Store)(nil)
	_ ledger.Pinger  = (*Store)(nil)
)

// Connect dials uri and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	return client, nil
}

func New(client *mongo.Client, database, collection string) *Store {
	return &Store{client: client, coll: client.Database(database).Collection(collection)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var rec record
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: get %s: %w", key, err)
	}
	return rec.Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.put(ctx, key, value); err != nil {
		return fmt.Errorf("mongostore: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, key string, value []byte) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, newRecord(key, value), options.Replace().SetUpsert(true))
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongostore: delete %s: %w", key, err)
	}
	return nil
}

// Query pushes the key prefix down as an anchored regex and filters fields
// locally, since stored field types vary between string and number.
func (s *Store) Query(ctx context.Context, sel ledger.Selector) ([]ledger.KV, error) {
	filter := bson.M{}
	if sel.Prefix != "" {
		filter["_id"] = bson.M{"$regex": "^" + regexp.QuoteMeta(sel.Prefix)}
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongostore: query %s: %w", sel.Prefix, err)
	}
	var recs []record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("mongostore: query %s: %w", sel.Prefix, err)
	}
	out := make([]ledger.KV, 0, len(recs))
	for _, rec := range recs {
		if sel.Match(rec.Key, rec.Value) {
			out = append(out, ledger.KV{Key: rec.Key, Value: rec.Value})
		}
	}
	return out, nil
}

// Apply commits writes in one multi-document transaction. The deployment
// must be a replica set.
func (s *Store) Apply(ctx context.Context, writes []ledger.Write) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongostore: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		for _, w := range writes {
			if w.Delete {
				if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": w.Key}); err != nil {
					return nil, err
				}
				continue
			}
			if err := s.put(ctx, w.Key, w.Value); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("mongostore: apply %d writes: %w", len(writes), err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func newRecord(key string, value []byte) record {
	rec := record{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if trimmed := bytes.TrimSpace(value); len(trimmed) > 0 && trimmed[0] == '{' {
		var doc bson.M
		if err := bson.UnmarshalExtJSON(trimmed, false, &doc); err == nil {
			rec.Doc = doc
		}
	}
	return rec
}
