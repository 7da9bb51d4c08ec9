package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anziyang2000/hq-code-sub003/internal/db"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
	"github.com/anziyang2000/hq-code-sub003/internal/testutil/dblock"
)

func init() {
	_ = godotenv.Load("../../.env") // Load from root
}

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, "nft%", likePrefix("nft"))
	assert.Equal(t, `a\_b\%c\\%`, likePrefix(`a_b%c\`))
}

func TestJSONDoc(t *testing.T) {
	assert.Nil(t, jsonDoc([]byte("used")))
	doc := jsonDoc([]byte(` {"owner":"alice"}`))
	require.NotNil(t, doc)
	assert.Equal(t, `{"owner":"alice"}`, *doc)
}

func TestStore_Integration(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, os.Getenv("DATABASE_URL"))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	dblock.Acquire(t, pool)
	require.NoError(t, db.EnsureSchema(ctx, pool))

	store := NewStore(pool)
	prefix := "test" + uuid.NewString()[:8] + ":"
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM ledger_state WHERE key LIKE $1`, likePrefix(prefix))
	})

	txn := ledger.Begin(store)
	txn.Put(prefix+"A", []byte(`{"owner":"alice","balance":40}`))
	txn.Put(prefix+"B", []byte(`{"owner":"bob","balance":1}`))
	txn.Put(prefix+"marker", []byte("used"))
	require.NoError(t, txn.Commit(ctx))

	v, err := store.Get(ctx, prefix+"marker")
	require.NoError(t, err)
	assert.Equal(t, []byte("used"), v)

	rows, err := store.Query(ctx, ledger.Selector{Prefix: prefix, Fields: map[string]string{"owner": "alice"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, prefix+"A", rows[0].Key)

	require.NoError(t, store.Delete(ctx, prefix+"A"))
	v, err = store.Get(ctx, prefix+"A")
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, store.Ping(ctx))
}
