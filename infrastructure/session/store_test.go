package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db, time.Millisecond)
	require.NoError(t, store.InitializeSchema())
	return store
}

func TestStoreTokenRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", token)

	require.NoError(t, store.SetToken(ctx, "bearer-abc"))

	token, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bearer-abc", token)

	// updates overwrite
	require.NoError(t, store.SetToken(ctx, "bearer-def"))
	token, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bearer-def", token)
}

func TestStoreTokenRetriesOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// write lands between the first and second lookup
	go func() {
		time.Sleep(store.retryDelay / 2)
		_ = store.SetToken(context.Background(), "late-token")
	}()

	start := time.Now()
	token, err := store.Token(ctx)
	require.NoError(t, err)

	if token == "" {
		// the write may still have lost the race; retry must at least
		// have waited
		assert.GreaterOrEqual(t, time.Since(start), store.retryDelay)
	} else {
		assert.Equal(t, "late-token", token)
	}
}

func TestStoreTokenHonorsContext(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Token(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreUserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetUser(ctx, `{"email":"ops@example.com"}`))

	payload, err := store.User(ctx)
	require.NoError(t, err)
	assert.Contains(t, payload, "ops@example.com")
}

func TestStoreClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetToken(ctx, "bearer-abc"))
	require.NoError(t, store.SetUser(ctx, "user-payload"))

	require.NoError(t, store.Clear(ctx))

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", token)

	payload, err := store.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", payload)
}
