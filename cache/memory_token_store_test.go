package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTokenStore_SetGetDelete(t *testing.T) {
	store := NewMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()
	entry := &TokenEntry{
		UserID:    "user-1",
		Username:  "alice",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	require.NoError(t, store.Set(ctx, "some.jwt.token", entry))

	got, err := store.Get(ctx, "some.jwt.token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "alice", got.Username)

	_, err = store.Get(ctx, "another.jwt.token")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, store.Delete(ctx, "some.jwt.token"))
	_, err = store.Get(ctx, "some.jwt.token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestMemoryTokenStore_ExpiredEntryNotStored(t *testing.T) {
	store := NewMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()
	entry := &TokenEntry{
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	require.NoError(t, store.Set(ctx, "expired.jwt.token", entry))

	_, err := store.Get(ctx, "expired.jwt.token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.Equal(t, 0, store.Count(ctx))
}

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")
	b := HashToken("token-b")

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, HashToken("token-a"))
}
