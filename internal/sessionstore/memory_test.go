package sessionstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateGetAppendList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec, err := store.CreateSession(ctx, SessionRecord{ID: "s1", UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = store.AppendMessage(ctx, MessageRecord{ID: "m1", SessionID: "s1", Role: "user", Content: "hi"})
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, MessageRecord{ID: "m2", SessionID: "s1", Role: "assistant", Content: "hello"})
	require.NoError(t, err)

	msgs, err := store.ListMessages(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
}

func TestMemoryStore_GetSession_NotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_AppendMessage_UnknownSession(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.AppendMessage(context.Background(), MessageRecord{SessionID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteSession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, err := store.CreateSession(ctx, SessionRecord{ID: "s2"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession(ctx, "s2"))
	_, err = store.GetSession(ctx, "s2")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeleteSession(ctx, "s2"), ErrNotFound)
}
