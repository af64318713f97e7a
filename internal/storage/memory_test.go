package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carter293/reactive-notebook/notebook"
)

func TestMemoryStore_SaveLoad(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	nb := notebook.New("alice", "scratch")
	require.NoError(t, s.Save(ctx, nb))

	loaded, err := s.Load(ctx, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, nb.ID, loaded.ID)
	assert.Equal(t, "alice", loaded.Owner)
}

func TestMemoryStore_LoadMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Load(context.Background(), "does-not-exist")
	assert.Error(t, err)
}

func TestMemoryStore_ListByOwner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a1 := notebook.New("alice", "one")
	a2 := notebook.New("alice", "two")
	b1 := notebook.New("bob", "one")
	require.NoError(t, s.Save(ctx, a1))
	require.NoError(t, s.Save(ctx, a2))
	require.NoError(t, s.Save(ctx, b1))

	ids, err := s.List(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a1.ID, a2.ID}, ids)

	ids, err = s.List(ctx, "bob")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b1.ID}, ids)

	ids, err = s.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryStore_SaveIsIdempotentForOwnerIndex(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	nb := notebook.New("alice", "scratch")
	require.NoError(t, s.Save(ctx, nb))
	require.NoError(t, s.Save(ctx, nb))

	ids, err := s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	nb := notebook.New("alice", "scratch")
	require.NoError(t, s.Save(ctx, nb))
	require.NoError(t, s.Delete(ctx, nb.ID))

	_, err := s.Load(ctx, nb.ID)
	assert.Error(t, err)

	ids, err := s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryStore_DeleteMissingIsNoop(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Delete(context.Background(), "never-existed"))
}
