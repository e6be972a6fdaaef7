package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/internal/testutil"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	first := testutil.NewEventBuilder().ID("e1").Author("user").UserText("My favorite course is calculus").Build()
	first.Timestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := testutil.NewEventBuilder().ID("e2").Author("assistant").AssistantText("Calculus homework is due Friday").Build()
	second.Timestamp = first.Timestamp.Add(time.Minute)

	sess := testutil.NewSessionBuilder("s1").App("study").User("bob").Events(first, second).Build()
	require.NoError(t, store.AddSession(ctx, sess))

	results, err := store.Search(ctx, "study", "bob", "calculus", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "e2", results[0].ID)
	assert.Equal(t, "e1", results[1].ID)
	assert.Equal(t, "s1", results[0].SessionID)
	assert.True(t, results[1].Timestamp.Equal(first.Timestamp))

	results, err = store.Search(ctx, "study", "bob", "favorite calculus", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "e1", results[0].ID)
}

func TestStore_PrefixIsolation(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.AddSession(ctx, testutil.NewSessionBuilder("s").App("app").User("ann").
		Event(testutil.NewEventBuilder().UserText("pizza night").Build()).Build()))
	require.NoError(t, store.AddSession(ctx, testutil.NewSessionBuilder("s").App("app").User("annie").
		Event(testutil.NewEventBuilder().UserText("pizza again").Build()).Build()))

	results, err := store.Search(ctx, "app", "ann", "pizza", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "pizza night", results[0].Text)
}

func TestOpen_RequiresDir(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}
