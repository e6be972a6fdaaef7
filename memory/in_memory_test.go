package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/internal/testutil"
)

func TestInMemoryStore_SearchScoresAndOrders(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	old := testutil.NewEventBuilder().ID("e1").Author("user").UserText("I love pasta with tomato").Build()
	old.Timestamp = base
	newer := testutil.NewEventBuilder().ID("e2").Author("assistant").AssistantText("Pasta carbonara is great").Build()
	newer.Timestamp = base.Add(time.Hour)
	unrelated := testutil.NewEventBuilder().ID("e3").Author("user").UserText("What about the weather?").Build()
	partial := testutil.NewEventBuilder().ID("e4").AssistantText("pasta tomato").Partial().Build()

	sess := testutil.NewSessionBuilder("s1").App("app").User("u1").Events(old, newer, unrelated, partial).Build()
	require.NoError(t, store.AddSession(ctx, sess))

	results, err := store.Search(ctx, "app", "u1", "Pasta tomato", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "e1", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "e2", results[1].ID)
	assert.InDelta(t, 0.5, results[1].Score, 1e-9)
	assert.Equal(t, "s1", results[1].SessionID)

	results, err = store.Search(ctx, "app", "u1", "pasta", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "e2", results[0].ID, "newest first within a score")

	results, err = store.Search(ctx, "app", "u1", "pasta", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestInMemoryStore_ScopedToUser(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	sess := testutil.NewSessionBuilder("s1").App("app").User("u1").
		Event(testutil.NewEventBuilder().UserText("secret recipe").Build()).Build()
	require.NoError(t, store.AddSession(ctx, sess))
	require.NoError(t, store.AddSession(ctx, sess))

	results, err := store.Search(ctx, "app", "u2", "recipe", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = store.Search(ctx, "app", "u1", "recipe", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestWordsAndScore(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "42"}, Words("Hello, WORLD! 42"))
	assert.InDelta(t, 0.5, Score([]string{"a", "b", "b"}, "a c"), 1e-9)
	assert.Zero(t, Score(nil, "anything"))
}
