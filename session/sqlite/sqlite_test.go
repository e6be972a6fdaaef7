package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/internal/testutil"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStore_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)

	sess, err := store.Create(ctx, core.CreateSessionRequest{
		AppName: "recipes", UserID: "alice", SessionID: "s1",
		State: map[string]any{"chef_name": "Alice", "user:diet": "vegan", "temp:x": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, "Alice", sess.State["chef_name"])
	assert.Equal(t, "vegan", sess.State["user:diet"])
	assert.NotContains(t, sess.State, "temp:x")

	_, err = store.Create(ctx, core.CreateSessionRequest{AppName: "recipes", UserID: "alice", SessionID: "s1"})
	require.ErrorIs(t, err, core.ErrSessionExists)

	require.NoError(t, store.Delete(ctx, sess.Key()))
	_, err = store.Get(ctx, sess.Key())
	require.ErrorIs(t, err, core.ErrSessionNotFound)
	require.ErrorIs(t, store.Delete(ctx, sess.Key()), core.ErrSessionNotFound)
}

func TestStore_AppendEventAndReopen(t *testing.T) {
	ctx := context.Background()
	store, path := openStore(t)

	sess, err := store.Create(ctx, core.CreateSessionRequest{AppName: "app", UserID: "u"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	ev := testutil.NewEventBuilder().Invocation("inv-1").Author("assistant").
		AssistantText("saved").
		State("total_recipes", 1).
		State("app:version", "v1").
		Build()
	require.NoError(t, store.AppendEvent(ctx, sess.Key(), ev))
	require.NoError(t, store.AppendEvent(ctx, sess.Key(), testutil.NewEventBuilder().AssistantText("chunk").Partial().Build()))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, sess.Key())
	require.NoError(t, err)
	assert.Equal(t, float64(1), got.State["total_recipes"])
	assert.Equal(t, "v1", got.State["app:version"])
	require.Len(t, got.Events, 1)
	assert.Equal(t, ev.ID, got.Events[0].ID)
	assert.Equal(t, "saved", got.Events[0].Text())
	assert.Equal(t, "assistant", got.Events[0].Author)

	other, err := reopened.Create(ctx, core.CreateSessionRequest{AppName: "app", UserID: "v"})
	require.NoError(t, err)
	assert.Equal(t, "v1", other.State["app:version"])
	assert.NotContains(t, other.State, "total_recipes")
}

func TestStore_ListAndStateDeletion(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)

	for _, id := range []string{"b", "a"} {
		_, err := store.Create(ctx, core.CreateSessionRequest{AppName: "app", UserID: "u", SessionID: id, State: map[string]any{"k": "v"}})
		require.NoError(t, err)
	}
	require.NoError(t, store.AppendEvent(ctx, core.SessionKey{AppName: "app", UserID: "u", SessionID: "a"},
		testutil.NewEventBuilder().AssistantText("x").State("k", nil).Build()))

	list, err := store.List(ctx, "app", "u")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Empty(t, list[0].Events)
	assert.NotContains(t, list[0].State, "k")
	assert.Equal(t, "v", list[1].State["k"])

	missing := core.SessionKey{AppName: "app", UserID: "u", SessionID: "zzz"}
	require.ErrorIs(t, store.AppendEvent(ctx, missing, testutil.NewEventBuilder().Build()), core.ErrSessionNotFound)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	store, _ := openStore(t)
	require.NoError(t, RunMigrations(store.DB(), DefaultMigrations()))

	var version int
	require.NoError(t, store.DB().QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, 2, version)
}
