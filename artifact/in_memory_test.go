package artifact

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/core"
)

func key(name string) core.ArtifactKey {
	return core.ArtifactKey{AppName: "app", UserID: "u", SessionID: "s", Name: name}
}

func TestInMemoryStore_Versions(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	v, err := store.Save(ctx, key("report.md"), core.Artifact{Data: []byte("v1"), MIMEType: "text/markdown"})
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = store.Save(ctx, key("report.md"), core.Artifact{Data: []byte("v2"), MIMEType: "text/markdown"})
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	latest, err := store.Load(ctx, key("report.md"), 0)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(latest.Data))

	first, err := store.Load(ctx, key("report.md"), 1)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(first.Data))
	assert.Equal(t, "text/markdown", first.MIMEType)

	_, err = store.Load(ctx, key("report.md"), 3)
	require.ErrorIs(t, err, ErrArtifactNotFound)

	versions, err := store.Versions(ctx, key("report.md"))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)
}

func TestInMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	data := []byte("hello")
	_, err := store.Save(ctx, key("a"), core.Artifact{Data: data})
	require.NoError(t, err)
	data[0] = 'H'

	out, err := store.Load(ctx, key("a"), 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out.Data))
	out.Data[0] = 'x'

	again, err := store.Load(ctx, key("a"), 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(again.Data))

	other := core.ArtifactKey{AppName: "app", UserID: "u", SessionID: "other", Name: "a"}
	_, err = store.Load(ctx, other, 0)
	require.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestInMemoryStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	for _, n := range []string{"b", "a"} {
		_, err := store.Save(ctx, key(n), core.Artifact{Data: []byte(n)})
		require.NoError(t, err)
	}
	names, err := store.List(ctx, "app", "u", "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, store.Delete(ctx, key("a")))
	require.ErrorIs(t, store.Delete(ctx, key("a")), ErrArtifactNotFound)
	names, err = store.List(ctx, "app", "u", "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)

	_, err = store.Save(ctx, key(""), core.Artifact{})
	assert.Error(t, err)
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Save(ctx, key(fmt.Sprintf("a%d", i%10)), core.Artifact{Data: []byte("data")})
			assert.NoError(t, err)
			_, _ = store.List(ctx, "app", "u", "s")
		}(i)
	}
	wg.Wait()

	names, err := store.List(ctx, "app", "u", "s")
	require.NoError(t, err)
	assert.Len(t, names, 10)
	versions, err := store.Versions(ctx, key("a0"))
	require.NoError(t, err)
	assert.Len(t, versions, 10)
}
