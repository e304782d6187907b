package pagecache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cache interface {
	GetPage(ctx context.Context, id string) (Entry, bool, error)
	PutPage(ctx context.Context, id string, e Entry) error
	LookupImage(ctx context.Context, key string) (string, bool, error)
	SaveImage(ctx context.Context, key string, localPath string) error
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCaches(t *testing.T) {
	for name, open := range map[string]func(t *testing.T) cache{
		"sqlite": func(t *testing.T) cache { return openStore(t) },
		"memory": func(t *testing.T) cache { return NewMemory() },
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := open(t)

			_, ok, err := c.GetPage(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			first := Entry{CreatedTime: "2024-01-01T00:00:00.000Z", LastEditedTime: "2024-01-02T00:00:00.000Z"}
			require.NoError(t, c.PutPage(ctx, "p1", first))
			got, ok, err := c.GetPage(ctx, "p1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, first, got)

			second := Entry{CreatedTime: first.CreatedTime, LastEditedTime: "2024-02-01T00:00:00.000Z"}
			require.NoError(t, c.PutPage(ctx, "p1", second))
			got, _, err = c.GetPage(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, second, got)

			_, ok, err = c.LookupImage(ctx, "secure.notion-static.com/u/a.png")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.SaveImage(ctx, "secure.notion-static.com/u/a.png", "static/pimages/p1/u-a.png"))
			p, ok, err := c.LookupImage(ctx, "secure.notion-static.com/u/a.png")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "static/pimages/p1/u-a.png", p)
		})
	}
}

func TestStoreConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("page-%02d", i)
			assert.NoError(t, s.PutPage(ctx, id, Entry{CreatedTime: "c", LastEditedTime: id}))
		}(i)
	}
	wg.Wait()

	n, err := s.CountPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	e, ok, err := s.GetPage(ctx, "page-07")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "page-07", e.LastEditedTime)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.PutPage(ctx, "p", Entry{CreatedTime: "a", LastEditedTime: "b"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	e, ok, err := s.GetPage(ctx, "p")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", e.LastEditedTime)
}
