package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brand struct {
	Slug string `json:"slug"`
}

func newTestCache(t *testing.T) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "catalog", time.Minute), mr
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	var calls int32
	loader := func(context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return []brand{{Slug: "apple"}}, nil
		}
		return []brand{{Slug: "apple"}, {Slug: "samsung"}}, nil
	}

	var got []brand
	require.NoError(t, c.FetchJSON(ctx, &got, loader, "brands"))
	assert.Len(t, got, 1)
	assert.True(t, mr.Exists("catalog:brands:v1"))

	got = nil
	require.NoError(t, c.FetchJSON(ctx, &got, loader, "brands"))
	assert.Len(t, got, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	require.NoError(t, c.Bump(ctx))
	got = nil
	require.NoError(t, c.FetchJSON(ctx, &got, loader, "brands"))
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.True(t, mr.Exists("catalog:brands:v2"))
}

func TestFetchJSONCollapsesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	release := make(chan struct{})
	var calls int32
	loader := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []brand{{Slug: "apple"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got []brand
			assert.NoError(t, c.FetchJSON(ctx, &got, loader, "brands"))
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchJSONPropagatesLoaderError(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("db down")
	var got []brand
	err := c.FetchJSON(context.Background(), &got, func(context.Context) (any, error) { return nil, boom }, "brands")
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("catalog:brands:v1"))
}

func TestNilClientCallsLoader(t *testing.T) {
	c := NewVersioned(nil, "catalog", time.Minute)
	var got []brand
	require.NoError(t, c.FetchJSON(context.Background(), &got, func(context.Context) (any, error) {
		return []brand{{Slug: "nokia"}}, nil
	}, "brands"))
	assert.Equal(t, "nokia", got[0].Slug)
	assert.NoError(t, c.Bump(context.Background()))
}
