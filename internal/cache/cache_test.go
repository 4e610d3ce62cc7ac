package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/content-dashboard/internal/config"
	"github.com/content-dashboard/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Items []string `json:"items"`
	Page  int      `json:"page"`
}

func newTestCache() (*QueryCache, *MemoryStore) {
	store := NewMemoryStore()
	return NewQueryCache(store, zerolog.Nop(), WithMetrics(metrics.New("test"))), store
}

func TestKeyEncoding(t *testing.T) {
	assert.Equal(t, "all-contents:3:9:1", ContentsKey(3, 9, 1).String())
	assert.Equal(t, "all-contents:3:9", ContentsPrefix(3, 9).String())
	assert.Equal(t, "subcategories:3", SubcategoriesKey(3).String())
	assert.Equal(t, QueryAllContents, ContentsKey(3, 9, 1).Query())
	assert.Equal(t, "", Key{}.Query())
}

func TestKeyHasPrefix(t *testing.T) {
	tests := []struct {
		name   string
		key    Key
		prefix Key
		want   bool
	}{
		{"exact", ContentsKey(3, 9, 1), ContentsKey(3, 9, 1), true},
		{"subcategory", ContentsKey(3, 9, 2), ContentsPrefix(3, 9), true},
		{"query", ContentsKey(3, 9, 2), Key{QueryAllContents}, true},
		{"other subcategory", ContentsKey(3, 90, 1), ContentsPrefix(3, 9), false},
		{"other query", CategoriesKey(), Key{QueryAllContents}, false},
		{"empty prefix", CategoriesKey(), Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.HasPrefix(tt.prefix))
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "all-contents:3:9:1", []byte("a"), 0))
	require.NoError(t, store.Set(ctx, "all-contents:3:9:2", []byte("b"), 0))
	require.NoError(t, store.Set(ctx, "all-contents:3:90:1", []byte("c"), 0))

	got, err := store.Get(ctx, "all-contents:3:9:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	n, err := store.DeletePrefix(ctx, "all-contents:3:9")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.Get(ctx, "all-contents:3:9:2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "all-contents:3:90:1")
	assert.NoError(t, err)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestFetch_HitAfterMiss(t *testing.T) {
	ctx := context.Background()
	qc, _ := newTestCache()
	calls := 0
	fetch := func(context.Context) (page, error) {
		calls++
		return page{Items: []string{"x"}, Page: 1}, nil
	}

	first, err := Fetch(ctx, qc, ContentsKey(3, 9, 1), fetch)
	require.NoError(t, err)
	second, err := Fetch(ctx, qc, ContentsKey(3, 9, 1), fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	qc, store := newTestCache()
	boom := errors.New("boom")

	_, err := Fetch(ctx, qc, ContentsKey(3, 9, 1), func(context.Context) (page, error) {
		return page{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())

	got, err := Fetch(ctx, qc, ContentsKey(3, 9, 1), func(context.Context) (page, error) {
		return page{Page: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)
}

func TestFetch_ConcurrentMissesShareOneCall(t *testing.T) {
	ctx := context.Background()
	qc, _ := newTestCache()

	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) (page, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return page{Page: 1}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Fetch(ctx, qc, ContentsKey(3, 9, 1), fetch)
			assert.NoError(t, err)
			assert.Equal(t, 1, got.Page)
		}()
	}

	// Give the goroutines time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	ctx := context.Background()
	qc, _ := newTestCache()
	version := 0
	fetch := func(context.Context) (page, error) {
		version++
		return page{Page: version}, nil
	}

	got, err := Fetch(ctx, qc, ContentsKey(3, 9, 1), fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)

	require.NoError(t, qc.InvalidateFor(ctx, OpStatus, Scope{CategoryID: 3, SubcategoryID: 9}))

	got, err = Fetch(ctx, qc, ContentsKey(3, 9, 1), fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Page)
}

func TestInvalidate_LeavesOtherSubcategories(t *testing.T) {
	ctx := context.Background()
	qc, store := newTestCache()
	fetch := func(context.Context) (page, error) { return page{Page: 1}, nil }

	_, err := Fetch(ctx, qc, ContentsKey(3, 9, 1), fetch)
	require.NoError(t, err)
	_, err = Fetch(ctx, qc, ContentsKey(4, 1, 1), fetch)
	require.NoError(t, err)

	require.NoError(t, qc.Invalidate(ctx, ContentsPrefix(3, 9)))
	assert.Equal(t, 1, store.Len())
}

func TestFetch_StaleResultIsNotStored(t *testing.T) {
	ctx := context.Background()
	qc, store := newTestCache()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan page)
	go func() {
		got, err := Fetch(ctx, qc, ContentsKey(3, 9, 1), func(context.Context) (page, error) {
			close(started)
			<-release
			return page{Page: 1}, nil
		})
		assert.NoError(t, err)
		done <- got
	}()

	<-started
	require.NoError(t, qc.Invalidate(ctx, ContentsPrefix(3, 9)))
	close(release)

	// The caller still gets its result, but the cache stays empty
	assert.Equal(t, 1, (<-done).Page)
	assert.Equal(t, 0, store.Len())
}

func TestDefaultInvalidationTable(t *testing.T) {
	table := DefaultInvalidationTable()
	scope := Scope{CategoryID: 3, SubcategoryID: 9}

	for _, op := range []Operation{OpCreate, OpUpdate, OpDelete, OpStatus} {
		assert.Equal(t, []Key{ContentsPrefix(3, 9)}, table.Keys(op, scope), op)
		assert.Equal(t, []Key{{QueryAllContents}}, table.Keys(op, Scope{}), op)
	}
	assert.Nil(t, table.Keys(Operation("rename"), scope))
}

func TestOpen_FallsBackToMemory(t *testing.T) {
	store := Open(context.Background(), &config.CacheConfig{Backend: "redis", RedisAddr: "127.0.0.1:1"}, zerolog.Nop())
	defer store.Close()

	_, ok := store.(*MemoryStore)
	assert.True(t, ok, "expected in-memory fallback, got %T", store)
}

func TestOpen_Memory(t *testing.T) {
	store := Open(context.Background(), &config.CacheConfig{Backend: "memory"}, zerolog.Nop())
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)
}
