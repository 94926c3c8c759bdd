package cache_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/rohmanhakim/booth-archiver/internal/cache"
	"github.com/rohmanhakim/booth-archiver/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_CloneSharesCache(t *testing.T) {
	ctx := context.Background()
	h := cache.NewHandle(cache.New(""))
	clone := h.Clone()

	assert.True(t, h.Same(clone))
	assert.Equal(t, int64(2), h.RefCount())

	require.Nil(t, clone.Add(ctx, "k", "v"))
	v, ok := h.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	clone.Release()
	assert.Equal(t, int64(1), h.RefCount())
	assert.Nil(t, h.AssertSole())
}

func TestHandle_AssertSoleDetectsLeak(t *testing.T) {
	sink := &metadataSinkMock{}
	h := cache.NewHandle(cache.New("/tmp/leak.json", cache.WithMetadataSink(sink)))
	leaked := h.Clone()
	defer leaked.Release()

	err := h.AssertSole()
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "found 2")
	assert.True(t, sink.recordErrorCalled)
	assert.Equal(t, "Handle.AssertSole", sink.recordErrorAction)
}

func TestHandle_DoubleReleasePanics(t *testing.T) {
	h := cache.NewHandle(cache.New(""))
	clone := h.Clone()
	clone.Release()

	assert.PanicsWithError(t, "cache lock error: Release on released handle", func() {
		clone.Release()
	})
	assert.Equal(t, int64(1), h.RefCount())
}

func TestHandle_UseAfterReleasePanics(t *testing.T) {
	h := cache.NewHandle(cache.New(""))
	clone := h.Clone()
	clone.Release()

	assert.Panics(t, func() { clone.Get(context.Background(), "k") })
	assert.Panics(t, func() { clone.Clone() })
}

func TestHandle_NestedAcquisitionPanics(t *testing.T) {
	tests := []struct {
		name string
		run  func(ctx context.Context, h *cache.Handle)
		want string
	}{
		{
			name: "write inside read",
			run: func(ctx context.Context, h *cache.Handle) {
				_ = h.Read(ctx, func(ctx context.Context, _ cache.Reader) error {
					return h.Add(ctx, "k", "v")
				})
			},
			want: "cache lock error: Write while holding read lock",
		},
		{
			name: "read inside write",
			run: func(ctx context.Context, h *cache.Handle) {
				_ = h.Write(ctx, func(ctx context.Context, _ *cache.Cache) error {
					h.Get(ctx, "k")
					return nil
				})
			},
			want: "cache lock error: Read while holding write lock",
		},
		{
			name: "write inside write through a clone",
			run: func(ctx context.Context, h *cache.Handle) {
				clone := h.Clone()
				defer clone.Release()
				_ = h.Write(ctx, func(ctx context.Context, _ *cache.Cache) error {
					clone.Clear(ctx)
					return nil
				})
			},
			want: "cache lock error: Write while holding write lock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := cache.NewHandle(cache.New(""))
			assert.PanicsWithError(t, tt.want, func() {
				tt.run(context.Background(), h)
			})
		})
	}
}

func TestHandle_IndependentCachesDoNotConflict(t *testing.T) {
	fetch := cache.NewHandle(cache.New(""))
	translation := cache.NewHandle(cache.New(""))

	assert.NotPanics(t, func() {
		_ = fetch.Read(context.Background(), func(ctx context.Context, _ cache.Reader) error {
			return translation.Add(ctx, "k", "v")
		})
	})
}

func TestHandle_WritePropagatesError(t *testing.T) {
	h := cache.NewHandle(cache.New(""))
	err := h.Write(context.Background(), func(_ context.Context, c *cache.Cache) error {
		return c.Dump()
	})
	assert.Error(t, err)
}

func TestHandle_ConcurrentWorkers(t *testing.T) {
	ctx := context.Background()
	path := cachePath(t)
	root := cache.NewHandle(cache.New(path))

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		worker := root.Clone()
		go func(id int, h *cache.Handle) {
			defer wg.Done()
			defer h.Release()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("w%02d-%03d", id, i)
				if _, ok := h.Get(ctx, key); !ok {
					_ = h.Add(ctx, key, "v")
				}
				h.Get(ctx, key)
				_ = h.Stats(ctx)
			}
		}(w, worker)
	}
	wg.Wait()

	require.Nil(t, root.AssertSole())

	stats := root.Stats(ctx)
	assert.Equal(t, int64(workers*perWorker), stats.Misses)
	assert.Equal(t, int64(workers*perWorker), stats.Hits)
	assert.Equal(t, workers*perWorker, stats.Size)
	require.NoError(t, root.Audit(ctx).Err())

	// 800 adds is a multiple of the flush interval, so the file is complete
	persisted, err := storage.Load(path)
	require.Nil(t, err)
	assert.Len(t, persisted, workers*perWorker)
}

func TestHandle_KeysAndPump(t *testing.T) {
	ctx := context.Background()
	path := cachePath(t)
	h := cache.NewHandle(cache.New(path))

	require.Nil(t, h.Add(ctx, "b", "2"))
	require.Nil(t, h.Add(ctx, "a", "1"))
	assert.Equal(t, []string{"a", "b"}, slices.Collect(h.Keys(ctx)))

	require.Nil(t, h.Dump(ctx))
	h.Clear(ctx)
	assert.Zero(t, h.Stats(ctx).Size)

	require.Nil(t, h.Pump(ctx))
	assert.Equal(t, 2, h.Stats(ctx).Size)
	assert.Equal(t, path, h.Path())
}
