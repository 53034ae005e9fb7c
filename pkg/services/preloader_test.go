package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPreloadOneFetchesOnce(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.set("/assets/img/carbonara.jpg", pngBytes(t))
	p := NewPreloader(fetcher, nil, nil)
	ctx := context.Background()

	require.NoError(t, p.PreloadOne(ctx, "/assets/img/carbonara.jpg"))
	require.NoError(t, p.PreloadOne(ctx, "/assets/img/carbonara.jpg"))
	require.Equal(t, 1, fetcher.count("/assets/img/carbonara.jpg"))
	require.True(t, p.Cache().Has("/assets/img/carbonara.jpg"))
	require.Equal(t, 1, p.Cache().Len())
}

func TestPreloadOneSharesConcurrentFetch(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.set("a.png", pngBytes(t))
	gate := fetcher.block("a.png")
	p := NewPreloader(fetcher, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.PreloadOne(context.Background(), "a.png")
		}()
	}

	// let the callers pile up on the in-flight fetch
	require.Eventually(t, func() bool { return fetcher.count("a.png") == 1 }, time.Second, time.Millisecond)
	close(gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, fetcher.count("a.png"))
}

func TestPreloadOneCancelledCallerDoesNotAbortSharedFetch(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.set("/p.png", pngBytes(t))
	gate := fetcher.block("/p.png")
	p := NewPreloader(fetcher, nil, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() { errA <- p.PreloadOne(ctxA, "/p.png") }()
	require.Eventually(t, func() bool { return fetcher.count("/p.png") == 1 }, time.Second, time.Millisecond)

	errB := make(chan error, 1)
	go func() { errB <- p.PreloadOne(context.Background(), "/p.png") }()

	cancelA()
	err := <-errA
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	require.ErrorIs(t, err, context.Canceled)

	close(gate)
	select {
	case err := <-errB:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("live caller never finished")
	}
	require.True(t, p.Cache().Has("/p.png"))
	require.Equal(t, 1, fetcher.count("/p.png"))
}

func TestPreloadOneReportsLoadError(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.fail("broken.jpg")
	fetcher.set("not-an-image.jpg", []byte("hello"))
	p := NewPreloader(fetcher, nil, nil)

	err := p.PreloadOne(context.Background(), "broken.jpg")
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	require.Equal(t, "broken.jpg", loadErr.URI)
	require.ErrorIs(t, err, errFetch)
	require.Equal(t, "failed to load asset broken.jpg: fetch failed", err.Error())

	err = p.PreloadOne(context.Background(), "not-an-image.jpg")
	require.True(t, errors.As(err, &loadErr))
	require.Equal(t, "not-an-image.jpg", loadErr.URI)

	require.Equal(t, 0, p.Cache().Len(), "failures are not cached")

	// a failed URI is retried on the next call
	require.Error(t, p.PreloadOne(context.Background(), "broken.jpg"))
	require.Equal(t, 2, fetcher.count("broken.jpg"))
}

func TestPreloadManyFailsFast(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.set("a.png", pngBytes(t))
	fetcher.set("c.png", pngBytes(t))
	fetcher.block("a.png")
	fetcher.block("c.png")
	fetcher.fail("b.png")
	p := NewPreloader(fetcher, nil, nil)

	done := make(chan error, 1)
	go func() {
		done <- p.PreloadMany(context.Background(), []string{"a.png", "b.png", "c.png"})
	}()

	select {
	case err := <-done:
		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
		require.Equal(t, "b.png", loadErr.URI)
	case <-time.After(2 * time.Second):
		t.Fatal("PreloadMany waited for the blocked members")
	}
	require.False(t, p.Cache().Has("a.png"))
}

func TestPreloadManyAddsEachURIOnce(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	uris := []string{"1.png", "2.png", "3.png"}
	for _, uri := range uris {
		fetcher.set(uri, pngBytes(t))
	}
	c := NewPreloadCache()
	p := NewPreloader(fetcher, c, nil)

	require.NoError(t, p.PreloadMany(context.Background(), uris))
	require.NoError(t, p.PreloadMany(context.Background(), append(uris, "1.png")))
	require.Equal(t, 3, c.Len())
	for _, uri := range uris {
		require.Equal(t, 1, fetcher.count(uri))
	}
	require.NoError(t, p.PreloadMany(context.Background(), nil))
}
