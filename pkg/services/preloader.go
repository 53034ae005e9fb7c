package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"taste3d/pkg/assets"
	"taste3d/pkg/logging"
)

// preloadTimeout bounds a shared fetch once it is detached from its callers
const preloadTimeout = 30 * time.Second

// LoadError reports an asset that could not be fetched or decoded
type LoadError struct {
	URI string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load asset %s: %v", e.URI, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// PreloadCache is the set of URIs already confirmed loaded. Entries never
// expire; it lives as long as whoever constructed it.
type PreloadCache struct {
	items *cache.Cache
}

// NewPreloadCache creates an empty cache
func NewPreloadCache() *PreloadCache {
	return &PreloadCache{items: cache.New(cache.NoExpiration, 0)}
}

// Has reports whether uri was loaded before
func (c *PreloadCache) Has(uri string) bool {
	_, found := c.items.Get(uri)
	return found
}

// Len returns the number of cached URIs
func (c *PreloadCache) Len() int {
	return c.items.ItemCount()
}

// add records uri; it reports false when uri was already present.
func (c *PreloadCache) add(uri string) bool {
	return c.items.Add(uri, struct{}{}, cache.NoExpiration) == nil
}

// Preloader fetches images at most once per cache
type Preloader struct {
	fetcher  assets.Fetcher
	cache    *PreloadCache
	inflight singleflight.Group
	logger   *zap.Logger
}

// NewPreloader creates a preloader; a nil cache gets a fresh one
func NewPreloader(fetcher assets.Fetcher, c *PreloadCache, logger *zap.Logger) *Preloader {
	if c == nil {
		c = NewPreloadCache()
	}
	return &Preloader{
		fetcher: fetcher,
		cache:   c,
		logger:  logging.OrNop(logger),
	}
}

// Cache returns the cache backing the preloader
func (p *Preloader) Cache() *PreloadCache {
	return p.cache
}

// PreloadOne returns once uri is fully fetched and decodable. Cached URIs
// return immediately; concurrent calls for one URI share a single fetch.
func (p *Preloader) PreloadOne(ctx context.Context, uri string) error {
	if p.cache.Has(uri) {
		return nil
	}

	ch := p.inflight.DoChan(uri, func() (any, error) {
		if p.cache.Has(uri) {
			return nil, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), preloadTimeout)
		defer cancel()
		if err := p.load(fctx, uri); err != nil {
			return nil, err
		}
		if p.cache.add(uri) {
			p.logger.Debug("image preloaded", zap.String("uri", uri))
		}
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return &LoadError{URI: uri, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			var loadErr *LoadError
			if errors.As(res.Err, &loadErr) {
				return loadErr
			}
			return &LoadError{URI: uri, Err: res.Err}
		}
		return nil
	}
}

// PreloadMany loads every uri concurrently. It returns the first failure as
// soon as it happens; the remaining loads are cancelled.
func (p *Preloader) PreloadMany(ctx context.Context, uris []string) error {
	if len(uris) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, len(uris))
	for _, uri := range uris {
		go func(uri string) {
			results <- p.PreloadOne(ctx, uri)
		}(uri)
	}

	for range uris {
		if err := <-results; err != nil {
			return err
		}
	}
	return nil
}

func (p *Preloader) load(ctx context.Context, uri string) error {
	rc, err := p.fetcher.Fetch(ctx, uri)
	if err != nil {
		return err
	}
	defer rc.Close()

	if _, _, err := image.DecodeConfig(rc); err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	return nil
}
