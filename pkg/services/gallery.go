package services

import (
	"context"
	"path"
	"sync"
	"time"

	"go.uber.org/zap"

	"taste3d/pkg/logging"
	"taste3d/pkg/models"
)

// Resolution is what a gallery candidate resolves to
type Resolution struct {
	URI       string
	Thumbnail string
}

// ResolveFunc turns a candidate path into a displayable image
type ResolveFunc func(ctx context.Context, path string) (Resolution, error)

// GalleryOptions tunes the two load phases
type GalleryOptions struct {
	// BatchSize is how many candidates load before the first paint
	BatchSize int
	// RemainderDelay separates the first batch from the background load
	RemainderDelay time.Duration
}

// Gallery loads portfolio candidates in two phases: a first batch awaited
// before Ready closes, then the rest one at a time in the background. The
// display list only ever grows and keeps discovery order.
type Gallery struct {
	resolve ResolveFunc
	opts    GalleryOptions
	logger  *zap.Logger

	mu         sync.RWMutex
	entries    []models.GalleryEntry
	thumbnails []string
	failed     []bool

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
}

// NewGallery creates a gallery over candidates in discovery order
func NewGallery(candidates []string, resolve ResolveFunc, opts GalleryOptions, logger *zap.Logger) *Gallery {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 8
	}
	entries := make([]models.GalleryEntry, len(candidates))
	for i, p := range candidates {
		entries[i] = models.GalleryEntry{Path: p}
	}
	return &Gallery{
		resolve:    resolve,
		opts:       opts,
		logger:     logging.OrNop(logger),
		entries:    entries,
		thumbnails: make([]string, len(candidates)),
		failed:     make([]bool, len(candidates)),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Ready is closed once the first batch settled
func (g *Gallery) Ready() <-chan struct{} {
	return g.ready
}

// Done is closed once every candidate settled
func (g *Gallery) Done() <-chan struct{} {
	return g.done
}

// Start runs both phases in the background
func (g *Gallery) Start(ctx context.Context) {
	go func() {
		g.LoadInitial(ctx)
		if err := g.LoadRemainder(ctx); err != nil {
			g.logger.Info("portfolio background load stopped", zap.Error(err))
		}
	}()
}

// LoadInitial resolves the first batch in discovery order and then closes
// Ready. Later candidates are not requested.
func (g *Gallery) LoadInitial(ctx context.Context) {
	defer g.readyOnce.Do(func() { close(g.ready) })

	for i := 0; i < g.batchEnd(); i++ {
		if ctx.Err() != nil {
			return
		}
		g.resolveAt(ctx, i)
	}
	g.logger.Info("portfolio first batch loaded",
		zap.Int("resolved", len(g.Snapshot())),
		zap.Int("candidates", len(g.entries)))
}

// LoadRemainder waits RemainderDelay, then resolves the candidates after the
// first batch one at a time. A failing candidate is logged and left out.
func (g *Gallery) LoadRemainder(ctx context.Context) error {
	defer g.doneOnce.Do(func() { close(g.done) })

	start := g.batchEnd()
	if start >= len(g.entries) {
		return nil
	}

	timer := time.NewTimer(g.opts.RemainderDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	for i := start; i < len(g.entries); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.resolveAt(ctx, i)
	}
	g.logger.Info("portfolio fully loaded", zap.Int("resolved", len(g.Snapshot())))
	return nil
}

// Snapshot returns the resolved images in discovery order
func (g *Gallery) Snapshot() []models.GalleryImage {
	g.mu.RLock()
	defer g.mu.RUnlock()

	images := make([]models.GalleryImage, 0, len(g.entries))
	for i, entry := range g.entries {
		if !entry.Resolved {
			continue
		}
		images = append(images, models.GalleryImage{
			ID:        len(images) + 1,
			Path:      entry.Path,
			Filename:  path.Base(entry.Path),
			URI:       entry.URI,
			Thumbnail: g.thumbnails[i],
		})
	}
	return images
}

// Pending returns the number of candidates that have not settled yet
func (g *Gallery) Pending() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for i, entry := range g.entries {
		if !entry.Resolved && !g.failed[i] {
			n++
		}
	}
	return n
}

func (g *Gallery) batchEnd() int {
	return min(g.opts.BatchSize, len(g.entries))
}

func (g *Gallery) resolveAt(ctx context.Context, i int) {
	p := g.entries[i].Path
	res, err := g.resolve(ctx, p)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.failed[i] = true
		g.logger.Warn("failed to load portfolio image", zap.String("path", p), zap.Error(err))
		return
	}
	g.entries[i].URI = res.URI
	g.entries[i].Resolved = true
	g.thumbnails[i] = res.Thumbnail
}
