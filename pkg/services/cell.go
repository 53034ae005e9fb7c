package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"taste3d/pkg/logging"
	"taste3d/pkg/models"
)

var (
	// ErrNotRevealed is returned when the viewer of a cell showing its photo is requested
	ErrNotRevealed = errors.New("cell is showing the photo")
	// ErrViewerReleased is returned when the cell left the model state while a caller waited
	ErrViewerReleased = errors.New("viewer released before it was ready")
)

// ViewerFactory mounts a fresh scene for a media item
type ViewerFactory interface {
	Mount(ctx context.Context, item models.MediaItem) (*Scene, error)
}

// Cell is one showcase slot. It shows the photo until toggled, then mounts a
// scene in the background. Leaving the model state releases the scene, and a
// mount that completes after the cell moved on is closed instead of attached.
type Cell struct {
	item    models.MediaItem
	factory ViewerFactory
	logger  *zap.Logger

	mu       sync.Mutex
	state    models.RevealState
	gen      uint64
	cancel   context.CancelFunc
	scene    *Scene
	mountErr error
	ready    chan struct{}
	settled  bool
}

// NewCell creates a cell in the photo state
func NewCell(item models.MediaItem, factory ViewerFactory, logger *zap.Logger) *Cell {
	return &Cell{
		item:    item,
		factory: factory,
		logger:  logging.OrNop(logger).With(zap.String("item", item.ID)),
		state:   models.Photo,
	}
}

// Item returns the media item shown by the cell
func (c *Cell) Item() models.MediaItem {
	return c.item
}

// State returns the current representation
func (c *Cell) State() models.RevealState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Toggle flips between photo and model and returns the new state
func (c *Cell) Toggle() models.RevealState {
	c.mu.Lock()
	var released *Scene
	if c.state == models.Photo {
		c.state = models.Model
		c.beginMountLocked()
	} else {
		c.state = models.Photo
		released = c.releaseLocked()
	}
	state := c.state
	c.mu.Unlock()

	if released != nil {
		released.Close()
	}
	c.logger.Debug("cell toggled", zap.Stringer("state", state))
	return state
}

// Unmount releases any scene and resets the cell to its photo
func (c *Cell) Unmount() {
	c.mu.Lock()
	c.state = models.Photo
	released := c.releaseLocked()
	c.mu.Unlock()

	if released != nil {
		released.Close()
	}
}

// Viewer waits for the current mount and returns its scene
func (c *Cell) Viewer(ctx context.Context) (*Scene, error) {
	c.mu.Lock()
	if c.state != models.Model {
		c.mu.Unlock()
		return nil, ErrNotRevealed
	}
	gen, ready := c.gen, c.ready
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ready:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil, ErrViewerReleased
	}
	return c.scene, c.mountErr
}

func (c *Cell) beginMountLocked() {
	c.gen++
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.ready = make(chan struct{})
	c.settled = false
	c.mountErr = nil
	go c.mount(ctx, c.gen)
}

func (c *Cell) mount(ctx context.Context, gen uint64) {
	scene, err := c.factory.Mount(ctx, c.item)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if scene != nil {
			scene.Close()
		}
		c.logger.Debug("discarded stale viewer")
		return
	}
	c.scene, c.mountErr = scene, err
	c.cancel()
	c.cancel = nil
	c.settleLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("viewer mount failed", zap.Error(err))
	}
}

// releaseLocked invalidates the current mount and hands back its scene for
// closing outside the lock.
func (c *Cell) releaseLocked() *Scene {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	scene := c.scene
	c.scene = nil
	c.mountErr = nil
	c.settleLocked()
	return scene
}

func (c *Cell) settleLocked() {
	if c.ready != nil && !c.settled {
		close(c.ready)
		c.settled = true
	}
}
