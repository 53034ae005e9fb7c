package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"taste3d/pkg/logging"
	"taste3d/pkg/models"
)

// ShowcaseSession holds one visitor's cells, in showcase order
type ShowcaseSession struct {
	ID    string
	cells []*Cell
	byID  map[string]*Cell
}

// Cells returns the cells in showcase order
func (s *ShowcaseSession) Cells() []*Cell {
	return s.cells
}

// Cell looks up a cell by item id
func (s *ShowcaseSession) Cell(id string) (*Cell, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Close unmounts every cell, releasing mounted scenes
func (s *ShowcaseSession) Close() {
	for _, c := range s.cells {
		c.Unmount()
	}
}

// Showcase owns the showcase items and the per-visitor sessions over them.
// Sessions expire after ttl of inactivity and release their scenes on eviction.
type Showcase struct {
	items     []models.MediaItem
	factory   ViewerFactory
	preloader *Preloader
	sessions  *cache.Cache
	logger    *zap.Logger
}

// NewShowcase creates a showcase for items
func NewShowcase(items []models.MediaItem, factory ViewerFactory, preloader *Preloader, ttl time.Duration, logger *zap.Logger) *Showcase {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	logger = logging.OrNop(logger)

	sessions := cache.New(ttl, ttl/2)
	sessions.OnEvicted(func(id string, v any) {
		v.(*ShowcaseSession).Close()
		logger.Debug("showcase session ended", zap.String("session", id))
	})

	return &Showcase{
		items:     items,
		factory:   factory,
		preloader: preloader,
		sessions:  sessions,
		logger:    logger,
	}
}

// Items returns the showcase items
func (s *Showcase) Items() []models.MediaItem {
	return s.items
}

// Item looks up a showcase item by id
func (s *Showcase) Item(id string) (models.MediaItem, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return models.MediaItem{}, false
}

// Acquire returns the session for id, refreshing its expiry, or starts a new
// session when id is empty or unknown.
func (s *Showcase) Acquire(id string) *ShowcaseSession {
	if id != "" {
		if v, found := s.sessions.Get(id); found {
			session := v.(*ShowcaseSession)
			s.sessions.SetDefault(id, session)
			return session
		}
	}

	session := &ShowcaseSession{
		ID:   uuid.NewString(),
		byID: make(map[string]*Cell, len(s.items)),
	}
	for _, item := range s.items {
		cell := NewCell(item, s.factory, s.logger)
		session.cells = append(session.cells, cell)
		session.byID[item.ID] = cell
	}
	s.sessions.SetDefault(session.ID, session)
	s.logger.Debug("showcase session started", zap.String("session", session.ID))
	return session
}

// Lookup returns an existing session without creating one
func (s *Showcase) Lookup(id string) (*ShowcaseSession, bool) {
	v, found := s.sessions.Get(id)
	if !found {
		return nil, false
	}
	return v.(*ShowcaseSession), true
}

// End closes the session for id
func (s *Showcase) End(id string) {
	s.sessions.Delete(id)
}

// Sessions returns the number of live sessions
func (s *Showcase) Sessions() int {
	return s.sessions.ItemCount()
}

// Close ends every session
func (s *Showcase) Close() {
	for id := range s.sessions.Items() {
		s.sessions.Delete(id)
	}
}

// LoadPhotos makes sure every showcase photo is loaded. It fails on the first
// photo that cannot be loaded; photos already loaded cost nothing.
func (s *Showcase) LoadPhotos(ctx context.Context) error {
	uris := make([]string, 0, len(s.items))
	for _, item := range s.items {
		uris = append(uris, item.StaticAsset)
	}
	return s.preloader.PreloadMany(ctx, uris)
}

// ModelURIs lists the interactive assets, for background warm-up
func (s *Showcase) ModelURIs() []string {
	uris := make([]string, 0, len(s.items))
	for _, item := range s.items {
		uris = append(uris, item.InteractiveAsset)
	}
	return uris
}
