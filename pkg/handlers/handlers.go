package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/eknkc/pug"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"taste3d/pkg/assets"
	"taste3d/pkg/config"
	"taste3d/pkg/content"
	"taste3d/pkg/logging"
	"taste3d/pkg/models"
	"taste3d/pkg/services"
)

const (
	sessionCookie  = "taste3d_session"
	requestTimeout = 30 * time.Second
)

func init() {
	_ = mime.AddExtensionType(".glb", "model/gltf-binary")
	_ = mime.AddExtensionType(".usdz", "model/vnd.usdz+zip")
}

// Deps are the services the HTTP layer serves
type Deps struct {
	Config     *config.Config
	Site       *content.Site
	Store      assets.Store
	Showcase   *services.Showcase
	Scenes     *services.SceneLoader
	Preloader  *services.Preloader
	Gallery    *services.Gallery
	Contact    *services.ContactService
	Thumbnails *services.ThumbnailService
	Logger     *zap.Logger
}

// Server renders the site pages and the JSON endpoints behind them
type Server struct {
	Deps
	logger *zap.Logger
}

// NewServer creates a server over deps
func NewServer(deps Deps) *Server {
	return &Server{Deps: deps, logger: logging.OrNop(deps.Logger)}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthHandler)
	r.Handle("/assets/*", http.StripPrefix("/assets/", s.assetHandler()))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/", s.indexHandler)
		r.Post("/contact", s.contactHandler)
		r.Get("/ar", s.arHandler)
		r.Get("/api/capability", s.capabilityHandler)

		r.Route("/showcase/{id}", func(r chi.Router) {
			r.Post("/toggle", s.toggleHandler)
			r.Get("/viewer", s.viewerHandler)
			r.Post("/orbit", s.orbitHandler)
			r.Get("/scene", s.sceneHandler)
		})

		r.Get("/portfolio", s.portfolioHandler)
		r.Get("/portfolio/feed", s.feedHandler)
	})

	if s.Config.AdminKey != "" && s.Thumbnails != nil {
		r.Route("/"+s.Config.AdminKey+"/admin", s.adminRoutes)
	}
	return r
}

// render compiles a pug view and executes it with data
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	s.renderStatus(w, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, err := pug.CompileFile(filepath.Join(s.Config.ViewsDir, name), pug.Options{})
	if err != nil {
		s.logger.Error("template compile error", zap.String("view", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("template execution error", zap.String("view", name), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// session returns the visitor's showcase session, starting one when the
// cookie is missing or expired
func (s *Server) session(w http.ResponseWriter, r *http.Request) *services.ShowcaseSession {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	session := s.Showcase.Acquire(id)
	if session.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    session.ID,
			Path:     "/",
			MaxAge:   int(s.Config.SessionTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return session
}

func cellView(c *services.Cell) models.CellView {
	item := c.Item()
	state := c.State()
	return models.CellView{
		ID:       item.ID,
		Label:    item.Label,
		Photo:    item.StaticAsset,
		Model:    item.InteractiveAsset,
		Revealed: state == models.Model,
		State:    state.String(),
	}
}

func (s *Server) indexPage(w http.ResponseWriter, r *http.Request) models.Index {
	session := s.session(w, r)
	cells := make([]models.CellView, 0, len(session.Cells()))
	for _, c := range session.Cells() {
		cells = append(cells, cellView(c))
	}

	device := services.DetectDevice(r.UserAgent())
	return models.Index{
		Hero:            s.Site.Hero,
		ShowcaseSection: s.Site.Showcase,
		Cells:           cells,
		ARSection:       s.Site.ARSection,
		AR:              services.ARLaunchFor(device, s.Site.AR, s.Config.SiteOrigin),
		ARModel:         s.Site.AR.GLB,
		Services:        s.Site.Services,
		Contact:         s.Site.Contact,
	}
}

// indexHandler renders the landing page
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Showcase.LoadPhotos(r.Context()); err != nil {
		// The page still renders; the browser fetches the photos itself.
		s.logger.Warn("showcase photos not preloaded", zap.Error(err))
	}
	page := s.indexPage(w, r)
	if r.URL.Query().Get("sent") == "1" {
		page.Result = &models.ContactView{Sent: true}
	}
	s.render(w, "index.pug", page)
}

// healthHandler reports liveness and a few gauges
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"sessions":  s.Showcase.Sessions(),
		"scenes":    s.Scenes.Live(),
		"preloaded": s.Preloader.Cache().Len(),
		"portfolio": len(s.Gallery.Snapshot()),
	})
}

// assetHandler serves files from the asset store. Local directories go
// through http.FileServer; bucket objects are streamed.
func (s *Server) assetHandler() http.Handler {
	if local, ok := s.Store.(*assets.LocalStore); ok {
		return http.FileServer(http.Dir(local.Root()))
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		rc, err := s.Store.Open(r.Context(), name)
		if err != nil {
			if errors.Is(err, assets.ErrNotFound) || errors.Is(err, assets.ErrInvalidPath) {
				http.NotFound(w, r)
				return
			}
			s.logger.Error("asset read failed", zap.String("asset", name), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		defer rc.Close()
		if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = io.Copy(w, rc)
	})
}
