package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"taste3d/pkg/models"
	"taste3d/pkg/services"
)

// cell resolves the {id} cell of the visitor's session, writing a 404 when
// the item does not exist
func (s *Server) cell(w http.ResponseWriter, r *http.Request) (*services.Cell, bool) {
	id := chi.URLParam(r, "id")
	if _, ok := s.Showcase.Item(id); !ok {
		writeError(w, http.StatusNotFound, "unknown showcase item")
		return nil, false
	}
	c, ok := s.session(w, r).Cell(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown showcase item")
		return nil, false
	}
	return c, true
}

// toggleHandler flips a cell between photo and model. htmx requests get the
// cell partial back; plain form posts are redirected to the cell.
func (s *Server) toggleHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := s.cell(w, r)
	if !ok {
		return
	}
	c.Toggle()

	if r.Header.Get("HX-Request") == "true" {
		s.render(w, "cell.pug", models.Index{Cells: []models.CellView{cellView(c)}})
		return
	}
	http.Redirect(w, r, "/#item-"+c.Item().ID, http.StatusSeeOther)
}

// viewer waits for the cell's scene, mapping failures to a response
func (s *Server) viewer(w http.ResponseWriter, r *http.Request) (*services.Scene, bool) {
	c, ok := s.cell(w, r)
	if !ok {
		return nil, false
	}
	scene, err := c.Viewer(r.Context())
	if err != nil {
		s.writeViewerError(w, c.Item().ID, err)
		return nil, false
	}
	return scene, true
}

func (s *Server) writeViewerError(w http.ResponseWriter, item string, err error) {
	var loadErr *services.LoadError
	switch {
	case errors.Is(err, services.ErrNotRevealed), errors.Is(err, services.ErrViewerReleased):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrSceneClosed):
		writeError(w, http.StatusGone, err.Error())
	case errors.As(err, &loadErr):
		s.logger.Warn("scene failed to load", zap.String("item", item), zap.Error(err))
		writeError(w, http.StatusBadGateway, "model could not be loaded")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "model is still loading")
	default:
		s.logger.Error("viewer error", zap.String("item", item), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "viewer error")
	}
}

// viewerHandler returns the camera and placement of a revealed cell
func (s *Server) viewerHandler(w http.ResponseWriter, r *http.Request) {
	scene, ok := s.viewer(w, r)
	if !ok {
		return
	}
	state, err := scene.State()
	if err != nil {
		s.writeViewerError(w, chi.URLParam(r, "id"), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type orbitRequest struct {
	Azimuth float64 `json:"azimuth"`
	Polar   float64 `json:"polar"`
	Zoom    float64 `json:"zoom"`
}

// orbitHandler moves the camera of a revealed cell
func (s *Server) orbitHandler(w http.ResponseWriter, r *http.Request) {
	var req orbitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	scene, ok := s.viewer(w, r)
	if !ok {
		return
	}
	if err := scene.Orbit(req.Azimuth, req.Polar, req.Zoom); err != nil {
		s.writeViewerError(w, chi.URLParam(r, "id"), err)
		return
	}
	state, err := scene.State()
	if err != nil {
		s.writeViewerError(w, chi.URLParam(r, "id"), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// sceneHandler streams the GLB of a revealed cell
func (s *Server) sceneHandler(w http.ResponseWriter, r *http.Request) {
	scene, ok := s.viewer(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "model/gltf-binary")
	if _, err := scene.WriteTo(w); err != nil {
		s.logger.Debug("scene stream interrupted", zap.Error(err))
	}
}
