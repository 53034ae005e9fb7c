package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"taste3d/pkg/services"
)

type adminPortfolioEntry struct {
	Name      string
	Thumbnail string
}

func (s *Server) adminRoutes(r chi.Router) {
	r.Get("/", s.adminHandler)
	r.Post("/thumbnails", s.generateThumbnailHandler)
	r.Post("/thumbnails/bulk", s.bulkGenerateThumbnailsHandler)
}

// adminHandler lists the portfolio images and their thumbnails
func (s *Server) adminHandler(w http.ResponseWriter, r *http.Request) {
	index, err := services.DiscoverPortfolio(r.Context(), s.Store)
	if err != nil {
		s.logger.Error("portfolio discovery failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	entries := make([]adminPortfolioEntry, 0, len(index.Candidates))
	for _, name := range index.Candidates {
		entries = append(entries, adminPortfolioEntry{Name: name, Thumbnail: index.Thumbnails[name]})
	}
	s.render(w, "admin.pug", map[string]any{
		"Key":     s.Config.AdminKey,
		"Entries": entries,
	})
}

// generateThumbnailHandler handles API requests to generate a single thumbnail
func (s *Server) generateThumbnailHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.logger.Info("generating thumbnail", zap.String("image", req.Image))
	if err := s.Thumbnails.GenerateThumbnail(r.Context(), req.Image, nil); err != nil {
		s.logger.Error("thumbnail generation failed", zap.String("image", req.Image), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Thumbnail generated successfully",
	})
}

// bulkGenerateThumbnailsHandler handles API requests to generate all thumbnails
func (s *Server) bulkGenerateThumbnailsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Force bool `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.logger.Info("bulk generating thumbnails", zap.Bool("force", req.Force))
	processed, failed, err := s.Thumbnails.BulkGenerateThumbnails(r.Context(), req.Force)
	if err != nil {
		s.logger.Error("bulk thumbnail generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Bulk thumbnail generation completed",
		"processed": processed,
		"errors":    failed,
	})
}
