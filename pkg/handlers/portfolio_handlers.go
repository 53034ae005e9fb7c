package handlers

import (
	"net/http"

	"taste3d/pkg/models"
)

// portfolioHandler renders the portfolio once the first batch is resolved
func (s *Server) portfolioHandler(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.Gallery.Ready():
	case <-r.Context().Done():
		return
	}
	s.render(w, "portfolio.pug", s.portfolioPage())
}

// feedHandler returns the resolved portfolio so far, for polling clients
func (s *Server) feedHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.portfolioPage())
}

func (s *Server) portfolioPage() models.Portfolio {
	loading := true
	select {
	case <-s.Gallery.Done():
		loading = false
	default:
	}
	return models.Portfolio{
		Images:  s.Gallery.Snapshot(),
		Pending: s.Gallery.Pending(),
		Loading: loading,
	}
}
