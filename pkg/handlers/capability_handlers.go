package handlers

import (
	"net/http"

	"taste3d/pkg/models"
	"taste3d/pkg/services"
)

type capabilityResponse struct {
	Platform   string          `json:"platform"`
	Mobile     bool            `json:"mobile"`
	SupportsAR bool            `json:"supportsAR"`
	Launch     models.ARLaunch `json:"launch"`
}

// capabilityHandler classifies the requesting browser
func (s *Server) capabilityHandler(w http.ResponseWriter, r *http.Request) {
	device := services.DetectDevice(r.UserAgent())
	launch := services.ARLaunchFor(device, s.Site.AR, s.Config.SiteOrigin)
	writeJSON(w, http.StatusOK, capabilityResponse{
		Platform:   launch.Platform,
		Mobile:     device.Mobile,
		SupportsAR: device.SupportsAR(),
		Launch:     launch,
	})
}

// arHandler sends supported devices to their AR viewer and everybody else
// back to the AR section
func (s *Server) arHandler(w http.ResponseWriter, r *http.Request) {
	launch := services.ARLaunchFor(services.DetectDevice(r.UserAgent()), s.Site.AR, s.Config.SiteOrigin)
	if !launch.Enabled {
		http.Redirect(w, r, "/#ar", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, launch.Href, http.StatusFound)
}
