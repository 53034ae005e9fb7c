package handlers

import (
	"encoding/json"
	"html"
	"mime"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"taste3d/pkg/models"
)

var plainText = bluemonday.StrictPolicy()

const maxContactBody = 64 << 10

type contactResponse struct {
	Sent    bool     `json:"sent"`
	Error   string   `json:"error,omitempty"`
	Mailto  string   `json:"mailto,omitempty"`
	Subject string   `json:"subject,omitempty"`
	Body    string   `json:"body,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// cleanField strips markup and surrounding whitespace from a form value
func cleanField(v string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(v)))
}

func readSubmission(w http.ResponseWriter, r *http.Request) (models.ContactSubmission, bool, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var sub models.ContactSubmission
		err := json.NewDecoder(r.Body).Decode(&sub)
		return sub, true, err
	}
	if err := r.ParseForm(); err != nil {
		return models.ContactSubmission{}, false, err
	}
	return models.ContactSubmission{
		Name:           r.PostForm.Get("name"),
		Email:          r.PostForm.Get("email"),
		Phone:          r.PostForm.Get("phone"),
		RestaurantName: r.PostForm.Get("restaurant"),
		Message:        r.PostForm.Get("message"),
	}, false, nil
}

func missingFields(sub models.ContactSubmission) []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", sub.Name},
		{"email", sub.Email},
		{"restaurant", sub.RestaurantName},
		{"message", sub.Message},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// contactHandler forwards a contact form submission. JSON clients get the
// outcome as JSON; form posts get the page back with the form kept on failure.
func (s *Server) contactHandler(w http.ResponseWriter, r *http.Request) {
	sub, isJSON, err := readSubmission(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sub = models.ContactSubmission{
		Name:           cleanField(sub.Name),
		Email:          cleanField(sub.Email),
		Phone:          cleanField(sub.Phone),
		RestaurantName: cleanField(sub.RestaurantName),
		Message:        cleanField(sub.Message),
	}

	if missing := missingFields(sub); len(missing) > 0 {
		if isJSON {
			writeJSON(w, http.StatusUnprocessableEntity, contactResponse{Error: "missing required fields", Missing: missing})
			return
		}
		page := s.indexPage(w, r)
		page.Form = sub
		page.Result = &models.ContactView{Error: "Completează câmpurile obligatorii: " + strings.Join(missing, ", ")}
		s.renderStatus(w, http.StatusUnprocessableEntity, "index.pug", page)
		return
	}

	result := s.Contact.Submit(r.Context(), sub)

	if isJSON {
		if result.Sent {
			writeJSON(w, http.StatusOK, contactResponse{Sent: true})
			return
		}
		writeJSON(w, http.StatusBadGateway, contactResponse{
			Error:   result.Err.Error(),
			Mailto:  result.Fallback.URI,
			Subject: result.Fallback.Subject,
			Body:    result.Fallback.Body,
		})
		return
	}

	if result.Sent {
		http.Redirect(w, r, "/?sent=1#contact", http.StatusSeeOther)
		return
	}
	page := s.indexPage(w, r)
	page.Form = sub
	page.Result = &models.ContactView{
		Error:  "Mesajul nu a putut fi trimis. Folosește linkul de mai jos pentru a ne scrie direct.",
		Mailto: result.Fallback.URI,
	}
	s.render(w, "index.pug", page)
}
