package models

import "html/template"

// RevealState is the representation a showcase cell currently displays
type RevealState int

const (
	// Photo shows the static photograph (initial state)
	Photo RevealState = iota
	// Model shows the interactive 3D scene
	Model
)

func (s RevealState) String() string {
	if s == Model {
		return "model"
	}
	return "photo"
}

// MediaItem is a food subject with a paired photo and 3D asset
type MediaItem struct {
	ID               string         `json:"id" yaml:"id"`
	Label            string         `json:"label" yaml:"label"`
	StaticAsset      string         `json:"staticAsset" yaml:"static"`
	InteractiveAsset string         `json:"interactiveAsset" yaml:"model"`
	Viewer           ViewerSettings `json:"viewer" yaml:"viewer"`
}

// ViewerSettings places a model inside its scene
type ViewerSettings struct {
	Scale    float64    `json:"scale" yaml:"scale"`
	Position [3]float64 `json:"position" yaml:"position"`
	Target   [3]float64 `json:"target" yaml:"target"`
}

// ARAsset is the platform-specific pair used by the AR entry point
type ARAsset struct {
	GLB  string `json:"glb" yaml:"glb"`
	USDZ string `json:"usdz" yaml:"usdz"`
}

// Service is one entry of the services list
type Service struct {
	Title       string   `json:"title" yaml:"title"`
	Icon        string   `json:"icon" yaml:"icon"`
	Description string   `json:"description" yaml:"description"`
	Features    []string `json:"features" yaml:"features"`
	// HTML is the rendered, sanitized description
	HTML template.HTML `json:"-" yaml:"-"`
}

// Hero holds the landing copy
type Hero struct {
	Title    string `json:"title" yaml:"title"`
	Subtitle string `json:"subtitle" yaml:"subtitle"`
	CTA      string `json:"cta" yaml:"cta"`
}

// GalleryEntry is a portfolio candidate; URI is empty until resolved
type GalleryEntry struct {
	Path     string `json:"path"`
	URI      string `json:"uri,omitempty"`
	Resolved bool   `json:"-"`
}

// GalleryImage is a resolved portfolio image ready for display
type GalleryImage struct {
	ID        int    `json:"id"`
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	URI       string `json:"uri"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// ContactSubmission holds the contact form fields
type ContactSubmission struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	RestaurantName string `json:"restaurant"`
	Message        string `json:"message"`
}

// ARLaunch is the AR entry point rendered for one client. A disabled entry
// point stays visible with Hint explaining why.
type ARLaunch struct {
	Enabled  bool   `json:"enabled"`
	Platform string `json:"platform"`
	Href     string `json:"href,omitempty"`
	Rel      string `json:"rel,omitempty"`
	Label    string `json:"label"`
	Hint     string `json:"hint"`
}

// Section is the heading copy of a page section
type Section struct {
	Title    string `json:"title" yaml:"title"`
	Subtitle string `json:"subtitle" yaml:"subtitle"`
}

// ContactInfo is the public contact block next to the form
type ContactInfo struct {
	Email    string `json:"email" yaml:"email"`
	Phone    string `json:"phone" yaml:"phone"`
	Location string `json:"location" yaml:"location"`
}

// CellView is the template model of one showcase cell
type CellView struct {
	ID       string
	Label    string
	Photo    string
	Model    string
	Revealed bool
	State    string
}

// ContactView is the outcome shown after a contact form submission
type ContactView struct {
	Sent   bool
	Error  string
	Mailto string
}

// Index is the template model of the landing page
type Index struct {
	Hero            Hero
	ShowcaseSection Section
	Cells           []CellView
	ARSection       Section
	AR              ARLaunch
	ARModel         string
	Services        []Service
	Contact         ContactInfo
	Form            ContactSubmission
	Result          *ContactView
}

// Portfolio is the template model of the portfolio page
type Portfolio struct {
	Images  []GalleryImage `json:"images"`
	Pending int            `json:"pending"`
	Loading bool           `json:"loading"`
}
