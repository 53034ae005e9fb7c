package content

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"taste3d/pkg/models"
)

var (
	// ErrNoShowcase is returned when the content file lists no showcase items
	ErrNoShowcase = errors.New("content: showcase is empty")
	// ErrDuplicateItem is returned when two showcase items share an id
	ErrDuplicateItem = errors.New("content: duplicate showcase id")
)

var descriptionPolicy = newDescriptionPolicy()

func newDescriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	return policy
}

// Site is the copy and media configuration of the whole site
type Site struct {
	Hero      models.Hero        `yaml:"hero"`
	Showcase  models.Section     `yaml:"showcase_section"`
	Items     []models.MediaItem `yaml:"showcase"`
	ARSection models.Section     `yaml:"ar_section"`
	AR        models.ARAsset     `yaml:"ar"`
	Services  []models.Service   `yaml:"services"`
	Contact   models.ContactInfo `yaml:"contact"`
}

// Load reads and validates a site content file
func Load(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading content file: %w", err)
	}
	return Parse(data)
}

// Parse decodes site content and renders service descriptions
func Parse(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("error parsing content: %w", err)
	}
	if err := site.validate(); err != nil {
		return nil, err
	}
	for i := range site.Services {
		html, err := RenderMarkdown(site.Services[i].Description)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", site.Services[i].Title, err)
		}
		site.Services[i].HTML = html
	}
	return &site, nil
}

func (s *Site) validate() error {
	if len(s.Items) == 0 {
		return ErrNoShowcase
	}
	seen := make(map[string]struct{}, len(s.Items))
	for i := range s.Items {
		item := &s.Items[i]
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" || item.StaticAsset == "" || item.InteractiveAsset == "" {
			return fmt.Errorf("content: showcase item %d needs id, static and model", i+1)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
		}
		seen[item.ID] = struct{}{}
		if item.Viewer.Scale == 0 {
			item.Viewer.Scale = 1
		}
	}
	return nil
}

// RenderMarkdown converts Markdown to sanitized HTML
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(strings.TrimSpace(descriptionPolicy.Sanitize(buf.String()))), nil
}
