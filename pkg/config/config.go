package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	AssetsDir   string
	ContentFile string
	ViewsDir    string
	BucketName  string
	SiteOrigin  string
	// AdminKey is the path segment guarding the admin API; empty disables it
	AdminKey string

	EmailServiceID  string
	EmailTemplateID string
	EmailPublicKey  string
	ContactEmail    string

	PortfolioBatchSize      int
	PortfolioRemainderDelay time.Duration
	ModelPreloadDelay       time.Duration
	SessionTTL              time.Duration
}

// ErrInvalidBatchSize is returned when PORTFOLIO_BATCH_SIZE is not a positive integer
var ErrInvalidBatchSize = errors.New("PORTFOLIO_BATCH_SIZE must be a positive integer")

// ErrInvalidDuration is returned when a duration variable cannot be parsed
var ErrInvalidDuration = errors.New("invalid duration")

// Load loads configuration from environment variables.
// EMAILJS_PUBLIC_KEY is deliberately optional here: a missing key is reported
// when a message is sent, not at startup.
func Load() (*Config, error) {
	batch := 8
	if raw := os.Getenv("PORTFOLIO_BATCH_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, ErrInvalidBatchSize
		}
		batch = n
	}

	remainderDelay, err := durationEnv("PORTFOLIO_REMAINDER_DELAY", time.Second)
	if err != nil {
		return nil, err
	}
	preloadDelay, err := durationEnv("MODEL_PRELOAD_DELAY", 2*time.Second)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := durationEnv("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	port := getenv("PORT", "8080")

	return &Config{
		Port:        port,
		AssetsDir:   getenv("ASSETS_DIR", "./assets"),
		ContentFile: getenv("CONTENT_FILE", "./content/site.yaml"),
		ViewsDir:    getenv("VIEWS_DIR", "./views"),
		BucketName:  os.Getenv("BUCKET_NAME"),
		SiteOrigin:  getenv("SITE_ORIGIN", "http://localhost:"+port),
		AdminKey:    os.Getenv("ADMIN_KEY"),

		EmailServiceID:  getenv("EMAILJS_SERVICE_ID", "service_taste3d"),
		EmailTemplateID: getenv("EMAILJS_TEMPLATE_ID", "template_contact"),
		EmailPublicKey:  os.Getenv("EMAILJS_PUBLIC_KEY"),
		ContactEmail:    getenv("CONTACT_EMAIL", "contact.taste3d@gmail.com"),

		PortfolioBatchSize:      batch,
		PortfolioRemainderDelay: remainderDelay,
		ModelPreloadDelay:       preloadDelay,
		SessionTTL:              sessionTTL,
	}, nil
}

// ServerAddress returns the server address with port
func (c *Config) ServerAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// UsesBucket reports whether assets are served from Cloud Storage
func (c *Config) UsesBucket() bool {
	return c.BucketName != ""
}

// PrintServerStartMessage prints a message when the server starts
func (c *Config) PrintServerStartMessage() {
	fmt.Printf("Starting server at port %s\n", c.Port)
	fmt.Printf("Site URL: http://localhost:%s/\n", c.Port)
	fmt.Printf("Portfolio URL: http://localhost:%s/portfolio\n", c.Port)
	if c.AdminKey != "" {
		fmt.Printf("Admin URL: http://localhost:%s/%s/admin\n", c.Port, c.AdminKey)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: %w: %q", key, ErrInvalidDuration, raw)
	}
	return d, nil
}
