package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	emailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"
	relayTimeout    = 10 * time.Second
)

// ErrRelayNotConfigured is returned at send time when no public key is set
var ErrRelayNotConfigured = errors.New("emailjs: public key not configured")

// Relay delivers a templated message through a third-party mail service
type Relay interface {
	Send(ctx context.Context, serviceID, templateID string, params map[string]string, publicKey string) error
}

// EmailJSRelay posts messages to the EmailJS REST API
type EmailJSRelay struct {
	endpoint string
	http     *http.Client
}

// NewEmailJSRelay creates a relay. An empty endpoint selects the public API.
func NewEmailJSRelay(endpoint string, client *http.Client) *EmailJSRelay {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = emailJSEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: relayTimeout}
	}
	return &EmailJSRelay{endpoint: endpoint, http: client}
}

type emailJSPayload struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// Send issues exactly one request; non-2xx responses are errors
func (r *EmailJSRelay) Send(ctx context.Context, serviceID, templateID string, params map[string]string, publicKey string) error {
	if strings.TrimSpace(publicKey) == "" {
		return ErrRelayNotConfigured
	}

	payload, err := json.Marshal(emailJSPayload{
		ServiceID:      serviceID,
		TemplateID:     templateID,
		UserID:         publicKey,
		TemplateParams: params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("emailjs: status %d: %s", resp.StatusCode, drainBody(resp.Body))
	}
	return nil
}

func drainBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
