package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"taste3d/pkg/logging"
	"taste3d/pkg/models"
)

const (
	contactRecipientName = "Taste3D Team"
	contactTimeLayout    = "02.01.2006, 15:04:05"
)

// SubmissionError reports why a contact submission was not delivered
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("contact submission failed: %s: %v", e.Reason, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// MailDraft is a pre-filled message the visitor can send from their own client
type MailDraft struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	URI     string `json:"uri"`
}

// ContactResult is the outcome of one submission. On failure Fallback holds
// every submitted field so nothing has to be retyped.
type ContactResult struct {
	Sent     bool
	Err      error
	Fallback *MailDraft
}

// ContactSettings identifies the relay template and the recipient
type ContactSettings struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	Recipient  string
}

// ContactService forwards contact form submissions to the mail relay
type ContactService struct {
	relay    Relay
	settings ContactSettings
	logger   *zap.Logger
	now      func() time.Time
}

// NewContactService creates a contact service
func NewContactService(relay Relay, settings ContactSettings, logger *zap.Logger) *ContactService {
	return &ContactService{
		relay:    relay,
		settings: settings,
		logger:   logging.OrNop(logger),
		now:      time.Now,
	}
}

// Submit makes one relay attempt. Required fields are checked by the caller.
func (s *ContactService) Submit(ctx context.Context, sub models.ContactSubmission) ContactResult {
	err := s.relay.Send(ctx, s.settings.ServiceID, s.settings.TemplateID, s.templateParams(sub), s.settings.PublicKey)
	if err == nil {
		s.logger.Info("contact submission sent", zap.String("restaurant", sub.RestaurantName))
		return ContactResult{Sent: true}
	}

	reason := "relay rejected the message"
	switch {
	case errors.Is(err, ErrRelayNotConfigured):
		reason = "mail relay is not configured"
	case ctx.Err() != nil:
		reason = "request cancelled"
	}
	s.logger.Warn("contact submission failed", zap.String("reason", reason), zap.Error(err))

	draft := s.Draft(sub)
	return ContactResult{
		Err:      &SubmissionError{Reason: reason, Err: err},
		Fallback: &draft,
	}
}

// Draft builds the mail-compose fallback for a submission
func (s *ContactService) Draft(sub models.ContactSubmission) MailDraft {
	subject := contactSubject(sub)
	body := fmt.Sprintf("👤 Nume: %s\n📧 Email: %s\n📞 Telefon: %s\n🏪 Restaurant: %s\n\n📝 Detalii Proiect:\n%s\n\n📅 Trimis la: %s",
		sub.Name, sub.Email, sub.Phone, sub.RestaurantName, sub.Message, s.now().Format(contactTimeLayout))
	return MailDraft{
		To:      s.settings.Recipient,
		Subject: subject,
		Body:    body,
		URI:     "mailto:" + s.settings.Recipient + "?subject=" + encodeURIComponent(subject) + "&body=" + encodeURIComponent(body),
	}
}

func (s *ContactService) templateParams(sub models.ContactSubmission) map[string]string {
	return map[string]string{
		"to_name":    contactRecipientName,
		"to_email":   s.settings.Recipient,
		"from_name":  sub.Name,
		"from_email": sub.Email,
		"phone":      sub.Phone,
		"restaurant": sub.RestaurantName,
		"message":    sub.Message,
		"subject":    contactSubject(sub),
	}
}

func contactSubject(sub models.ContactSubmission) string {
	return "🍽️ Cerere Nouă de Proiect 3D de la " + sub.RestaurantName
}

// encodeURIComponent percent-encodes every byte except A-Z a-z 0-9 and
// -_.!~*'(). url.QueryEscape turns spaces into '+', which mail clients
// show literally.
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if uriUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func uriUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
