// Package digest mails a periodic intake summary to the case
// management team. The summary is counts only; no narrative content,
// tokens or identities ever leave this service through it.
package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/safevoice/incident-intake/internal/config"
)

// Sender delivers one intake summary.
type Sender interface {
	SendSummary(counts map[string]int) error
}

// Service sends the summary over SMTP.
type Service struct {
	config *config.Config
}

// Ensure Service implements Sender
var _ Sender = (*Service)(nil)

// NewService creates a digest service.
func NewService(cfg *config.Config) *Service {
	return &Service{config: cfg}
}

// SendSummary emails the given status counts. A service with no digest
// address configured silently does nothing.
func (s *Service) SendSummary(counts map[string]int) error {
	if s.config.DigestEmail == "" {
		return nil
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	subject := fmt.Sprintf("Incident intake summary - %d reports on file", total)

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.DigestEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", s.buildBody(counts, total))

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send digest email: %w", err)
	}

	return nil
}

func (s *Service) buildBody(counts map[string]int, total int) string {
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	var body strings.Builder
	fmt.Fprintf(&body, "Intake summary generated %s\n\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&body, "Total reports: %d\n", total)
	for _, status := range statuses {
		fmt.Fprintf(&body, "  %-10s %d\n", status, counts[status])
	}
	return body.String()
}
