package notification

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/procurio/procurio/pkg/domain"
)

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// EmailService sends invitation emails over SMTP.
type EmailService struct {
	config EmailConfig
}

// NewEmailService creates a new email service.
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

// SendInvitation sends an invitation email. Callers treat dispatch as
// fire-and-forget; a delivery failure never affects the invitation itself.
func (s *EmailService) SendInvitation(to, tenantName string, role domain.Role, link string, expiresAt time.Time, message string) error {
	subject := fmt.Sprintf("You've been invited to join %s", tenantName)
	personal := ""
	if message != "" {
		personal = fmt.Sprintf("<blockquote>%s</blockquote>", message)
	}
	body := fmt.Sprintf(`<html><body>
		<h2>You've been invited to join %s</h2>
		<p>You have been invited as a <strong>%s</strong>.</p>
		%s
		<p><a href="%s">Click here to accept the invitation</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>This invitation expires on %s.</p>
	</body></html>`, tenantName, role, personal, link, link, expiresAt.Format("January 2, 2006"))
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
}
