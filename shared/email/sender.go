package email

import (
	"fmt"
	"net/smtp"

	"coconut-risk/internal/models"
	"coconut-risk/shared/config"
)

type Sender struct {
	config *config.EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
		send:   smtp.SendMail,
	}
}

// SendAlert emails a rendered danger alert for the assessment
func (s *Sender) SendAlert(a *models.Assessment, htmlBody string) error {
	if a == nil || a.Result == nil {
		return fmt.Errorf("assessment cannot be nil or unscored")
	}
	return s.SendHTML(AlertSubject(a), htmlBody)
}

// AlertSubject is the subject line for a danger alert
func AlertSubject(a *models.Assessment) string {
	return fmt.Sprintf("🥥 Coconut danger near %s: %.1f%% strike risk (%s)",
		a.Coordinate, a.Result.ProbabilityPercent, a.Time.Format("Jan 2, 2006"))
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	return s.sendViaSMTP(subject, htmlBody)
}

func (s *Sender) sendViaSMTP(subject, body string) error {
	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)
	}

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, body))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	return s.send(addr, auth, s.config.FromEmail, to, msg)
}
