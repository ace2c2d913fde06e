package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/username/notafolio/backend/src/config"
	"github.com/username/notafolio/backend/src/logger"
	"github.com/username/notafolio/backend/src/models"
)

// EmailService sends transactional email. Import notifications are
// best-effort; verification emails are part of the signup flow.
type EmailService interface {
	SendVerificationEmail(toEmail, username, token string) error
	SendImportResultEmail(toEmail, username string, note *models.BrokerageNote) error
}

// NewEmailService selects the provider from configuration. Anything but
// "mailgun" yields the mock sender, which only logs.
func NewEmailService(cfg *config.AppConfig) EmailService {
	if cfg.EmailServiceProvider == "mailgun" {
		return NewMailgunEmailService(cfg)
	}
	logger.L.Info("Using mock email service", "provider", cfg.EmailServiceProvider)
	return &MockEmailService{}
}

// MailgunEmailService sends email through the Mailgun API.
type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
	verifyBase  string
}

func NewMailgunEmailService(cfg *config.AppConfig) *MailgunEmailService {
	mg := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunPrivateAPIKey)
	return &MailgunEmailService{
		mg:          mg,
		senderEmail: cfg.SenderEmail,
		senderName:  cfg.SenderName,
		verifyBase:  cfg.VerificationEmailBaseURL,
	}
}

func (s *MailgunEmailService) SendVerificationEmail(toEmail, username, token string) error {
	verificationLink := fmt.Sprintf("%s?token=%s", s.verifyBase, token)
	subject := "Verify your email address"
	body := fmt.Sprintf(
		"Hello %s,\n\nPlease verify your email address by opening the link below:\n\n%s\n\nIf you did not create an account, ignore this message.\n",
		username, verificationLink)
	return s.send(toEmail, subject, body)
}

func (s *MailgunEmailService) SendImportResultEmail(toEmail, username string, note *models.BrokerageNote) error {
	subject := fmt.Sprintf("Brokerage note %s imported", note.NoteNumber)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour brokerage note %s dated %s was imported with %d operations.\n\nNet amount: %s %s\n",
		username, note.NoteNumber, note.NoteDate, len(note.Operations),
		note.Summary.NetAmount.StringFixed(2), note.Summary.NetDebitCredit)
	return s.send(toEmail, subject, body)
}

func (s *MailgunEmailService) send(toEmail, subject, body string) error {
	sender := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	message := s.mg.NewMessage(sender, subject, body, toEmail)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _, err := s.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending email via mailgun: %w", err)
	}
	logger.L.Info("Email sent", "to", toEmail, "subject", subject)
	return nil
}

// MockEmailService logs instead of sending. Used in development and tests.
type MockEmailService struct{}

func (s *MockEmailService) SendVerificationEmail(toEmail, username, token string) error {
	logger.L.Info("MOCK EMAIL: verification", "to", toEmail, "username", username, "token", token)
	return nil
}

func (s *MockEmailService) SendImportResultEmail(toEmail, username string, note *models.BrokerageNote) error {
	logger.L.Info("MOCK EMAIL: import result", "to", toEmail, "username", username, "noteNumber", note.NoteNumber)
	return nil
}
