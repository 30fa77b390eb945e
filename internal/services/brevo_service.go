package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"gupayment/internal/config"

	brevo "github.com/getbrevo/brevo-go/lib"
)

//go:generate mockgen -destination=mock_services/mock_mailer.go -package=mock_services gupayment/internal/services Mailer

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single transactional email.
type EmailMessage struct {
	To          string
	ToName      string
	Subject     string
	HTMLContent string
	TextContent string
	Attachments []EmailAttachment
}

type EmailAttachment struct {
	Name    string
	Content []byte
}

// BrevoService provides Brevo email service
type BrevoService struct {
	client    *brevo.APIClient
	FromEmail string
	FromName  string
}

// NewBrevoService creates a new Brevo service instance from the app config
func NewBrevoService(cfg *config.Config) *BrevoService {
	brevoCfg := brevo.NewConfiguration()
	brevoCfg.AddDefaultHeader("api-key", cfg.BrevoAPIKey)

	return &BrevoService{
		client:    brevo.NewAPIClient(brevoCfg),
		FromEmail: cfg.BrevoFromEmail,
		FromName:  cfg.BrevoFromName,
	}
}

// Send sends the message through the Brevo transactional API
func (s *BrevoService) Send(ctx context.Context, msg EmailMessage) error {
	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.FromName,
			Email: s.FromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: msg.To, Name: msg.ToName},
		},
		Subject:     msg.Subject,
		HtmlContent: msg.HTMLContent,
		TextContent: msg.TextContent,
	}
	for _, a := range msg.Attachments {
		email.Attachment = append(email.Attachment, brevo.SendSmtpEmailAttachment{
			Name:    a.Name,
			Content: base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	_, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("brevo API error: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
