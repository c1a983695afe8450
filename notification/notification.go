package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v3"
	"go.uber.org/zap"

	"session-gate/config"
)

const maxRetries = 3

// emailSender is satisfied by resend.Client.Emails.
type emailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResetMailer emails password reset tokens through Resend.
type ResetMailer struct {
	emails   emailSender
	from     string
	resetURL string
	log      *zap.Logger
	backoff  func(attempt int) time.Duration
}

// NewResetMailer returns an error when no API key is configured.
func NewResetMailer(cfg config.NotificationConfig, log *zap.Logger) (*ResetMailer, error) {
	if cfg.ResendAPIKey == "" || cfg.ResendAPIKey == "YOUR_RESEND_API_KEY" {
		return nil, fmt.Errorf("RESEND_API_KEY is not set correctly")
	}
	client := resend.NewClient(cfg.ResendAPIKey)
	return newResetMailer(client.Emails, cfg, log), nil
}

func newResetMailer(emails emailSender, cfg config.NotificationConfig, log *zap.Logger) *ResetMailer {
	fromEmail := cfg.FromEmail
	if fromEmail == "" {
		fromEmail = "onboarding@resend.dev"
	}
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "Session Gate"
	}
	return &ResetMailer{
		emails:   emails,
		from:     fmt.Sprintf("%s <%s>", fromName, fromEmail),
		resetURL: cfg.ResetURL,
		log:      log,
		backoff:  func(i int) time.Duration { return time.Duration(2*(i+1)) * time.Second },
	}
}

// SendResetToken sends the token to email, retrying with linear backoff.
func (m *ResetMailer) SendResetToken(ctx context.Context, email, token string) error {
	html, err := RenderResetEmail(ResetData{Token: token, ResetURL: m.resetURL})
	if err != nil {
		return err
	}
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Reset your password",
		Html:    html,
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		resp, err := m.emails.Send(params)
		if err == nil {
			m.log.Info("reset email sent", zap.String("id", resp.Id))
			return nil
		}
		lastErr = err
		m.log.Warn("reset email failed", zap.Int("attempt", i+1), zap.Error(err))

		if i < maxRetries-1 {
			select {
			case <-time.After(m.backoff(i)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}
