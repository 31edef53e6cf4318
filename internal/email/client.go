package email

import (
	"context"

	"github.com/resend/resend-go/v2"
	"github.com/subsync/subsync/internal/config"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/logger"
	"golang.org/x/time/rate"
)

// EmailClient sends transactional mail through resend
type EmailClient struct {
	client      *resend.Client
	enabled     bool
	fromAddress string
	replyTo     string
	limiter     *rate.Limiter
	logger      *logger.Logger
}

// NewEmailClient creates a new email client. It is disabled when email is off or no api key is set.
func NewEmailClient(cfg *config.Configuration, logger *logger.Logger) *EmailClient {
	c := &EmailClient{
		fromAddress: cfg.Email.FromAddress,
		replyTo:     cfg.Email.ReplyTo,
		logger:      logger,
	}
	if !cfg.Email.Enabled || cfg.Email.APIKey == "" {
		logger.Infow("email delivery is disabled")
		return c
	}

	c.client = resend.NewClient(cfg.Email.APIKey)
	c.enabled = true
	if cfg.Email.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.Email.RateLimit), 1)
	}
	return c
}

// IsEnabled returns whether the email client is enabled
func (c *EmailClient) IsEnabled() bool {
	return c.enabled
}

// Send delivers an HTML email and returns the provider message id.
// A disabled client logs and drops the message.
func (c *EmailClient) Send(ctx context.Context, to, subject, html string) (string, error) {
	if !c.enabled {
		c.logger.Debugw("email client is disabled, skipping email send", "to", to, "subject", subject)
		return "", nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", ierr.WithError(err).
				WithHint("Email send was cancelled while waiting for the rate limiter").
				Mark(ierr.ErrInternal)
		}
	}

	params := &resend.SendEmailRequest{
		From:    c.fromAddress,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}
	if c.replyTo != "" {
		params.ReplyTo = c.replyTo
	}

	sent, err := c.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to send email").
			WithReportableDetails(map[string]any{"subject": subject}).
			Mark(ierr.ErrInternal)
	}

	c.logger.Infow("email sent successfully",
		"message_id", sent.Id,
		"to", to,
		"subject", subject,
	)
	return sent.Id, nil
}
