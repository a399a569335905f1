// Package email sends staff alerts through SendGrid.
package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"adboard-backend/internal/logger"
)

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridAlerter struct {
	client  sender
	from    *mail.Email
	staffTo *mail.Email
}

func NewSendGridAlerter(apiKey, fromAddress, fromName, staffAddress string) *SendGridAlerter {
	return newAlerter(sendgrid.NewSendClient(apiKey), fromAddress, fromName, staffAddress)
}

func newAlerter(client sender, fromAddress, fromName, staffAddress string) *SendGridAlerter {
	return &SendGridAlerter{
		client:  client,
		from:    mail.NewEmail(fromName, fromAddress),
		staffTo: mail.NewEmail("Moderation", staffAddress),
	}
}

func (a *SendGridAlerter) AlertStaff(ctx context.Context, subject, message string) error {
	htmlBody := "<p>" + strings.ReplaceAll(html.EscapeString(message), "\n", "<br>") + "</p>"
	msg := mail.NewSingleEmail(a.from, "[adboard] "+subject, a.staffTo, message, htmlBody)

	logger.ExternalServiceCall("sendgrid", "send", "subject", subject)
	resp, err := a.client.SendWithContext(ctx, msg)
	if err == nil && resp.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "subject", subject)
	if err != nil {
		return fmt.Errorf("failed to send staff alert: %w", err)
	}
	return nil
}
