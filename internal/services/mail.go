package services

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer notifies users about their datasets.
type Mailer interface {
	SendPublicationNotice(ctx context.Context, owner *entity.User, ds *entity.Dataset, datasetURL string) error
}

type SendgridMailer struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

func NewSendgridMailer(apiKey, fromAddr string) *SendgridMailer {
	return &SendgridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: "UVLHub",
		fromAddr: fromAddr,
	}
}

func (m *SendgridMailer) SendPublicationNotice(ctx context.Context, owner *entity.User, ds *entity.Dataset, datasetURL string) error {
	from := mail.NewEmail(m.fromName, m.fromAddr)
	subject := fmt.Sprintf("Your dataset \"%s\" has been published", ds.Metadata.Title)
	to := mail.NewEmail(owner.FullName(), owner.Email)

	htmlContent := fmt.Sprintf(`
        <div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f4f4f4; text-align: center;">
			<div style="background-color: #ffffff; border-radius: 8px; padding: 30px; box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1); display: inline-block; text-align: center;">
				<h1 style="color: #2c3e50; margin-bottom: 20px;">Dataset published</h1>
				<p>Hello,</p>
				<p><strong>%s</strong> is now public with DOI <strong>%s</strong>.</p>
				<a href="%s" style="display: inline-block; background-color: #3498db; color: #ffffff; text-decoration: none; padding: 12px 24px; border-radius: 4px; font-weight: bold; margin-top: 20px;">View dataset</a>
			</div>
		</div>
        `, html.EscapeString(ds.Metadata.Title), html.EscapeString(ds.DOI()), datasetURL)

	plainTextContent := fmt.Sprintf("Your dataset %s is now public with DOI %s: %s", ds.Metadata.Title, ds.DOI(), datasetURL)

	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded with status %d", resp.StatusCode)
	}
	return nil
}
