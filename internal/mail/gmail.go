package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/rs/zerolog/log"
)

// GmailMailer sends through the Gmail API as the authenticated user.
type GmailMailer struct {
	service *gmail.Service
}

// NewGmailMailer builds a Gmail-backed Mailer from an OAuth token.
func NewGmailMailer(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*GmailMailer, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}
	client := config.Client(ctx, token)
	service, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &GmailMailer{service: service}, nil
}

// NewGmailMailerWithService wraps an existing service, mostly for tests.
func NewGmailMailerWithService(service *gmail.Service) *GmailMailer {
	return &GmailMailer{service: service}
}

func (m *GmailMailer) Send(ctx context.Context, msg Message) error {
	raw := encodeMessage(msg)
	_, err := m.service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("Sent email")
	return nil
}

func (m *GmailMailer) CreateDraft(ctx context.Context, msg Message) (string, error) {
	raw := encodeMessage(msg)
	draft, err := m.service.Users.Drafts.Create("me", &gmail.Draft{
		Message: &gmail.Message{Raw: raw},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create draft for %s: %w", msg.To, err)
	}
	log.Info().Str("to", msg.To).Str("draft_id", draft.Id).Msg("Created draft email")
	return draft.Id, nil
}

// encodeMessage renders the message as an RFC 2822 multipart/alternative
// payload in the base64url form the Gmail API expects.
func encodeMessage(msg Message) string {
	const boundary = "studio-pm-alt"

	var sb strings.Builder
	if msg.FromName != "" {
		sb.WriteString(fmt.Sprintf("From: %s <me>\r\n", mime.QEncoding.Encode("utf-8", msg.FromName)))
	}
	sb.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject)))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", boundary))
	sb.WriteString("\r\n")

	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	sb.WriteString(msg.TextBody)
	sb.WriteString("\r\n")

	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	sb.WriteString(msg.HTMLBody)
	sb.WriteString("\r\n")

	sb.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return base64.URLEncoding.EncodeToString([]byte(sb.String()))
}
