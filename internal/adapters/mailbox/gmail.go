package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"

	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/senderfilter"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUser = "me"

// GmailMailbox lists recent messages of the authorized Gmail account
type GmailMailbox struct {
	service *gmail.Service
	query   string
	filter  *senderfilter.Checker
	logger  *zap.Logger
}

// NewGmailMailbox creates a mailbox authorized by ts. Extra options are
// appended after the token source.
func NewGmailMailbox(
	ctx context.Context,
	ts oauth2.TokenSource,
	query string,
	filter *senderfilter.Checker,
	logger *zap.Logger,
	opts ...option.ClientOption,
) (*GmailMailbox, error) {
	clientOpts := opts
	if ts != nil {
		clientOpts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	}
	svc, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &GmailMailbox{
		service: svc,
		query:   query,
		filter:  filter,
		logger:  logger,
	}, nil
}

// ListRecent fetches up to limit messages matching the configured query.
// Messages that fail to load are logged and skipped.
func (m *GmailMailbox) ListRecent(ctx context.Context, limit int) ([]core.RawEmail, error) {
	call := m.service.Users.Messages.List(gmailUser).Context(ctx)
	if m.query != "" {
		call = call.Q(m.query)
	}
	if limit > 0 {
		call = call.MaxResults(int64(limit))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list gmail messages: %w", err)
	}

	emails := make([]core.RawEmail, 0, len(resp.Messages))
	for _, ref := range resp.Messages {
		msg, err := m.service.Users.Messages.Get(gmailUser, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			if ctx.Err() != nil {
				return emails, ctx.Err()
			}
			m.logger.Warn("Failed to fetch gmail message", zap.String("id", ref.Id), zap.Error(err))
			continue
		}

		email := messageToEmail(msg)
		if m.filter.IsIgnored(email.From) {
			continue
		}
		emails = append(emails, email)
	}

	m.logger.Debug("Fetched gmail messages",
		zap.Int("listed", len(resp.Messages)),
		zap.Int("kept", len(emails)))

	return emails, nil
}

// messageToEmail flattens a full-format Gmail message. Body preference:
// text/plain parts, then the first text/html part as text, then the snippet.
func messageToEmail(msg *gmail.Message) core.RawEmail {
	email := core.RawEmail{ID: msg.Id}
	if msg.Payload == nil {
		email.Body = msg.Snippet
		return email
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			email.Subject = h.Value
			if decoded, err := wordDecoder.DecodeHeader(h.Value); err == nil {
				email.Subject = decoded
			}
		case "from":
			email.From = h.Value
			if addr, err := mail.ParseAddress(h.Value); err == nil {
				email.From = addr.Address
			}
		}
	}

	var plain strings.Builder
	var htmlBody string
	collectParts(msg.Payload, &plain, &htmlBody)

	switch {
	case strings.TrimSpace(plain.String()) != "":
		email.Body = strings.TrimSpace(plain.String())
	case htmlBody != "":
		email.Body = HTMLToText(htmlBody)
	default:
		email.Body = msg.Snippet
	}
	return email
}

func collectParts(part *gmail.MessagePart, plain *strings.Builder, htmlBody *string) {
	if part == nil {
		return
	}
	if part.Filename == "" && part.Body != nil && part.Body.Data != "" {
		switch strings.ToLower(part.MimeType) {
		case "text/plain":
			plain.WriteString(decodeBodyData(part.Body.Data))
			plain.WriteString("\n")
		case "text/html":
			if *htmlBody == "" {
				*htmlBody = decodeBodyData(part.Body.Data)
			}
		}
	}
	for _, child := range part.Parts {
		collectParts(child, plain, htmlBody)
	}
}

// decodeBodyData decodes Gmail's base64url body data, padded or not
func decodeBodyData(data string) string {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}

var _ core.Mailbox = (*GmailMailbox)(nil)
