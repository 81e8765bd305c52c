package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/rs/zerolog"
)

// MailgunConfig holds the Mailgun transport settings.
type MailgunConfig struct {
	Domain string
	APIKey string
	From   string
}

// MailgunSender sends messages through the Mailgun API.
type MailgunSender struct {
	cfg    MailgunConfig
	log    zerolog.Logger
	client *mailgun.MailgunImpl
}

// NewMailgunSender returns a sender for cfg, or ErrIncompleteSettings when
// the domain, key or sender is missing.
func NewMailgunSender(cfg MailgunConfig, log zerolog.Logger) (*MailgunSender, error) {
	if cfg.Domain == "" || cfg.APIKey == "" || cfg.From == "" {
		return nil, fmt.Errorf("mailgun: %w", ErrIncompleteSettings)
	}
	return &MailgunSender{
		cfg:    cfg,
		log:    log,
		client: mailgun.NewMailgun(cfg.Domain, cfg.APIKey),
	}, nil
}

// Send delivers msg with its attachments.
func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mailgun: no recipients: %w", ErrIncompleteSettings)
	}

	m := s.client.NewMessage(s.cfg.From, msg.Subject, msg.TextBody, msg.To...)
	if msg.HTMLBody != "" {
		m.SetHtml(msg.HTMLBody)
	}
	for _, a := range msg.Attachments {
		m.AddBufferAttachment(a.Name, a.Data)
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, id, err := s.client.Send(sendCtx, m)
	if err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	s.log.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Str("message_id", id).
		Msg("report mail sent")
	return nil
}
