package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig carries the transport settings for NewSMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Timeout  time.Duration
}

// SMTPSender delivers messages through an authenticated SMTP relay.
// STARTTLS is mandatory; a relay that cannot upgrade the connection fails
// the send.
type SMTPSender struct {
	client *mail.Client
	from   string
	to     string
}

// NewSMTPSender builds a sender for the given relay.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From, to: cfg.To}, nil
}

// Send delivers one multipart/alternative message with the plain-text body
// first and the HTML body as the rich alternative.
func (s *SMTPSender) Send(ctx context.Context, subject, textBody, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(s.to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogSender logs composed messages instead of delivering them. It backs the
// dry-run mode.
type LogSender struct{}

// Send logs the subject and drops the message.
func (LogSender) Send(_ context.Context, subject, textBody, _ string) error {
	slog.Info("dry run, skipping email dispatch", slog.String("subject", subject))
	slog.Debug("dry run message body", slog.String("text", textBody))
	return nil
}
