package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"

	"returns-backend/internal/config"
)

// Message is a single outbound email
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

type EmailService interface {
	Send(ctx context.Context, msg Message) error
}

type smtpEmailService struct {
	cfg config.EmailConfig
}

// NewEmailService returns the SMTP sender, or a logging sender when SMTP is
// disabled (local development).
func NewEmailService(cfg config.EmailConfig) EmailService {
	if !cfg.Enabled {
		return &logEmailService{}
	}
	return &smtpEmailService{cfg: cfg}
}

func (s *smtpEmailService) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.NoTLS),
	}
	if s.cfg.UseTLS {
		opts[1] = mail.WithTLSPolicy(mail.TLSMandatory)
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return mail.NewClient(s.cfg.Host, opts...)
}

func (s *smtpEmailService) Send(ctx context.Context, m Message) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.TextBody)
	if m.HTMLBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTMLBody)
	}

	client, err := s.client()
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		log.Warn().Err(err).Str("to", m.To).Str("host", s.cfg.Host).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type logEmailService struct{}

func (logEmailService) Send(ctx context.Context, m Message) error {
	log.Info().Str("to", m.To).Str("subject", m.Subject).Msg("[EMAIL] SMTP disabled, email logged only")
	return nil
}
