package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends mail through an SMTP relay, upgrading with STARTTLS when
// the server offers it and authenticating with PLAIN when a username is set.
type SMTPSender struct {
	cfg       SMTPConfig
	logger    *zap.Logger
	tlsConfig *tls.Config
	now       func() time.Time
}

// Option configures an SMTPSender.
type Option func(*SMTPSender)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *SMTPSender) { s.logger = l }
}

// WithTLSConfig overrides the TLS settings used for STARTTLS.
func WithTLSConfig(c *tls.Config) Option {
	return func(s *SMTPSender) { s.tlsConfig = c }
}

// NewSMTPSender returns a sender for cfg. The sender reports ErrNotConfigured
// on every Send when cfg.Host is empty.
func NewSMTPSender(cfg SMTPConfig, opts ...Option) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	s := &SMTPSender{cfg: cfg, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.tlsConfig == nil {
		s.tlsConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	return s
}

// Send delivers msg.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.Host == "" {
		return ErrNotConfigured
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}

	m, err := s.newMessage(msg)
	if err != nil {
		return err
	}
	client, err := s.newClient()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp %s: %w", client.ServerAddr(), err)
	}

	s.logger.Info("email sent",
		zap.String("to", msg.To),
		zap.String("attachment", filepath.Base(msg.AttachmentPath)),
	)
	return nil
}

// newMessage builds msg as a plain text body with the attachment, if any,
// read up front so a missing file fails before dialing.
func (s *SMTPSender) newMessage(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(s.now())
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	if msg.AttachmentPath != "" {
		data, err := os.ReadFile(msg.AttachmentPath)
		if err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}
		if err := m.AttachReader(filepath.Base(msg.AttachmentPath), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("attach %s: %w", filepath.Base(msg.AttachmentPath), err)
		}
	}
	return m, nil
}

func (s *SMTPSender) newClient() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTLSConfig(s.tlsConfig),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}
