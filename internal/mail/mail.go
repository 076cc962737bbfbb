// Package mail delivers transactional email: login passcodes and contact form
// notifications.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var errMissingRecipient = errors.New("mail: recipient required")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, message Message) error
}

// LogMailer writes messages to the log instead of sending them (development).
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a LogMailer; a nil logger discards messages.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, message Message) error {
	if strings.TrimSpace(message.To) == "" {
		return errMissingRecipient
	}
	m.logger.Info("mail delivered to log",
		zap.String("to", message.To),
		zap.String("subject", message.Subject),
		zap.String("body", message.Body))
	return nil
}

// SMTPConfig configures an SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer relays messages through an SMTP server with PLAIN auth.
type SMTPMailer struct {
	address string
	from    string
	auth    smtp.Auth
}

// NewSMTPMailer validates cfg and builds an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("mail: smtp host required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("mail: smtp from address required")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		address: net.JoinHostPort(cfg.Host, fmt.Sprint(port)),
		from:    cfg.From,
		auth:    auth,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, message Message) error {
	if strings.TrimSpace(message.To) == "" {
		return errMissingRecipient
	}
	payload := FormatMessage(m.from, message, time.Now())
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(m.address, m.auth, m.from, []string{message.To}, payload)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FormatMessage renders message as an RFC 5322 plain-text payload.
func FormatMessage(from string, message Message, sentAt time.Time) []byte {
	var builder strings.Builder
	builder.WriteString("From: " + sanitizeHeader(from) + "\r\n")
	builder.WriteString("To: " + sanitizeHeader(message.To) + "\r\n")
	builder.WriteString("Subject: " + sanitizeHeader(message.Subject) + "\r\n")
	builder.WriteString("Date: " + sentAt.UTC().Format(time.RFC1123Z) + "\r\n")
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	builder.WriteString(strings.ReplaceAll(message.Body, "\n", "\r\n"))
	return []byte(builder.String())
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
