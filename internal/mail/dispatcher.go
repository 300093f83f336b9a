/**
 * @description
 * This package wraps an SMTP transport. A Dispatcher sends exactly one plain-text
 * message per call and never retries; callers decide what a failure means.
 *
 * @dependencies
 * - github.com/wneessen/go-mail: SMTP client and RFC 5322 message builder.
 */
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/domain"
)

var (
	ErrInvalidMessage = errors.New("mail: from, to, subject and body are required")
	ErrDeliveryFailed = errors.New("mail: delivery failed")
)

// Config describes how to reach the SMTP server.
type Config struct {
	Host     string
	Port     int
	UseTLS   bool // implicit TLS; false means STARTTLS
	Username string
	Password string
	Timeout  time.Duration
}

// Dispatcher sends emails over SMTP.
type Dispatcher struct {
	host    string
	options []gomail.Option
	timeout time.Duration
}

// NewDispatcher validates the transport settings and returns a Dispatcher.
// A fresh client is dialed per Send, so one Dispatcher is safe to share across goroutines.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail: smtp host is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	options := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(cfg.Timeout),
	}
	if cfg.UseTLS {
		options = append(options, gomail.WithSSL())
	} else {
		options = append(options, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	if cfg.Username != "" {
		options = append(options,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	// Fail fast on option errors instead of on the first request.
	if _, err := gomail.NewClient(cfg.Host, options...); err != nil {
		return nil, fmt.Errorf("mail: invalid smtp settings: %w", err)
	}

	return &Dispatcher{
		host:    cfg.Host,
		options: options,
		timeout: cfg.Timeout,
	}, nil
}

// Send delivers the email and returns its Message-ID as the receipt.
func (d *Dispatcher) Send(ctx context.Context, email domain.OutboundEmail) (string, error) {
	msg, err := buildMessage(email)
	if err != nil {
		return "", err
	}

	client, err := gomail.NewClient(d.host, d.options...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	return receipt(msg), nil
}

func buildMessage(email domain.OutboundEmail) (*gomail.Msg, error) {
	if email.From == "" || email.To == "" || email.Subject == "" || email.Body == "" {
		return nil, ErrInvalidMessage
	}

	msg := gomail.NewMsg()
	if err := msg.From(email.From); err != nil {
		return nil, fmt.Errorf("%w: sender %q: %w", ErrDeliveryFailed, email.From, err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("%w: recipient %q: %w", ErrDeliveryFailed, email.To, err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, email.Body)
	msg.SetDate()
	msg.SetMessageID()
	return msg, nil
}

func receipt(msg *gomail.Msg) string {
	if ids := msg.GetGenHeader(gomail.HeaderMessageID); len(ids) > 0 {
		return ids[0]
	}
	return ""
}
