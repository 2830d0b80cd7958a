package notify

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned when SMTP credentials are missing. No connection is attempted.
var ErrNotConfigured = errors.New("email transport not configured")

// TransportError wraps a failure reported by the SMTP transport.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("email transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type SMTPConfig struct {
	Host   string
	Port   int
	User   string
	Pass   string
	Sender string
}

func (c SMTPConfig) configured() bool {
	return c.Host != "" && c.User != "" && c.Pass != "" && c.Sender != ""
}

// Message is a single email with one attachment.
type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment []byte
	Filename   string
}

// Mailer sends report emails over SMTP. It never retries.
type Mailer struct {
	config SMTPConfig
	dialer *gomail.Dialer
}

func NewMailer(config SMTPConfig) *Mailer {
	if config.Port == 0 {
		config.Port = 587
	}
	return &Mailer{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.User, config.Pass),
	}
}

func (m *Mailer) Configured() bool {
	return m.config.configured()
}

// Send delivers msg. It returns when the transport finishes or ctx is done,
// whichever comes first.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.config.configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	em := gomail.NewMessage()
	em.SetHeader("From", m.config.Sender)
	em.SetHeader("To", msg.To)
	em.SetHeader("Subject", msg.Subject)
	em.SetBody("text/plain", msg.Body)
	if len(msg.Attachment) > 0 {
		data := msg.Attachment
		em.Attach(msg.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}

	// gomail has no context support. A stalled server leaves the goroutine
	// blocked, but the caller is released once ctx is done.
	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(em)
	}()

	select {
	case err := <-done:
		if err != nil {
			return &TransportError{Err: err}
		}
		return nil
	case <-ctx.Done():
		return &TransportError{Err: ctx.Err()}
	}
}
