package notify

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestSendNotConfigured(t *testing.T) {
	cases := []SMTPConfig{
		{},
		{Host: "smtp.example.com", User: "u", Pass: "p"},
		{Host: "smtp.example.com", User: "u", Sender: "s@example.com"},
		{User: "u", Pass: "p", Sender: "s@example.com"},
	}
	for _, cfg := range cases {
		m := NewMailer(cfg)
		err := m.Send(context.Background(), Message{To: "a@example.com", Subject: "x"})
		if !errors.Is(err, ErrNotConfigured) {
			t.Errorf("Send with %+v: got %v, want ErrNotConfigured", cfg, err)
		}
		if m.Configured() {
			t.Errorf("Configured() = true for %+v", cfg)
		}
	}
}

func TestSendTransportFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	m := NewMailer(SMTPConfig{
		Host:   "127.0.0.1",
		Port:   port,
		User:   "user",
		Pass:   "pass",
		Sender: "reports@example.com",
	})
	err = m.Send(context.Background(), Message{
		To:         "a@example.com",
		Subject:    "Scheduled Dashboard Report",
		Body:       "Attached is your scheduled report.",
		Attachment: []byte("%PDF-1.3"),
		Filename:   "scheduled_report.pdf",
	})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want *TransportError", err)
	}
	if te.Unwrap() == nil {
		t.Fatal("TransportError carries no cause")
	}
}

func TestSendCanceledContext(t *testing.T) {
	m := NewMailer(SMTPConfig{Host: "h", User: "u", Pass: "p", Sender: "s"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Send(ctx, Message{To: "a@example.com"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestSendStalledServerHonoursDeadline(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	// Accept connections and never write a greeting.
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				c.Close()
			}
		}()
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()

	m := NewMailer(SMTPConfig{
		Host:   "127.0.0.1",
		Port:   l.Addr().(*net.TCPAddr).Port,
		User:   "user",
		Pass:   "pass",
		Sender: "reports@example.com",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = m.Send(ctx, Message{To: "a@example.com", Subject: "x", Body: "y"})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Send returned after %v", elapsed)
	}

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want *TransportError", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}
