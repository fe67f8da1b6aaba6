package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestDeliver(t *testing.T) {
	dialer := &recordingDialer{}
	m := NewMailerWithDialer(Config{From: "noreply@example.com"}, dialer)

	if err := m.Deliver(context.Background(), "a@x.com", "Verify your account", "hello"); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(dialer.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(dialer.sent))
	}

	msg := dialer.sent[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "a@x.com" {
		t.Fatalf("unexpected recipients %v", got)
	}
	if got := msg.GetHeader("From"); len(got) != 1 || got[0] != "noreply@example.com" {
		t.Fatalf("unexpected sender %v", got)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("body missing from %q", buf.String())
	}
}

func TestDeliverErrors(t *testing.T) {
	dialer := &recordingDialer{err: errors.New("connection refused")}
	m := NewMailerWithDialer(Config{From: "noreply@example.com"}, dialer)

	if err := m.Deliver(context.Background(), "a@x.com", "s", "b"); err == nil {
		t.Fatal("expected dialer error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Deliver(ctx, "a@x.com", "s", "b"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(dialer.sent) != 1 {
		t.Fatalf("cancelled delivery must not dial, sent %d", len(dialer.sent))
	}

	if err := m.Send(Email{Subject: "s"}); err == nil {
		t.Fatal("expected error without recipients")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{Host: "smtp", Port: 587, From: "x@y.z"}).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := (Config{Port: 587, From: "x@y.z"}).Validate(); err == nil {
		t.Fatal("expected missing host error")
	}
}
