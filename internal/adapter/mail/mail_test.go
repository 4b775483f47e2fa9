package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestConfig_Enabled(t *testing.T) {
	if (Config{Host: "smtp.example.com"}).Enabled() {
		t.Error("expected disabled without credentials")
	}
	if !(Config{Host: "smtp.example.com", User: "u", Password: "p"}).Enabled() {
		t.Error("expected enabled with credentials")
	}
}

func TestNew_DisabledLogs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	m, err := New(Config{}, log)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(*LogMailer); !ok {
		t.Fatalf("expected *LogMailer, got %T", m)
	}
	if err := m.Send(context.Background(), "a@ufl.edu", "Verify your email", "link"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "to=a@ufl.edu") {
		t.Errorf("expected recipient in log, got %q", buf.String())
	}
}

func TestNewClient_BadFrom(t *testing.T) {
	_, err := NewClient(Config{Host: "smtp.example.com:465", User: "u", Password: "p", From: "not an address"})
	if err == nil {
		t.Fatal("expected error for malformed sender")
	}
}
