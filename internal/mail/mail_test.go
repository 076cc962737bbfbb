package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFormatMessageStripsHeaderInjection(t *testing.T) {
	payload := string(FormatMessage("site@example.com", Message{
		To:      "owner@example.com",
		Subject: "Hello\r\nBcc: attacker@example.com",
		Body:    "line one\nline two",
	}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	if strings.Contains(payload, "\r\nBcc:") {
		t.Fatalf("header injection survived: %q", payload)
	}
	if !strings.Contains(payload, "line one\r\nline two") {
		t.Fatalf("expected CRLF body, got %q", payload)
	}
}

func TestLogMailerLogsMessage(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mailer := NewLogMailer(zap.New(core))

	if err := mailer.Send(context.Background(), Message{To: "owner@example.com", Subject: "Your passcode"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one log entry, got %d", logs.Len())
	}
	if err := mailer.Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected missing recipient error")
	}
}
