package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  zapcore.Level
	}{
		{name: "empty", input: "", want: zapcore.InfoLevel},
		{name: "debug", input: "debug", want: zapcore.DebugLevel},
		{name: "padded upper", input: "  WARN ", want: zapcore.WarnLevel},
		{name: "warning alias", input: "warning", want: zapcore.WarnLevel},
		{name: "error", input: "error", want: zapcore.ErrorLevel},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := ParseLevel(testCase.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != testCase.want {
				t.Fatalf("expected %v, got %v", testCase.want, got)
			}
		})
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger("chatty"); err == nil {
		t.Fatalf("expected an unknown level to be rejected")
	}
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	logger, err := NewLogger("warn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("warn should be enabled at warn level")
	}
}
