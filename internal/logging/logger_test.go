package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{level: "", expected: zapcore.InfoLevel},
		{level: "DEBUG", expected: zapcore.DebugLevel},
		{level: " warning ", expected: zapcore.WarnLevel},
		{level: "error", expected: zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		logger, err := NewLogger(tt.level, "json")
		if err != nil {
			t.Fatalf("level %q: unexpected error %v", tt.level, err)
		}
		if !logger.Core().Enabled(tt.expected) {
			t.Fatalf("level %q: expected %s to be enabled", tt.level, tt.expected)
		}
		if tt.expected > zapcore.DebugLevel && logger.Core().Enabled(tt.expected-1) {
			t.Fatalf("level %q: expected %s to be disabled", tt.level, tt.expected-1)
		}
	}
}

func TestNewLoggerRejectsUnknownValues(t *testing.T) {
	if _, err := NewLogger("verbose", "json"); err == nil {
		t.Fatalf("expected unknown level to be rejected")
	}
	if _, err := NewLogger("info", "xml"); err == nil {
		t.Fatalf("expected unknown format to be rejected")
	}
	if _, err := NewLogger("info", "console"); err != nil {
		t.Fatalf("expected console format to be accepted: %v", err)
	}
}
