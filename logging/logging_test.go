package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level, format string
		want          zapcore.Level
	}{
		{"", "", zapcore.InfoLevel},
		{"debug", FormatJSON, zapcore.DebugLevel},
		{"WARN", FormatConsole, zapcore.WarnLevel},
		{"error", "", zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		log, err := New(tc.level, tc.format)
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tc.level, tc.format, err)
		}
		if !log.Core().Enabled(tc.want) {
			t.Errorf("New(%q, %q): level %s not enabled", tc.level, tc.format, tc.want)
		}
		if tc.want > zapcore.DebugLevel && log.Core().Enabled(tc.want-1) {
			t.Errorf("New(%q, %q): level %s unexpectedly enabled", tc.level, tc.format, tc.want-1)
		}
	}
}

func TestNewRejectsUnknown(t *testing.T) {
	if _, err := New("loud", ""); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
