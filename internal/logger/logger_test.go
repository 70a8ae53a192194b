package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"Info", INFO},
		{"WARN", WARN},
		{"error", ERROR},
		{"fatal", FATAL},
		{"nonsense", INFO},
		{"", INFO},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("warn")
	l.SetOutput(&buf)
	l.EnableColors(false)

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Warn("visible warn")
	l.Errorf("visible %s", "error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the level leaked through: %q", out)
	}
	if !strings.Contains(out, "visible warn") || !strings.Contains(out, "visible error") {
		t.Errorf("expected warn and error output, got: %q", out)
	}
}

func TestCallerLocation(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("debug")
	l.SetOutput(&buf)
	l.EnableColors(false)

	l.Info("where am I")

	if !strings.Contains(buf.String(), "logger_test.go") {
		t.Errorf("log line should carry the caller's file, got: %q", buf.String())
	}
}
