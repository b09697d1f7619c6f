package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{"", LevelInfo},
		{"loud", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if ValidLevel("loud") {
		t.Error("ValidLevel(loud) = true")
	}
	if !ValidLevel("Warn") {
		t.Error("ValidLevel(Warn) = false")
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown %d", 1)
	l.Error("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("unexpected low-level output: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 1") || !strings.Contains(out, "[ERROR] shown 2") {
		t.Errorf("missing output: %q", out)
	}
}

func TestLoggerFieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf, Prefix: "sf"})
	l.WithComponent("txn").WithField("depth", 3).Info("drained")

	want := "sf: drained {component=txn, depth=3}\n"
	if !strings.HasSuffix(buf.String(), want) {
		t.Errorf("got %q, want suffix %q", buf.String(), want)
	}
}

func TestDerivedLoggerSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := New(Config{Level: LevelInfo, Output: &buf})
	child := root.WithComponent("layout")

	child.Debug("before")
	root.SetLevel(LevelDebug)
	child.Debug("after")

	if strings.Contains(buf.String(), "before") {
		t.Error("debug line written before level change")
	}
	if !strings.Contains(buf.String(), "after") {
		t.Error("derived logger did not observe level change")
	}
	if !child.Enabled(LevelDebug) {
		t.Error("Enabled(LevelDebug) = false")
	}
}

func TestNullLogger(t *testing.T) {
	NullLogger.WithComponent("x").Error("nothing")
	if NullLogger.Enabled(LevelError) {
		t.Error("NullLogger should be disabled")
	}
}
