package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{
		Level:      LevelDebug,
		Output:     &buf,
		JSON:       true,
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}

	logger := New(cfg)
	if logger == nil {
		t.Fatal("New logger should not be nil")
	}

	t.Run("Levels", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug msg")
		if !strings.Contains(buf.String(), "debug msg") {
			t.Error("debug logging failed")
		}

		buf.Reset()
		logger.Info("info msg")
		if !strings.Contains(buf.String(), "info msg") {
			t.Error("info logging failed")
		}

		buf.Reset()
		logger.Error("error msg")
		if !strings.Contains(buf.String(), "error msg") {
			t.Error("error logging failed")
		}
	})

	t.Run("DynamicLevel", func(t *testing.T) {
		logger.SetLevel(LevelError)
		if logger.GetLevel() != LevelError {
			t.Error("SetLevel failed")
		}

		buf.Reset()
		logger.Info("should not appear")
		if buf.Len() > 0 {
			t.Error("Logged info message when level was Error")
		}

		logger.SetLevel(LevelDebug)
	})

	t.Run("WithComponent", func(t *testing.T) {
		buf.Reset()
		l := logger.WithComponent("test-comp")
		l.Info("msg")
		if !strings.Contains(buf.String(), "test-comp") {
			t.Error("WithComponent missing component field")
		}
	})

	t.Run("WithFields", func(t *testing.T) {
		buf.Reset()
		l := logger.WithFields(map[string]any{"foo": "bar"})
		l.Info("msg")
		if !strings.Contains(buf.String(), "foo") || !strings.Contains(buf.String(), "bar") {
			t.Error("WithFields missing fields")
		}
	})
}

func TestConsoleHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf, JSON: false})

	logger.WithComponent("netlink").Info("link created", "name", "br0")
	out := buf.String()
	if !strings.Contains(out, "netlink:") {
		t.Errorf("component not promoted to header: %q", out)
	}
	if !strings.Contains(out, "name=br0") {
		t.Errorf("attribute not rendered: %q", out)
	}

	buf.Reset()
	logger.Info("quoted", "msg", "two words")
	if !strings.Contains(buf.String(), `msg="two words"`) {
		t.Errorf("value with spaces not quoted: %q", buf.String())
	}
}

func TestSetDefaultSurvivesDefault(t *testing.T) {
	var buf bytes.Buffer
	installed := New(Config{Level: LevelDebug, Output: &buf, JSON: true})
	SetDefault(installed)

	// WithComponent goes through Default(); the installed logger must still
	// be the one in effect.
	WithComponent("wiring").Debug("configured logger in use")
	if !strings.Contains(buf.String(), "configured logger in use") {
		t.Fatalf("Default() replaced the logger installed via SetDefault; buf=%q", buf.String())
	}
	if Default() != installed {
		t.Error("Default() returned a different logger than the one installed")
	}
	if Default().GetLevel() != LevelDebug {
		t.Error("installed logger level not preserved")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"trace":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"WARNING": LevelWarn,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
