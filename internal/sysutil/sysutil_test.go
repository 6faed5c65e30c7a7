package sysutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel_AllVariants(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel}, // case + trim
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel}, // empty -> info
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel}, // alias
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel}, // default
	}

	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func restoreGlobals(t *testing.T) {
	t.Helper()
	lvl := zerolog.GlobalLevel()
	def := zerolog.DefaultContextLogger
	tf := zerolog.TimeFieldFormat
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(lvl)
		zerolog.DefaultContextLogger = def
		zerolog.TimeFieldFormat = tf
	})
}

func TestSetupLogger_JSONToOut(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer

	l, closeFn, err := SetupLogger(LogOptions{Level: "info"}, &buf)
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	defer closeFn()

	l.Debug().Msg("hidden")
	l.Info().Str("k", "v").Msg("contact submission delivered")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (debug filtered), got %d: %q", len(lines), buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if m["message"] != "contact submission delivered" || m["k"] != "v" || m["time"] == nil {
		t.Fatalf("unexpected entry: %v", m)
	}
	if zerolog.DefaultContextLogger == nil {
		t.Fatalf("default context logger not installed")
	}
}

func TestLogWriter_PrettyIsNotJSON(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer
	w, closer, err := LogWriter(LogOptions{Pretty: true}, &buf)
	if err != nil || closer != nil {
		t.Fatalf("LogWriter: closer=%v err=%v", closer, err)
	}
	logger := zerolog.New(w)
	logger.Info().Msg("hello")
	out := buf.String()
	if !strings.Contains(out, "hello") || strings.HasPrefix(out, "{") {
		t.Fatalf("expected console output, got %q", out)
	}
}

func TestLogWriter_TeesIntoRotatedFile(t *testing.T) {
	restoreGlobals(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "contact.log")
	var buf bytes.Buffer

	l, closeFn, err := SetupLogger(LogOptions{Level: "debug", File: path}, &buf)
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	l.Warn().Msg("rate limit store unavailable")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "rate limit store unavailable") {
		t.Fatalf("file missing entry: %q", data)
	}
	if !strings.Contains(buf.String(), "rate limit store unavailable") {
		t.Fatalf("stdout missing entry: %q", buf.String())
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty() = %q; want \"\"", got)
	}
	if got := FirstNonEmpty(" ", "\t", "\n"); got != "" {
		t.Fatalf("FirstNonEmpty(empties) = %q; want \"\"", got)
	}
	if got := FirstNonEmpty("   ", "  hello  ", "world"); got != "  hello  " {
		t.Fatalf("FirstNonEmpty(...) = %q; want %q", got, "  hello  ")
	}
}
