// Package sysutil holds process-level helpers used by the binaries: global
// log level, the root zerolog logger and its (optionally rotated) writer.
package sysutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// LogOptions selects where and how the root logger writes.
type LogOptions struct {
	Level  string
	Pretty bool   // human-readable console output on Out
	File   string // when set, JSON lines are also written to a rotated file

	MaxSizeMB  int // per file before rotation; default 50
	MaxBackups int // default 5
	MaxAgeDays int // default 28
}

// LogWriter builds the sink for the root logger. Out receives console or JSON
// output; when opts.File is set a lumberjack rotator is teed in and returned
// as the closer. The closer is nil when no file is used.
func LogWriter(opts LogOptions, out io.Writer) (io.Writer, io.Closer, error) {
	if out == nil {
		out = os.Stdout
	}
	var console io.Writer = out
	if opts.Pretty {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if strings.TrimSpace(opts.File) == "" {
		return console, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, nil, err
	}
	rot := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 50),
		MaxBackups: orDefault(opts.MaxBackups, 5),
		MaxAge:     orDefault(opts.MaxAgeDays, 28),
		Compress:   true,
	}
	return zerolog.MultiLevelWriter(console, rot), rot, nil
}

// SetupLogger sets the global level, builds the root logger, installs it as
// zerolog's default context logger and returns it with a close func.
func SetupLogger(opts LogOptions, out io.Writer) (zerolog.Logger, func() error, error) {
	SetLogLevel(opts.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	w, closer, err := LogWriter(opts, out)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &l

	closeFn := func() error { return nil }
	if closer != nil {
		closeFn = closer.Close
	}
	return l, closeFn, nil
}

// FirstNonEmpty returns the first non-blank string from a variadic list.
// If all values are blank, it returns "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
