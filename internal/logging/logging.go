package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New builds the process logger.
// format is "console" (human readable, short caller) or "json"; level is any zerolog level name.
// A nil writer means stdout.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stdout
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	var out io.Writer
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		out = newConsoleWriter(w)
	case "json":
		out = w
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q (want console or json)", format)
	}

	zerolog.TimeFieldFormat = consoleTimeFormat
	return zerolog.New(out).Level(lvl).With().Timestamp().Caller().Logger(), nil
}

// ParseLevel maps a level name to a zerolog level; empty means info
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q: %w", level, err)
	}
	return lvl, nil
}

func newConsoleWriter(w io.Writer) io.Writer {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	if f, ok := w.(*os.File); !ok || f != os.Stdout {
		cw.NoColor = true
	}
	cw.FormatCaller = func(i interface{}) string {
		s, ok := i.(string)
		if !ok || s == "" {
			return ""
		}
		// internal/usecase/engine/engine.go:123 -> engine/engine.go:123
		file, line, found := strings.Cut(s, ":")
		if !found {
			return filepath.Base(s)
		}
		if _, err := strconv.Atoi(line); err != nil {
			return s
		}
		return filepath.Join(filepath.Base(filepath.Dir(file)), filepath.Base(file)) + ":" + line
	}
	return cw
}
