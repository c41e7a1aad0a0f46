// Package logging configures the process-wide zerolog logger.
package logging

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

// Config holds logger settings
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	Output string // stderr, stdout or a file path
}

// Setup installs the global logger. The returned closer releases a log file, if one was opened.
func Setup(cfg Config) (io.Closer, error) {
	lvl := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		lvl = parsed
	}

	var out io.Writer
	var closer io.Closer = nopCloser{}
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		out = file
		closer = file
	}

	log.Logger = New(out, cfg.Format, lvl)
	return closer, nil
}

// New builds a logger without touching the global one.
func New(out io.Writer, format string, lvl zerolog.Level) zerolog.Logger {
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: out != os.Stderr && out != os.Stdout}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// KeyFingerprint returns a short stable digest of an API key for log correlation.
func KeyFingerprint(key string) string {
	if key == "" {
		return "none"
	}
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
