package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Debug is true once debug logging has been enabled.
var Debug = false

// Log is the process logger. It discards everything until InitDebugLog or
// UseConsoleLog replaces it.
var Log = zerolog.Nop()

// CheckDebug reports whether CORTEXCHAT_DEBUG turns on the debug log.
func CheckDebug() bool {
	debug := strings.ToLower(os.Getenv("CORTEXCHAT_DEBUG"))
	return debug == "true" || debug == "1"
}

// InitDebugLog points Log at <dataDir>/debug.log when CORTEXCHAT_DEBUG is
// set. The TUI owns the terminal so nothing is written to stderr.
func InitDebugLog(dataDir, level string) (io.Closer, error) {
	if !CheckDebug() {
		return nopCloser{}, nil
	}

	logPath := filepath.Join(dataDir, "debug.log")
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nopCloser{}, fmt.Errorf("failed to open debug log at %s: %w", logPath, err)
	}

	Debug = true
	Log = zerolog.New(f).With().Timestamp().Str("app", appName).Logger().Level(parseLevel(level))
	Log.Info().Str("path", logPath).Msg("debug logging started")
	return f, nil
}

// UseConsoleLog sends Log to w in human readable form. Used by commands
// that do not run the TUI.
func UseConsoleLog(w io.Writer, level string) {
	Log = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(parseLevel(level))
}

func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
