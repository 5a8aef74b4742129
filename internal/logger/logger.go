// Package logger is the process-wide structured logger for rosterd and
// rosterctl. It wraps log/slog behind package functions so call sites do
// not thread a logger through every constructor; sink, level and format
// come from config at startup and can be changed at runtime.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Config selects the log sink and verbosity. Empty fields keep the
// current settings (INFO, text, stdout by default).
type Config struct {
	Level  string // DEBUG, INFO, WARN or ERROR
	Format string // text or json
	Output string // stdout, stderr or a file path
}

// settings is the single source of truth for how the active logger was
// built. Guarded by mu; rebuild() derives a new *slog.Logger from it and
// publishes it through active so the hot path never takes the lock.
var (
	mu       sync.Mutex
	settings = struct {
		w      io.Writer
		color  bool
		level  slog.Level
		format string
	}{w: os.Stdout, level: slog.LevelInfo, format: "text"}

	active atomic.Pointer[slog.Logger]
)

func init() {
	mu.Lock()
	defer mu.Unlock()
	if f, ok := settings.w.(*os.File); ok {
		settings.color = isTerminal(f.Fd())
	}
	rebuild()
}

// rebuild derives a logger from settings and publishes it. mu must be held.
func rebuild() {
	opts := &slog.HandlerOptions{Level: settings.level}
	var h slog.Handler
	if settings.format == "json" {
		h = slog.NewJSONHandler(settings.w, opts)
	} else {
		h = newTextHandler(settings.w, settings.level, settings.color)
	}
	active.Store(slog.New(h))
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return 0, false
}

// Init applies the configuration. Output may name a file, which is opened
// in append mode; color is enabled only when the sink is a terminal.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(cfg.Output) {
	case "":
		// keep current sink
	case "stdout":
		settings.w = os.Stdout
		settings.color = isTerminal(os.Stdout.Fd())
	case "stderr":
		settings.w = os.Stderr
		settings.color = isTerminal(os.Stderr.Fd())
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
		}
		settings.w = f
		settings.color = false
	}

	if lvl, ok := parseLevel(cfg.Level); ok {
		settings.level = lvl
	}
	if f := strings.ToLower(cfg.Format); f == "text" || f == "json" {
		settings.format = f
	}

	rebuild()
	return nil
}

// InitWithWriter points the logger at an arbitrary writer. Tests use this
// to capture output.
func InitWithWriter(w io.Writer, level, format string, color bool) {
	mu.Lock()
	defer mu.Unlock()
	settings.w = w
	settings.color = color
	if lvl, ok := parseLevel(level); ok {
		settings.level = lvl
	}
	if f := strings.ToLower(format); f == "text" || f == "json" {
		settings.format = f
	}
	rebuild()
}

// SetLevel changes the minimum level. Unknown names are ignored.
func SetLevel(level string) {
	lvl, ok := parseLevel(level)
	if !ok {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	settings.level = lvl
	rebuild()
}

// SetFormat switches between text and json output. Unknown names are
// ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	settings.format = format
	rebuild()
}

// Debug logs at debug level: Debug("msg", "key", value, ...).
func Debug(msg string, args ...any) {
	active.Load().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	active.Load().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	active.Load().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	active.Load().Error(msg, args...)
}

// With returns a child logger carrying pre-bound attributes.
func With(args ...any) *slog.Logger {
	return active.Load().With(args...)
}

// The printf variants exist for third-party libraries whose logger hooks
// hand us pre-formatted strings (badger, gorm).

func Debugf(format string, v ...any) {
	l := active.Load()
	if l.Enabled(context.Background(), slog.LevelDebug) {
		l.Debug(fmt.Sprintf(format, v...))
	}
}

func Infof(format string, v ...any) {
	l := active.Load()
	if l.Enabled(context.Background(), slog.LevelInfo) {
		l.Info(fmt.Sprintf(format, v...))
	}
}

func Warnf(format string, v ...any) {
	l := active.Load()
	if l.Enabled(context.Background(), slog.LevelWarn) {
		l.Warn(fmt.Sprintf(format, v...))
	}
}

func Errorf(format string, v ...any) {
	active.Load().Error(fmt.Sprintf(format, v...))
}
