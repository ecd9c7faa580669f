package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LevelFatal marks configuration errors that leave a scene's tour unable to
// recover. The process keeps running.
const LevelFatal = slog.Level(12)

// Sink is an extra log destination, e.g. a Graylog GELF writer.
type Sink struct {
	Name   string
	Writer io.Writer
}

// SlogManager owns the process logger and its handlers.
type SlogManager struct {
	logger   *slog.Logger
	level    *slog.LevelVar
	provider ContextProvider
}

// NewSlogManager creates a manager. Until Setup is called Logger returns slog.Default.
func NewSlogManager() *SlogManager {
	return &SlogManager{level: new(slog.LevelVar)}
}

// parseLevel converts a config string to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	case "FATAL":
		return LevelFatal
	default:
		return slog.LevelInfo
	}
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelFatal {
			a.Value = slog.StringValue("FATAL")
		}
	}
	return a
}

// SetContextProvider installs a provider whose attributes are added to every
// record. Takes effect on the next Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.provider = p
}

// Setup (re)builds the logger. Records go to file when one is given,
// otherwise to stdout. Sinks receive JSON records.
func (m *SlogManager) Setup(file io.Writer, level string, sinks ...Sink) {
	m.level.Set(parseLevel(level))

	opts := &slog.HandlerOptions{
		Level:       m.level,
		ReplaceAttr: replaceAttr,
	}

	var handlers []slog.Handler
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, opts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, opts))
	}
	for _, s := range sinks {
		if s.Writer == nil {
			continue
		}
		handlers = append(handlers, slog.NewJSONHandler(s.Writer, opts).WithAttrs([]slog.Attr{
			slog.String("sink", s.Name),
		}))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if m.provider != nil {
		h = NewContextHandler(h, m.provider)
	}

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", level, "sinks", len(sinks))
}

// Logger returns the configured logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// SetLevel changes the level without rebuilding handlers.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(parseLevel(level))
}

// Fatal logs at LevelFatal. It does not exit.
func (m *SlogManager) Fatal(msg string, args ...any) {
	m.Logger().Log(context.Background(), LevelFatal, msg, args...)
}
