package logger

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
)

// NewSlogHandler returns a slog.Handler that forwards records to l.
// If l is nil, it returns nil.
func NewSlogHandler(l *Logger) slog.Handler {
	if l == nil {
		return nil
	}
	return &slogAdapter{log: l}
}

// NewStdLogger returns a *log.Logger whose output is logged to l at level.
// It is meant for APIs such as http.Server.ErrorLog.
func NewStdLogger(l *Logger, level slog.Level) *log.Logger {
	return slog.NewLogLogger(NewSlogHandler(l), level)
}

type slogAdapter struct {
	log    *Logger
	groups []string
	// attrs bound by WithAttrs, already qualified by their groups
	bound []string
}

func (h *slogAdapter) Enabled(_ context.Context, level slog.Level) bool {
	current := h.log.GetLevel()
	return current != LevelNone && slogLevelToLoggerLevel(level) >= current
}

func (h *slogAdapter) Handle(_ context.Context, record slog.Record) error {
	parts := append([]string(nil), h.bound...)
	record.Attrs(func(attr slog.Attr) bool {
		parts = appendAttr(parts, attr, h.groups)
		return true
	})

	message := strings.TrimRight(record.Message, "\n")
	if text := strings.Join(parts, " "); text != "" {
		message = strings.TrimSpace(message + " " + text)
	}

	switch slogLevelToLoggerLevel(record.Level) {
	case LevelError:
		h.log.Error("%s", message)
	case LevelWarn:
		h.log.Warn("%s", message)
	case LevelInfo:
		h.log.Info("%s", message)
	default:
		h.log.Debug("%s", message)
	}
	return nil
}

func (h *slogAdapter) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := append([]string(nil), h.bound...)
	for _, attr := range attrs {
		bound = appendAttr(bound, attr, h.groups)
	}
	return &slogAdapter{log: h.log, groups: h.groups, bound: bound}
}

func (h *slogAdapter) WithGroup(name string) slog.Handler {
	groups := append([]string(nil), h.groups...)
	if name != "" {
		groups = append(groups, name)
	}
	return &slogAdapter{log: h.log, groups: groups, bound: h.bound}
}

func slogLevelToLoggerLevel(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func appendAttr(parts []string, attr slog.Attr, prefix []string) []string {
	if attr.Equal(slog.Attr{}) {
		return parts
	}
	if attr.Value.Kind() == slog.KindGroup {
		nested := append(append([]string(nil), prefix...), attr.Key)
		for _, a := range attr.Value.Group() {
			parts = appendAttr(parts, a, nested)
		}
		return parts
	}

	key := attr.Key
	if key == "" {
		key = "attr"
	}
	full := append(append([]string(nil), prefix...), key)
	return append(parts, fmt.Sprintf("%s=%v", strings.Join(full, "."), attr.Value))
}
