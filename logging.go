package modinput

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
)

// Severity tokens for the diagnostic side channel. The set is open: the
// host treats the leading token of each line as the severity.
const (
	SeverityDebug = "DEBUG"
	SeverityInfo  = "INFO"
	SeverityWarn  = "WARN"
	SeverityError = "ERROR"
	SeverityFatal = "FATAL"
)

// LevelFatal is the slog level rendered as FATAL on the side channel.
const LevelFatal = slog.LevelError + 4

// frameLine concatenates diagnostic frames, each terminated by a literal
// backslash, into the message part of a side-channel line.
func frameLine(frames []string) string {
	var sb strings.Builder
	for _, frame := range frames {
		sb.WriteString(frame)
		sb.WriteByte('\\')
	}
	return sb.String()
}

// logEntry renders a complete side-channel line: the severity token, one
// space, then the backslash-terminated frames.
func logEntry(severity string, frames []string) string {
	return severity + " " + frameLine(frames)
}

// captureFrames renders the current call stack in pkg.Func(file:line) form,
// skipping skip frames above the caller.
func captureFrames(skip int) []string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	var out []string
	for {
		f, more := frames.Next()
		if f.Function != "" {
			out = append(out, fmt.Sprintf("%s(%s:%d)", f.Function, filepath.Base(f.File), f.Line))
		}
		if !more {
			break
		}
	}
	return out
}

// LogHandler is an slog.Handler that renders records as side-channel lines
// through an EventWriter, so an input can use log/slog as usual and have
// every record reach the host in `SEVERITY message` form.
type LogHandler struct {
	ew     *EventWriter
	level  slog.Leveler
	attrs  []slog.Attr // keys already group-qualified
	groups []string
}

// NewLogHandler creates a LogHandler emitting through ew at LevelInfo and
// above.
func NewLogHandler(ew *EventWriter) *LogHandler {
	return &LogHandler{ew: ew, level: slog.LevelInfo}
}

// WithLevel returns a copy of the handler with a new minimum level.
func (h *LogHandler) WithLevel(level slog.Leveler) *LogHandler {
	c := *h
	c.level = level
	return &c
}

// Enabled implements slog.Handler.
func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler. Each record becomes exactly one line.
func (h *LogHandler) Handle(_ context.Context, rec slog.Record) error {
	var sb strings.Builder
	sb.WriteString(sanitizeLine(rec.Message))
	for _, a := range h.attrs {
		appendAttr(&sb, "", a)
	}
	prefix := strings.Join(h.groups, ".")
	rec.Attrs(func(a slog.Attr) bool {
		appendAttr(&sb, prefix, a)
		return true
	})
	return h.ew.Log(severityFor(rec.Level), sb.String())
}

// WithAttrs implements slog.Handler.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := *h
	prefix := strings.Join(h.groups, ".")
	qualified := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if prefix != "" && a.Key != "" {
			a.Key = prefix + "." + a.Key
		}
		qualified = append(qualified, a)
	}
	c.attrs = append(append([]slog.Attr{}, h.attrs...), qualified...)
	return &c
}

// WithGroup implements slog.Handler.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(append([]string{}, h.groups...), name)
	return &c
}

// appendAttr writes one attr as ` key=value`, expanding group values.
func appendAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			appendAttr(sb, key, ga)
		}
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(sanitizeLine(a.Value.String()))
}

// sanitizeLine keeps the one-record-one-line contract of the side channel.
func sanitizeLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r", `\r`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

// severityFor maps slog levels onto side-channel severity tokens.
func severityFor(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return SeverityDebug
	case level < slog.LevelWarn:
		return SeverityInfo
	case level < slog.LevelError:
		return SeverityWarn
	case level < LevelFatal:
		return SeverityError
	default:
		return SeverityFatal
	}
}
