package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Level is the minimum severity that is written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel accepts debug, info, warn and error (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

var (
	mu            sync.RWMutex
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// InitForCLI writes logs at or above level to output as slog text lines.
// Until it is called every log call is discarded.
func InitForCLI(level Level, output io.Writer) {
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: level.slogLevel()})
	mu.Lock()
	defaultLogger = slog.New(handler)
	mu.Unlock()
}

func logInternal(level Level, subsystem string, err error, format string, args ...any) {
	mu.RLock()
	logger := defaultLogger
	mu.RUnlock()

	ctx := context.Background()
	if !logger.Enabled(ctx, level.slogLevel()) {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.LogAttrs(ctx, level.slogLevel(), msg, attrs...)
}

func Debug(subsystem, format string, args ...any) {
	logInternal(LevelDebug, subsystem, nil, format, args...)
}

func Info(subsystem, format string, args ...any) {
	logInternal(LevelInfo, subsystem, nil, format, args...)
}

func Warn(subsystem, format string, args ...any) {
	logInternal(LevelWarn, subsystem, nil, format, args...)
}

// Error logs msg with err attached as the error attribute.
func Error(subsystem string, err error, format string, args ...any) {
	logInternal(LevelError, subsystem, err, format, args...)
}
