package script

import (
	"fmt"
	"time"
)

type Level string

const (
	LevelInfo  Level = "Info"
	LevelWarn  Level = "Warn"
	LevelError Level = "Error"
)

// Log is one script or pipeline log line.
type Log struct {
	Level   Level     `yaml:"level" json:"level"`
	Time    time.Time `yaml:"time" json:"time"`
	Message string    `yaml:"msg" json:"msg"`
	Scope   string    `yaml:"scope" json:"scope"`
}

// Show renders the line as "15:04:05 Info [scope] msg".
func (l Log) Show() string {
	return fmt.Sprintf("%s %s [%s] %s", l.Time.Format("15:04:05"), l.Level, l.Scope, l.Message)
}

// Logger is an ordered, append-only log. It belongs to one pipeline and is
// not safe for concurrent use.
type Logger struct {
	Logs []Log `yaml:"logs" json:"logs"`
}

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) add(level Level, scope, msg string) {
	l.Logs = append(l.Logs, Log{Level: level, Time: time.Now(), Message: msg, Scope: scope})
}

func (l *Logger) Info(scope, msg string)  { l.add(LevelInfo, scope, msg) }
func (l *Logger) Warn(scope, msg string)  { l.add(LevelWarn, scope, msg) }
func (l *Logger) Error(scope, msg string) { l.add(LevelError, scope, msg) }

func (l *Logger) Clone() *Logger {
	if l == nil {
		return NewLogger()
	}
	return &Logger{Logs: append([]Log(nil), l.Logs...)}
}

// Lines renders every entry with Show.
func (l *Logger) Lines() []string {
	out := make([]string, 0, len(l.Logs))
	for _, log := range l.Logs {
		out = append(out, log.Show())
	}
	return out
}
