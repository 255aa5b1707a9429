package logger

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rollbar/rollbar-go"
)

// Logger writes prefixed lines to a standard logger and, once Rollbar is
// enabled, forwards errors to it. A nil *Logger discards everything.
type Logger struct {
	std     *log.Logger
	rollbar bool
}

func New(prefix string) *Logger {
	return NewWithWriter(os.Stdout, prefix)
}

func NewWithWriter(w io.Writer, prefix string) *Logger {
	return &Logger{std: log.New(w, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile)}
}

// EnableRollbar is a no-op when token is empty.
func (l *Logger) EnableRollbar(token, env, build string) {
	if l == nil || token == "" {
		return
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetCodeVersion(build)
	if host, err := os.Hostname(); err == nil {
		rollbar.SetServerHost(host)
	}
	rollbar.SetEnabled(true)
	l.rollbar = true
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.output("INFO", format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.output("WARN", format, args...)
}

// Errorf logs err with a message and reports it to Rollbar when enabled.
func (l *Logger) Errorf(err error, format string, args ...interface{}) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	_ = l.std.Output(2, fmt.Sprintf("ERROR %s: %v", msg, err))
	if l.rollbar {
		rollbar.Error(err, map[string]interface{}{"message": msg})
	}
}

// Close flushes pending Rollbar reports.
func (l *Logger) Close() {
	if l != nil && l.rollbar {
		rollbar.Wait()
	}
}

func (l *Logger) output(level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	_ = l.std.Output(3, level+" "+fmt.Sprintf(format, args...))
}
