package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "TEST : ")

	l.Infof("linked %d chapters", 3)
	l.Warnf("ambiguous key %q", "intro")
	l.Errorf(errors.New("boom"), "update chapter %s", "abc")

	out := buf.String()
	assert.Contains(t, out, "TEST : ")
	assert.Contains(t, out, "INFO linked 3 chapters")
	assert.Contains(t, out, `WARN ambiguous key "intro"`)
	assert.Contains(t, out, "ERROR update chapter abc: boom")
	assert.Contains(t, out, "logger_test.go")
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Infof("x")
		l.Warnf("x")
		l.Errorf(errors.New("x"), "x")
		l.EnableRollbar("token", "TEST", "dev")
		l.Close()
	})
}

func TestEnableRollbarWithoutToken(t *testing.T) {
	l := NewWithWriter(&bytes.Buffer{}, "")
	l.EnableRollbar("", "TEST", "dev")
	assert.False(t, l.rollbar)
}
