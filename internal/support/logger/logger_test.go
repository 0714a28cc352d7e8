package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx/fxevent"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	SetFormat("text")
	t.Cleanup(func() {
		SetOutput(bytes.NewBuffer(nil))
		SetLogLevel("INFO")
	})
	return buf
}

func TestSetLogLevel_FiltersBelowThreshold(t *testing.T) {
	buf := capture(t)

	SetLogLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.False(t, IsDebugEnabled())
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	buf := capture(t)

	SetLogLevel("chatty")
	Infof("visible")
	Debugf("invisible")

	out := buf.String()
	assert.Contains(t, out, "Unknown log level 'chatty'")
	assert.Contains(t, out, "visible")
	assert.NotContains(t, out, "invisible")
}

func TestSetFormat_JSON(t *testing.T) {
	buf := capture(t)
	SetFormat("json")

	WithFields(Fields{"task_id": 7}).Info("loaded")

	assert.Contains(t, buf.String(), `"task_id":7`)
	assert.Contains(t, buf.String(), `"msg":"loaded"`)
}

func TestFxLoggerAdapter_LogsStartFailures(t *testing.T) {
	buf := capture(t)
	SetLogLevel("DEBUG")

	adapter := NewFxLoggerAdapter()
	adapter.LogEvent(&fxevent.OnStartExecuted{FunctionName: "app.startScheduler.func1", Err: assert.AnError})
	adapter.LogEvent(&fxevent.Started{})

	out := buf.String()
	assert.Contains(t, out, "OnStart hook failed: app.startScheduler")
	assert.Contains(t, out, "Application started.")
}
