package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter routes fx container events into the application log.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from fx. Lifecycle hooks are reported at DEBUG,
// failures at ERROR.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		Debugf("OnStart hook executing: %s", hookName(e.FunctionName))
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			Errorf("OnStart hook failed: %s, error: %v", hookName(e.FunctionName), e.Err)
			return
		}
		WithFields(Fields{"hook": hookName(e.FunctionName), "runtime": e.Runtime.String()}).Debug("OnStart hook executed")
	case *fxevent.OnStopExecuting:
		Debugf("OnStop hook executing: %s", hookName(e.FunctionName))
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			Errorf("OnStop hook failed: %s, error: %v", hookName(e.FunctionName), e.Err)
			return
		}
		Debugf("OnStop hook executed: %s", hookName(e.FunctionName))
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("Supplying %s failed: %v", e.TypeName, e.Err)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("Provide failed (%s): %v", e.ConstructorName, e.Err)
			return
		}
		if IsDebugEnabled() {
			Debugf("Provided %s by %s", strings.Join(e.OutputTypeNames, ", "), e.ConstructorName)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("Invoke failed: %s, error: %v", e.FunctionName, e.Err)
		}
	case *fxevent.Stopping:
		Infof("Received %s, stopping.", strings.ToUpper(e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("Stop failed: %v", e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("Start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("Rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Start failed: %v", e.Err)
		} else {
			Infof("Application started.")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("Logger initialization failed: %v", e.Err)
		}
	}
}

// hookName strips the anonymous function suffix (".func1") fx appends to hook names.
func hookName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
