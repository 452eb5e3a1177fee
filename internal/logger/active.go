package logger

import "sync/atomic"

var current atomic.Pointer[Logger]

// Install makes l the process-wide logger and returns the one it replaces.
func Install(l *Logger) *Logger { return current.Swap(l) }

// Uninstall detaches the process-wide logger and closes it.
func Uninstall() error {
	return current.Swap(nil).Close()
}

// Active returns the process-wide logger, or nil. Logger methods accept a
// nil receiver, so callers need not check.
func Active() *Logger { return current.Load() }

func LogDebug(msg string) { Active().Debug(msg) }

func LogInfo(msg string) { Active().Info(msg) }

func LogWarn(msg string) { Active().Warn(msg) }

func LogError(msg string) { Active().Error(msg) }
