package executor

import (
	"os/exec"
	"time"
)

type CommandRunner = commandRunner

func SetCommandFn(fn func(string, ...string) *exec.Cmd) (restore func()) {
	prev := commandFn
	if fn != nil {
		commandFn = fn
	} else {
		commandFn = exec.Command
	}
	return func() { commandFn = prev }
}

func SetNewCommandRunner(fn func(string, ...string) CommandRunner) (restore func()) {
	prev := newCommandRunner
	if fn != nil {
		newCommandRunner = fn
	} else {
		newCommandRunner = func(name string, args ...string) commandRunner {
			return &realCmd{cmd: commandFn(name, args...)}
		}
	}
	return func() { newCommandRunner = prev }
}

func SetNowFn(fn func() time.Time) (restore func()) {
	prev := nowFn
	if fn != nil {
		nowFn = fn
	} else {
		nowFn = time.Now
	}
	return func() { nowFn = prev }
}
