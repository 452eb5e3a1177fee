package executor

import (
	"errors"
	"io"
	"os/exec"
)

// commandRunner is the slice of exec.Cmd the dispatcher needs; tests swap
// in fakes through SetNewCommandRunner.
type commandRunner interface {
	Start() error
	Wait() error
	SetStdout(io.Writer)
	SetStderr(io.Writer)
	SetDir(string)
	Pid() int
}

type realCmd struct {
	cmd *exec.Cmd
}

func (r *realCmd) Start() error {
	if r.cmd == nil {
		return errors.New("command is nil")
	}
	return r.cmd.Start()
}

func (r *realCmd) Wait() error {
	if r.cmd == nil {
		return errors.New("command is nil")
	}
	return r.cmd.Wait()
}

func (r *realCmd) SetStdout(w io.Writer) {
	if r.cmd != nil {
		r.cmd.Stdout = w
	}
}

func (r *realCmd) SetStderr(w io.Writer) {
	if r.cmd != nil {
		r.cmd.Stderr = w
	}
}

func (r *realCmd) SetDir(dir string) {
	if r.cmd != nil {
		r.cmd.Dir = dir
	}
}

func (r *realCmd) Pid() int {
	if r.cmd == nil || r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}

// Subprocesses are created without a context: cancelling a run stops
// dispatch but never kills a simulator that is already running.
var commandFn = exec.Command

var newCommandRunner = func(name string, args ...string) commandRunner {
	return &realCmd{cmd: commandFn(name, args...)}
}

// exitCodeOf extracts the exit status from a Wait error. A process that ran
// but reports no status (for example, killed by a signal) maps to 1.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		if code := coder.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}
