// Package errs defines the error kinds shared by the loaders, the enumerator
// and both execution back-ends.
package errs

import (
	"errors"
	"fmt"
)

type constError string

func (e constError) Error() string {
	return string(e)
}

// Sentinel kinds; every typed error below matches exactly one of them with
// errors.Is.
const (
	ErrFileAccess    = constError("file access")
	ErrTypeMismatch  = constError("type mismatch")
	ErrConfiguration = constError("configuration")
	ErrSubprocess    = constError("subprocess failure")
)

// FileAccessError reports a table or output path that cannot be used.
type FileAccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileAccessError) Error() string {
	op := e.Op
	if op == "" {
		op = "open"
	}
	if e.Err == nil {
		return fmt.Sprintf("cannot %s %s", op, e.Path)
	}
	return fmt.Sprintf("cannot %s %s: %v", op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

func (e *FileAccessError) Is(target error) bool { return target == ErrFileAccess }

// TypeMismatchError reports a table cell that does not parse as the type its
// consumer expects. Row is 1-based over data rows.
type TypeMismatchError struct {
	Path   string
	Column string
	Row    int
	Value  string
	Want   string
}

func (e *TypeMismatchError) Error() string {
	where := e.Column
	if e.Path != "" {
		where = e.Path + ": " + where
	}
	return fmt.Sprintf("%s row %d: %q is not a valid %s", where, e.Row, e.Value, e.Want)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// ConfigurationError reports an unusable run configuration: empty inputs,
// missing columns or contradictory modes.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return e.Reason }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigurationError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// SubprocessFailure reports a simulator invocation that could not be spawned
// or exited nonzero. ExitCode is -1 when the process never started.
type SubprocessFailure struct {
	Job      int
	ExitCode int
	Err      error
}

func (e *SubprocessFailure) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("job %d: failed to start: %v", e.Job, e.Err)
	}
	msg := fmt.Sprintf("job %d: exit status %d", e.Job, e.ExitCode)
	if e.Err != nil && e.Err.Error() != fmt.Sprintf("exit status %d", e.ExitCode) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubprocessFailure) Unwrap() error { return e.Err }

func (e *SubprocessFailure) Is(target error) bool { return target == ErrSubprocess }

// Kind names the sentinel an error chain matches, or "" when it matches none.
func Kind(err error) string {
	for _, k := range []constError{ErrFileAccess, ErrTypeMismatch, ErrConfiguration, ErrSubprocess} {
		if errors.Is(err, k) {
			return string(k)
		}
	}
	return ""
}
