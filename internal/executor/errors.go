package executor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// ProcessError reports a command that exited unsuccessfully. Signal is set
// when the process was killed by a signal it did not get from us.
type ProcessError struct {
	Command  string
	ExitCode int
	Signal   os.Signal
}

func (e *ProcessError) Error() string {
	if e.Signal != nil {
		return fmt.Sprintf("Process %s terminated by signal %s", e.Command, signalName(e.Signal))
	}
	return fmt.Sprintf("Process %s terminated with error %d", e.Command, e.ExitCode)
}

// Abnormal reports whether the process died from a signal rather than
// exiting on its own.
func (e *ProcessError) Abnormal() bool {
	return e.Signal != nil
}

// StartError reports a command that could not be started.
type StartError struct {
	Command string
	Err     error
}

func (e *StartError) Error() string {
	if IsPermissionDenied(e.Err) {
		return fmt.Sprintf("cannot execute %s: permission denied", e.Command)
	}
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// CancelledError reports a run stopped by context cancellation. PID is the
// process that was killed, or 0 if none was running. Signal is set when the
// cancellation came from NotifyContext.
type CancelledError struct {
	PID    int
	Signal os.Signal
	Cause  error
}

func (e *CancelledError) Error() string {
	sig := "none"
	if e.Signal != nil {
		sig = signalName(e.Signal)
	}
	pid := "none"
	if e.PID > 0 {
		pid = fmt.Sprint(e.PID)
	}
	return fmt.Sprintf("exiting pid: %s with signal: %s", pid, sig)
}

func (e *CancelledError) Unwrap() error { return e.Cause }

// TimeoutError reports a command that exceeded its wall-clock limit.
type TimeoutError struct {
	Command string
	Timeout time.Duration
	PID     int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Process %s (pid %d) exceeded timeout of %s", e.Command, e.PID, e.Timeout)
}

// SignalCause is the cancellation cause recorded by NotifyContext.
type SignalCause struct {
	Signal os.Signal
}

func (c *SignalCause) Error() string {
	return "received signal " + signalName(c.Signal)
}

// IsNotFound reports whether err means the executable does not exist.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, exec.ErrNotFound)
}

// IsPermissionDenied reports whether err means the executable exists but
// may not be run.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrPermission)
}
