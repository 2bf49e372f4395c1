package simulator

import (
	"errors"

	"cocotbtest/internal/executor"
	"cocotbtest/internal/job"
	"cocotbtest/internal/results"
)

// Process exit codes of cocotb-run.
const (
	ExitOK          = 0
	ExitTestFailure = 1
	ExitConfig      = 2
	ExitProcess     = 3
	ExitAbnormal    = 4
	ExitCancelled   = 130
)

// ExitCode maps an error returned by Run to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cerr    *job.ConfigError
		cancel  *executor.CancelledError
		timeout *executor.TimeoutError
		perr    *executor.ProcessError
		serr    *executor.StartError
		abn     *results.AbnormalTerminationError
		failed  *results.TestFailureError
	)
	switch {
	case errors.As(err, &cancel):
		return ExitCancelled
	case errors.As(err, &cerr):
		return ExitConfig
	case errors.As(err, &timeout), errors.As(err, &abn):
		return ExitAbnormal
	case errors.As(err, &perr):
		if perr.Abnormal() {
			return ExitAbnormal
		}
		return ExitProcess
	case errors.As(err, &serr):
		return ExitProcess
	case errors.As(err, &failed):
		return ExitTestFailure
	}
	return ExitTestFailure
}

// Category names the kind of failure for summaries and logs.
func Category(err error) string {
	switch ExitCode(err) {
	case ExitOK:
		return "passed"
	case ExitConfig:
		return "configuration error"
	case ExitProcess:
		return "process failure"
	case ExitAbnormal:
		return "abnormal termination"
	case ExitCancelled:
		return "cancelled"
	}
	var failed *results.TestFailureError
	if errors.As(err, &failed) {
		return "test failure"
	}
	return "error"
}
