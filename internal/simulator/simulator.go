// Package simulator runs a job on one simulator backend: it plans the
// commands, prepares the build directory and environment, executes the
// plan and checks the results file.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cocotbtest/internal/backend"
	"cocotbtest/internal/config"
	"cocotbtest/internal/environ"
	"cocotbtest/internal/executor"
	"cocotbtest/internal/job"
	"cocotbtest/internal/logging"
	"cocotbtest/internal/results"
	"cocotbtest/internal/toolchain"
)

// DefaultSimulator is used when neither SIM nor an explicit name is given.
const DefaultSimulator = "icarus"

// Execution is a planned command sequence ready to run.
type Execution struct {
	Dir      string
	Env      []string
	Timeout  time.Duration
	Commands []backend.Command
}

// Runner executes a command sequence.
type Runner interface {
	Run(ctx context.Context, x Execution) error
}

// ExecutorRunner runs commands as subprocesses.
type ExecutorRunner struct {
	Logger   *logging.Logger
	LookPath func(file string) (string, error)
}

// Run implements Runner.
func (r ExecutorRunner) Run(ctx context.Context, x Execution) error {
	e := &executor.Executor{
		Dir:      x.Dir,
		Env:      x.Env,
		Logger:   r.Logger,
		Timeout:  x.Timeout,
		LookPath: r.LookPath,
	}
	return e.Execute(ctx, x.Commands)
}

// Options configures one run.
type Options struct {
	// Simulator is the backend requested by the caller. SIM in Environ
	// overrides it.
	Simulator string

	Job       *job.Job
	Environ   environ.Env
	Toolchain toolchain.Toolchain

	// Dir is the invocation directory, added to PYTHONPATH so test modules
	// next to the job are importable.
	Dir string

	Runner Runner
	Logger *logging.Logger

	// DryRun plans the job without touching the file system or running
	// anything.
	DryRun bool

	LookPath func(file string) (string, error)
	Stat     func(name string) (fs.FileInfo, error)

	// NewID names the results file when COCOTB_RESULTS_FILE is unset.
	// Defaults to uuid.NewString.
	NewID func() string
}

// Outcome describes a finished (or planned) run.
type Outcome struct {
	Simulator   string
	ResultsFile string
	Plan        *backend.Plan
	Env         environ.Env
	Record      *results.Record
}

// ResolveSimulator picks the backend name: SIM wins over the explicit name,
// which wins over DefaultSimulator.
func ResolveSimulator(explicit string, sel config.Selectors, logger *logging.Logger) string {
	if sel.Simulator != "" {
		if explicit != "" && explicit != sel.Simulator {
			logger.Warnf("SIM=%s overrides simulator %s", sel.Simulator, explicit)
		}
		return sel.Simulator
	}
	if explicit != "" {
		return explicit
	}
	return DefaultSimulator
}

// Run plans and executes opts.Job. The returned Outcome is filled as far
// as the run got, also when an error is returned.
func Run(ctx context.Context, opts Options) (*Outcome, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	j := opts.Job
	if j == nil {
		return nil, job.NewConfigError("job", "required but not set", "")
	}

	sel, err := config.ReadSelectors(opts.Environ)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Simulator: ResolveSimulator(opts.Simulator, sel, logger)}

	desc, ok := backend.Lookup(out.Simulator)
	if ok && !desc.ReportsMissingSources {
		if err := checkSources(j, opts.Stat); err != nil {
			return out, err
		}
	}

	b, err := backend.New(out.Simulator, j, opts.Toolchain, backend.Options{LookPath: opts.LookPath, Stat: opts.Stat})
	if err != nil {
		return out, err
	}

	out.ResultsFile = sel.ResultsFile
	if out.ResultsFile == "" {
		newID := opts.NewID
		if newID == nil {
			newID = uuid.NewString
		}
		out.ResultsFile = filepath.Join(j.SimBuild, newID()+"_results.xml")
	}

	plan, err := backend.Build(b, j.CompileOnly)
	if err != nil {
		return out, err
	}
	out.Plan = plan
	for _, artifact := range plan.Skipped {
		logger.Warnf("Skipping compilation: %s", artifact)
	}

	out.Env = Environment(opts.Environ, j, opts.Toolchain, out.ResultsFile, opts.Dir, plan)

	if opts.DryRun {
		return out, nil
	}

	if err := prepare(j, plan, out.ResultsFile); err != nil {
		return out, err
	}

	runner := opts.Runner
	if runner == nil {
		runner = ExecutorRunner{Logger: logger, LookPath: opts.LookPath}
	}
	if err := runner.Run(ctx, Execution{
		Dir:      j.WorkDir,
		Env:      out.Env.Slice(),
		Timeout:  j.Timeout,
		Commands: plan.Commands,
	}); err != nil {
		return out, err
	}

	if j.CompileOnly {
		return out, nil
	}

	rec, err := results.Report(out.ResultsFile, logger)
	out.Record = rec
	return out, err
}

// checkSources reports every source file that does not exist.
func checkSources(j *job.Job, stat func(string) (fs.FileInfo, error)) error {
	if stat == nil {
		stat = os.Stat
	}
	var errs []job.ValidationError
	for _, f := range j.SourceFiles() {
		if _, err := stat(f); err != nil {
			errs = append(errs, job.ValidationError{Field: "sources", Message: "source file not found", Value: f})
		}
	}
	if len(errs) > 0 {
		return &job.ConfigError{Errors: errs}
	}
	return nil
}

// prepare creates the build directory, removes a results file left by an
// earlier run and writes the generated files.
func prepare(j *job.Job, plan *backend.Plan, resultsFile string) error {
	if err := os.MkdirAll(j.SimBuild, 0755); err != nil {
		return fmt.Errorf("creating build directory: %w", err)
	}
	if err := os.Remove(resultsFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale results file: %w", err)
	}
	for _, f := range plan.Files {
		if f.KeepExisting {
			if _, err := os.Stat(f.Path); err == nil {
				continue
			}
		}
		if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(f.Path, []byte(f.Content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", f.Path, err)
		}
	}
	return nil
}
