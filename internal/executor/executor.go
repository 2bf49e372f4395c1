package executor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cocotbtest/internal/backend"
	"cocotbtest/internal/job"
	"cocotbtest/internal/logging"
	"cocotbtest/internal/paths"
)

// DefaultDrainDelay is how long output from processes left behind by a
// command is still logged once the command itself has exited.
const DefaultDrainDelay = 2 * time.Second

// Executor runs a command sequence, streaming output into a logger and
// stopping at the first failure.
type Executor struct {
	// Dir is the working directory of every command.
	Dir string

	// Env is the complete environment of every command ("KEY=VALUE").
	Env []string

	Logger *logging.Logger

	// Timeout bounds each command. Zero means no limit.
	Timeout time.Duration

	// DrainDelay bounds how long output is still read after a command has
	// exited. Zero means DefaultDrainDelay.
	DrainDelay time.Duration

	// LookPath resolves executables. It defaults to a search of the PATH in
	// Env, or of the current PATH when Env is nil.
	LookPath func(file string) (string, error)
}

// Execute runs cmds in order. Every executable is looked up before the
// first process starts; a missing one is a *job.ConfigError.
func (e *Executor) Execute(ctx context.Context, cmds []backend.Command) error {
	if err := e.checkTools(cmds); err != nil {
		return err
	}
	for _, c := range cmds {
		if ctx.Err() != nil {
			return &CancelledError{Signal: signalOf(ctx), Cause: context.Cause(ctx)}
		}
		e.Logger.Infof("Running command: %s", c)
		if err := e.run(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) lookPath() func(string) (string, error) {
	if e.LookPath != nil {
		return e.LookPath
	}
	if e.Env == nil {
		return exec.LookPath
	}
	path := envValue(e.Env, "PATH")
	return func(file string) (string, error) { return paths.LookPath(file, path) }
}

func (e *Executor) checkTools(cmds []backend.Command) error {
	lookPath := e.lookPath()
	var errs []job.ValidationError
	seen := make(map[string]bool)
	for _, c := range cmds {
		name := c.Name()
		if name == "" {
			errs = append(errs, job.ValidationError{Field: "command", Message: "empty command"})
			continue
		}
		// Paths are produced by earlier stages and may not exist yet.
		if strings.ContainsRune(name, '/') || seen[name] {
			continue
		}
		seen[name] = true
		if _, err := lookPath(name); err != nil {
			errs = append(errs, job.ValidationError{Field: "command", Message: "executable not found in PATH", Value: name})
		}
	}
	if len(errs) > 0 {
		return &job.ConfigError{Errors: errs}
	}
	return nil
}

func (e *Executor) run(ctx context.Context, c backend.Command) error {
	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	name := c.Args[0]
	if !strings.ContainsRune(name, '/') {
		resolved, err := e.lookPath()(name)
		if err != nil {
			return startError(c, err)
		}
		name = resolved
	}
	cmd := exec.Command(name, c.Args[1:]...)
	cmd.Args[0] = c.Args[0]
	cmd.Dir = e.Dir
	cmd.Env = e.Env
	setProcessGroup(cmd)

	outR, outW, err := os.Pipe()
	if err != nil {
		return &StartError{Command: c.Name(), Err: err}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return &StartError{Command: c.Name(), Err: err}
	}
	defer outR.Close()
	defer errR.Close()

	cmd.Stdout = outW
	cmd.Stderr = errW
	err = cmd.Start()
	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()
	if err != nil {
		return startError(c, err)
	}
	pid := cmd.Process.Pid

	var g errgroup.Group
	g.Go(func() error { return pump(outR, e.Logger.Info) })
	g.Go(func() error { return pump(errR, e.Logger.Error) })
	pumped := make(chan error, 1)
	go func() { pumped <- g.Wait() }()

	done := make(chan error, 1)
	go func() {
		waitErr := cmd.Wait()
		var pumpErr error
		select {
		case pumpErr = <-pumped:
		case <-time.After(e.drainDelay()):
			// A background child still holds the pipes open.
			outR.Close()
			errR.Close()
			pumpErr = <-pumped
		}
		if waitErr != nil {
			done <- waitErr
			return
		}
		done <- pumpErr
	}()

	select {
	case err := <-done:
		return e.exitError(c, cmd, err)
	case <-runCtx.Done():
		killGroup(pid)
		<-done
		if ctx.Err() == nil {
			return &TimeoutError{Command: c.Name(), Timeout: e.Timeout, PID: pid}
		}
		return &CancelledError{PID: pid, Signal: signalOf(ctx), Cause: context.Cause(ctx)}
	}
}

func (e *Executor) drainDelay() time.Duration {
	if e.DrainDelay > 0 {
		return e.DrainDelay
	}
	return DefaultDrainDelay
}

// startError classifies a failed start. A missing executable is a
// configuration problem; anything else is a *StartError.
func startError(c backend.Command, err error) error {
	if IsNotFound(err) {
		return &job.ConfigError{Errors: []job.ValidationError{
			{Field: "command", Message: "executable not found", Value: c.Name()},
		}}
	}
	return &StartError{Command: c.Name(), Err: err}
}

func (e *Executor) exitError(c backend.Command, cmd *exec.Cmd, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ProcessError{
			Command:  c.Name(),
			ExitCode: exitErr.ExitCode(),
			Signal:   exitSignal(cmd.ProcessState),
		}
	}
	return startError(c, err)
}

// pump logs r line by line. Lines of any length are accepted.
func pump(r io.Reader, log func(string)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			log(strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func envValue(env []string, key string) string {
	prefix := key + "="
	value := ""
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			value = kv[len(prefix):]
		}
	}
	return value
}
