package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cocotbtest/internal/backend"
	"cocotbtest/internal/job"
	"cocotbtest/internal/logging"
)

func sh(script string) backend.Command {
	return backend.Command{Stage: backend.StageRun, Args: []string{"/bin/sh", "-c", script}}
}

func newTestExecutor(t *testing.T) (*Executor, *bytes.Buffer) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	var buf bytes.Buffer
	return &Executor{
		Dir:    t.TempDir(),
		Env:    []string{"PATH=/usr/bin:/bin", "GREETING=hello"},
		Logger: logging.New(&buf, logging.LevelDebug),
	}, &buf
}

func TestExecute_StreamsOutput(t *testing.T) {
	e, buf := newTestExecutor(t)
	err := e.Execute(context.Background(), []backend.Command{
		sh(`echo "out: $GREETING"; echo "err line" 1>&2; printf 'no newline'`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Running command: /bin/sh -c", "out: hello", "err line", "no newline"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestExecute_WorkingDirectory(t *testing.T) {
	e, _ := newTestExecutor(t)
	if err := e.Execute(context.Background(), []backend.Command{sh("touch marker")}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(e.Dir, "marker")); err != nil {
		t.Errorf("command did not run in Dir: %v", err)
	}
}

func TestExecute_StopsAtFirstFailure(t *testing.T) {
	e, _ := newTestExecutor(t)
	err := e.Execute(context.Background(), []backend.Command{
		sh("exit 3"),
		sh("touch should_not_exist"),
	})

	var perr *ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("want *ProcessError, got %v", err)
	}
	if perr.ExitCode != 3 || perr.Abnormal() {
		t.Errorf("ProcessError = %+v", perr)
	}
	if !strings.Contains(perr.Error(), "terminated with error 3") {
		t.Errorf("message = %q", perr.Error())
	}
	if _, err := os.Stat(filepath.Join(e.Dir, "should_not_exist")); err == nil {
		t.Error("commands after a failure must not run")
	}
}

func TestExecute_MissingToolBeforeAnySpawn(t *testing.T) {
	e, _ := newTestExecutor(t)
	e.LookPath = func(file string) (string, error) {
		if file == "vsim" {
			return "", errors.New("not found")
		}
		return "/bin/" + file, nil
	}
	err := e.Execute(context.Background(), []backend.Command{
		{Stage: backend.StageCompile, Args: []string{"touch", "compiled"}},
		{Stage: backend.StageRun, Args: []string{"vsim", "-c"}},
	})

	var cerr *job.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("want *job.ConfigError, got %v", err)
	}
	if !strings.Contains(cerr.Error(), "vsim") {
		t.Errorf("error should name vsim: %v", cerr)
	}
	if _, err := os.Stat(filepath.Join(e.Dir, "compiled")); err == nil {
		t.Error("no command may run when a tool is missing")
	}
}

func TestExecute_LongLines(t *testing.T) {
	e, buf := newTestExecutor(t)
	err := e.Execute(context.Background(), []backend.Command{
		sh(`i=0; s=x; while [ $i -lt 17 ]; do s="$s$s"; i=$((i+1)); done; echo "start${s}end"`),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "start" + strings.Repeat("x", 1<<17) + "end"
	if !strings.Contains(buf.String(), want) {
		t.Error("long line was not logged intact")
	}
}

func TestExecute_Cancellation(t *testing.T) {
	e, _ := newTestExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := e.Execute(ctx, []backend.Command{sh("sleep 30 & wait")})

	var cerr *CancelledError
	if !errors.As(err, &cerr) {
		t.Fatalf("want *CancelledError, got %v", err)
	}
	if cerr.PID <= 0 {
		t.Errorf("PID = %d", cerr.PID)
	}
	if cerr.Signal != nil {
		t.Errorf("plain cancellation carries no signal, got %v", cerr.Signal)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("cancellation did not kill the process group")
	}
}

func TestExecute_AlreadyCancelled(t *testing.T) {
	e, _ := newTestExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Execute(ctx, []backend.Command{sh("touch ran")})
	var cerr *CancelledError
	if !errors.As(err, &cerr) || cerr.PID != 0 {
		t.Fatalf("want *CancelledError without pid, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(e.Dir, "ran")); err == nil {
		t.Error("cancelled executor must not start commands")
	}
}

func TestExecute_Timeout(t *testing.T) {
	e, _ := newTestExecutor(t)
	e.Timeout = 200 * time.Millisecond

	err := e.Execute(context.Background(), []backend.Command{sh("sleep 30")})
	var terr *TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("want *TimeoutError, got %v", err)
	}
	if terr.Timeout != e.Timeout || terr.Command != "/bin/sh" {
		t.Errorf("TimeoutError = %+v", terr)
	}
}

func TestExecute_StartFailures(t *testing.T) {
	dir := t.TempDir()
	notExecutable := filepath.Join(dir, "plain")
	if err := os.WriteFile(notExecutable, []byte("#!/bin/sh\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		wantConf bool
		wantMsg  string
	}{
		{name: "missing built executable", path: filepath.Join(dir, "simv"), wantConf: true, wantMsg: "executable not found"},
		{name: "not executable", path: notExecutable, wantMsg: "permission denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestExecutor(t)
			err := e.Execute(context.Background(), []backend.Command{
				{Stage: backend.StageRun, Args: []string{tt.path}},
			})
			var cerr *job.ConfigError
			var serr *StartError
			switch {
			case tt.wantConf && !errors.As(err, &cerr):
				t.Fatalf("want *job.ConfigError, got %T %v", err, err)
			case !tt.wantConf && !errors.As(err, &serr):
				t.Fatalf("want *StartError, got %T %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestExecute_BackgroundChildDoesNotBlock(t *testing.T) {
	e, buf := newTestExecutor(t)
	e.DrainDelay = 100 * time.Millisecond

	start := time.Now()
	err := e.Execute(context.Background(), []backend.Command{sh("echo started; sleep 5 & exit 0")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Execute waited %s for a background child", elapsed)
	}
	if !strings.Contains(buf.String(), "started") {
		t.Errorf("output before exit was lost:\n%s", buf.String())
	}
}

func TestExecute_ResolvesToolsOnEnvPath(t *testing.T) {
	e, buf := newTestExecutor(t)
	bin := t.TempDir()
	script := "#!/bin/sh\necho \"argv0=$0 args=$*\"\n"
	if err := os.WriteFile(filepath.Join(bin, "fakesim"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	e.Env = []string{"PATH=" + bin}

	err := e.Execute(context.Background(), []backend.Command{
		{Stage: backend.StageRun, Args: []string{"fakesim", "-c", "top"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "args=-c top") {
		t.Errorf("fakesim output missing:\n%s", buf.String())
	}

	e.Env = []string{"PATH=" + t.TempDir()}
	err = e.Execute(context.Background(), []backend.Command{
		{Stage: backend.StageRun, Args: []string{"fakesim"}},
	})
	var cerr *job.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("want *job.ConfigError for a tool outside PATH, got %v", err)
	}
}
