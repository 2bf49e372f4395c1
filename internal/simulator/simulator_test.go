package simulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cocotbtest/internal/backend"
	"cocotbtest/internal/config"
	"cocotbtest/internal/environ"
	"cocotbtest/internal/executor"
	"cocotbtest/internal/job"
	"cocotbtest/internal/logging"
	"cocotbtest/internal/results"
	"cocotbtest/internal/toolchain"
)

var testToolchain = toolchain.Toolchain{LibDir: "/cocotb/libs", LibExt: "so", LibPython: "/usr/lib/libpython3.so"}

// recordingRunner records every execution. When results is set, it is
// written to the results file named in the environment, the way a test
// harness inside the simulator would.
type recordingRunner struct {
	runs    []Execution
	results string
	err     error
	// touch lists files created by the "simulator".
	touch []string
}

func (r *recordingRunner) Run(ctx context.Context, x Execution) error {
	r.runs = append(r.runs, x)
	for _, f := range r.touch {
		if err := os.WriteFile(f, nil, 0644); err != nil {
			return err
		}
	}
	if r.err != nil {
		return r.err
	}
	if r.results != "" {
		path := environ.Parse(x.Env).Value("COCOTB_RESULTS_FILE")
		if err := os.WriteFile(path, []byte(r.results), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (r *recordingRunner) last() Execution {
	return r.runs[len(r.runs)-1]
}

const passingResults = `<testsuites><testsuite name="all"><testcase classname="test_dff" name="test_ok"/></testsuite></testsuites>`

type fixture struct {
	dir    string
	source string
	log    *bytes.Buffer
	runner *recordingRunner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "dff.v")
	if err := os.WriteFile(source, []byte("module dff; endmodule\n"), 0644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(source, past, past); err != nil {
		t.Fatal(err)
	}
	return &fixture{dir: dir, source: source, log: &bytes.Buffer{}, runner: &recordingRunner{results: passingResults}}
}

func (f *fixture) job(t *testing.T, mutate func(*job.Spec)) *job.Job {
	t.Helper()
	spec := job.Spec{
		Toplevel:       []string{"dff"},
		Module:         "test_dff",
		VerilogSources: job.FlatSources(f.source),
		BaseDir:        f.dir,
	}
	if mutate != nil {
		mutate(&spec)
	}
	j, err := job.New(spec)
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	return j
}

func (f *fixture) options(j *job.Job) Options {
	return Options{
		Job:       j,
		Environ:   environ.Parse([]string{"PATH=/usr/bin", "HOME=/home/u"}),
		Toolchain: testToolchain,
		Dir:       f.dir,
		Runner:    f.runner,
		Logger:    logging.New(f.log, logging.LevelInfo),
		NewID:     func() string { return "fixed" },
	}
}

func stages(cmds []backend.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Stage.String() + ":" + c.Name()
	}
	return out
}

func TestRun_CompileThenRun(t *testing.T) {
	f := newFixture(t)
	j := f.job(t, nil)

	out, err := Run(context.Background(), f.options(j))
	if err != nil {
		t.Fatal(err)
	}

	got := stages(f.runner.last().Commands)
	if strings.Join(got, ",") != "compile:iverilog,run:vvp" {
		t.Errorf("commands = %v", got)
	}
	if out.ResultsFile != filepath.Join(j.SimBuild, "fixed_results.xml") {
		t.Errorf("ResultsFile = %q", out.ResultsFile)
	}
	if out.Record == nil || out.Record.Passed() != 1 {
		t.Errorf("Record = %+v", out.Record)
	}
	if info, err := os.Stat(j.SimBuild); err != nil || !info.IsDir() {
		t.Errorf("build directory not created: %v", err)
	}
	if f.runner.last().Dir != j.WorkDir {
		t.Errorf("Dir = %q, want %q", f.runner.last().Dir, j.WorkDir)
	}
}

func TestRun_SecondRunSkipsCompile(t *testing.T) {
	f := newFixture(t)
	j := f.job(t, nil)
	f.runner.touch = []string{filepath.Join(j.SimBuild, "dff.vvp")}

	if _, err := Run(context.Background(), f.options(j)); err != nil {
		t.Fatal(err)
	}
	out, err := Run(context.Background(), f.options(j))
	if err != nil {
		t.Fatal(err)
	}

	got := stages(f.runner.last().Commands)
	if strings.Join(got, ",") != "run:vvp" {
		t.Errorf("second run commands = %v", got)
	}
	if len(out.Plan.Skipped) != 1 {
		t.Errorf("Skipped = %v", out.Plan.Skipped)
	}
	if !strings.Contains(f.log.String(), "Skipping compilation: "+filepath.Join(j.SimBuild, "dff.vvp")) {
		t.Errorf("skip not logged:\n%s", f.log.String())
	}
}

func TestRun_ReportsFailureMessage(t *testing.T) {
	f := newFixture(t)
	f.runner.results = `<testsuites><testsuite name="all">
<testcase classname="test_dff" name="test_mismatch"><failure message="assertion mismatch"/></testcase>
</testsuite></testsuites>`

	_, err := Run(context.Background(), f.options(f.job(t, nil)))

	var ferr *results.TestFailureError
	if !errors.As(err, &ferr) {
		t.Fatalf("want *results.TestFailureError, got %v", err)
	}
	c := ferr.Failures[0]
	if c.Classname != "test_dff" || c.Name != "test_mismatch" || c.Failures[0].Message != "assertion mismatch" {
		t.Errorf("failure = %+v", c)
	}
	if ExitCode(err) != ExitTestFailure {
		t.Errorf("ExitCode = %d", ExitCode(err))
	}
}

func TestRun_MissingResultsIsAbnormal(t *testing.T) {
	f := newFixture(t)
	f.runner.results = ""

	_, err := Run(context.Background(), f.options(f.job(t, nil)))

	var aerr *results.AbnormalTerminationError
	if !errors.As(err, &aerr) {
		t.Fatalf("want *results.AbnormalTerminationError, got %v", err)
	}
	if ExitCode(err) != ExitAbnormal {
		t.Errorf("ExitCode = %d, want %d", ExitCode(err), ExitAbnormal)
	}
}

func TestRun_StaleResultsRemoved(t *testing.T) {
	f := newFixture(t)
	j := f.job(t, nil)
	if err := os.MkdirAll(j.SimBuild, 0755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(j.SimBuild, "fixed_results.xml")
	if err := os.WriteFile(stale, []byte(passingResults), 0644); err != nil {
		t.Fatal(err)
	}
	f.runner.results = ""

	_, err := Run(context.Background(), f.options(j))
	var aerr *results.AbnormalTerminationError
	if !errors.As(err, &aerr) {
		t.Fatalf("stale results file was reused: %v", err)
	}
}

func TestRun_InvalidTimescaleBeforeAnyCommand(t *testing.T) {
	_, err := job.New(job.Spec{Toplevel: []string{"dff"}, Module: "m", Timescale: "1ns", BaseDir: "/w"})
	var cerr *job.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("want *job.ConfigError, got %v", err)
	}
	if ExitCode(err) != ExitConfig {
		t.Errorf("ExitCode = %d", ExitCode(err))
	}
}

func TestRun_CompileOnlySkipsReport(t *testing.T) {
	f := newFixture(t)
	f.runner.results = ""
	j := f.job(t, func(s *job.Spec) { s.CompileOnly = true })

	out, err := Run(context.Background(), f.options(j))
	if err != nil {
		t.Fatal(err)
	}
	if out.Record != nil {
		t.Error("compile-only run parsed results")
	}
	if got := stages(f.runner.last().Commands); strings.Join(got, ",") != "compile:iverilog" {
		t.Errorf("commands = %v", got)
	}
}

func TestRun_DryRunTouchesNothing(t *testing.T) {
	f := newFixture(t)
	j := f.job(t, func(s *job.Spec) { s.Waves = boolPtr(true) })
	opts := f.options(j)
	opts.DryRun = true

	out, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.runner.runs) != 0 {
		t.Error("dry run executed commands")
	}
	if len(out.Plan.Commands) != 2 || len(out.Plan.Files) == 0 {
		t.Errorf("plan = %+v", out.Plan)
	}
	if _, err := os.Stat(j.SimBuild); !os.IsNotExist(err) {
		t.Errorf("dry run created the build directory: %v", err)
	}
}

func TestRun_WritesGeneratedFiles(t *testing.T) {
	f := newFixture(t)
	j := f.job(t, func(s *job.Spec) { s.Timescale = "1ns/1ps" })

	if _, err := Run(context.Background(), f.options(j)); err != nil {
		t.Fatal(err)
	}
	content, err := os.ReadFile(filepath.Join(j.SimBuild, "timescale.f"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "+timescale+1ns/1ps\n" {
		t.Errorf("timescale.f = %q", content)
	}
}

func TestRun_KeepsExistingGeneratedFile(t *testing.T) {
	f := newFixture(t)
	j := f.job(t, func(s *job.Spec) { s.Waves = boolPtr(true) })
	dump := filepath.Join(j.SimBuild, "iverilog_dump.v")
	if err := os.MkdirAll(j.SimBuild, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dump, []byte("user edited"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Run(context.Background(), f.options(j)); err != nil {
		t.Fatal(err)
	}
	content, _ := os.ReadFile(dump)
	if string(content) != "user edited" {
		t.Errorf("existing dump module overwritten: %q", content)
	}
}

func TestRun_SimEnvOverridesExplicit(t *testing.T) {
	f := newFixture(t)
	opts := f.options(f.job(t, nil))
	opts.Simulator = "questa"
	opts.Environ = opts.Environ.With("SIM", "icarus")

	out, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if out.Simulator != "icarus" {
		t.Errorf("Simulator = %q", out.Simulator)
	}
	if !strings.Contains(f.log.String(), "SIM=icarus overrides simulator questa") {
		t.Errorf("override not logged:\n%s", f.log.String())
	}
}

func TestRun_UnknownSimulator(t *testing.T) {
	f := newFixture(t)
	opts := f.options(f.job(t, nil))
	opts.Simulator = "spice"

	_, err := Run(context.Background(), opts)
	var cerr *job.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("want *job.ConfigError, got %v", err)
	}
	if !strings.Contains(err.Error(), "must be one of") || len(f.runner.runs) != 0 {
		t.Errorf("err = %v, runs = %d", err, len(f.runner.runs))
	}
}

func TestRun_LenientBackendChecksSources(t *testing.T) {
	f := newFixture(t)
	j := f.job(t, func(s *job.Spec) {
		s.VerilogSources = job.FlatSources(f.source, filepath.Join(f.dir, "missing.v"))
	})
	opts := f.options(j)
	opts.Simulator = "riviera"

	_, err := Run(context.Background(), opts)
	var cerr *job.ConfigError
	if !errors.As(err, &cerr) || !strings.Contains(err.Error(), "missing.v") {
		t.Fatalf("want ConfigError naming missing.v, got %v", err)
	}
}

func TestRun_ResultsFileFromEnviron(t *testing.T) {
	f := newFixture(t)
	want := filepath.Join(f.dir, "custom.xml")
	opts := f.options(f.job(t, nil))
	opts.Environ = opts.Environ.With(config.EnvResultsFile, want)

	out, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if out.ResultsFile != want {
		t.Errorf("ResultsFile = %q", out.ResultsFile)
	}
}

func TestRun_RunnerErrorStops(t *testing.T) {
	f := newFixture(t)
	f.runner.err = &executor.ProcessError{Command: "iverilog", ExitCode: 2}

	out, err := Run(context.Background(), f.options(f.job(t, nil)))
	if ExitCode(err) != ExitProcess {
		t.Fatalf("ExitCode = %d (%v)", ExitCode(err), err)
	}
	if out.Record != nil {
		t.Error("results parsed after a process failure")
	}
}

func TestRun_FreshEnvironmentEachRun(t *testing.T) {
	f := newFixture(t)
	opts := f.options(f.job(t, nil))

	for i := 0; i < 3; i++ {
		if _, err := Run(context.Background(), opts); err != nil {
			t.Fatal(err)
		}
	}
	for i, x := range f.runner.runs {
		path := environ.Parse(x.Env).Value("PATH")
		if path != "/usr/bin"+string(os.PathListSeparator)+"/cocotb/libs" {
			t.Errorf("run %d PATH = %q", i, path)
		}
	}
}

func TestEnvironment(t *testing.T) {
	seed := int64(7)
	j, err := job.New(job.Spec{
		Toplevel:     []string{"work.top"},
		Module:       "test_top",
		ToplevelLang: job.LangVHDL,
		PythonSearch: []string{"/py"},
		Seed:         &seed,
		Testcase:     "test_one",
		ExtraEnv:     map[string]string{"TOPLEVEL": "ignored", "USER_VAR": "1"},
		BaseDir:      "/w",
	})
	if err != nil {
		t.Fatal(err)
	}
	plan := &backend.Plan{Env: map[string]string{"GPI_EXTRA": "x"}, PathAppend: []string{"/ghdl/lib"}}
	parent := environ.Parse([]string{"PATH=/bin", "PYTHONPATH=/site"})

	env := Environment(parent, j, testToolchain, "/w/sim_build/r.xml", "/w", plan)

	sep := string(os.PathListSeparator)
	want := map[string]string{
		"TOPLEVEL":            "top",
		"TOPLEVEL_LANG":       "vhdl",
		"MODULE":              "test_top",
		"COCOTB_SIM":          "1",
		"COCOTB_RESULTS_FILE": "/w/sim_build/r.xml",
		"LIBPYTHON_LOC":       "/usr/lib/libpython3.so",
		"RANDOM_SEED":         "7",
		"TESTCASE":            "test_one",
		"USER_VAR":            "1",
		"GPI_EXTRA":           "x",
		"PATH":                "/bin" + sep + "/cocotb/libs" + sep + "/ghdl/lib",
		"PYTHONPATH":          "/site" + sep + "/w" + sep + "/py",
	}
	for k, v := range want {
		if got := env.Value(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if parent.Value("TOPLEVEL") != "" {
		t.Error("parent environment modified")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{&results.TestFailureError{}, ExitTestFailure},
		{job.NewConfigError("f", "m", ""), ExitConfig},
		{&executor.ProcessError{Command: "x", ExitCode: 1}, ExitProcess},
		{&executor.StartError{Command: "x", Err: os.ErrPermission}, ExitProcess},
		{&results.AbnormalTerminationError{Path: "r.xml"}, ExitAbnormal},
		{&executor.TimeoutError{Command: "x", Timeout: time.Second}, ExitAbnormal},
		{&executor.CancelledError{Cause: context.Canceled}, ExitCancelled},
		{fmt.Errorf("wrapped: %w", job.NewConfigError("f", "m", "")), ExitConfig},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func boolPtr(b bool) *bool { return &b }
