package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cocotbtest/internal/backend"
	"cocotbtest/internal/clean"
	"cocotbtest/internal/cli"
	"cocotbtest/internal/config"
	"cocotbtest/internal/environ"
	"cocotbtest/internal/executor"
	"cocotbtest/internal/job"
	"cocotbtest/internal/jobfile"
	"cocotbtest/internal/logging"
	"cocotbtest/internal/paths"
	"cocotbtest/internal/results"
	"cocotbtest/internal/simulator"
	"cocotbtest/internal/summary"
	"cocotbtest/internal/toolchain"
)

func main() {
	exitCode := run(os.Args[1:], os.Environ(), ".")
	os.Exit(exitCode)
}

// run orchestrates the full execution flow and returns the exit code.
// This function is separated from main() to enable testing.
func run(args []string, environ []string, dir string) int {
	cmd, err := cli.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		fmt.Fprint(os.Stderr, cli.Usage)
		return simulator.ExitConfig
	}

	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	logger := logging.New(os.Stdout, cmd.LogLevel())

	switch cmd.Subcommand {
	case cli.SubcommandHelp:
		fmt.Print(cli.Usage)
		return simulator.ExitOK
	case cli.SubcommandSims:
		printSimulators(os.Stdout)
		return simulator.ExitOK
	case cli.SubcommandVars:
		printVariables(os.Stdout, config.Resolve(parseEnviron(environ), cmd.FromEnv))
		return simulator.ExitOK
	case cli.SubcommandClean:
		if _, err := clean.Clean(dir, clean.Options{Recursive: cmd.Recursive, DryRun: cmd.DryRun}, logger); err != nil {
			logger.Errorf("%v", err)
			return simulator.ExitProcess
		}
		return simulator.ExitOK
	}

	return runSimulation(cmd, parseEnviron(environ), dir, logger)
}

func parseEnviron(env []string) environ.Env {
	return environ.Parse(env)
}

func runSimulation(cmd cli.Command, env environ.Env, dir string, logger *logging.Logger) int {
	ciMode := cmd.CIMode || getEnvBool(env, "CI")

	ctx, stop := executor.NotifyContext(context.Background())
	defer stop()

	simName, j, err := loadJob(cmd, env, dir)
	var out *simulator.Outcome
	if err == nil {
		var tc toolchain.Toolchain
		tc, err = toolchain.Discover(ctx, env, nil)
		if err == nil {
			out, err = simulator.Run(ctx, simulator.Options{
				Simulator: simName,
				Job:       j,
				Environ:   env,
				Toolchain: tc,
				Dir:       dir,
				Logger:    logger,
				DryRun:    cmd.DryRun,
			})
		}
	}

	if cmd.DryRun && out != nil && out.Plan != nil {
		printPlan(os.Stdout, out)
	}

	if err != nil {
		reportError(os.Stderr, logger, err, ciMode)
	}

	code := simulator.ExitCode(err)
	if cmd.SummaryFile != "" {
		if werr := writeSummary(cmd, env, dir, simName, out, err, code); werr != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot write summary file: %v\n", werr)
			if code == simulator.ExitOK {
				code = simulator.ExitProcess
			}
		}
	}
	return code
}

// loadJob builds the job from the environment (--env) or from a job file,
// then applies the command-line overrides.
func loadJob(cmd cli.Command, env environ.Env, dir string) (string, *job.Job, error) {
	var (
		spec    job.Spec
		simName = cmd.Simulator
		err     error
	)

	if cmd.FromEnv {
		spec, err = config.SpecFromEnviron(env)
		if err != nil {
			return simName, nil, err
		}
		spec.BaseDir = dir
	} else {
		jobPath := resolveJobPath(cmd.JobFile, dir)
		if jobPath == "" {
			return simName, nil, job.NewConfigError("job", "no job file found; pass --job <path> or --env", "")
		}
		f, err := jobfile.Load(jobPath)
		if err != nil {
			if os.IsNotExist(err) {
				return simName, nil, job.NewConfigError("job", "job file not found", jobPath)
			}
			return simName, nil, err
		}
		spec = f.Spec
		if simName == "" {
			simName = f.Simulator
		}
	}

	applyOverrides(cmd, &spec)

	sel, err := config.ReadSelectors(env)
	if err != nil {
		return simName, nil, err
	}
	sel.Apply(&spec)

	j, err := job.New(spec)
	return simName, j, err
}

// resolveJobPath returns the job file to load: the flag value, else the first
// default job file in dir. Empty when there is none.
func resolveJobPath(flagValue, dir string) string {
	if flagValue != "" {
		return paths.Resolve(dir, flagValue)
	}
	path, ok := jobfile.Find(dir)
	if !ok {
		return ""
	}
	return path
}

func applyOverrides(cmd cli.Command, spec *job.Spec) {
	if cmd.Waves != nil {
		waves := *cmd.Waves
		spec.Waves = &waves
	}
	spec.GUI = spec.GUI || cmd.GUI
	spec.ForceCompile = spec.ForceCompile || cmd.ForceCompile
	spec.CompileOnly = spec.CompileOnly || cmd.CompileOnly
	if cmd.Testcase != "" {
		spec.Testcase = cmd.Testcase
	}
	if cmd.Seed != nil {
		seed := *cmd.Seed
		spec.Seed = &seed
	}
	if cmd.SimBuild != "" {
		spec.SimBuild = cmd.SimBuild
	}
	spec.PlusArgs = append(spec.PlusArgs, cmd.PlusArgs...)
	if cmd.Timeout > 0 {
		spec.Timeout = cmd.Timeout
	}
}

// reportError prints err the way its category calls for.
func reportError(w io.Writer, logger *logging.Logger, err error, ciMode bool) {
	var (
		cerr   *job.ConfigError
		failed *results.TestFailureError
	)
	switch {
	case errors.As(err, &cerr):
		for _, msg := range cerr.Messages() {
			if ciMode {
				fmt.Fprintln(w, formatCIAnnotation(msg))
			} else {
				fmt.Fprintln(w, "Error:", msg)
			}
		}
		if ciMode {
			fmt.Fprintf(w, "\n❌ Configuration invalid: %d error(s)\n", len(cerr.Errors))
		}
	case errors.As(err, &failed):
		if ciMode {
			for _, c := range failed.Failures {
				fmt.Fprintln(w, formatCIAnnotation(failureAnnotation(c)))
			}
		} else {
			fmt.Fprint(w, results.FormatFailures(failed.Failures))
		}
		fmt.Fprintf(w, "\n❌ %s\n", failed.Error())
	default:
		if ciMode {
			fmt.Fprintln(w, formatCIAnnotation(err.Error()))
		} else {
			logger.Errorf("%v", err)
		}
	}
}

// failureAnnotation describes a failing case with all of its messages and
// captured output.
func failureAnnotation(c results.Case) string {
	msg := "Failed: " + c.ID()
	if msgs := c.Messages(); len(msgs) > 0 {
		msg += " - " + strings.Join(msgs, "; ")
	}
	for _, f := range c.Failures {
		if out := strings.TrimRight(f.Stdout, "\n"); out != "" {
			msg += "\n" + out
		}
	}
	return msg
}

// formatCIAnnotation formats a message as a GitHub Actions annotation.
// Newlines are encoded so a multi-line message stays one annotation.
func formatCIAnnotation(msg string) string {
	msg = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(msg)
	return "::error title=cocotb-run::" + msg
}

// getEnvBool reads a boolean environment flag.
func getEnvBool(env environ.Env, name string) bool {
	val := strings.ToLower(env.Value(name))
	return val == "true" || val == "1" || val == "yes"
}

func writeSummary(cmd cli.Command, env environ.Env, dir, simName string, out *simulator.Outcome, runErr error, code int) error {
	in := summary.Input{
		Simulator: simName,
		Selectors: config.Resolve(env, cmd.FromEnv),
		Status:    simulator.Category(runErr),
		ExitCode:  code,
		Err:       runErr,
	}
	if out != nil {
		in.Simulator = out.Simulator
		in.Plan = out.Plan
		in.ResultsFile = out.ResultsFile
		in.Record = out.Record
	}
	return summary.Generate(in).WriteToFile(paths.Resolve(dir, cmd.SummaryFile))
}

func printPlan(w io.Writer, out *simulator.Outcome) {
	fmt.Fprintf(w, "Simulator: %s\n", out.Simulator)
	fmt.Fprintf(w, "Results file: %s\n", out.ResultsFile)
	for _, c := range out.Plan.Commands {
		fmt.Fprintf(w, "[%s] %s\n", c.Stage, c)
	}
	for _, artifact := range out.Plan.Skipped {
		fmt.Fprintf(w, "[skipped] %s\n", artifact)
	}
	if len(out.Plan.Files) > 0 {
		fmt.Fprintln(w, "Generated files:")
		for _, f := range out.Plan.Files {
			fmt.Fprintf(w, "  %s\n", f.Path)
		}
	}
	if len(out.Plan.Env) > 0 || len(out.Plan.PathAppend) > 0 {
		fmt.Fprintln(w, "Environment overrides:")
		keys := make([]string, 0, len(out.Plan.Env))
		for k := range out.Plan.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s=%s\n", k, out.Plan.Env[k])
		}
		for _, p := range out.Plan.PathAppend {
			fmt.Fprintf(w, "  PATH+=%s\n", p)
		}
	}
}

func printSimulators(w io.Writer) {
	for _, name := range backend.Supported() {
		d, _ := backend.Lookup(name)
		var langs []string
		if d.Verilog {
			langs = append(langs, "verilog")
		}
		if d.VHDL {
			langs = append(langs, "vhdl")
		}
		fmt.Fprintf(w, "%-10s %s\n", name, strings.Join(langs, ","))
	}
}

func printVariables(w io.Writer, values []config.ResolvedValue) {
	for _, rv := range values {
		value := "(unset)"
		if rv.Present {
			value = rv.Value
		}
		fmt.Fprintf(w, "%-20s %-30s %s\n", rv.Name, value, rv.Purpose)
	}
}
