package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cocotbtest/internal/logging"
)

// ErrNoSubcommand is returned when the first argument is not a known subcommand
var ErrNoSubcommand = errors.New("missing subcommand: usage: cocotb-run <run|clean|sims|vars|help> [flags]")

// ErrMissingFlagValue is returned when a flag requires a value but none is provided
var ErrMissingFlagValue = errors.New("flag requires a value")

// ErrUnknownFlag is returned for flags the subcommand does not accept
var ErrUnknownFlag = errors.New("unknown flag")

// ErrInvalidFlagValue is returned when a flag value cannot be parsed
var ErrInvalidFlagValue = errors.New("invalid flag value")

// ErrUnexpectedArgument is returned for positional arguments
var ErrUnexpectedArgument = errors.New("unexpected argument")

// ErrConflictingFlags is returned when two flags exclude each other
var ErrConflictingFlags = errors.New("conflicting flags")

// Subcommand represents the CLI subcommand
type Subcommand string

const (
	SubcommandRun   Subcommand = "run"
	SubcommandClean Subcommand = "clean"
	SubcommandSims  Subcommand = "sims"
	SubcommandVars  Subcommand = "vars"
	SubcommandHelp  Subcommand = "help"
)

// Usage is printed by the help subcommand.
const Usage = `usage: cocotb-run <subcommand> [flags]

subcommands:
  run     compile and simulate a job
  clean   remove sim_build directories
  sims    list supported simulators
  vars    show the environment variables cocotb-run reads
  help    show this message

run flags:
  --sim <name>            simulator backend (SIM overrides it)
  --job <path>            job file (.yaml, .yml, .toml); default cocotb.yaml
  -e, --env               build the job from environment variables
  --waves, --no-waves     record waveforms
  --gui                   open the simulator GUI
  --force-compile         compile even when the build is up to date
  --compile-only          compile without simulating
  --testcase <names>      run only the named tests
  --seed <n>              random seed
  --sim-build <dir>       build directory
  --plusarg <arg>         extra plusarg, repeatable
  --timeout <duration>    per-command wall-clock limit
  --dry-run               print the plan without running it
  --summary-file <path>   write a JSON run summary
  --ci                    emit CI annotations for failures
  -v, --verbose           debug output
  -q, --quiet             warnings and errors only
  --log-level <level>     debug, info, warn or error

clean flags:
  -r, --recursive         also remove sim_build below the working directory
  --dry-run               list directories without removing them
`

// Command represents the parsed CLI input
type Command struct {
	Subcommand Subcommand

	// Job selection
	Simulator string // --sim <name>
	JobFile   string // --job <path>
	FromEnv   bool   // --env

	// Job overrides
	Waves        *bool         // --waves / --no-waves
	GUI          bool          // --gui
	ForceCompile bool          // --force-compile
	CompileOnly  bool          // --compile-only
	Testcase     string        // --testcase <names>
	Seed         *int64        // --seed <n>
	SimBuild     string        // --sim-build <dir>
	PlusArgs     []string      // --plusarg <arg>
	Timeout      time.Duration // --timeout <duration>

	// Output
	DryRun      bool           // --dry-run
	SummaryFile string         // --summary-file <path>
	CIMode      bool           // --ci
	Verbose     bool           // --verbose
	Quiet       bool           // --quiet
	Level       *logging.Level // --log-level <level>

	// clean
	Recursive bool // --recursive
}

// LogLevel returns the log level selected by --verbose, --quiet or
// --log-level.
func (c Command) LogLevel() logging.Level {
	switch {
	case c.Verbose:
		return logging.LevelDebug
	case c.Quiet:
		return logging.LevelWarn
	case c.Level != nil:
		return *c.Level
	}
	return logging.LevelInfo
}

// ParseArgs parses CLI arguments into a Command.
// It expects args to be os.Args[1:] (excluding the program name).
func ParseArgs(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, ErrNoSubcommand
	}

	sub := Subcommand(args[0])
	switch sub {
	case SubcommandRun, SubcommandClean, SubcommandSims, SubcommandVars, SubcommandHelp:
	case "-h", "--help":
		return Command{Subcommand: SubcommandHelp}, nil
	default:
		return Command{}, ErrNoSubcommand
	}

	cmd := Command{Subcommand: sub}
	p := &parser{args: args, i: 1}

	for p.i < len(p.args) {
		arg := p.args[p.i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			return Command{}, fmt.Errorf("%w: %s", ErrUnexpectedArgument, arg)
		}

		name, inline, hasInline := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		p.inline, p.hasInline = inline, hasInline

		if err := cmd.apply(p, name, arg); err != nil {
			return Command{}, err
		}
		p.i++
	}

	if cmd.FromEnv && cmd.JobFile != "" {
		return Command{}, fmt.Errorf("%w: --env and --job", ErrConflictingFlags)
	}
	if cmd.Verbose && cmd.Quiet {
		return Command{}, fmt.Errorf("%w: --verbose and --quiet", ErrConflictingFlags)
	}
	if cmd.Level != nil && (cmd.Verbose || cmd.Quiet) {
		return Command{}, fmt.Errorf("%w: --log-level with --verbose or --quiet", ErrConflictingFlags)
	}

	return cmd, nil
}

// parser walks the argument list. A value is taken from "--flag=value" or
// from the following argument.
type parser struct {
	args      []string
	i         int
	inline    string
	hasInline bool
}

func (p *parser) value() (string, error) {
	if p.hasInline {
		return p.inline, nil
	}
	if p.i+1 >= len(p.args) {
		return "", ErrMissingFlagValue
	}
	p.i++
	return p.args[p.i], nil
}

func (c *Command) apply(p *parser, name, arg string) error {
	// Flags shared by every subcommand.
	switch name {
	case "v", "verbose":
		c.Verbose = true
		return nil
	case "q", "quiet":
		c.Quiet = true
		return nil
	case "h", "help":
		c.Subcommand = SubcommandHelp
		return nil
	case "log-level":
		raw, err := p.value()
		if err != nil {
			return err
		}
		level, err := logging.ParseLevel(raw)
		if err != nil {
			return fmt.Errorf("%w: --log-level %s", ErrInvalidFlagValue, raw)
		}
		c.Level = &level
		return nil
	}

	switch c.Subcommand {
	case SubcommandRun:
		return c.applyRun(p, name, arg)
	case SubcommandClean:
		switch name {
		case "r", "recursive":
			c.Recursive = true
			return nil
		case "dry-run":
			c.DryRun = true
			return nil
		}
	case SubcommandVars:
		if name == "e" || name == "env" {
			c.FromEnv = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownFlag, arg)
}

func (c *Command) applyRun(p *parser, name, arg string) error {
	var err error
	switch name {
	case "sim":
		c.Simulator, err = p.value()
	case "job":
		c.JobFile, err = p.value()
	case "e", "env":
		c.FromEnv = true
	case "waves":
		waves := true
		c.Waves = &waves
	case "no-waves":
		waves := false
		c.Waves = &waves
	case "gui":
		c.GUI = true
	case "force-compile":
		c.ForceCompile = true
	case "compile-only":
		c.CompileOnly = true
	case "testcase":
		c.Testcase, err = p.value()
	case "seed":
		var raw string
		if raw, err = p.value(); err == nil {
			seed, perr := strconv.ParseInt(raw, 10, 64)
			if perr != nil {
				return fmt.Errorf("%w: --seed %s", ErrInvalidFlagValue, raw)
			}
			c.Seed = &seed
		}
	case "sim-build":
		c.SimBuild, err = p.value()
	case "plusarg":
		var v string
		if v, err = p.value(); err == nil {
			c.PlusArgs = append(c.PlusArgs, v)
		}
	case "timeout":
		var raw string
		if raw, err = p.value(); err == nil {
			d, perr := time.ParseDuration(raw)
			if perr != nil || d < 0 {
				return fmt.Errorf("%w: --timeout %s", ErrInvalidFlagValue, raw)
			}
			c.Timeout = d
		}
	case "dry-run":
		c.DryRun = true
	case "summary-file":
		c.SummaryFile, err = p.value()
	case "ci":
		c.CIMode = true
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFlag, arg)
	}
	return err
}
