package job

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"cocotbtest/internal/paths"
)

// Lang is the HDL of the toplevel design unit.
type Lang string

const (
	LangVerilog Lang = "verilog"
	LangVHDL    Lang = "vhdl"
)

// DefaultSimBuild is the build directory used when none is given.
const DefaultSimBuild = "sim_build"

var timescalePattern = regexp.MustCompile(`^\d+[npu]?s/\d+[npu]?s$`)

// ValidTimescale reports whether ts has the form <n><unit>/<n><unit>.
func ValidTimescale(ts string) bool {
	return timescalePattern.MatchString(ts)
}

// Parameter is a toplevel parameter or generic override.
type Parameter struct {
	Name  string
	Value string
}

// Spec is the raw description of a simulation job. It is turned into an
// immutable Job by New.
type Spec struct {
	Toplevel     []string
	Module       string
	ToplevelLang Lang

	VerilogSources Sources
	VHDLSources    Sources

	Includes   []string
	Defines    []string
	Parameters []Parameter

	CompileArgs        []string
	VerilogCompileArgs []string
	VHDLCompileArgs    []string
	SimArgs            []string
	ExtraArgs          []string
	PlusArgs           []string
	MakeArgs           []string

	ExternalLibraries []string
	PythonSearch      []string

	// Waves nil means "not specified"; New treats it as false.
	Waves        *bool
	GUI          bool
	ForceCompile bool
	CompileOnly  bool

	Timescale string
	Seed      *int64
	Testcase  string
	ExtraEnv  map[string]string

	SimBuild string
	WorkDir  string
	Timeout  time.Duration

	// BaseDir anchors relative paths. Empty means the current directory.
	BaseDir string
}

// Job is a validated simulation job. Paths are absolute, sources are
// partitioned into libraries and toplevels are qualified as lib.module.
// A Job is never modified after New returns it.
type Job struct {
	Toplevels    []string
	Module       string
	ToplevelLang Lang

	VerilogSources Libraries
	VHDLSources    Libraries

	Includes   []string
	Defines    []string
	Parameters []Parameter

	CompileArgs        []string
	VerilogCompileArgs []string
	VHDLCompileArgs    []string
	SimArgs            []string
	ExtraArgs          []string
	PlusArgs           []string
	MakeArgs           []string

	ExternalLibraries []string
	PythonSearch      []string

	Waves        bool
	GUI          bool
	ForceCompile bool
	CompileOnly  bool

	Timescale string
	Seed      *int64
	Testcase  string
	ExtraEnv  map[string]string

	SimBuild string
	WorkDir  string
	Timeout  time.Duration
}

// New validates spec and builds a Job. All problems are collected and
// returned together as a *ConfigError.
func New(spec Spec) (*Job, error) {
	var errs []ValidationError

	if len(spec.Toplevel) == 0 {
		errs = append(errs, ValidationError{Field: "toplevel", Message: "required but not set"})
	}
	for _, top := range spec.Toplevel {
		if strings.TrimSpace(top) == "" || strings.HasSuffix(top, ".") {
			errs = append(errs, ValidationError{Field: "toplevel", Message: "invalid toplevel name", Value: fmt.Sprintf("%q", top)})
		}
	}

	if spec.Module == "" && !spec.CompileOnly {
		errs = append(errs, ValidationError{Field: "module", Message: "required but not set"})
	}

	lang := spec.ToplevelLang
	if lang == "" {
		lang = LangVerilog
	}
	if lang != LangVerilog && lang != LangVHDL {
		errs = append(errs, ValidationError{
			Field:   "toplevel_lang",
			Value:   string(lang),
			Allowed: []string{string(LangVerilog), string(LangVHDL)},
		})
	}

	if spec.Timescale != "" && !ValidTimescale(spec.Timescale) {
		errs = append(errs, ValidationError{Field: "timescale", Message: "invalid timescale", Value: spec.Timescale})
	}

	if spec.Timeout < 0 {
		errs = append(errs, ValidationError{Field: "timeout", Message: "must not be negative", Value: spec.Timeout.String()})
	}

	for _, p := range spec.Parameters {
		if p.Name == "" {
			errs = append(errs, ValidationError{Field: "parameters", Message: "parameter name must not be empty"})
		}
	}

	for _, sources := range []struct {
		field string
		src   Sources
	}{{"verilog_sources", spec.VerilogSources}, {"vhdl_sources", spec.VHDLSources}} {
		if len(sources.src.Files) > 0 && len(sources.src.Libraries) > 0 {
			errs = append(errs, ValidationError{Field: sources.field, Message: "either a file list or libraries, not both"})
		}
		seen := make(map[string]bool)
		for _, lib := range sources.src.Libraries {
			if lib.Name == "" {
				errs = append(errs, ValidationError{Field: sources.field, Message: "library name must not be empty"})
			}
			if seen[lib.Name] {
				errs = append(errs, ValidationError{Field: sources.field, Message: "duplicate library", Value: lib.Name})
			}
			seen[lib.Name] = true
		}
	}

	if len(errs) > 0 {
		return nil, &ConfigError{Errors: errs}
	}

	base := spec.BaseDir
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		base = cwd
	}

	topModule := ModuleOf(spec.Toplevel[0])

	simBuild := spec.SimBuild
	if simBuild == "" {
		simBuild = DefaultSimBuild
	}
	simBuild = paths.Resolve(base, simBuild)

	workDir := simBuild
	if spec.WorkDir != "" {
		candidate := paths.Resolve(base, spec.WorkDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			workDir = candidate
		}
	}

	j := &Job{
		Toplevels:    QualifyAll(spec.Toplevel),
		Module:       spec.Module,
		ToplevelLang: lang,

		VerilogSources: spec.VerilogSources.partition(topModule).resolve(base),
		VHDLSources:    spec.VHDLSources.partition(topModule).resolve(base),

		Includes:   paths.ResolveAll(base, spec.Includes),
		Defines:    clone(spec.Defines),
		Parameters: append([]Parameter(nil), spec.Parameters...),

		CompileArgs:        clone(spec.CompileArgs),
		VerilogCompileArgs: clone(spec.VerilogCompileArgs),
		VHDLCompileArgs:    clone(spec.VHDLCompileArgs),
		SimArgs:            clone(spec.SimArgs),
		ExtraArgs:          clone(spec.ExtraArgs),
		PlusArgs:           clone(spec.PlusArgs),
		MakeArgs:           clone(spec.MakeArgs),

		ExternalLibraries: paths.ResolveAll(base, spec.ExternalLibraries),
		PythonSearch:      paths.ResolveAll(base, spec.PythonSearch),

		Waves:        spec.Waves != nil && *spec.Waves,
		GUI:          spec.GUI,
		ForceCompile: spec.ForceCompile,
		CompileOnly:  spec.CompileOnly,

		Timescale: spec.Timescale,
		Testcase:  spec.Testcase,
		ExtraEnv:  cloneMap(spec.ExtraEnv),

		SimBuild: simBuild,
		WorkDir:  workDir,
		Timeout:  spec.Timeout,
	}
	if spec.Seed != nil {
		seed := *spec.Seed
		j.Seed = &seed
	}
	return j, nil
}

// ToplevelModules returns the module names of all toplevels.
func (j *Job) ToplevelModules() []string {
	out := make([]string, len(j.Toplevels))
	for i, top := range j.Toplevels {
		out[i] = ModuleOf(top)
	}
	return out
}

// ToplevelModule returns the module of the first toplevel.
func (j *Job) ToplevelModule() string {
	return ModuleOf(j.Toplevels[0])
}

// ToplevelLibrary returns the library of the first toplevel.
func (j *Job) ToplevelLibrary() string {
	return LibraryOf(j.Toplevels[0])
}

// CompileArguments returns the generic compile arguments followed by the
// extra arguments.
func (j *Job) CompileArguments() []string {
	return concat(j.CompileArgs, j.ExtraArgs)
}

// SimArguments returns the simulation arguments followed by the extra
// arguments.
func (j *Job) SimArguments() []string {
	return concat(j.SimArgs, j.ExtraArgs)
}

// SourceFiles returns every Verilog and VHDL source file.
func (j *Job) SourceFiles() []string {
	return concat(j.VerilogSources.Flat(), j.VHDLSources.Flat())
}

func clone(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
