package config

import (
	"sort"
	"strconv"
	"strings"

	"cocotbtest/internal/environ"
	"cocotbtest/internal/job"
)

// Environment variables read by cocotb-run.
const (
	EnvSim         = "SIM"
	EnvWaves       = "WAVES"
	EnvResultsFile = "COCOTB_RESULTS_FILE"

	EnvVerilogSources = "VERILOG_SOURCES"
	EnvVHDLSources    = "VHDL_SOURCES"
	EnvToplevel       = "TOPLEVEL"
	EnvToplevelLang   = "TOPLEVEL_LANG"
	EnvModule         = "MODULE"
	EnvSimArgs        = "SIM_ARGS"
	EnvCompileArgs    = "COMPILE_ARGS"
	EnvExtraArgs      = "EXTRA_ARGS"
	EnvPlusArgs       = "PLUS_ARGS"
	EnvPythonPath     = "PYTHONPATH"
	EnvTestcase       = "TESTCASE"
	EnvRandomSeed     = "RANDOM_SEED"
)

// Variable describes one environment variable that influences a run.
type Variable struct {
	Name    string
	Purpose string
	// JobOnly variables are read only when the job itself comes from the
	// environment (run --env).
	JobOnly bool
}

// Variables lists every variable cocotb-run consults, sorted by name.
var Variables = sortVariables([]Variable{
	{Name: EnvSim, Purpose: "simulator backend, wins over --sim"},
	{Name: EnvWaves, Purpose: "record waveforms when the job leaves waves unset (0 or 1)"},
	{Name: EnvResultsFile, Purpose: "results file path, default <sim_build>/<uuid>_results.xml"},
	{Name: EnvVerilogSources, Purpose: "whitespace separated Verilog sources", JobOnly: true},
	{Name: EnvVHDLSources, Purpose: "whitespace separated VHDL sources", JobOnly: true},
	{Name: EnvToplevel, Purpose: "toplevel design unit(s)", JobOnly: true},
	{Name: EnvToplevelLang, Purpose: "toplevel language (verilog or vhdl)", JobOnly: true},
	{Name: EnvModule, Purpose: "cocotb test module(s)", JobOnly: true},
	{Name: EnvSimArgs, Purpose: "simulator arguments", JobOnly: true},
	{Name: EnvCompileArgs, Purpose: "compiler arguments", JobOnly: true},
	{Name: EnvExtraArgs, Purpose: "arguments for both compiler and simulator", JobOnly: true},
	{Name: EnvPlusArgs, Purpose: "plusargs passed to the simulation", JobOnly: true},
	{Name: EnvPythonPath, Purpose: "python search path for test modules", JobOnly: true},
	{Name: EnvTestcase, Purpose: "restrict the run to the named test(s)", JobOnly: true},
	{Name: EnvRandomSeed, Purpose: "seed for the test random generator", JobOnly: true},
})

func sortVariables(vs []Variable) []Variable {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Name < vs[j].Name })
	return vs
}

// ResolvedValue is the state of one Variable in an environment.
type ResolvedValue struct {
	Variable
	Value   string
	Present bool
}

// Resolve looks up every known variable in env. Variables marked JobOnly
// are included only when jobFromEnv is set.
func Resolve(env environ.Env, jobFromEnv bool) []ResolvedValue {
	var out []ResolvedValue
	for _, v := range Variables {
		if v.JobOnly && !jobFromEnv {
			continue
		}
		value, present := env.Get(v.Name)
		out = append(out, ResolvedValue{Variable: v, Value: value, Present: present})
	}
	return out
}

// ParseBool parses a WAVES style flag: an integer where any non-zero value
// means true.
func ParseBool(field, s string) (bool, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return false, job.NewConfigError(field, "must be an integer (0 or 1)", s)
	}
	return n != 0, nil
}

// splitList splits a whitespace separated variable.
func splitList(env environ.Env, key string) []string {
	return strings.Fields(env.Value(key))
}

// splitSearchPath splits PYTHONPATH on both list separators and whitespace.
func splitSearchPath(s string) []string {
	s = strings.NewReplacer(";", " ", ":", " ").Replace(s)
	return strings.Fields(s)
}
