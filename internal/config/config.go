// Package config reads the environment selectors of a run and builds a job
// description from the environment for run --env.
package config

import (
	"errors"
	"strconv"
	"strings"

	"cocotbtest/internal/environ"
	"cocotbtest/internal/job"
)

// Selectors are the environment settings that apply to every run whatever
// the job source.
type Selectors struct {
	Simulator   string
	Waves       *bool
	ResultsFile string
}

// ReadSelectors extracts SIM, WAVES and COCOTB_RESULTS_FILE. An unset or
// empty WAVES leaves Waves nil.
func ReadSelectors(env environ.Env) (Selectors, error) {
	sel := Selectors{
		Simulator:   strings.TrimSpace(env.Value(EnvSim)),
		ResultsFile: env.Value(EnvResultsFile),
	}
	if raw := env.Value(EnvWaves); strings.TrimSpace(raw) != "" {
		waves, err := ParseBool(EnvWaves, raw)
		if err != nil {
			return Selectors{}, err
		}
		sel.Waves = &waves
	}
	return sel, nil
}

// Apply fills the fields of spec that the selectors default. Values already
// present in spec are kept.
func (s Selectors) Apply(spec *job.Spec) {
	if spec.Waves == nil && s.Waves != nil {
		waves := *s.Waves
		spec.Waves = &waves
	}
}

// SpecFromEnviron builds a job description from the variables the cocotb
// makefiles use. Lists are whitespace separated; PYTHONPATH is also split
// on ':' and ';'.
func SpecFromEnviron(env environ.Env) (job.Spec, error) {
	spec := job.Spec{
		Toplevel:       splitList(env, EnvToplevel),
		Module:         strings.TrimSpace(env.Value(EnvModule)),
		ToplevelLang:   job.Lang(strings.TrimSpace(env.Value(EnvToplevelLang))),
		VerilogSources: job.FlatSources(splitList(env, EnvVerilogSources)...),
		VHDLSources:    job.FlatSources(splitList(env, EnvVHDLSources)...),
		SimArgs:        splitList(env, EnvSimArgs),
		CompileArgs:    splitList(env, EnvCompileArgs),
		ExtraArgs:      splitList(env, EnvExtraArgs),
		PlusArgs:       splitList(env, EnvPlusArgs),
		PythonSearch:   splitSearchPath(env.Value(EnvPythonPath)),
		Testcase:       strings.TrimSpace(env.Value(EnvTestcase)),
	}

	cerr := &job.ConfigError{}
	if raw := strings.TrimSpace(env.Value(EnvRandomSeed)); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			cerr.Errors = append(cerr.Errors, job.ValidationError{
				Field: EnvRandomSeed, Message: "must be an integer", Value: raw,
			})
		} else {
			spec.Seed = &seed
		}
	}

	sel, err := ReadSelectors(env)
	var serr *job.ConfigError
	if errors.As(err, &serr) {
		cerr.Errors = append(cerr.Errors, serr.Errors...)
	}
	sel.Apply(&spec)

	if len(cerr.Errors) > 0 {
		return job.Spec{}, cerr
	}
	return spec, nil
}
