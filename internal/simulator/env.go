package simulator

import (
	"strconv"

	"cocotbtest/internal/backend"
	"cocotbtest/internal/environ"
	"cocotbtest/internal/job"
	"cocotbtest/internal/toolchain"
)

// Environment builds the process environment of a run from the parent
// environment. Later layers override earlier ones: job extra env, test
// selection, framework variables, backend overrides.
func Environment(parent environ.Env, j *job.Job, tc toolchain.Toolchain, resultsFile, dir string, plan *backend.Plan) environ.Env {
	env := parent.WithAll(j.ExtraEnv)

	if j.Testcase != "" {
		env = env.With("TESTCASE", j.Testcase)
	}
	if j.Seed != nil {
		env = env.With("RANDOM_SEED", strconv.FormatInt(*j.Seed, 10))
	}

	env = env.AppendList("PATH", tc.LibDir)
	env = env.AppendList("PYTHONPATH", append([]string{dir}, j.PythonSearch...)...)

	env = env.
		With("TOPLEVEL", j.ToplevelModule()).
		With("TOPLEVEL_LANG", string(j.ToplevelLang)).
		With("COCOTB_SIM", "1").
		With("COCOTB_RESULTS_FILE", resultsFile)
	if j.Module != "" {
		env = env.With("MODULE", j.Module)
	}
	if tc.LibPython != "" {
		env = env.With(toolchain.EnvLibPython, tc.LibPython)
	}
	if tc.PythonHome != "" {
		env = env.With(toolchain.EnvPythonHome, tc.PythonHome)
	}

	if plan != nil {
		env = env.WithAll(plan.Env)
		env = env.AppendList("PATH", plan.PathAppend...)
	}
	return env
}
