package backend

import (
	"io/fs"
	"os/exec"

	"cocotbtest/internal/job"
	"cocotbtest/internal/outdated"
	"cocotbtest/internal/toolchain"
)

// Options adjusts how backends inspect the host.
type Options struct {
	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)

	// Stat defaults to os.Stat and is used for outdated checks.
	Stat func(name string) (fs.FileInfo, error)
}

// base carries what every backend needs.
type base struct {
	job      *job.Job
	tc       toolchain.Toolchain
	check    outdated.Checker
	lookPath func(file string) (string, error)
}

func newBase(j *job.Job, tc toolchain.Toolchain, opts Options) base {
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return base{
		job:      j,
		tc:       tc,
		check:    outdated.Checker{Force: j.ForceCompile, Stat: opts.Stat},
		lookPath: lookPath,
	}
}

// Elaborate is a no-op for backends without a separate elaboration step.
func (b *base) Elaborate(p *Plan) error { return nil }

// requireTool resolves an executable that must exist when the plan is built.
func (b *base) requireTool(name, label string) (string, error) {
	path, err := b.lookPath(name)
	if err != nil || path == "" {
		return "", job.NewConfigError("simulator", label+" executable not found", name)
	}
	return path, nil
}

func prefixEach(prefix string, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, prefix+v)
	}
	return out
}

func pairEach(flag string, values []string) []string {
	out := make([]string, 0, 2*len(values))
	for _, v := range values {
		out = append(out, flag, v)
	}
	return out
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
