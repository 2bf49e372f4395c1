package backend

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"cocotbtest/internal/job"
	"cocotbtest/internal/toolchain"
)

var testToolchain = toolchain.Toolchain{LibDir: "/cocotb/libs", ShareDir: "/cocotb/share", LibExt: "so"}

type fakeInfo struct {
	os.FileInfo
	mtime time.Time
}

func (f fakeInfo) ModTime() time.Time { return f.mtime }

// fakeFS answers Stat from a table of modification times.
type fakeFS map[string]time.Time

func (f fakeFS) Stat(name string) (fs.FileInfo, error) {
	if mt, ok := f[name]; ok {
		return fakeInfo{mtime: mt}, nil
	}
	return nil, os.ErrNotExist
}

func fakeLookPath(found ...string) func(string) (string, error) {
	return func(file string) (string, error) {
		for _, f := range found {
			if f == file {
				return "/usr/local/bin/" + file, nil
			}
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func testOptions() Options {
	return Options{
		LookPath: fakeLookPath("ghdl", "nvc", "verilator"),
		Stat:     fakeFS{}.Stat,
	}
}

func mustJob(t *testing.T, spec job.Spec) *job.Job {
	t.Helper()
	if spec.BaseDir == "" {
		spec.BaseDir = "/w"
	}
	j, err := job.New(spec)
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	return j
}

func mustPlan(t *testing.T, name string, j *job.Job, opts Options) *Plan {
	t.Helper()
	b, err := New(name, j, testToolchain, opts)
	if err != nil {
		t.Fatalf("New(%s): %v", name, err)
	}
	p, err := Build(b, j.CompileOnly)
	if err != nil {
		t.Fatalf("Build(%s): %v", name, err)
	}
	return p
}

func assertArgs(t *testing.T, label string, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, "\x1f") != strings.Join(want, "\x1f") {
		t.Errorf("%s:\n got  %q\n want %q", label, got, want)
	}
}

func assertContains(t *testing.T, label string, got []string, want ...string) {
	t.Helper()
	joined := "\x1f" + strings.Join(got, "\x1f") + "\x1f"
	if !strings.Contains(joined, "\x1f"+strings.Join(want, "\x1f")+"\x1f") {
		t.Errorf("%s: %q does not contain %q", label, got, want)
	}
}

func fileContent(p *Plan, path string) (string, bool) {
	for _, f := range p.Files {
		if f.Path == path {
			return f.Content, true
		}
	}
	return "", false
}
