package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"cocotbtest/internal/environ"
	"cocotbtest/internal/job"
	"cocotbtest/internal/paths"
)

// Environment variables that override cocotb-config queries.
const (
	EnvLibDir     = "COCOTB_LIB_DIR"
	EnvShareDir   = "COCOTB_SHARE_DIR"
	EnvLibPython  = "LIBPYTHON_LOC"
	EnvPythonHome = "PYTHONHOME"
)

// Toolchain locates the cocotb bridge libraries loaded by simulators.
type Toolchain struct {
	LibDir     string
	ShareDir   string
	LibPython  string
	PythonHome string
	LibExt     string
}

// LibName returns the bridge library name for a simulator interface, for
// example cocotbvpi_icarus.
func (t Toolchain) LibName(iface, sim string) string {
	return "cocotb" + iface + "_" + sim
}

// LibPath returns the absolute path of a bridge library.
func (t Toolchain) LibPath(iface, sim string) string {
	ext := t.LibExt
	if ext == "" {
		ext = DefaultLibExt()
	}
	prefix := "lib"
	if ext == "dll" {
		prefix = ""
	}
	return filepath.Join(t.LibDir, prefix+t.LibName(iface, sim)+"."+ext)
}

// DefaultLibExt returns the shared library extension of the host platform.
func DefaultLibExt() string {
	if runtime.GOOS == "windows" {
		return "dll"
	}
	return "so"
}

// Querier runs cocotb-config with args and returns its trimmed output.
type Querier func(ctx context.Context, args ...string) (string, error)

// CocotbConfig returns a Querier running the cocotb-config found on the PATH
// of env, with env as its environment.
func CocotbConfig(env environ.Env) Querier {
	return func(ctx context.Context, args ...string) (string, error) {
		bin, err := paths.LookPath("cocotb-config", env.Value("PATH"))
		if err != nil {
			return "", err
		}
		cmd := exec.CommandContext(ctx, bin, args...)
		cmd.Env = env.Slice()
		out, err := cmd.Output()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	}
}

// Discover fills a Toolchain from environment overrides, asking query for
// everything the environment does not provide. A nil query uses
// CocotbConfig(env). Only the library directory is mandatory.
func Discover(ctx context.Context, env environ.Env, query Querier) (Toolchain, error) {
	if query == nil {
		query = CocotbConfig(env)
	}
	tc := Toolchain{
		LibDir:     env.Value(EnvLibDir),
		ShareDir:   env.Value(EnvShareDir),
		LibPython:  env.Value(EnvLibPython),
		PythonHome: env.Value(EnvPythonHome),
		LibExt:     DefaultLibExt(),
	}

	if tc.LibDir == "" {
		dir, err := query(ctx, "--lib-dir")
		if err != nil || dir == "" {
			msg := "cannot locate cocotb libraries; install cocotb or set " + EnvLibDir
			if err != nil {
				msg = fmt.Sprintf("%s (cocotb-config: %v)", msg, err)
			}
			return Toolchain{}, job.NewConfigError("toolchain", msg, "")
		}
		tc.LibDir = dir
	}
	if tc.ShareDir == "" {
		if dir, err := query(ctx, "--share-dir"); err == nil {
			tc.ShareDir = dir
		}
	}
	if tc.LibPython == "" {
		if lib, err := query(ctx, "--libpython"); err == nil {
			tc.LibPython = lib
		}
	}
	return tc, nil
}
