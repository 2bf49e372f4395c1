package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cocotbtest/internal/environ"
	"cocotbtest/internal/job"
)

func TestLibPath(t *testing.T) {
	tc := Toolchain{LibDir: "/opt/cocotb/libs", LibExt: "so"}
	tests := []struct {
		iface, sim string
		want       string
	}{
		{"vpi", "icarus", "/opt/cocotb/libs/libcocotbvpi_icarus.so"},
		{"fli", "questa", "/opt/cocotb/libs/libcocotbfli_questa.so"},
		{"vhpi", "ius", "/opt/cocotb/libs/libcocotbvhpi_ius.so"},
	}
	for _, tt := range tests {
		if got := tc.LibPath(tt.iface, tt.sim); got != tt.want {
			t.Errorf("LibPath(%s, %s) = %q, want %q", tt.iface, tt.sim, got, tt.want)
		}
	}
	if got := tc.LibName("vpi", "icarus"); got != "cocotbvpi_icarus" {
		t.Errorf("LibName = %q", got)
	}
}

func TestDiscover_EnvironmentOverrides(t *testing.T) {
	env := environ.Parse([]string{
		"COCOTB_LIB_DIR=/env/libs",
		"COCOTB_SHARE_DIR=/env/share",
		"LIBPYTHON_LOC=/env/libpython.so",
		"PYTHONHOME=/env/py",
	})
	called := false
	tc, err := Discover(context.Background(), env, func(ctx context.Context, args ...string) (string, error) {
		called = true
		return "", errors.New("unexpected")
	})
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("query should not run when every value is overridden")
	}
	if tc.LibDir != "/env/libs" || tc.ShareDir != "/env/share" || tc.LibPython != "/env/libpython.so" || tc.PythonHome != "/env/py" {
		t.Errorf("unexpected toolchain %+v", tc)
	}
}

func TestDiscover_Query(t *testing.T) {
	answers := map[string]string{
		"--lib-dir":   "/q/libs",
		"--share-dir": "/q/share",
	}
	tc, err := Discover(context.Background(), environ.Parse(nil), func(ctx context.Context, args ...string) (string, error) {
		if v, ok := answers[args[0]]; ok {
			return v, nil
		}
		return "", errors.New("unsupported")
	})
	if err != nil {
		t.Fatal(err)
	}
	if tc.LibDir != "/q/libs" || tc.ShareDir != "/q/share" || tc.LibPython != "" {
		t.Errorf("unexpected toolchain %+v", tc)
	}
}

func TestDiscover_MissingLibDir(t *testing.T) {
	_, err := Discover(context.Background(), environ.Parse(nil), func(ctx context.Context, args ...string) (string, error) {
		return "", errors.New("executable file not found")
	})
	var cerr *job.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("want *job.ConfigError, got %v", err)
	}
	if !strings.Contains(err.Error(), "COCOTB_LIB_DIR") {
		t.Errorf("error should mention COCOTB_LIB_DIR: %v", err)
	}
}

func TestDiscover_CocotbConfigOnRunPath(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	bin := t.TempDir()
	script := `#!/bin/sh
case "$1" in
  --lib-dir) echo "$COCOTB_PREFIX/libs" ;;
  --share-dir) echo "$COCOTB_PREFIX/share" ;;
  *) exit 1 ;;
esac
`
	if err := os.WriteFile(filepath.Join(bin, "cocotb-config"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	env := environ.Parse([]string{
		"PATH=" + bin + string(os.PathListSeparator) + "/bin",
		"COCOTB_PREFIX=/site",
	})

	tc, err := Discover(context.Background(), env, nil)
	if err != nil {
		t.Fatal(err)
	}
	if tc.LibDir != "/site/libs" || tc.ShareDir != "/site/share" || tc.LibPython != "" {
		t.Errorf("unexpected toolchain %+v", tc)
	}

	_, err = Discover(context.Background(), environ.Parse([]string{"PATH=" + t.TempDir()}), nil)
	var cerr *job.ConfigError
	if !errors.As(err, &cerr) {
		t.Errorf("cocotb-config missing from the run PATH: want *job.ConfigError, got %v", err)
	}
}
