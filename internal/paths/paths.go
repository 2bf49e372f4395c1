package paths

import (
	"os"
	"os/exec"
	"path/filepath"
)

// Resolve returns p as a cleaned absolute path. Relative paths are joined
// to base first. Resolving an already resolved path returns it unchanged.
func Resolve(base, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// ResolveAll resolves every path in ps against base, preserving order.
func ResolveAll(base string, ps []string) []string {
	if len(ps) == 0 {
		return nil
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = Resolve(base, p)
	}
	return out
}

// LookPath searches the directories of searchPath, a PATH-style list, for
// an executable file. Unlike exec.LookPath it does not consult the PATH of
// the current process.
func LookPath(file, searchPath string) (string, error) {
	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() && info.Mode()&0111 != 0 {
			return candidate, nil
		}
	}
	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}
