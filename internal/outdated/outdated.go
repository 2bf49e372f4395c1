package outdated

import (
	"io/fs"
	"os"
)

// Checker decides whether a build artifact must be regenerated.
type Checker struct {
	// Force makes every artifact outdated.
	Force bool

	// Stat defaults to os.Stat.
	Stat func(name string) (fs.FileInfo, error)
}

func (c Checker) stat(name string) (fs.FileInfo, error) {
	if c.Stat != nil {
		return c.Stat(name)
	}
	return os.Stat(name)
}

// Outdated reports whether output is missing or older than the newest of
// deps. An empty dependency list is never outdated, and a dependency that
// cannot be stat'ed counts as outdated.
func (c Checker) Outdated(output string, deps []string) bool {
	if c.Force {
		return true
	}

	out, err := c.stat(output)
	if err != nil {
		return true
	}
	if len(deps) == 0 {
		return false
	}

	outTime := out.ModTime()
	for _, dep := range deps {
		info, err := c.stat(dep)
		if err != nil {
			return true
		}
		if info.ModTime().After(outTime) {
			return true
		}
	}
	return false
}

// OutdatedGroups reports whether output is outdated with respect to any of
// the dependency groups.
func (c Checker) OutdatedGroups(output string, groups [][]string) bool {
	if c.Force {
		return true
	}
	if _, err := c.stat(output); err != nil {
		return true
	}
	for _, deps := range groups {
		if c.Outdated(output, deps) {
			return true
		}
	}
	return false
}
