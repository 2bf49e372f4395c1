// Package clean removes simulation build directories.
package clean

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cocotbtest/internal/job"
	"cocotbtest/internal/logging"
)

// Options selects what Clean removes.
type Options struct {
	// Name is the build directory name. Defaults to job.DefaultSimBuild.
	Name string

	// Recursive also removes build directories below dir.
	Recursive bool

	// DryRun only reports what would be removed.
	DryRun bool
}

// Clean removes the build directory in dir, and with Recursive every build
// directory below it. It returns the removed directories in walk order.
func Clean(dir string, opts Options, logger *logging.Logger) ([]string, error) {
	name := opts.Name
	if name == "" {
		name = job.DefaultSimBuild
	}

	var removed []string
	remove := func(path string) error {
		logger.Infof("Removing: %s", path)
		removed = append(removed, path)
		if opts.DryRun {
			return nil
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
		return nil
	}

	if !opts.Recursive {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, nil
		}
		return removed, remove(path)
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories removed or unreadable mid-walk are not fatal.
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() || d.Name() != name || path == dir {
			return nil
		}
		if err := remove(path); err != nil {
			return err
		}
		return fs.SkipDir
	})
	return removed, err
}
