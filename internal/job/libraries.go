package job

import "cocotbtest/internal/paths"

// Library is a named group of HDL source files compiled together.
type Library struct {
	Name  string
	Files []string
}

// Libraries is an ordered set of libraries. Order is compilation order.
type Libraries []Library

// Empty reports whether there are no source files at all.
func (l Libraries) Empty() bool {
	for _, lib := range l {
		if len(lib.Files) > 0 {
			return false
		}
	}
	return true
}

// Flat returns every file of every library in order.
func (l Libraries) Flat() []string {
	var out []string
	for _, lib := range l {
		out = append(out, lib.Files...)
	}
	return out
}

// Groups returns the file list of each library, for outdated checks.
func (l Libraries) Groups() [][]string {
	out := make([][]string, 0, len(l))
	for _, lib := range l {
		out = append(out, lib.Files)
	}
	return out
}

// Names returns the library names in order.
func (l Libraries) Names() []string {
	out := make([]string, 0, len(l))
	for _, lib := range l {
		out = append(out, lib.Name)
	}
	return out
}

func (l Libraries) resolve(base string) Libraries {
	if len(l) == 0 {
		return nil
	}
	out := make(Libraries, len(l))
	for i, lib := range l {
		out[i] = Library{Name: lib.Name, Files: paths.ResolveAll(base, lib.Files)}
	}
	return out
}

// Sources is the raw form of a source set: either a flat file list or
// named libraries.
type Sources struct {
	Files     []string
	Libraries Libraries
}

// FlatSources creates a flat source set.
func FlatSources(files ...string) Sources {
	return Sources{Files: files}
}

// LibrarySources creates a source set from named libraries.
func LibrarySources(libs ...Library) Sources {
	return Sources{Libraries: libs}
}

// partition turns the source set into libraries. A flat list becomes a
// single library called defaultLib.
func (s Sources) partition(defaultLib string) Libraries {
	if len(s.Libraries) > 0 {
		out := make(Libraries, len(s.Libraries))
		for i, lib := range s.Libraries {
			out[i] = Library{Name: lib.Name, Files: append([]string(nil), lib.Files...)}
		}
		return out
	}
	if len(s.Files) == 0 {
		return nil
	}
	return Libraries{{Name: defaultLib, Files: append([]string(nil), s.Files...)}}
}
