package job

import "strings"

// ModuleOf returns the module part of a toplevel: the name after the last dot.
func ModuleOf(toplevel string) string {
	if i := strings.LastIndex(toplevel, "."); i >= 0 {
		return toplevel[i+1:]
	}
	return toplevel
}

// LibraryOf returns the library part of a qualified toplevel: the name
// before the first dot. Unqualified toplevels have no library.
func LibraryOf(toplevel string) string {
	if i := strings.Index(toplevel, "."); i >= 0 {
		return toplevel[:i]
	}
	return ""
}

// Qualify prefixes an unqualified toplevel with lib. Qualified toplevels are
// returned unchanged.
func Qualify(toplevel, lib string) string {
	if strings.Contains(toplevel, ".") {
		return toplevel
	}
	return lib + "." + toplevel
}

// QualifyAll qualifies every toplevel with the module of the first one.
func QualifyAll(toplevels []string) []string {
	if len(toplevels) == 0 {
		return nil
	}
	first := ModuleOf(toplevels[0])
	out := make([]string, len(toplevels))
	for i, top := range toplevels {
		out[i] = Qualify(top, first)
	}
	return out
}
