package environ

import (
	"os"
	"sort"
	"strings"
)

// Env is an immutable set of environment variables. Every modifying method
// returns a new Env and leaves the receiver untouched.
type Env struct {
	vars map[string]string
}

// Parse converts an environ slice (["KEY=VALUE", ...]) into an Env.
// Entries without "=" are skipped; values may contain "=".
func Parse(environ []string) Env {
	vars := make(map[string]string, len(environ))
	for _, entry := range environ {
		idx := strings.Index(entry, "=")
		if idx <= 0 {
			continue
		}
		vars[entry[:idx]] = entry[idx+1:]
	}
	return Env{vars: vars}
}

// Get returns the value of key and whether it is set.
func (e Env) Get(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Value returns the value of key, or "" when unset.
func (e Env) Value(key string) string {
	return e.vars[key]
}

// Len returns the number of variables.
func (e Env) Len() int {
	return len(e.vars)
}

func (e Env) copyVars(extra int) map[string]string {
	vars := make(map[string]string, len(e.vars)+extra)
	for k, v := range e.vars {
		vars[k] = v
	}
	return vars
}

// With returns a copy of e with key set to value.
func (e Env) With(key, value string) Env {
	vars := e.copyVars(1)
	vars[key] = value
	return Env{vars: vars}
}

// WithAll returns a copy of e with every entry of m set.
func (e Env) WithAll(m map[string]string) Env {
	vars := e.copyVars(len(m))
	for k, v := range m {
		vars[k] = v
	}
	return Env{vars: vars}
}

// AppendList returns a copy of e where each entry of values is appended to
// the list variable key, separated by os.PathListSeparator. Entries already
// in the list are not added again.
func (e Env) AppendList(key string, values ...string) Env {
	sep := string(os.PathListSeparator)
	var parts []string
	if cur := e.vars[key]; cur != "" {
		parts = strings.Split(cur, sep)
	}
	present := make(map[string]bool, len(parts))
	for _, p := range parts {
		present[p] = true
	}
	for _, v := range values {
		if v == "" || present[v] {
			continue
		}
		parts = append(parts, v)
		present[v] = true
	}
	return e.With(key, strings.Join(parts, sep))
}

// Slice returns the variables as sorted "KEY=VALUE" entries.
func (e Env) Slice() []string {
	out := make([]string, 0, len(e.vars))
	for k, v := range e.vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
