package jobfile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cocotbtest/internal/job"
)

// decoder turns a schema-checked document into a job.Spec. Values that slip
// through the schema with an unexpected shape are collected as problems.
type decoder struct {
	doc   map[string]any
	order keyOrder
	errs  []job.ValidationError
}

func decode(doc map[string]any, order keyOrder) (*File, error) {
	d := &decoder{doc: doc, order: order}

	f := &File{
		Simulator: d.str("simulator"),
		Spec: job.Spec{
			Toplevel:     d.list("toplevel"),
			Module:       strings.Join(d.list("module"), ","),
			ToplevelLang: job.Lang(d.str("toplevel_lang")),

			VerilogSources: d.sources("verilog_sources"),
			VHDLSources:    d.sources("vhdl_sources"),

			Includes:   d.strings("includes"),
			Defines:    d.strings("defines"),
			Parameters: d.parameters("parameters"),

			CompileArgs:        d.args("compile_args"),
			VerilogCompileArgs: d.args("verilog_compile_args"),
			VHDLCompileArgs:    d.args("vhdl_compile_args"),
			SimArgs:            d.args("sim_args"),
			ExtraArgs:          d.args("extra_args"),
			PlusArgs:           d.args("plus_args"),
			MakeArgs:           d.args("make_args"),

			ExternalLibraries: d.strings("external_libraries"),
			PythonSearch:      d.strings("python_search"),

			Waves:        d.optBool("waves"),
			GUI:          d.boolean("gui"),
			ForceCompile: d.boolean("force_compile"),
			CompileOnly:  d.boolean("compile_only"),

			Timescale: d.str("timescale"),
			Seed:      d.seed("seed"),
			Testcase:  strings.Join(d.list("testcase"), ","),
			ExtraEnv:  d.env("extra_env"),

			SimBuild: d.str("sim_build"),
			WorkDir:  d.str("work_dir"),
			Timeout:  d.timeout("timeout"),
		},
	}

	if len(d.errs) > 0 {
		return nil, &job.ConfigError{Errors: d.errs}
	}
	return f, nil
}

func (d *decoder) fail(field, message string, value any) {
	d.errs = append(d.errs, job.ValidationError{Field: field, Message: message, Value: fmt.Sprint(value)})
}

func (d *decoder) str(field string) string {
	v, ok := d.doc[field]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(field, "must be a string", v)
	}
	return s
}

func (d *decoder) boolean(field string) bool {
	b := d.optBool(field)
	return b != nil && *b
}

func (d *decoder) optBool(field string) *bool {
	v, ok := d.doc[field]
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		d.fail(field, "must be a boolean", v)
		return nil
	}
	return &b
}

// list accepts a single string or a list of strings.
func (d *decoder) list(field string) []string {
	v, ok := d.doc[field]
	if !ok {
		return nil
	}
	if s, ok := v.(string); ok {
		return []string{s}
	}
	return d.stringSlice(field, v)
}

// args accepts a list of arguments or one whitespace separated string.
func (d *decoder) args(field string) []string {
	v, ok := d.doc[field]
	if !ok {
		return nil
	}
	if s, ok := v.(string); ok {
		return strings.Fields(s)
	}
	return d.stringSlice(field, v)
}

func (d *decoder) strings(field string) []string {
	v, ok := d.doc[field]
	if !ok {
		return nil
	}
	return d.stringSlice(field, v)
}

func (d *decoder) stringSlice(field string, v any) []string {
	items, ok := v.([]any)
	if !ok {
		d.fail(field, "must be a list of strings", v)
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			d.fail(field, "must be a list of strings", item)
			continue
		}
		out = append(out, s)
	}
	return out
}

// sources accepts a flat file list, a list of {name, files} tables or a
// mapping of library name to files.
func (d *decoder) sources(field string) job.Sources {
	v, ok := d.doc[field]
	if !ok {
		return job.Sources{}
	}

	switch t := v.(type) {
	case map[string]any:
		var libs []job.Library
		for _, name := range d.order(field) {
			libs = append(libs, job.Library{Name: name, Files: d.stringSlice(field+"."+name, t[name])})
		}
		return job.LibrarySources(libs...)
	case []any:
		if len(t) > 0 {
			if _, isTable := t[0].(map[string]any); isTable {
				return job.LibrarySources(d.libraryTables(field, t)...)
			}
		}
		return job.FlatSources(d.stringSlice(field, t)...)
	}
	d.fail(field, "must be a list of files or a mapping of libraries", v)
	return job.Sources{}
}

func (d *decoder) libraryTables(field string, items []any) []job.Library {
	libs := make([]job.Library, 0, len(items))
	for i, item := range items {
		table, ok := item.(map[string]any)
		if !ok {
			d.fail(fmt.Sprintf("%s[%d]", field, i), "must be a library table", item)
			continue
		}
		name, _ := table["name"].(string)
		libs = append(libs, job.Library{
			Name:  name,
			Files: d.stringSlice(fmt.Sprintf("%s[%d].files", field, i), orEmpty(table["files"])),
		})
	}
	return libs
}

func orEmpty(v any) any {
	if v == nil {
		return []any{}
	}
	return v
}

func (d *decoder) parameters(field string) []job.Parameter {
	m, ok := d.doc[field].(map[string]any)
	if !ok {
		return nil
	}
	out := make([]job.Parameter, 0, len(m))
	for _, name := range d.order(field) {
		out = append(out, job.Parameter{Name: name, Value: scalar(m[name])})
	}
	return out
}

func (d *decoder) env(field string) map[string]string {
	m, ok := d.doc[field].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = scalar(v)
	}
	return out
}

func (d *decoder) seed(field string) *int64 {
	v, ok := d.doc[field]
	if !ok {
		return nil
	}
	n, ok := integer(v)
	if !ok {
		d.fail(field, "must be an integer", v)
		return nil
	}
	return &n
}

func (d *decoder) timeout(field string) time.Duration {
	v, ok := d.doc[field]
	if !ok {
		return 0
	}
	if s, ok := v.(string); ok {
		dur, err := time.ParseDuration(s)
		if err != nil {
			d.fail(field, "invalid duration", s)
		}
		return dur
	}
	n, ok := integer(v)
	if !ok {
		d.fail(field, "must be a duration or a number of seconds", v)
		return 0
	}
	return time.Duration(n) * time.Second
}

// integer accepts the integer types produced by the YAML and TOML decoders.
func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

// scalar renders a parameter or environment value as a string.
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
