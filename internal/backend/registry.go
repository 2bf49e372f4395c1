package backend

import (
	"sort"

	"cocotbtest/internal/job"
	"cocotbtest/internal/toolchain"
)

// Descriptor describes one supported backend.
type Descriptor struct {
	Name string

	// VHDL and Verilog report which source languages the backend accepts.
	Verilog bool
	VHDL    bool

	// MultiToplevel backends accept more than one toplevel.
	MultiToplevel bool

	// ReportsMissingSources is false for simulators known to ignore a
	// missing source file; callers check file existence themselves.
	ReportsMissingSources bool

	new func(b base) (Backend, error)
}

var registry = map[string]Descriptor{
	"icarus":    {Verilog: true, MultiToplevel: true, ReportsMissingSources: true, new: newIcarus},
	"questa":    {Verilog: true, VHDL: true, MultiToplevel: true, ReportsMissingSources: true, new: newQuesta("questa")},
	"modelsim":  {Verilog: true, VHDL: true, MultiToplevel: true, ReportsMissingSources: true, new: newQuesta("modelsim")},
	"ius":       {Verilog: true, VHDL: true, ReportsMissingSources: true, new: newCadence("ius", "irun")},
	"xcelium":   {Verilog: true, VHDL: true, ReportsMissingSources: true, new: newCadence("xcelium", "xrun")},
	"vcs":       {Verilog: true, ReportsMissingSources: true, new: newVcs},
	"ghdl":      {VHDL: true, ReportsMissingSources: true, new: newGhdl},
	"nvc":       {VHDL: true, ReportsMissingSources: true, new: newNvc},
	"riviera":   {Verilog: true, VHDL: true, new: newAldec(rivieraFlavor)},
	"activehdl": {Verilog: true, VHDL: true, new: newAldec(activeHDLFlavor)},
	"verilator": {Verilog: true, ReportsMissingSources: true, new: newVerilator},
}

// Supported returns the names of all backends, sorted.
func Supported() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the descriptor of a backend.
func Lookup(name string) (Descriptor, bool) {
	d, ok := registry[name]
	if ok {
		d.Name = name
	}
	return d, ok
}

// New creates the backend called name for j. Unknown names and jobs the
// backend cannot handle are reported as *job.ConfigError.
func New(name string, j *job.Job, tc toolchain.Toolchain, opts Options) (Backend, error) {
	d, ok := Lookup(name)
	if !ok {
		return nil, &job.ConfigError{Errors: []job.ValidationError{{
			Field:   "simulator",
			Message: "unsupported backend",
			Value:   name,
			Allowed: Supported(),
		}}}
	}

	var errs []job.ValidationError
	if !d.Verilog && !j.VerilogSources.Empty() {
		errs = append(errs, job.ValidationError{Field: "verilog_sources", Message: name + " does not support Verilog"})
	}
	if !d.VHDL && !j.VHDLSources.Empty() {
		errs = append(errs, job.ValidationError{Field: "vhdl_sources", Message: name + " does not support VHDL"})
	}
	if !d.MultiToplevel && len(j.Toplevels) > 1 {
		errs = append(errs, job.ValidationError{Field: "toplevel", Message: name + " supports a single toplevel"})
	}
	if len(errs) > 0 {
		return nil, &job.ConfigError{Errors: errs}
	}

	return d.new(newBase(j, tc, opts))
}
