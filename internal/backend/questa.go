package backend

import (
	"cocotbtest/internal/job"
	"cocotbtest/internal/tcl"
)

// questa drives Questa and ModelSim, which share their command line.
type questa struct {
	base
	name string
}

func newQuesta(name string) func(b base) (Backend, error) {
	return func(b base) (Backend, error) {
		return &questa{base: b, name: name}, nil
	}
}

func (s *questa) Name() string { return s.name }

func (s *questa) IncludeFlags(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, "+incdir+"+tcl.Escape(d))
	}
	return out
}

func (s *questa) DefineFlags(defines []string) []string {
	out := make([]string, 0, len(defines))
	for _, d := range defines {
		out = append(out, "+define+"+tcl.Escape(d))
	}
	return out
}

func (s *questa) ParameterFlags(params []job.Parameter) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, "-g"+p.Name+"="+tcl.Escape(p.Value))
	}
	return out
}

// Compile creates one work library per source library. vlog runs
// incrementally unless a rebuild is forced.
func (s *questa) Compile(p *Plan) error {
	j := s.job

	if !j.VHDLSources.Empty() {
		compileArgs := concat(j.CompileArguments(), j.VHDLCompileArgs)
		for _, lib := range j.VHDLSources {
			p.Add(StageCompile, "vlib", tcl.Escape(lib.Name))
			args := []string{"vcom", "-mixedsvvh", "-work", tcl.Escape(lib.Name)}
			args = append(args, compileArgs...)
			args = append(args, tcl.EscapeAll(lib.Files)...)
			p.Add(StageCompile, args...)
		}
	}

	if !j.VerilogSources.Empty() {
		compileArgs := concat(j.CompileArguments(), j.VerilogCompileArgs)
		if j.Timescale != "" {
			compileArgs = append(compileArgs, "-timescale", j.Timescale)
		}
		for _, lib := range j.VerilogSources {
			p.Add(StageCompile, "vlib", tcl.Escape(lib.Name))
			args := []string{"vlog", "-mixedsvvh"}
			if !j.ForceCompile {
				args = append(args, "-incr")
			}
			args = append(args, "-work", tcl.Escape(lib.Name), "+define+COCOTB_SIM", "-sv")
			args = append(args, s.DefineFlags(j.Defines)...)
			args = append(args, s.IncludeFlags(j.Includes)...)
			args = append(args, compileArgs...)
			args = append(args, tcl.EscapeAll(lib.Files)...)
			p.Add(StageCompile, args...)
		}
	}
	return nil
}

func (s *questa) doScript() *tcl.Script {
	var do tcl.Script
	if s.job.Waves {
		do.Command("log", "-recursive", "/*")
	}
	if !s.job.GUI {
		do.Command("run", "-all").Command("quit")
	}
	return &do
}

func (s *questa) Run(p *Plan) error {
	j := s.job
	args := []string{"vsim"}
	if j.GUI {
		args = append(args, "-gui", "-onfinish", "stop")
	} else {
		args = append(args, "-c", "-onfinish", "exit")
	}

	if j.ToplevelLang == job.LangVHDL {
		args = append(args, "-foreign", "cocotb_init "+tcl.Escape(s.tc.LibPath("fli", "questa")))
		if !j.VerilogSources.Empty() {
			p.SetEnv("GPI_EXTRA", s.tc.LibPath("vpi", "questa")+":cocotbvpi_entry_point")
		}
	} else {
		args = append(args, "-pli", tcl.Escape(s.tc.LibPath("vpi", "questa")))
		if !j.VHDLSources.Empty() {
			p.SetEnv("GPI_EXTRA", s.tc.LibPath("fli", "questa")+":cocotbfli_entry_point")
		}
	}

	args = append(args, j.SimArguments()...)
	args = append(args, s.ParameterFlags(j.Parameters)...)
	args = append(args, tcl.EscapeAll(j.Toplevels)...)
	if j.ToplevelLang != job.LangVHDL {
		args = append(args, tcl.EscapeAll(j.PlusArgs)...)
	}
	if do := s.doScript(); do.Len() > 0 {
		args = append(args, "-do", do.Inline())
	}
	p.Add(StageRun, args...)
	return nil
}
