package backend

import (
	"path/filepath"

	"cocotbtest/internal/job"
	"cocotbtest/internal/tcl"
)

// aldecFlavor captures the differences between Riviera-PRO and Active-HDL.
type aldecFlavor struct {
	name string

	// externalLibraries maps extra libraries with alib.
	externalLibraries bool

	// worklib selects the library with "set worklib" and elaborates the
	// bare VHDL toplevel instead of lib.top.
	worklib bool

	// alwaysRun ends the script with run/exit even in GUI mode.
	alwaysRun bool

	// doDirective passes "do" before the script path.
	doDirective bool

	guiCommand string
}

var (
	rivieraFlavor = aldecFlavor{
		name:              "riviera",
		externalLibraries: true,
		doDirective:       true,
		guiCommand:        "riviera",
	}
	activeHDLFlavor = aldecFlavor{
		name:       "activehdl",
		worklib:    true,
		alwaysRun:  true,
		guiCommand: "vsimsa",
	}
)

// aldec compiles, elaborates and runs through one generated do-script
// executed by vsimsa. All designs go into a library named after the
// toplevel module.
type aldec struct {
	base
	flavor  aldecFlavor
	library string
	outFile string
	script  tcl.Script
}

func newAldec(flavor aldecFlavor) func(b base) (Backend, error) {
	return func(b base) (Backend, error) {
		lib := b.job.ToplevelModule()
		s := &aldec{
			base:    b,
			flavor:  flavor,
			library: lib,
			outFile: filepath.Join(b.job.WorkDir, lib, lib+".lib"),
		}
		s.script.Raw("onerror {\n quit -code 1 \n}")
		return s, nil
	}
}

func (s *aldec) Name() string { return s.flavor.name }

// Flags are returned unescaped; the script builder escapes every word.
func (s *aldec) IncludeFlags(dirs []string) []string { return prefixEach("+incdir+", dirs) }

func (s *aldec) DefineFlags(defines []string) []string { return prefixEach("+define+", defines) }

func (s *aldec) ParameterFlags(params []job.Parameter) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, "-g"+p.Name+"="+p.Value)
	}
	return out
}

func (s *aldec) Compile(p *Plan) error {
	j := s.job
	if !s.check.Outdated(s.outFile, j.SourceFiles()) {
		p.Skip(s.outFile)
		return nil
	}

	s.script.Command("alib", s.library)
	if s.flavor.externalLibraries {
		for _, lib := range j.ExternalLibraries {
			s.script.Command("alib", lib)
		}
	}

	if !j.VHDLSources.Empty() {
		words := []string{"acom", "-work", s.library}
		words = append(words, j.CompileArguments()...)
		words = append(words, j.VHDLCompileArgs...)
		words = append(words, j.VHDLSources.Flat()...)
		s.script.Command(words...)
	}

	if !j.VerilogSources.Empty() {
		words := []string{"alog", "-work", s.library, "+define+COCOTB_SIM", "-sv"}
		words = append(words, s.DefineFlags(j.Defines)...)
		words = append(words, s.IncludeFlags(j.Includes)...)
		words = append(words, j.CompileArguments()...)
		words = append(words, j.VerilogCompileArgs...)
		words = append(words, j.VerilogSources.Flat()...)
		s.script.Command(words...)
	}
	return nil
}

func (s *aldec) Run(p *Plan) error {
	j := s.job
	name := s.flavor.name
	simArgs := concat(j.SimArguments(), s.ParameterFlags(j.Parameters))
	words := []string{"asim", "+access", "+w", "-interceptcoutput", "-O2"}

	if j.ToplevelLang == job.LangVHDL {
		top := s.library + "." + j.ToplevelModule()
		if s.flavor.worklib {
			s.script.Command("set", "worklib", s.library)
			top = j.ToplevelModule()
		}
		words = append(words, "-loadvhpi", s.tc.LibPath("vhpi", name)+":vhpi_startup_routines_bootstrap")
		words = append(words, simArgs...)
		words = append(words, top)
		if !j.VerilogSources.Empty() {
			p.SetEnv("GPI_EXTRA", s.tc.LibPath("vpi", name)+":cocotbvpi_entry_point")
		}
	} else {
		words = append(words, "-pli", s.tc.LibPath("vpi", name))
		words = append(words, simArgs...)
		words = append(words, s.library+"."+j.ToplevelModule())
		words = append(words, j.PlusArgs...)
		if !j.VHDLSources.Empty() {
			p.SetEnv("GPI_EXTRA", s.tc.LibPath("vhpi", name)+":cocotbvhpi_entry_point")
		}
	}
	s.script.Command(words...)

	if j.Waves {
		s.script.Command("trace", "-recursive", "/*")
	}
	if !j.GUI || s.flavor.alwaysRun {
		s.script.Command("run", "-all")
		s.script.Command("exit")
	}
	return nil
}

// Finish writes the do-script and emits the single command running it.
func (s *aldec) Finish(p *Plan) error {
	if s.script.Len() <= 1 {
		return nil
	}
	j := s.job
	doFile := filepath.Join(j.SimBuild, s.flavor.name+".do")
	p.AddFile(doFile, s.script.String())

	command := "vsimsa"
	if j.GUI {
		command = s.flavor.guiCommand
	}
	args := []string{command, "-do"}
	if s.flavor.doDirective {
		args = append(args, "do")
	}
	args = append(args, doFile)

	stage := StageRun
	if j.CompileOnly {
		stage = StageCompile
	}
	p.Add(stage, args...)
	return nil
}
