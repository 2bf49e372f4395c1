package backend

import (
	"path/filepath"

	"cocotbtest/internal/job"
)

// cadence drives Incisive (irun) and Xcelium (xrun), which compile and
// elaborate in one invocation and run the snapshot with -R.
type cadence struct {
	base
	name    string
	tool    string
	outFile string
}

func newCadence(name, tool string) func(b base) (Backend, error) {
	return func(b base) (Backend, error) {
		j := b.job
		if len(j.VerilogCompileArgs) > 0 || len(j.VHDLCompileArgs) > 0 {
			return nil, job.NewConfigError("compile_args", name+" does not allow HDL specific compile arguments", "")
		}
		return &cadence{
			base:    b,
			name:    name,
			tool:    tool,
			outFile: filepath.Join(j.SimBuild, "INCA_libs", "history"),
		}, nil
	}
}

func (s *cadence) Name() string { return s.name }

func (s *cadence) IncludeFlags(dirs []string) []string { return pairEach("-incdir", dirs) }

func (s *cadence) DefineFlags(defines []string) []string { return pairEach("-define", defines) }

func (s *cadence) ParameterFlags(params []job.Parameter) []string {
	top := s.job.ToplevelModule()
	out := make([]string, 0, 2*len(params))
	for _, p := range params {
		if s.job.ToplevelLang == job.LangVHDL {
			out = append(out, "-generic", `"`+top+"."+p.Name+"=>"+p.Value+`"`)
		} else {
			out = append(out, "-defparam", `"`+top+"."+p.Name+"="+p.Value+`"`)
		}
	}
	return out
}

func (s *cadence) Compile(p *Plan) error {
	j := s.job
	p.SetEnv("GPI_EXTRA", s.tc.LibPath("vhpi", s.name)+":cocotbvhpi_entry_point")

	sources := j.SourceFiles()
	if !s.check.Outdated(s.outFile, sources) {
		p.Skip(s.outFile)
		return nil
	}

	args := []string{
		s.tool, "-64", "-elaborate",
		"-define", "COCOTB_SIM=1",
		"-loadvpi", s.tc.LibPath("vpi", s.name) + ":vlog_startup_routines_bootstrap",
		"-plinowarn",
		"-access", "+rwc",
		"-top", j.ToplevelModule(),
	}
	args = append(args, s.DefineFlags(j.Defines)...)
	args = append(args, s.IncludeFlags(j.Includes)...)
	args = append(args, s.ParameterFlags(j.Parameters)...)
	args = append(args, j.CompileArguments()...)
	args = append(args, sources...)
	if j.Timescale != "" {
		args = append(args, "-timescale", j.Timescale)
	}
	p.Add(StageCompile, args...)
	return nil
}

func (s *cadence) Run(p *Plan) error {
	j := s.job
	args := []string{s.tool, "-64", "-R"}
	if j.GUI {
		args = append(args, "-gui")
	}
	args = append(args, j.SimArguments()...)
	args = append(args, s.ParameterFlags(j.Parameters)...)
	args = append(args, j.PlusArgs...)
	p.Add(StageRun, args...)
	return nil
}
