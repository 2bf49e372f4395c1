package backend

import (
	"fmt"
	"path/filepath"

	"cocotbtest/internal/job"
)

const vcsPLITable = "acc+=rw,wn:*"

type vcs struct {
	base
	simv string
}

func newVcs(b base) (Backend, error) {
	return &vcs{base: b, simv: filepath.Join(b.job.SimBuild, "simv")}, nil
}

func (s *vcs) Name() string { return "vcs" }

func (s *vcs) IncludeFlags(dirs []string) []string { return prefixEach("+incdir+", dirs) }

func (s *vcs) DefineFlags(defines []string) []string { return prefixEach("+define+", defines) }

func (s *vcs) ParameterFlags(params []job.Parameter) []string {
	top := s.job.ToplevelModule()
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, fmt.Sprintf("-pvalue+%s/%s=%s", top, p.Name, p.Value))
	}
	return out
}

func (s *vcs) Compile(p *Plan) error {
	j := s.job
	pliTab := filepath.Join(j.SimBuild, "pli.tab")
	p.AddFile(pliTab, vcsPLITable)

	sources := j.VerilogSources.Flat()
	if !s.check.Outdated(s.simv, sources) {
		p.Skip(s.simv)
		return nil
	}

	compileArgs := concat(j.CompileArguments(), j.VerilogCompileArgs)
	debugAccess := "-debug_access"
	if j.Waves {
		debugAccess += "+all+dmptf"
		compileArgs = append(compileArgs, "-kdb", "-debug_region+cell")
	}

	timescale := j.Timescale
	if timescale == "" {
		timescale = "1ns/1ps"
	}

	args := []string{
		"vcs", "-full64", "-sverilog", debugAccess,
		"-P", pliTab,
		"+define+COCOTB_SIM=1",
		"-load", s.tc.LibPath("vpi", "vcs"),
		"-top", j.ToplevelModule(),
	}
	args = append(args, s.DefineFlags(j.Defines)...)
	args = append(args, s.IncludeFlags(j.Includes)...)
	args = append(args, s.ParameterFlags(j.Parameters)...)
	args = append(args, compileArgs...)
	args = append(args, sources...)
	args = append(args, "-o", s.simv, "-timescale="+timescale)
	p.Add(StageCompile, args...)
	return nil
}

func (s *vcs) Run(p *Plan) error {
	j := s.job
	args := []string{s.simv, "+define+COCOTB_SIM=1"}
	args = append(args, j.SimArguments()...)
	if j.Waves {
		ucli := filepath.Join(j.SimBuild, "simv_ucli.do")
		p.AddFile(ucli, fmt.Sprintf("fsdbDumpfile %s.fsdb; fsdbDumpvars 0 %s; run; quit;", s.simv, j.ToplevelModule()))
		args = append(args, "+fsdb+all=on", "-ucli", "-do", ucli)
	}
	if j.GUI {
		args = append(args, "-gui")
	}
	args = append(args, j.PlusArgs...)
	p.Add(StageRun, args...)
	return nil
}
