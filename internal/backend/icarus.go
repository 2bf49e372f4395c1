package backend

import (
	"fmt"
	"path/filepath"

	"cocotbtest/internal/job"
)

const icarusDumpModule = "iverilog_dump"

type icarus struct {
	base
	simFile string
}

func newIcarus(b base) (Backend, error) {
	return &icarus{
		base:    b,
		simFile: filepath.Join(b.job.SimBuild, b.job.ToplevelModule()+".vvp"),
	}, nil
}

func (s *icarus) Name() string { return "icarus" }

func (s *icarus) IncludeFlags(dirs []string) []string { return prefixEach("-I", dirs) }

func (s *icarus) DefineFlags(defines []string) []string { return prefixEach("-D", defines) }

func (s *icarus) ParameterFlags(params []job.Parameter) []string {
	top := s.job.ToplevelModule()
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, fmt.Sprintf("-P%s.%s=%s", top, p.Name, p.Value))
	}
	return out
}

func (s *icarus) Compile(p *Plan) error {
	j := s.job
	sources := j.VerilogSources.Flat()
	compileArgs := j.CompileArguments()

	if j.Waves {
		dumpFile := filepath.Join(j.SimBuild, icarusDumpModule+".v")
		p.AddFileIfMissing(dumpFile, icarusDump(j.ToplevelModule()))
		sources = append(sources, dumpFile)
		compileArgs = append(compileArgs, "-s", icarusDumpModule)
	}

	if j.Timescale != "" {
		cmdFile := filepath.Join(j.SimBuild, "timescale.f")
		p.AddFile(cmdFile, "+timescale+"+j.Timescale+"\n")
		compileArgs = append(compileArgs, "-f", cmdFile)
	}

	if !s.check.Outdated(s.simFile, sources) {
		p.Skip(s.simFile)
		return nil
	}

	args := []string{"iverilog", "-o", s.simFile, "-D", "COCOTB_SIM=1", "-g2012"}
	args = append(args, pairEach("-s", j.ToplevelModules())...)
	args = append(args, s.DefineFlags(j.Defines)...)
	args = append(args, s.IncludeFlags(j.Includes)...)
	args = append(args, s.ParameterFlags(j.Parameters)...)
	args = append(args, compileArgs...)
	args = append(args, j.VerilogCompileArgs...)
	args = append(args, sources...)
	p.Add(StageCompile, args...)
	return nil
}

func (s *icarus) Run(p *Plan) error {
	j := s.job
	args := []string{"vvp", "-M", s.tc.LibDir, "-m", s.tc.LibName("vpi", "icarus")}
	args = append(args, j.SimArguments()...)
	args = append(args, s.simFile)
	args = append(args, j.PlusArgs...)
	if j.Waves {
		args = append(args, "-fst")
	}
	p.Add(StageRun, args...)
	return nil
}

func icarusDump(top string) string {
	return "module " + icarusDumpModule + "();\n" +
		"initial begin\n" +
		fmt.Sprintf("    $dumpfile(%q);\n", top+".fst") +
		fmt.Sprintf("    $dumpvars(0, %s);\n", top) +
		"end\n" +
		"endmodule\n"
}
