package backend

import (
	"fmt"
	"path/filepath"

	"cocotbtest/internal/job"
)

type verilator struct {
	base
	exe      string
	outFile  string
	compiled bool
}

func newVerilator(b base) (Backend, error) {
	exe, err := b.requireTool("verilator", "Verilator")
	if err != nil {
		return nil, err
	}
	if b.tc.ShareDir == "" {
		return nil, job.NewConfigError("toolchain", "cocotb share directory unknown; set COCOTB_SHARE_DIR", "")
	}
	return &verilator{
		base:    b,
		exe:     exe,
		outFile: filepath.Join(b.job.SimBuild, b.job.ToplevelModule()),
	}, nil
}

func (s *verilator) Name() string { return "verilator" }

func (s *verilator) IncludeFlags(dirs []string) []string { return prefixEach("-I", dirs) }

func (s *verilator) DefineFlags(defines []string) []string { return prefixEach("-D", defines) }

func (s *verilator) ParameterFlags(params []job.Parameter) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, "-G"+p.Name+"="+p.Value)
	}
	return out
}

// Compile verilates the design into C++ under the build directory.
func (s *verilator) Compile(p *Plan) error {
	j := s.job
	sources := j.VerilogSources.Flat()
	if !s.check.Outdated(s.outFile, sources) {
		p.Skip(s.outFile)
		return nil
	}

	compileArgs := concat(j.CompileArguments(), j.VerilogCompileArgs)
	if j.Waves {
		compileArgs = append(compileArgs, "--trace-fst", "--trace-structs")
	}
	if j.Timescale != "" {
		compileArgs = append(compileArgs, "--timescale", j.Timescale)
	}

	lib := s.tc.LibDir
	args := []string{
		"perl", s.exe,
		"-cc", "--exe",
		"-Mdir", j.SimBuild,
		"-DCOCOTB_SIM=1",
		"--top-module", j.ToplevelModule(),
		"--vpi", "--public-flat-rw",
		"--prefix", "Vtop",
		"-o", j.ToplevelModule(),
		"-LDFLAGS", fmt.Sprintf("-Wl,-rpath,%s -L%s -l%s", lib, lib, s.tc.LibName("vpi", "verilator")),
	}
	args = append(args, compileArgs...)
	args = append(args, s.DefineFlags(j.Defines)...)
	args = append(args, s.IncludeFlags(j.Includes)...)
	args = append(args, s.ParameterFlags(j.Parameters)...)
	args = append(args, filepath.Join(s.tc.ShareDir, "lib", "verilator", "verilator.cpp"))
	args = append(args, sources...)
	p.Add(StageCompile, args...)
	s.compiled = true
	return nil
}

// Elaborate builds the verilated model with the generated makefile.
func (s *verilator) Elaborate(p *Plan) error {
	if !s.compiled {
		return nil
	}
	args := []string{"make", "-C", s.job.SimBuild, "-f", "Vtop.mk"}
	args = append(args, s.job.MakeArgs...)
	p.Add(StageElaborate, args...)
	return nil
}

func (s *verilator) Run(p *Plan) error {
	args := []string{s.outFile}
	args = append(args, s.job.SimArguments()...)
	args = append(args, s.job.PlusArgs...)
	p.Add(StageRun, args...)
	return nil
}
