package backend

import (
	"path/filepath"

	"cocotbtest/internal/job"
)

type ghdl struct {
	base
	outFile  string
	libDir   string
	compiled bool
}

func newGhdl(b base) (Backend, error) {
	exe, err := b.requireTool("ghdl", "GHDL")
	if err != nil {
		return nil, err
	}
	s := &ghdl{base: b, outFile: filepath.Join(b.job.SimBuild, b.job.ToplevelModule())}
	s.libDir = filepath.Join(filepath.Dir(filepath.Dir(exe)), "lib")
	return s, nil
}

func (s *ghdl) Name() string { return "ghdl" }

// GHDL has no include directories or preprocessor defines.
func (s *ghdl) IncludeFlags(dirs []string) []string   { return nil }
func (s *ghdl) DefineFlags(defines []string) []string { return nil }

func (s *ghdl) ParameterFlags(params []job.Parameter) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, "-g"+p.Name+"="+p.Value)
	}
	return out
}

func (s *ghdl) compileArgs() []string {
	return concat(s.job.CompileArguments(), s.job.VHDLCompileArgs)
}

// Compile imports every library. Elaboration only follows a compile.
func (s *ghdl) Compile(p *Plan) error {
	j := s.job
	if !s.check.OutdatedGroups(s.outFile, j.VHDLSources.Groups()) {
		p.Skip(s.outFile)
		return nil
	}
	for _, lib := range j.VHDLSources {
		args := []string{"ghdl", "-i"}
		args = append(args, s.compileArgs()...)
		args = append(args, "--work="+lib.Name)
		args = append(args, lib.Files...)
		p.Add(StageCompile, args...)
	}
	s.compiled = true
	return nil
}

func (s *ghdl) Elaborate(p *Plan) error {
	if !s.compiled {
		return nil
	}
	args := []string{"ghdl", "-m", "--work=" + s.job.ToplevelLibrary()}
	args = append(args, s.compileArgs()...)
	args = append(args, s.job.ToplevelModule())
	p.Add(StageElaborate, args...)
	return nil
}

func (s *ghdl) Run(p *Plan) error {
	j := s.job
	p.AppendPath(s.libDir)

	args := []string{"ghdl", "-r", "--work=" + j.ToplevelLibrary()}
	args = append(args, s.compileArgs()...)
	args = append(args, j.ToplevelModule(), "--vpi="+s.tc.LibPath("vpi", "ghdl"))
	args = append(args, j.SimArguments()...)
	if j.Waves {
		args = append(args, "--wave="+j.ToplevelModule()+".ghw")
	}
	args = append(args, s.ParameterFlags(j.Parameters)...)
	p.Add(StageRun, args...)
	return nil
}
