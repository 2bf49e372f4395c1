package backend

import (
	"path/filepath"

	"cocotbtest/internal/job"
)

// nvc analyses each library into its own directory under the build
// directory, elaborates the toplevel and runs it with the VHPI bridge.
type nvc struct {
	base
	outFile  string
	compiled bool
}

func newNvc(b base) (Backend, error) {
	if _, err := b.requireTool("nvc", "NVC"); err != nil {
		return nil, err
	}
	return &nvc{base: b, outFile: filepath.Join(b.job.SimBuild, b.job.ToplevelLibrary())}, nil
}

func (s *nvc) Name() string { return "nvc" }

func (s *nvc) IncludeFlags(dirs []string) []string   { return nil }
func (s *nvc) DefineFlags(defines []string) []string { return nil }

func (s *nvc) ParameterFlags(params []job.Parameter) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, "-g"+p.Name+"="+p.Value)
	}
	return out
}

func (s *nvc) work(lib string) []string {
	return []string{"--work=" + lib + ":" + filepath.Join(s.job.SimBuild, lib), "-L", s.job.SimBuild}
}

func (s *nvc) Compile(p *Plan) error {
	j := s.job
	if !s.check.OutdatedGroups(s.outFile, j.VHDLSources.Groups()) {
		p.Skip(s.outFile)
		return nil
	}
	for _, lib := range j.VHDLSources {
		args := append([]string{"nvc"}, s.work(lib.Name)...)
		args = append(args, j.CompileArguments()...)
		args = append(args, "-a")
		args = append(args, j.VHDLCompileArgs...)
		args = append(args, lib.Files...)
		p.Add(StageCompile, args...)
	}
	s.compiled = true
	return nil
}

func (s *nvc) Elaborate(p *Plan) error {
	if !s.compiled {
		return nil
	}
	j := s.job
	args := append([]string{"nvc"}, s.work(j.ToplevelLibrary())...)
	args = append(args, j.CompileArguments()...)
	args = append(args, "-e")
	args = append(args, s.ParameterFlags(j.Parameters)...)
	args = append(args, j.ToplevelModule())
	p.Add(StageElaborate, args...)
	return nil
}

func (s *nvc) Run(p *Plan) error {
	j := s.job
	args := append([]string{"nvc"}, s.work(j.ToplevelLibrary())...)
	args = append(args, "-r", j.ToplevelModule(), "--load="+s.tc.LibPath("vhpi", "nvc"))
	if j.Waves {
		args = append(args, "--wave="+filepath.Join(j.SimBuild, j.ToplevelModule()+".fst"))
	}
	args = append(args, j.SimArguments()...)
	args = append(args, j.PlusArgs...)
	p.Add(StageRun, args...)
	return nil
}
