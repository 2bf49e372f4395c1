package backend

import (
	"fmt"
	"strings"

	"cocotbtest/internal/job"
)

// Stage identifies the pipeline step a command belongs to.
type Stage int

const (
	StageCompile Stage = iota
	StageElaborate
	StageRun
)

func (s Stage) String() string {
	switch s {
	case StageCompile:
		return "compile"
	case StageElaborate:
		return "elaborate"
	case StageRun:
		return "run"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Command is one subprocess invocation. Args[0] is the executable.
type Command struct {
	Stage Stage
	Args  []string
}

// Name returns the executable of the command.
func (c Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// File is a control file a backend needs written before its commands run.
type File struct {
	Path    string
	Content string

	// KeepExisting leaves an existing file untouched.
	KeepExisting bool
}

// Plan is everything needed to run a job on one backend: the ordered
// commands, the generated files and the environment overrides.
type Plan struct {
	Backend    string
	Commands   []Command
	Files      []File
	Env        map[string]string
	PathAppend []string
	Skipped    []string
}

// Add appends a command to the plan.
func (p *Plan) Add(stage Stage, args ...string) {
	p.Commands = append(p.Commands, Command{Stage: stage, Args: args})
}

// AddFile schedules path to be written with content.
func (p *Plan) AddFile(path, content string) {
	p.Files = append(p.Files, File{Path: path, Content: content})
}

// AddFileIfMissing schedules path to be written only if it does not exist.
func (p *Plan) AddFileIfMissing(path, content string) {
	p.Files = append(p.Files, File{Path: path, Content: content, KeepExisting: true})
}

// SetEnv records an environment override for every command of the plan.
func (p *Plan) SetEnv(key, value string) {
	if p.Env == nil {
		p.Env = make(map[string]string)
	}
	p.Env[key] = value
}

// AppendPath records a directory to append to PATH.
func (p *Plan) AppendPath(dir string) {
	p.PathAppend = append(p.PathAppend, dir)
}

// Skip records an up-to-date artifact whose compilation was omitted.
func (p *Plan) Skip(artifact string) {
	p.Skipped = append(p.Skipped, artifact)
}

// Stage returns the commands of one stage in order.
func (p *Plan) Stage(s Stage) []Command {
	var out []Command
	for _, c := range p.Commands {
		if c.Stage == s {
			out = append(out, c)
		}
	}
	return out
}

// Backend turns a job into simulator commands. Each stage method appends
// its commands to the plan; stages are called in order by Build.
type Backend interface {
	Name() string
	IncludeFlags(dirs []string) []string
	DefineFlags(defines []string) []string
	ParameterFlags(params []job.Parameter) []string

	Compile(p *Plan) error
	Elaborate(p *Plan) error
	Run(p *Plan) error
}

// Finisher is implemented by backends that collect every stage into a
// single script and emit one command for it at the end.
type Finisher interface {
	Finish(p *Plan) error
}

// Build drives the stages of b and returns the finished plan. The run
// stage is omitted when compileOnly is set.
func Build(b Backend, compileOnly bool) (*Plan, error) {
	p := &Plan{Backend: b.Name()}
	if err := b.Compile(p); err != nil {
		return nil, fmt.Errorf("%s compile stage: %w", b.Name(), err)
	}
	if err := b.Elaborate(p); err != nil {
		return nil, fmt.Errorf("%s elaborate stage: %w", b.Name(), err)
	}
	if !compileOnly {
		if err := b.Run(p); err != nil {
			return nil, fmt.Errorf("%s run stage: %w", b.Name(), err)
		}
	}
	if f, ok := b.(Finisher); ok {
		if err := f.Finish(p); err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
	}
	return p, nil
}
