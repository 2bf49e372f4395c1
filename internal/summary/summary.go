// Package summary produces the JSON run summary written by --summary-file.
package summary

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"cocotbtest/internal/backend"
	"cocotbtest/internal/config"
	"cocotbtest/internal/results"
)

// Summary describes one run of cocotb-run.
type Summary struct {
	Simulator   string            `json:"simulator"`
	PlanDigest  string            `json:"planDigest"` // sha256:hex
	Commands    []Command         `json:"commands"`
	Files       []string          `json:"files,omitempty"`
	Skipped     []string          `json:"skipped,omitempty"`
	Selectors   map[string]string `json:"selectors,omitempty"`
	ResultsFile string            `json:"resultsFile,omitempty"`
	Status      string            `json:"status"`
	ExitCode    int               `json:"exitCode"`
	Error       string            `json:"error,omitempty"`
	Tests       *Tests            `json:"tests,omitempty"`
}

// Command is one planned command.
type Command struct {
	Stage string   `json:"stage"`
	Args  []string `json:"args"`
}

// Tests counts the test cases of the results file.
type Tests struct {
	Total    int       `json:"total"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	Failures []Failure `json:"failures,omitempty"`
}

// Failure is one failing test case.
type Failure struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

// Input is what a run produced. Plan and Record may be nil when the run
// stopped early.
type Input struct {
	Simulator   string
	Plan        *backend.Plan
	Selectors   []config.ResolvedValue
	ResultsFile string
	Record      *results.Record
	Status      string
	ExitCode    int
	Err         error
}

// Generate builds the summary of a run. Only selectors present in the
// environment are included.
func Generate(in Input) Summary {
	s := Summary{
		Simulator:   in.Simulator,
		Commands:    []Command{},
		ResultsFile: in.ResultsFile,
		Status:      in.Status,
		ExitCode:    in.ExitCode,
	}
	if in.Err != nil {
		s.Error = in.Err.Error()
	}

	for _, rv := range in.Selectors {
		if !rv.Present {
			continue
		}
		if s.Selectors == nil {
			s.Selectors = make(map[string]string)
		}
		s.Selectors[rv.Name] = rv.Value
	}

	if in.Plan != nil {
		for _, c := range in.Plan.Commands {
			s.Commands = append(s.Commands, Command{Stage: c.Stage.String(), Args: c.Args})
		}
		for _, f := range in.Plan.Files {
			s.Files = append(s.Files, f.Path)
		}
		s.Skipped = in.Plan.Skipped
	}
	s.PlanDigest = ComputePlanDigest(in.Plan)

	if in.Record != nil {
		t := &Tests{Total: len(in.Record.Cases), Passed: in.Record.Passed()}
		for _, c := range in.Record.Cases {
			if c.Skipped && !c.Failed() {
				t.Skipped++
			}
		}
		for _, c := range in.Record.Failed() {
			t.Failures = append(t.Failures, Failure{ID: c.ID(), Message: strings.Join(c.Messages(), "; ")})
		}
		t.Failed = len(t.Failures)
		s.Tests = t
	}
	return s
}

// ComputePlanDigest hashes the canonical form of a plan: its commands,
// generated files and environment overrides. Returns "sha256:<hex>".
func ComputePlanDigest(p *backend.Plan) string {
	hash := sha256.Sum256(canonicalPlanJSON(p))
	return "sha256:" + hex.EncodeToString(hash[:])
}

// ToJSON serializes the summary for humans.
func (s Summary) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// canonicalPlanJSON renders the plan with sorted keys and no whitespace.
func canonicalPlanJSON(p *backend.Plan) []byte {
	if p == nil {
		return []byte("null")
	}

	result := []byte(`{"backend":`)
	result = appendJSON(result, p.Backend)

	result = append(result, `,"commands":[`...)
	for i, c := range p.Commands {
		if i > 0 {
			result = append(result, ',')
		}
		result = append(result, `{"args":`...)
		result = appendJSON(result, c.Args)
		result = append(result, `,"stage":`...)
		result = appendJSON(result, c.Stage.String())
		result = append(result, '}')
	}

	keys := make([]string, 0, len(p.Env))
	for k := range p.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result = append(result, `],"env":{`...)
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendJSON(result, k)
		result = append(result, ':')
		result = appendJSON(result, p.Env[k])
	}

	result = append(result, `},"files":[`...)
	for i, f := range p.Files {
		if i > 0 {
			result = append(result, ',')
		}
		result = append(result, `{"content":`...)
		result = appendJSON(result, f.Content)
		result = append(result, `,"path":`...)
		result = appendJSON(result, f.Path)
		result = append(result, '}')
	}

	result = append(result, `],"pathAppend":`...)
	result = appendJSON(result, p.PathAppend)
	result = append(result, '}')
	return result
}

func appendJSON(dst []byte, v any) []byte {
	b, _ := json.Marshal(v)
	return append(dst, b...)
}
