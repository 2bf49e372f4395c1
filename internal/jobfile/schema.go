package jobfile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"cocotbtest/internal/job"
)

//go:embed job.cue
var schemaSource []byte

// Validator checks decoded job documents against the embedded CUE schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate checks a generic document (as produced by the YAML or TOML
// decoder). Every schema violation becomes one entry of a *job.ConfigError.
func (v *Validator) Validate(doc map[string]any) error {
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return job.NewConfigError("job", "unsupported value in job file", err.Error())
	}

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling job as CUE: %w", dataValue.Err())
	}

	jobDef := v.schema.LookupPath(cue.ParsePath("#Job"))
	if jobDef.Err() != nil {
		return fmt.Errorf("looking up #Job definition: %w", jobDef.Err())
	}

	unified := jobDef.Unify(dataValue)
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	cerr := &job.ConfigError{}
	seen := make(map[string]bool)
	for _, e := range errors.Errors(err) {
		verr := schemaError(e)
		key := verr.Field + "\x00" + verr.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		cerr.Errors = append(cerr.Errors, verr)
	}
	return cerr
}

func schemaError(e errors.Error) job.ValidationError {
	path := e.Path()
	if len(path) > 0 && path[0] == "#Job" {
		path = path[1:]
	}
	field := strings.Join(path, ".")
	if field == "" {
		field = "job"
	}
	format, args := e.Msg()
	return job.ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
