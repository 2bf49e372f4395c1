// Package jobfile loads job descriptions from YAML or TOML files.
package jobfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"cocotbtest/internal/job"
)

// Format is the syntax of a job file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DefaultNames are the file names looked up in the working directory when
// no job file is given, in order of preference.
var DefaultNames = []string{"cocotb.yaml", "cocotb.yml", "cocotb.toml"}

// File is a loaded job description.
type File struct {
	Path      string
	Simulator string
	Spec      job.Spec
}

// FormatOf derives the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", &job.ConfigError{Errors: []job.ValidationError{{
		Field:   "job",
		Value:   filepath.Ext(path),
		Allowed: []string{".yaml", ".yml", ".toml"},
	}}}
}

// Find returns the first default job file present in dir.
func Find(dir string) (string, bool) {
	for _, name := range DefaultNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Load reads and decodes the job file at path. Relative paths inside the file
// are anchored at the directory containing it.
func Load(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	f, err := Parse(content, format)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	f.Path = abs
	f.Spec.BaseDir = filepath.Dir(abs)
	return f, nil
}

// Parse decodes content, validates it against the schema and builds the job
// description.
func Parse(content []byte, format Format) (*File, error) {
	var (
		doc   map[string]any
		order keyOrder
		err   error
	)
	switch format {
	case FormatYAML:
		doc, order, err = parseYAML(content)
	case FormatTOML:
		doc, order, err = parseTOML(content)
	default:
		return nil, fmt.Errorf("unknown job file format %q", format)
	}
	if err != nil {
		return nil, err
	}

	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if err := v.Validate(doc); err != nil {
		return nil, err
	}

	return decode(doc, order)
}

// keyOrder returns the key order of a mapping-valued top-level field.
type keyOrder func(field string) []string

func parseYAML(content []byte) (map[string]any, keyOrder, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, nil, fmt.Errorf("invalid YAML: %w", err)
	}

	doc := map[string]any{}
	if len(root.Content) == 0 {
		return doc, sortedOrder(doc), nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("invalid YAML: job file must be a mapping")
	}
	if err := top.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	order := func(field string) []string {
		for i := 0; i+1 < len(top.Content); i += 2 {
			if top.Content[i].Value != field {
				continue
			}
			value := top.Content[i+1]
			if value.Kind != yaml.MappingNode {
				return nil
			}
			keys := make([]string, 0, len(value.Content)/2)
			for j := 0; j+1 < len(value.Content); j += 2 {
				keys = append(keys, value.Content[j].Value)
			}
			return keys
		}
		return nil
	}
	return doc, order, nil
}

func parseTOML(content []byte) (map[string]any, keyOrder, error) {
	doc := map[string]any{}
	dec := toml.NewDecoder(bytes.NewReader(content))
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("invalid TOML: %w", err)
	}
	return doc, sortedOrder(doc), nil
}

// sortedOrder orders table keys by name; TOML tables carry no order.
func sortedOrder(doc map[string]any) keyOrder {
	return func(field string) []string {
		m, ok := doc[field].(map[string]any)
		if !ok {
			return nil
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}
}
