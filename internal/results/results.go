package results

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Failure is one failure or error element of a test case.
type Failure struct {
	Message string
	Text    string

	// Stdout is the output captured when the failure was raised.
	Stdout string
}

// Case is one test case of the results file.
type Case struct {
	Classname string
	Name      string
	Failures  []Failure
	Skipped   bool
	Stdout    string
}

// ID returns classname::name.
func (c Case) ID() string {
	return c.Classname + "::" + c.Name
}

// Messages returns the non-empty failure messages of the case.
func (c Case) Messages() []string {
	var out []string
	for _, f := range c.Failures {
		if f.Message != "" {
			out = append(out, f.Message)
		}
	}
	return out
}

// Failed reports whether the case has at least one failure.
func (c Case) Failed() bool {
	return len(c.Failures) > 0
}

// Record is the parsed content of a results file.
type Record struct {
	Path  string
	Cases []Case
}

// Failed returns the failing cases in file order.
func (r *Record) Failed() []Case {
	var out []Case
	for _, c := range r.Cases {
		if c.Failed() {
			out = append(out, c)
		}
	}
	return out
}

// Passed returns the number of cases that neither failed nor were skipped.
func (r *Record) Passed() int {
	n := 0
	for _, c := range r.Cases {
		if !c.Failed() && !c.Skipped {
			n++
		}
	}
	return n
}

// ParseFile parses the results file at path.
func ParseFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing results file %s: %w", path, err)
	}
	rec.Path = path
	return rec, nil
}

// Parse reads JUnit-style XML. Test cases are collected from any depth of
// nested testsuite elements; each case is counted once.
func Parse(r io.Reader) (*Record, error) {
	dec := xml.NewDecoder(r)
	rec := &Record{}

	var (
		suiteDepth int
		current    *Case
		failure    *Failure
		text       strings.Builder
		inStdout   bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "testsuite":
				suiteDepth++
			case "testcase":
				if suiteDepth > 0 && current == nil {
					current = &Case{Classname: attr(t, "classname"), Name: attr(t, "name")}
				}
			case "failure", "error":
				if current != nil {
					failure = &Failure{Message: attr(t, "message"), Stdout: attr(t, "stdout")}
					text.Reset()
				}
			case "skipped":
				if current != nil {
					current.Skipped = true
				}
			case "system-out":
				if current != nil {
					inStdout = true
					text.Reset()
				}
			}
		case xml.CharData:
			if failure != nil || inStdout {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "testsuite":
				suiteDepth--
			case "testcase":
				if current != nil {
					rec.Cases = append(rec.Cases, *current)
					current = nil
				}
			case "failure", "error":
				if failure != nil {
					failure.Text = strings.TrimSpace(text.String())
					current.Failures = append(current.Failures, *failure)
					failure = nil
				}
			case "system-out":
				if inStdout {
					current.Stdout = text.String()
					inStdout = false
				}
			}
		}
	}
	return rec, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
