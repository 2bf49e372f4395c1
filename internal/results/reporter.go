package results

import (
	"fmt"
	"os"
	"strings"

	"cocotbtest/internal/logging"
)

// Report checks the results file written by a simulation. A missing file
// is an *AbnormalTerminationError; failing cases are logged one per line and
// returned together as a *TestFailureError.
func Report(path string, logger *logging.Logger) (*Record, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, &AbnormalTerminationError{Path: path}
	}

	rec, err := ParseFile(path)
	if err != nil {
		return nil, err
	}

	failed := rec.Failed()
	for _, c := range failed {
		if msgs := c.Messages(); len(msgs) > 0 {
			logger.Errorf("Failed: %s - %s", c.ID(), strings.Join(msgs, "; "))
		} else {
			logger.Errorf("Failed: %s", c.ID())
		}
	}
	if len(failed) > 0 {
		return rec, &TestFailureError{Failures: failed}
	}

	logger.Infof("Results file: %s", path)
	return rec, nil
}

// FormatFailures renders failing cases with their messages for display.
func FormatFailures(cases []Case) string {
	var b strings.Builder
	for _, c := range cases {
		fmt.Fprintf(&b, "  ✗ %s\n", c.ID())
		for _, f := range c.Failures {
			if f.Message != "" {
				fmt.Fprintf(&b, "      %s\n", f.Message)
			}
			if out := strings.TrimRight(f.Stdout, "\n"); out != "" {
				for _, line := range strings.Split(out, "\n") {
					fmt.Fprintf(&b, "      | %s\n", line)
				}
			}
		}
	}
	return b.String()
}
