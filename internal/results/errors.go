package results

import "fmt"

// AbnormalTerminationError reports a run that left no results file: the
// simulator ran but the test harness never wrote its report.
type AbnormalTerminationError struct {
	Path string
}

func (e *AbnormalTerminationError) Error() string {
	return "Simulation terminated abnormally. Cocotb results file not found: " + e.Path
}

// TestFailureError lists every failing test case.
type TestFailureError struct {
	Failures []Case
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("FAILED %d tests.", len(e.Failures))
}
