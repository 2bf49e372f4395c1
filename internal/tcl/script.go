package tcl

import "strings"

// Script builds a TCL script statement by statement. Words passed to Command
// are escaped, so dynamic values never need quoting by the caller.
type Script struct {
	statements []string
}

// Command appends a statement made of the escaped words.
func (s *Script) Command(words ...string) *Script {
	if len(words) == 0 {
		return s
	}
	s.statements = append(s.statements, strings.Join(EscapeAll(words), " "))
	return s
}

// Raw appends a statement verbatim. It is meant for fixed control
// structures such as onerror blocks.
func (s *Script) Raw(statement string) *Script {
	s.statements = append(s.statements, statement)
	return s
}

// Len returns the number of statements.
func (s *Script) Len() int {
	return len(s.statements)
}

// String renders the script with one statement per line.
func (s *Script) String() string {
	if len(s.statements) == 0 {
		return ""
	}
	return strings.Join(s.statements, "\n") + "\n"
}

// Inline renders the script as a single line suitable for a -do argument.
func (s *Script) Inline() string {
	return strings.Join(s.statements, "; ")
}
