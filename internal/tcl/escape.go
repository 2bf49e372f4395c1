package tcl

import "strings"

// Escape renders value as a single TCL word that evaluates back to value
// without substitution. The empty string becomes {}.
func Escape(value string) string {
	if value == "" {
		return "{}"
	}

	var b strings.Builder
	b.Grow(len(value) + 8)
	for i, r := range value {
		switch r {
		case '\\', '{', '}':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case ' ', '\t', '\r', '\v', '\f':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '"':
			if i == 0 {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EscapeAll escapes every value, preserving order.
func EscapeAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Escape(v)
	}
	return out
}
