package grading

import "strings"

// Normalize trims surrounding whitespace and lowercases. Text answers are
// compared after this and nothing more; punctuation and inner spacing stay
// significant.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
