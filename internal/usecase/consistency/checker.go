// Package consistency flags generator responses that are not grounded in the
// retrieved context.
//
// The check is a coarse heuristic: every non-empty response line must appear
// verbatim as a substring of the context block. Any paraphrase trips it, so a
// positive result means "suspected", never "proven".
package consistency

import "strings"

// Checker implements the line-containment heuristic.
type Checker struct{}

// NewChecker creates a Checker.
func NewChecker() *Checker { return &Checker{} }

// Check reports whether a hallucination is suspected.
func (c *Checker) Check(response, contextText string) bool {
	_, suspect := FirstUnsupportedLine(response, contextText)
	return suspect
}

// FirstUnsupportedLine returns the first non-empty line of response (split on
// "\n") that is not a substring of contextText.
// Whitespace-only lines are non-empty and are checked like any other.
func FirstUnsupportedLine(response, contextText string) (string, bool) {
	for _, line := range strings.Split(response, "\n") {
		if line == "" {
			continue
		}
		if !strings.Contains(contextText, line) {
			return line, true
		}
	}
	return "", false
}
