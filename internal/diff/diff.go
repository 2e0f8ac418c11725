// Package diff produces unified-text comparisons between snippet revisions.
// It uses github.com/pmezard/go-difflib/difflib to generate classic unified
// patches (---/+++ headers, @@ hunks, lines prefixed with ' ', '-', '+').
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// contextLines is the number of unchanged lines shown around each hunk.
const contextLines = 3

// Unified computes a unified diff from old to new. The labels become the
// ---/+++ header paths. An empty result means the inputs are identical.
//
// Pure function: deterministic, no I/O, no mutation of its inputs.
func Unified(oldLabel, newLabel, old, new string) (string, error) {
	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(old),
		B:        splitLinesKeepNL(new),
		FromFile: oldLabel,
		ToFile:   newLabel,
		Context:  contextLines,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("diff: generating unified diff: %w", err)
	}
	return s, nil
}

// splitLinesKeepNL splits into lines and keeps newline characters,
// which produces better unified hunks. If the text does not end with a
// newline, the last element simply has none — unified output handles that.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}
