package grading

import (
	"strings"

	"golang.org/x/text/cases"
)

// normalize trims surrounding whitespace and, unless caseSensitive, folds case.
// A fresh Caser is used per call since Casers carry state.
func normalize(s string, caseSensitive bool) string {
	s = strings.TrimSpace(s)
	if caseSensitive {
		return s
	}
	return cases.Fold().String(s)
}

// matchAny reports whether got matches want or one of the acceptable variants.
func matchAny(got, want string, acceptable []string, caseSensitive bool) bool {
	g := normalize(got, caseSensitive)
	if g == "" {
		return false
	}
	if k := normalize(want, caseSensitive); k != "" && k == g {
		return true
	}
	for _, a := range acceptable {
		if k := normalize(a, caseSensitive); k != "" && k == g {
			return true
		}
	}
	return false
}
