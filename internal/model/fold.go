package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold normalizes identifiers and locations for case-insensitive
// comparison. A new Caser per call: Casers are not safe for concurrent use.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
