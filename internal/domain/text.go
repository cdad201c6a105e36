package domain

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lower lowercases s using Unicode case mapping.
// A Caser holds state, so one is created per call.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
