package ml

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lower applies full Unicode lowercasing. A Caser keeps state between
// calls, so each call gets its own.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
