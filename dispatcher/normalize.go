package dispatcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// commonCompounds corrects a small set of compound-word splits that show up
// often enough in free-text queries to be worth a direct substitution before
// pattern matching (spec §4.5 step 2: "fix a small set of common
// compound-word splits").
var commonCompounds = map[string]string{
	"whatis":     "what is",
	"howareyou":  "how are you",
	"whoareyou":  "who are you",
	"cantyou":    "can't you",
	"dontknow":   "don't know",
	"doesntwork": "doesn't work",
}

var stripTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeQuery lowercases, strips accents, collapses whitespace, and fixes
// common compound-word splits, while leaving embedded numeric expressions
// (digits and arithmetic operators) untouched.
func normalizeQuery(q string) string {
	n := strings.ToLower(strings.TrimSpace(q))
	if stripped, _, err := transform.String(stripTransform, n); err == nil {
		n = stripped
	}
	for _, p := range []string{"?", "!", ".", ",", ";", ":", "¿", "¡"} {
		n = strings.ReplaceAll(n, p, " ")
	}
	for compound, expanded := range commonCompounds {
		n = strings.ReplaceAll(n, compound, expanded)
	}
	return strings.Join(strings.Fields(n), " ")
}

func matchAny(normalized string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

func wholeWordMatch(normalized, word string) bool {
	padded := " " + normalized + " "
	return strings.Contains(padded, " "+word+" ")
}
