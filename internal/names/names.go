// Package names normalizes database identifiers into the snake_case
// identifiers used in generated source.
package names

import "regexp"

var (
	acronymRE   = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	underscores = regexp.MustCompile(`(_+)`)
	boundaryRE  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// Snake converts a CamelCase or mixed identifier to snake_case. Runs of
// underscores collapse to one.
func Snake(s string) string {
	s = acronymRE.ReplaceAllString(s, "${1}_${2}")
	s = underscores.ReplaceAllString(s, "_")
	s = boundaryRE.ReplaceAllString(s, "${1}_${2}")
	return lower(s)
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Upper uppercases an already normalized identifier, for macro-style names.
func Upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
