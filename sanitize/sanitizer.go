// Package sanitize strips markup and control sequences from user-supplied
// text before it reaches validation or storage.
package sanitize

import (
	"strings"
	"unicode"
)

// Clean removes markup tags and control runes from raw and trims surrounding
// whitespace. Tag content is dropped entirely, not unwrapped.
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	depth := 0
	for _, r := range raw {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			} else {
				b.WriteRune(r)
			}
		case depth > 0:
			// inside a tag
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Field coerces an arbitrary decoded JSON value into a sanitized string.
// Anything that is not a string sanitizes to "", which then fails validation;
// numbers and booleans are never silently stringified.
func Field(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Clean(s)
}
