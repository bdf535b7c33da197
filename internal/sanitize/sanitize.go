// Package sanitize cleans names and labels that arrive from outside the
// process (tool calls, command-line arguments) before they are stored or
// echoed back in logs and rendered graphs.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxNameLength is the maximum allowed length for stored graph names.
const MaxNameLength = 80

// MaxLabelLength is the maximum allowed length for run labels.
const MaxLabelLength = 120

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	reRepeatedHyphens     = regexp.MustCompile(`-{2,}`)
	reRepeatedUnderscores = regexp.MustCompile(`_{2,}`)
	reRepeatedDots        = regexp.MustCompile(`\.{2,}`)
	reWhitespace          = regexp.MustCompile(`\s+`)
)

// GraphName keeps only [a-zA-Z0-9-_.] and enforces MaxNameLength. Runs of
// hyphens, underscores or dots collapse to one, so the result can never be
// a relative path segment like "..". An empty result means the name had no
// usable characters.
func GraphName(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	s := b.String()

	s = reRepeatedHyphens.ReplaceAllString(s, "-")
	s = reRepeatedUnderscores.ReplaceAllString(s, "_")
	s = reRepeatedDots.ReplaceAllString(s, ".")
	s = strings.Trim(s, ".")

	if len(s) > MaxNameLength {
		s = s[:MaxNameLength]
	}
	return s
}

// Label strips control characters and XML/HTML tags, collapses whitespace
// to single spaces and truncates to MaxLabelLength.
func Label(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reWhitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if len(s) > MaxLabelLength {
		s = s[:MaxLabelLength]
	}
	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F) and DEL.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 && r != '\n' && r != '\t') || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
