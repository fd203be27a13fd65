package moderation

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize strips every markup tag and the surrounding whitespace, returning plain text.
// The strict policy escapes entities, they are decoded back so "a & b" survives untouched.
func Sanitize(raw string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(raw)))
}
