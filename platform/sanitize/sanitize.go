// Package sanitize cleans user-supplied text before it is stored or sent to
// the LLM. Meeting notes are frequently pasted from mail clients and docs,
// so markup is reduced to plain text.
package sanitize

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict drops every element; script and style bodies go with their tags.
var strict = bluemonday.StrictPolicy()

var (
	blockTagRegex = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/h[1-6]|/tr)\s*/?>`)
	listItemRegex = regexp.MustCompile(`(?i)<\s*li[^>]*>`)
	blankRunRegex = regexp.MustCompile(`\n{3,}`)
)

// Line strips markup and collapses all whitespace, for titles and names.
func Line(s string) string {
	return strings.Join(strings.Fields(stripTags(s)), " ")
}

// LinePtr applies Line to an optional value.
func LinePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := Line(*s)
	return &v
}

// Notes strips markup but keeps line structure: block tags become line
// breaks, list items become "- " bullets and runs of blank lines collapse
// to one.
func Notes(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = listItemRegex.ReplaceAllString(s, "\n- ")
	s = blockTagRegex.ReplaceAllString(s, "\n")
	s = stripTags(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(strings.Join(strings.Fields(line), " "), " ")
	}
	s = blankRunRegex.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

// NotesPtr applies Notes to an optional value.
func NotesPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := Notes(*s)
	return &v
}

// stripTags runs the policy twice so entity-encoded tags do not survive the
// first decode. The policy escapes its output, hence the unescape after each pass.
func stripTags(s string) string {
	for range 2 {
		s = html.UnescapeString(strict.Sanitize(s))
	}
	return s
}
