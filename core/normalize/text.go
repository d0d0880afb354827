// Package normalize holds the text-level helpers of the converter: Markdown
// escaping, whitespace handling, the final post-processing pass and the
// html-to-markdown fallback used when the rule engine yields nothing.
package normalize

import (
	"strings"

	"github.com/gaurav-prasanna/mailmd/core"
)

// escapeSet is every character Escape protects.
const escapeSet = "\\`*_{}[]()#+-.!|~"

func isEscapable(c byte) bool {
	return strings.IndexByte(escapeSet, c) >= 0
}

// Escape backslash-escapes every Markdown metacharacter in text. A character
// that is already preceded by a backslash is left alone, so
// Escape(Escape(s)) == Escape(s).
func Escape(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\\' && i+1 < len(text) && isEscapable(text[i+1]) {
			b.WriteByte(c)
			b.WriteByte(text[i+1])
			i++
			continue
		}
		if isEscapable(c) {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Unescape removes the backslash from every escaped metacharacter.
func Unescape(text string) string {
	if text == "" || !strings.Contains(text, "\\") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\\' && i+1 < len(text) && isEscapable(text[i+1]) {
			b.WriteByte(text[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EscapeText escapes a text run according to mode. lineStart tells whether
// the run begins a Markdown line, which is where block markers (#, >, list
// bullets, "1.") need protecting.
func EscapeText(text string, mode core.EscapeMode, lineStart bool) string {
	switch mode {
	case core.EscapeNone:
		return text
	case core.EscapeFull:
		return Escape(text)
	}
	return escapeSmart(text, lineStart)
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

// escapeSmart escapes only what would otherwise be read as markup.
func escapeSmart(text string, lineStart bool) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)
	atLine := lineStart
	for i := 0; i < len(text); i++ {
		c := text[i]
		if atLine {
			switch c {
			case ' ', '\t':
				b.WriteByte(c)
				continue
			}
			atLine = false
			if n := blockMarkerLen(text[i:]); n > 0 {
				b.WriteString(text[i : i+n-1])
				b.WriteByte('\\')
				b.WriteByte(text[i+n-1])
				i += n - 1
				continue
			}
		}
		switch c {
		case '\n':
			atLine = true
		case '*', '`', '[', ']':
			b.WriteByte('\\')
		case '\\':
			if i+1 < len(text) && isEscapable(text[i+1]) {
				b.WriteByte('\\')
			}
		case '_':
			if i == 0 || i+1 >= len(text) || !isAlnum(text[i-1]) || !isAlnum(text[i+1]) {
				b.WriteByte('\\')
			}
		case '~':
			if i+1 < len(text) && text[i+1] == '~' {
				b.WriteString("\\~\\")
				i++
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// blockMarkerLen returns the length of a block marker at the start of s up to
// and including the character that has to be escaped, or 0.
func blockMarkerLen(s string) int {
	if s == "" {
		return 0
	}
	switch s[0] {
	case '#', '>':
		return 1
	case '+', '-':
		if len(s) == 1 || s[1] == ' ' || s[1] == '\t' {
			return 1
		}
		return 0
	}
	i := 0
	for i < len(s) && i < 9 && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(s) || (s[i] != '.' && s[i] != ')') {
		return 0
	}
	if i+1 == len(s) || s[i+1] == ' ' || s[i+1] == '\t' {
		return i + 1
	}
	return 0
}

// WhitespaceMode selects how NormalizeWhitespace treats a text run.
type WhitespaceMode int

const (
	// Collapse folds every whitespace run into one space.
	Collapse WhitespaceMode = iota
	// Preserve keeps the text as it is.
	Preserve
)

// NormalizeWhitespace applies mode to text. Trimming is left to the caller,
// which knows where the run sits in its block.
func NormalizeWhitespace(text string, mode WhitespaceMode) string {
	if text == "" || mode == Preserve {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				b.WriteByte(' ')
				space = true
			}
		default:
			b.WriteByte(text[i])
			space = false
		}
	}
	return b.String()
}

// IsBlank reports whether s holds only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
