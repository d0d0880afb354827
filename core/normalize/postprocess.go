package normalize

import (
	"regexp"
	"strings"
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	headingLine    = regexp.MustCompile(`^(#{1,6})[ \t]*([^#\s].*)$`)
	bulletLine     = regexp.MustCompile(`^(\s*)([-*+])[ \t]+(\S)`)
	orderedLine    = regexp.MustCompile(`^(\s*)(\d{1,9})\.[ \t]+(\S)`)
	trailingSpace  = regexp.MustCompile(`[ \t]+$`)
)

// PostProcess is the last pass over the converted Markdown: blank-line
// runs are collapsed to one blank line, the result is optionally trimmed
// and then passed through FixFormatting.
func PostProcess(markdown string, trim bool) string {
	out := excessNewlines.ReplaceAllString(markdown, "\n\n")
	if trim {
		out = trimDocument(out)
	}
	out = FixFormatting(out)
	out = excessNewlines.ReplaceAllString(out, "\n\n")
	if trim {
		out = trimDocument(out)
	}
	return out
}

// trimDocument drops surrounding whitespace but keeps the indent of an
// indented code block on the first line.
func trimDocument(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 || strings.TrimSpace(s[:i]) != "" {
			break
		}
		s = s[i+1:]
	}
	if strings.HasPrefix(s, "    ") || strings.HasPrefix(s, "\t") {
		return s
	}
	return strings.TrimLeft(s, " \t")
}

// FixFormatting normalises heading and list-marker spacing, strips trailing
// blanks and puts a blank line around every ATX heading. Fenced code blocks
// are left untouched.
func FixFormatting(markdown string) string {
	if markdown == "" {
		return ""
	}
	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines)+8)
	fence := ""
	for _, line := range lines {
		if fence != "" {
			out = append(out, line)
			if strings.HasPrefix(strings.TrimSpace(line), fence) {
				fence = ""
			}
			continue
		}
		if f := fenceOpener(line); f != "" {
			fence = f
			out = append(out, trailingSpace.ReplaceAllString(line, ""))
			continue
		}

		line = trailingSpace.ReplaceAllString(line, "")
		if m := headingLine.FindStringSubmatch(line); m != nil {
			line = m[1] + " " + m[2]
			if n := len(out); n > 0 && out[n-1] != "" {
				out = append(out, "")
			}
			out = append(out, line, "")
			continue
		}
		line = bulletLine.ReplaceAllString(line, "$1$2 $3")
		line = orderedLine.ReplaceAllString(line, "$1$2. $3")
		if n := len(out); line == "" && n > 0 && out[n-1] == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// fenceOpener returns the fence a line opens, or "".
func fenceOpener(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return ""
	}
	for _, ch := range []string{"`", "~"} {
		n := 0
		for n < len(trimmed) && trimmed[n] == ch[0] {
			n++
		}
		if n >= 3 {
			return trimmed[:n]
		}
	}
	return ""
}
