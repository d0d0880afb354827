package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

var languageClass = regexp.MustCompile(`(?:^|\s)(?:language|lang)-(\w+)`)

// NewBase builds the rule table for generic HTML.
func NewBase(opts core.Options) *Table {
	t := newTable("base")

	for level := 1; level <= 6; level++ {
		hashes := strings.Repeat("#", level)
		t.set(func(_ *Scope, _ *dom.Node, content string) string {
			text := strings.Join(strings.Fields(content), " ")
			if text == "" {
				return ""
			}
			return "\n" + hashes + " " + text + "\n\n"
		}, "h"+strconv.Itoa(level))
	}

	t.set(func(_ *Scope, _ *dom.Node, content string) string {
		text := strings.TrimSpace(content)
		if text == "" {
			return ""
		}
		return "\n" + text + "\n\n"
	}, "p")

	t.set(func(*Scope, *dom.Node, string) string { return "\n" }, "br")
	t.set(func(*Scope, *dom.Node, string) string { return "\n---\n\n" }, "hr")

	strong := opts.StrongDelimiter
	em := opts.EmDelimiter
	t.set(func(_ *Scope, _ *dom.Node, content string) string {
		return wrap(content, strong, strong)
	}, "strong", "b")
	t.set(func(_ *Scope, _ *dom.Node, content string) string {
		return wrap(content, em, em)
	}, "em", "i")
	t.set(func(_ *Scope, _ *dom.Node, content string) string {
		return wrap(content, "~~", "~~")
	}, "del", "s", "strike")
	for _, tag := range []string{"u", "ins", "small", "sub", "sup", "mark"} {
		open, closing := "<"+tag+">", "</"+tag+">"
		t.set(func(_ *Scope, _ *dom.Node, content string) string {
			return wrap(content, open, closing)
		}, tag)
	}

	t.set(renderCode, "code")
	t.set(func(_ *Scope, el *dom.Node, content string) string {
		return renderPre(el, content, opts, true)
	}, "pre")

	t.set(func(s *Scope, el *dom.Node, content string) string {
		return renderLink(s, el, content)
	}, "a")
	t.set(renderImage, "img")

	t.set(func(_ *Scope, _ *dom.Node, content string) string {
		text := strings.TrimSpace(content)
		if text == "" {
			return ""
		}
		return "\n" + text + "\n"
	}, "ul", "ol")
	marker := opts.BulletListMarker
	t.set(func(_ *Scope, el *dom.Node, content string) string {
		return renderListItem(el, content, marker)
	}, "li")

	t.set(func(_ *Scope, el *dom.Node, content string) string {
		return renderNestedQuote(el, content)
	}, "blockquote")

	t.rules["table"] = Rule{
		Apply: func(s *Scope, el *dom.Node, _ string) string {
			return renderDataTable(el, s.Opts)
		},
		Opaque: func(*dom.Node) bool { return true },
	}
	t.set(func(_ *Scope, _ *dom.Node, content string) string {
		text := strings.TrimSpace(content)
		if text == "" {
			return ""
		}
		return text + "\n"
	}, "tr")
	t.set(func(_ *Scope, _ *dom.Node, content string) string {
		text := strings.TrimSpace(content)
		if text == "" {
			return ""
		}
		return text + " "
	}, "td", "th")

	t.set(renderDiv, "div")
	t.set(func(_ *Scope, _ *dom.Node, content string) string { return content }, "span")

	return t
}

// wrap surrounds the trimmed content with open/closing and keeps one space
// of the content's outer whitespace on either side. Blank content renders
// as nothing.
func wrap(content, open, closing string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return ""
	}
	return outerSpace(content, true) + open + text + closing + outerSpace(content, false)
}

func renderDiv(_ *Scope, _ *dom.Node, content string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return ""
	}
	return text + "\n"
}

func renderCode(_ *Scope, el *dom.Node, content string) string {
	if el.Closest("pre") != nil {
		return content
	}
	text := strings.TrimSpace(content)
	if text == "" {
		return ""
	}
	if !strings.Contains(text, "`") {
		return "`" + text + "`"
	}
	fence := strings.Repeat("`", longestRun(text, '`')+1)
	if strings.HasPrefix(text, "`") || strings.HasSuffix(text, "`") {
		text = " " + text + " "
	}
	return fence + text + fence
}

func longestRun(s string, c byte) int {
	longest, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			cur++
			if cur > longest {
				longest = cur
			}
		} else {
			cur = 0
		}
	}
	return longest
}

// codeLanguage finds a language-xxx class on a descendant <code> or on the
// <pre> itself.
func codeLanguage(pre *dom.Node) string {
	var lang string
	pre.Walk(func(n *dom.Node) bool {
		if lang != "" {
			return false
		}
		if n != pre && n.IsElement("code") {
			if m := languageClass.FindStringSubmatch(n.AttrOr("class", "")); m != nil {
				lang = m[1]
				return false
			}
		}
		return true
	})
	if lang == "" {
		if m := languageClass.FindStringSubmatch(pre.AttrOr("class", "")); m != nil {
			lang = m[1]
		}
	}
	return lang
}

func renderPre(el *dom.Node, content string, opts core.Options, sniff bool) string {
	code := strings.Trim(content, "\r\n")
	if strings.TrimSpace(code) == "" {
		return ""
	}
	if opts.CodeBlockStyle == core.CodeBlockIndented {
		lines := strings.Split(code, "\n")
		for i, line := range lines {
			lines[i] = "    " + line
		}
		return "\n" + strings.Join(lines, "\n") + "\n\n"
	}

	fence := opts.Fence
	if fence == "" {
		fence = "```"
	}
	if n := longestRun(code, fence[0]); n >= len(fence) {
		fence = strings.Repeat(fence[:1], n+1)
	}
	lang := ""
	if sniff {
		lang = codeLanguage(el)
	}
	return "\n" + fence + lang + "\n" + code + "\n" + fence + "\n\n"
}

func quoteTitle(title string) string {
	return `"` + strings.ReplaceAll(title, `"`, `\"`) + `"`
}

// destination wraps a link target in angle brackets when it would not
// survive as a bare Markdown destination.
func destination(href string) string {
	if strings.ContainsAny(href, " <>") || strings.Count(href, "(") != strings.Count(href, ")") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(href) + ">"
	}
	return href
}

// mailtoAddress returns the address of a mailto: href without its query.
func mailtoAddress(href string) (string, bool) {
	if len(href) < 7 || !strings.EqualFold(href[:7], "mailto:") {
		return "", false
	}
	addr := href[7:]
	if i := strings.IndexByte(addr, '?'); i >= 0 {
		addr = addr[:i]
	}
	return addr, true
}

func renderLink(s *Scope, el *dom.Node, content string) string {
	href := strings.TrimSpace(el.AttrOr("href", ""))
	if href == "" {
		return content
	}
	text := strings.TrimSpace(content)
	if text == "" {
		return ""
	}
	if addr, ok := mailtoAddress(href); ok && text == addr {
		return "<" + addr + ">"
	}

	href = s.Resolve(href)
	title := el.AttrOr("title", "")
	if s.Opts.LinkStyle == core.LinkReferenced {
		return s.Refs.Link(text, href, title)
	}
	if title != "" {
		return fmt.Sprintf("[%s](%s %s)", text, destination(href), quoteTitle(title))
	}
	return fmt.Sprintf("[%s](%s)", text, destination(href))
}

func renderImage(s *Scope, el *dom.Node, _ string) string {
	src := strings.TrimSpace(el.AttrOr("src", ""))
	if src == "" {
		return ""
	}
	src = s.Resolve(src)
	alt := strings.Join(strings.Fields(el.AttrOr("alt", "")), " ")
	if title := el.AttrOr("title", ""); title != "" {
		return fmt.Sprintf("![%s](%s %s)", alt, destination(src), quoteTitle(title))
	}
	return fmt.Sprintf("![%s](%s)", alt, destination(src))
}

// listIndex is the 1-based position of el among the <li> children of its parent.
func listIndex(el *dom.Node) int {
	if el.Parent == nil {
		return 1
	}
	n := 0
	for _, c := range el.Parent.Children {
		if c.IsElement("li") {
			n++
		}
		if c == el {
			return n
		}
	}
	return n
}

func renderListItem(el *dom.Node, content, bullet string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return ""
	}
	marker := bullet
	if el.Parent.IsElement("ol") {
		marker = strconv.Itoa(listIndex(el)) + "."
	}
	indent := strings.Repeat(" ", len(marker)+1)
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			lines[i] = indent + lines[i]
		} else {
			lines[i] = ""
		}
	}
	return marker + " " + strings.Join(lines, "\n") + "\n"
}

// renderNestedQuote prefixes each line with one "> " per enclosing
// blockquote plus one. Lines carrying a deeper prefix came from an inner
// quote and are left as they are.
func renderNestedQuote(el *dom.Node, content string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return ""
	}
	depth := el.CountAncestors("blockquote")
	deeper := strings.Repeat("> ", depth+2)
	return "\n" + quoteLines(text, strings.Repeat("> ", depth+1), func(line string) bool {
		return strings.HasPrefix(line+" ", deeper)
	}) + "\n\n"
}

// quoteLines prefixes every line of text. Lines for which nested reports
// true already carry an inner quote's prefix and are kept. Lines inside
// fenced code are always prefixed, and runs of blank lines outside code
// collapse to one.
func quoteLines(text, prefix string, nested func(string) bool) string {
	bare := strings.TrimRight(prefix, " ")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	fence := ""
	blank := false
	for _, line := range lines {
		if fence == "" && nested(line) {
			out = append(out, line)
			blank = false
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if fence == "" {
				if blank {
					continue
				}
				blank = true
			}
			out = append(out, bare)
			continue
		}
		blank = false
		if run := fenceRun(trimmed); run != "" {
			switch {
			case fence == "":
				fence = run
			case run[0] == fence[0] && len(run) >= len(fence) && strings.TrimSpace(trimmed[len(run):]) == "":
				fence = ""
			}
		}
		out = append(out, prefix+line)
	}
	return strings.Join(out, "\n")
}

// fenceRun returns the leading run of three or more backticks or tildes.
func fenceRun(s string) string {
	if s == "" || (s[0] != '`' && s[0] != '~') {
		return ""
	}
	n := 0
	for n < len(s) && s[n] == s[0] {
		n++
	}
	if n < 3 {
		return ""
	}
	return s[:n]
}
