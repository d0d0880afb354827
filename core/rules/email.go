package rules

import (
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

var signatureIndicators = []string{
	"signature", "sig", "email-signature", "footer",
	"sent from", "regards", "best regards", "sincerely",
}

var importantColors = []string{"red", "#ff0000", "#dc3545", "#d9534f"}

var heavyWeight = regexp.MustCompile(`font-weight:(bold|bolder|[6-9]00)`)

// NewEmail builds the rule table used when a document is classified as
// email. Tags without an email rule fall through to the base table.
func NewEmail(opts core.Options) *Table {
	t := newTable("email")

	t.set(func(s *Scope, el *dom.Node, content string) string {
		switch {
		case IsSignature(el):
			if !s.Opts.HandleEmailSignatures {
				return ""
			}
			text := strings.TrimSpace(content)
			if text == "" {
				return ""
			}
			return "\n\n---\n" + text + "\n"
		case IsQuoted(el):
			if !s.Opts.PreserveEmailQuotes {
				return ""
			}
			return renderFlatQuote(el, content)
		case IsOutlookArtifact(el):
			return content
		}
		return renderDiv(s, el, content)
	}, "div")

	t.rules["table"] = Rule{
		Apply: func(s *Scope, el *dom.Node, content string) string {
			if IsLayoutTable(el) {
				return content
			}
			return renderDataTable(el, s.Opts)
		},
		Opaque: func(el *dom.Node) bool { return !IsLayoutTable(el) },
	}

	t.set(func(s *Scope, el *dom.Node, content string) string {
		if !s.Opts.ConvertInlineStyles {
			return content
		}
		return applyInlineStyle(content, el.AttrOr("style", ""), "", s.Opts)
	}, "span")

	t.set(func(s *Scope, el *dom.Node, content string) string {
		if !s.Opts.ConvertInlineStyles {
			return content
		}
		return applyInlineStyle(content, el.AttrOr("style", ""), el.AttrOr("color", ""), s.Opts)
	}, "font")

	t.set(func(s *Scope, el *dom.Node, content string) string {
		href := strings.TrimSpace(el.AttrOr("href", ""))
		if len(href) >= 4 && strings.EqualFold(href[:4], "tel:") {
			return content
		}
		return renderLink(s, el, content)
	}, "a")

	t.set(func(_ *Scope, el *dom.Node, content string) string {
		return renderFlatQuote(el, content)
	}, "blockquote")

	t.set(func(_ *Scope, el *dom.Node, content string) string {
		return renderPre(el, content, opts, false)
	}, "pre")

	return t
}

// renderFlatQuote prefixes every line with a single "> ". When el holds
// inner blockquotes their already quoted lines keep their prefix, so
// nested quotes collapse to one level.
func renderFlatQuote(el *dom.Node, content string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return ""
	}
	inner := hasInnerQuote(el)
	return "\n" + quoteLines(text, "> ", func(line string) bool {
		return inner && strings.HasPrefix(line, ">")
	}) + "\n\n"
}

func hasInnerQuote(el *dom.Node) bool {
	for _, q := range el.FindAll("blockquote") {
		if q != el {
			return true
		}
	}
	return false
}

// ownText concatenates the direct text children of el.
func ownText(el *dom.Node) string {
	var b strings.Builder
	for _, c := range el.Children {
		if c.Kind == dom.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// IsSignature reports whether el's class, id or own text mentions one of
// the usual signature markers.
func IsSignature(el *dom.Node) bool {
	class := strings.ToLower(el.AttrOr("class", ""))
	id := strings.ToLower(el.AttrOr("id", ""))
	text := strings.ToLower(ownText(el))
	for _, ind := range signatureIndicators {
		if strings.Contains(class, ind) || strings.Contains(id, ind) || strings.Contains(text, ind) {
			return true
		}
	}
	return false
}

// IsQuoted reports whether el holds quoted reply content. Any dir="ltr"
// element counts, which over-matches on some clients.
func IsQuoted(el *dom.Node) bool {
	class := el.AttrOr("class", "")
	return strings.Contains(class, "quoted") ||
		strings.Contains(class, "gmail_quote") ||
		strings.Contains(class, "yahoo_quoted") ||
		strings.Contains(el.AttrOr("style", ""), "border-left") ||
		el.AttrOr("dir", "") == "ltr"
}

// IsOutlookArtifact reports whether el is one of Word's wrapper containers.
func IsOutlookArtifact(el *dom.Node) bool {
	class := el.AttrOr("class", "")
	return strings.Contains(class, "WordSection") ||
		strings.Contains(class, "MsoNormal") ||
		strings.Contains(el.AttrOr("style", ""), "mso-")
}

// IsImportantColor reports whether a style or color value uses one of the
// warning colours.
func IsImportantColor(s string) bool {
	s = strings.ToLower(s)
	for _, c := range importantColors {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}

// applyInlineStyle translates bold, italic, underline and warning-colour
// styling into Markdown or HTML wrappers.
func applyInlineStyle(content, style, color string, opts core.Options) string {
	compact := strings.ToLower(strings.Join(strings.Fields(style), ""))
	text := strings.TrimSpace(content)
	if text == "" {
		return content
	}
	styled := text
	if heavyWeight.MatchString(compact) {
		styled = opts.StrongDelimiter + styled + opts.StrongDelimiter
	}
	if strings.Contains(compact, "font-style:italic") {
		styled = opts.EmDelimiter + styled + opts.EmDelimiter
	}
	if strings.Contains(compact, "text-decoration:underline") || strings.Contains(compact, "text-decoration-line:underline") {
		styled = "<u>" + styled + "</u>"
	}
	if (color != "" && IsImportantColor(color)) || (strings.Contains(compact, "color:") && IsImportantColor(compact)) {
		styled = "<mark>" + styled + "</mark>"
	}
	if styled == text {
		return content
	}
	return outerSpace(content, true) + styled + outerSpace(content, false)
}

func outerSpace(s string, leading bool) string {
	if s == "" {
		return ""
	}
	c := s[len(s)-1]
	if leading {
		c = s[0]
	}
	if c == ' ' || c == '\t' {
		return " "
	}
	return ""
}
