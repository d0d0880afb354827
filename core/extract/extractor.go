// Package extract implements the core.Parser interface.
// It prepares raw (often email-generated) HTML for conversion by:
//  1. Decoding the declared or sniffed charset to UTF-8
//  2. Stripping Outlook XML, namespaces, conditional comments and mso- styles
//  3. Removing noise elements (scripts, styles, tracking pixels, empty Outlook spans)
//  4. Collapsing whitespace outside <pre>/<textarea> and NFC-normalising text
package extract

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

// noiseSelectors are HTML elements removed before conversion.
// These contribute no meaningful content to the Markdown.
var noiseSelectors = []string{
	"script", "style", "noscript", "template",
	`img[width="1"][height="1"]`,
	`img[width="0"][height="0"]`,
}

var outlookPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)<\?xml[^>]*>`), ""},
	{regexp.MustCompile(`(?i)\s+xmlns(:[\w-]+)?="[^"]*"`), ""},
	{regexp.MustCompile(`(?is)<!--\[if[^>]*>.*?<!\[endif\]-->`), ""},
	{regexp.MustCompile(`(?i)<o:p(\s[^>]*)?>`), "<p>"},
	{regexp.MustCompile(`(?i)</o:p>`), "</p>"},
	{regexp.MustCompile(`(?i)\bmso-[^;:"']+:[^;"']+;?`), ""},
	{regexp.MustCompile(`(?i)-webkit-[^;:"']+:[^;"']+;?`), ""},
}

// HTMLExtractor cleans raw HTML and builds the document tree.
type HTMLExtractor struct {
	outlook  bool
	preserve bool
}

// New creates an HTMLExtractor configured from opts.
func New(opts core.Options) *HTMLExtractor {
	return &HTMLExtractor{
		outlook:  opts.HandleOutlookSpecific,
		preserve: opts.PreserveWhitespace,
	}
}

// Parse reads raw HTML from r. contentType, when known, names the charset
// (e.g. "text/html; charset=windows-1252"); otherwise it is sniffed.
func (e *HTMLExtractor) Parse(r io.Reader, contentType string) (*dom.Node, error) {
	utf8, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding charset: %w", err)
	}
	raw, err := io.ReadAll(utf8)
	if err != nil {
		return nil, fmt.Errorf("reading HTML: %w", err)
	}
	return e.ParseString(string(raw))
}

// ParseString is Parse for HTML that is already UTF-8.
func (e *HTMLExtractor) ParseString(src string) (*dom.Node, error) {
	if e.outlook {
		src = CleanOutlook(src)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	// Remove noise elements first (operates on the whole document).
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}
	if e.outlook {
		doc.Find("span").FilterFunction(isEmptyOutlookSpan).Remove()
	}

	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("no document root in HTML")
	}
	root := doc.Nodes[0]
	cleanText(root, e.preserve, false)

	return dom.FromHTML(root), nil
}

// CleanOutlook strips the XML declarations, namespace attributes,
// conditional comments and mso-/webkit- style properties that Word-based
// clients emit, and turns <o:p> into <p>.
func CleanOutlook(src string) string {
	for _, p := range outlookPatterns {
		src = p.re.ReplaceAllString(src, p.repl)
	}
	return src
}

func isEmptyOutlookSpan(_ int, s *goquery.Selection) bool {
	if s.Children().Length() > 0 || strings.TrimSpace(s.Text()) != "" {
		return false
	}
	for _, a := range s.Nodes[0].Attr {
		if strings.Contains(strings.ToLower(a.Val), "mso") {
			return true
		}
	}
	return false
}

// cleanText NFC-normalises every text node and, unless preserve is set,
// collapses whitespace runs outside <pre> and <textarea>.
func cleanText(n *html.Node, preserve, inPre bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			text := norm.NFC.String(c.Data)
			if !preserve && !inPre {
				text = collapseSpace(strings.ReplaceAll(text, "\u00a0", " "))
			}
			c.Data = text
		case html.ElementNode:
			tag := strings.ToLower(c.Data)
			cleanText(c, preserve, inPre || tag == "pre" || tag == "textarea")
		default:
			cleanText(c, preserve, inPre)
		}
	}
}

var spaceRun = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return spaceRun.ReplaceAllString(s, " ")
}
