// Package email classifies documents as email-originated markup and pulls
// header fields, recipient lists and inline images out of them.
package email

import (
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

var indicatorSelectors = []string{
	`[id*="gmail"]`, `[class*="gmail"]`,
	`[id*="outlook"]`, `[class*="outlook"]`, `[class*="mso"]`, `[class*="Mso"]`, `[class*="WordSection"]`,
	`[class*="yahoo"]`, `[id*="yahoo"]`,
	`[class*="signature"]`, `[class*="quoted"]`,
	`blockquote[type="cite"]`,
	`[class*="email"]`, `[id*="email"]`,
}

var emailPhrases = []string{
	"from:", "to:", "subject:", "sent from", "best regards",
	"sincerely", "kind regards", "thanks", "forwarded message",
	"original message", "reply to", "cc:", "bcc:",
}

var headerSelectors = []string{
	`[id*="header"]`, `[class*="header"]`,
	`[class*="from"]`, `[class*="to"]`, `[class*="subject"]`,
	`[class*="date"]`, `[class*="sender"]`,
	`meta[name*="email"]`, `meta[property*="email"]`,
}

var signatureSelectors = []string{
	`[class*="signature"]`, `[id*="signature"]`,
	`[class*="sig"]`, `[id*="sig"]`,
	`[class*="footer"]`, `[id*="footer"]`,
}

var signaturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)best regards,?\s*\n`),
	regexp.MustCompile(`(?i)sincerely,?\s*\n`),
	regexp.MustCompile(`(?i)kind regards,?\s*\n`),
	regexp.MustCompile(`(?i)sent from my \w+`),
	regexp.MustCompile(`--\s*\n`),
}

var quotedSelectors = []string{
	`blockquote`, `[class*="quoted"]`, `[class*="gmail_quote"]`,
	`[class*="yahoo_quoted"]`, `[dir="ltr"]`, `[class*="quote"]`,
	`[id*="quote"]`,
}

var quotedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^>\s`),
	regexp.MustCompile(`(?m)wrote:\s*$`),
}

// clientRules is checked in order; the first family with a match wins.
var clientRules = []struct {
	client    core.ClientType
	selectors []string
}{
	{core.ClientGmail, []string{`[class*="gmail"]`, `[id*="gmail"]`}},
	{core.ClientOutlook, []string{`[class*="outlook"]`, `[class*="mso"]`, `[class*="Mso"]`, `[class*="WordSection"]`}},
	{core.ClientYahoo, []string{`[class*="yahoo"]`, `[id*="yahoo"]`}},
	{core.ClientApple, []string{`[class*="apple"]`, `[id*="applemail"]`}},
	{core.ClientThunderbird, []string{`[class*="thunderbird"]`, `[class*="moz"]`}},
}

var generatorClients = []struct {
	needle string
	client core.ClientType
}{
	{"outlook", core.ClientOutlook},
	{"apple", core.ClientApple},
	{"thunderbird", core.ClientThunderbird},
}

// Detector inspects one document. The zero value is not usable; create one
// with NewDetector.
type Detector struct {
	doc  *dom.Node
	q    dom.Querier
	text string
}

// NewDetector prepares doc for classification. The querier is chosen once
// for the document.
func NewDetector(doc *dom.Node) *Detector {
	return &Detector{doc: doc, q: dom.NewQuerier(doc), text: doc.Body().BlockText()}
}

// Detect classifies doc.
func Detect(doc *dom.Node) core.EmailContext {
	return NewDetector(doc).Context()
}

// Context runs every heuristic. The header, signature and quote checks are
// independent of whether the document counts as email.
func (d *Detector) Context() core.EmailContext {
	return core.EmailContext{
		IsEmailContent:   d.isEmail(),
		HasEmailHeaders:  d.anyMatch(headerSelectors),
		HasSignature:     d.anyMatch(signatureSelectors) || anyPattern(signaturePatterns, d.text),
		HasQuotedContent: d.anyMatch(quotedSelectors) || anyPattern(quotedPatterns, d.text),
		ClientType:       d.client(),
	}
}

func (d *Detector) isEmail() bool {
	if d.anyMatch(indicatorSelectors) {
		return true
	}
	lower := strings.ToLower(d.text)
	for _, p := range emailPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func (d *Detector) client() core.ClientType {
	for _, r := range clientRules {
		if d.anyMatch(r.selectors) {
			return r.client
		}
	}
	if meta := d.q.Query(`meta[name="generator"]`); meta != nil {
		gen := strings.ToLower(meta.AttrOr("content", ""))
		for _, g := range generatorClients {
			if strings.Contains(gen, g.needle) {
				return g.client
			}
		}
	}
	return core.ClientOther
}

func (d *Detector) anyMatch(selectors []string) bool {
	for _, sel := range selectors {
		if d.q.Query(sel) != nil {
			return true
		}
	}
	return false
}

func anyPattern(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
