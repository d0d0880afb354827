// Package convert walks a parsed document and renders it as Markdown using
// the rule tables in core/rules. It also collects document metadata and
// offers the HTMLToMarkdown and EmailToMarkdown entry points.
package convert

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
	"github.com/gaurav-prasanna/mailmd/core/email"
	"github.com/gaurav-prasanna/mailmd/core/extract"
	"github.com/gaurav-prasanna/mailmd/core/normalize"
	"github.com/gaurav-prasanna/mailmd/core/rules"
)

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used for rule failures and detection results.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Converter) { c.log = log }
}

// WithParser replaces the default extractor. A nil parser makes every
// conversion fail with core.ErrParserUnavailable.
func WithParser(p core.Parser) Option {
	return func(c *Converter) {
		c.parser = p
		c.customParser = true
	}
}

// state is everything derived from one Options value. It is replaced as a
// whole when options change and never modified in place.
type state struct {
	opts   core.Options
	parser core.Parser
	base   *rules.Table
	email  *rules.Table
	custom *rules.CustomTable
	ignore map[string]bool
	keep   map[string]bool
}

// Converter turns HTML into Markdown. It is safe for concurrent use; each
// call to Convert works on its own walker.
type Converter struct {
	log          logrus.FieldLogger
	parser       core.Parser
	customParser bool
	fallback     *normalize.Fallback
	state        atomic.Pointer[state]
}

var _ core.Converter = (*Converter)(nil)

// New validates opts and builds the rule tables for them.
func New(opts core.Options, options ...Option) (*Converter, error) {
	c := &Converter{log: logrus.StandardLogger(), fallback: normalize.NewFallback()}
	for _, o := range options {
		o(c)
	}
	if err := c.SetOptions(opts); err != nil {
		return nil, err
	}
	return c, nil
}

// SetOptions rebuilds the rule tables for opts. Conversions already running
// keep the tables they started with.
func (c *Converter) SetOptions(opts core.Options) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	s := &state{
		opts:   opts,
		parser: c.parser,
		base:   rules.NewBase(opts),
		email:  rules.NewEmail(opts),
		custom: rules.NewCustom(opts.CustomRules),
		ignore: tagSet(opts.IgnoreElements),
		keep:   tagSet(opts.KeepElements),
	}
	if !c.customParser {
		s.parser = extract.New(opts)
	}
	c.state.Store(s)
	return nil
}

// Options returns the options currently in effect.
func (c *Converter) Options() core.Options {
	return c.state.Load().opts
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			set[t] = true
		}
	}
	return set
}

// Convert parses html and renders it.
func (c *Converter) Convert(html string) (*core.Result, error) {
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("HTML to Markdown conversion failed: %w", core.ErrInvalidInput)
	}
	return c.ConvertReader(strings.NewReader(html), "text/html; charset=utf-8")
}

// ConvertReader is Convert for raw bytes whose charset is named by
// contentType or sniffed from the content.
func (c *Converter) ConvertReader(r io.Reader, contentType string) (*core.Result, error) {
	s := c.state.Load()
	if s.parser == nil {
		return nil, fmt.Errorf("HTML to Markdown conversion failed: %w", core.ErrParserUnavailable)
	}
	doc, err := s.parser.Parse(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("HTML to Markdown conversion failed: %w", err)
	}
	return c.render(s, doc), nil
}

// ConvertDocument renders an already parsed tree.
func (c *Converter) ConvertDocument(doc *dom.Node) (*core.Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("HTML to Markdown conversion failed: %w", core.ErrInvalidInput)
	}
	return c.render(c.state.Load(), doc), nil
}

func (c *Converter) render(s *state, doc *dom.Node) *core.Result {
	ctx := email.Detect(doc)
	c.log.WithFields(logrus.Fields{
		"email":     ctx.IsEmailContent,
		"client":    ctx.ClientType,
		"signature": ctx.HasSignature,
		"quoted":    ctx.HasQuotedContent,
		"headers":   ctx.HasEmailHeaders,
	}).Debug("Detected email context")

	scope := rules.NewScope(s.opts, ctx)
	w := newWalker(s, scope, c.log)
	body := doc.Body()

	md := w.block(body)
	if s.opts.LinkStyle == core.LinkReferenced {
		md += scope.Refs.Definitions()
	}
	md = normalize.PostProcess(md, s.opts.TrimWhitespace)

	if md == "" && s.opts.ExtractPlainTextFallback {
		md = c.plainText(s.opts, body)
	}

	meta := extractMetadata(doc, scope, s.opts)
	meta.Errors = w.errors
	return &core.Result{Markdown: md, Metadata: meta, Email: ctx}
}

// plainText renders body with the html-to-markdown converter. It is only
// consulted when the rule engine produced nothing.
func (c *Converter) plainText(opts core.Options, body *dom.Node) string {
	domain := ""
	if u, err := url.Parse(opts.BaseURL); err == nil {
		domain = u.Host
	}
	var b strings.Builder
	for _, ch := range body.Children {
		b.WriteString(dom.OuterHTML(ch))
	}
	md, err := c.fallback.Normalize(b.String(), domain)
	if err != nil {
		c.log.WithError(err).Warn("Plain text fallback failed")
		return ""
	}
	return normalize.PostProcess(md, opts.TrimWhitespace)
}
