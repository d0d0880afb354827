// Package rules holds the rule tables the converter consults for every
// element: Base for generic HTML, Email for email idioms and Custom for
// user-supplied selector rules. Tables are built from core.Options once and
// never mutated afterwards; a change of options means building new tables.
package rules

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

// Rule renders one element. Apply receives the element's rendered children.
// When Opaque is set and reports true for an element, the converter does not
// render its children and Apply gets an empty content string.
type Rule struct {
	Apply  func(s *Scope, el *dom.Node, content string) string
	Opaque func(el *dom.Node) bool
}

// Table is an immutable tag-keyed rule table.
type Table struct {
	name  string
	rules map[string]Rule
}

func newTable(name string) *Table {
	return &Table{name: name, rules: make(map[string]Rule)}
}

func (t *Table) set(fn func(s *Scope, el *dom.Node, content string) string, tags ...string) {
	for _, tag := range tags {
		t.rules[tag] = Rule{Apply: fn}
	}
}

// Name identifies the table in logs ("base", "email").
func (t *Table) Name() string { return t.name }

// Lookup returns the rule for tag.
func (t *Table) Lookup(tag string) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	r, ok := t.rules[tag]
	return r, ok
}

// Tags lists the tags the table has rules for, sorted.
func (t *Table) Tags() []string {
	tags := make([]string, 0, len(t.rules))
	for tag := range t.rules {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Scope is the per-conversion state rules may read or extend.
type Scope struct {
	Opts  core.Options
	Email core.EmailContext
	Refs  *LinkRefs

	base *url.URL
}

// NewScope creates the state for one conversion. An unparsable BaseURL is
// ignored.
func NewScope(opts core.Options, email core.EmailContext) *Scope {
	s := &Scope{
		Opts:  opts,
		Email: email,
		Refs:  NewLinkRefs(opts.LinkReferenceStyle),
	}
	if opts.BaseURL != "" {
		if u, err := url.Parse(opts.BaseURL); err == nil && u.IsAbs() {
			s.base = u
		}
	}
	return s
}

// Resolve makes ref absolute against the configured base URL.
func (s *Scope) Resolve(ref string) string {
	if s == nil || s.base == nil || ref == "" || strings.HasPrefix(ref, "#") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return s.base.ResolveReference(u).String()
}

type refKey struct {
	url   string
	title string
}

type linkDef struct {
	label string
	url   string
	title string
}

// LinkRefs numbers and collects reference-style link definitions.
type LinkRefs struct {
	style  core.LinkReferenceStyle
	byKey  map[refKey]int
	labels map[string]struct{}
	defs   []linkDef
}

// NewLinkRefs returns an empty collection for the given reference style.
func NewLinkRefs(style core.LinkReferenceStyle) *LinkRefs {
	if style == "" {
		style = core.LinkReferenceFull
	}
	return &LinkRefs{
		style:  style,
		byKey:  make(map[refKey]int),
		labels: make(map[string]struct{}),
	}
}

// Link records href/title and returns the reference form of the link.
// With the full style identical (href, title) pairs share one number,
// assigned in first-seen order from 1. The collapsed and shortcut styles
// label the definition with the link text; the first definition of a label wins.
func (r *LinkRefs) Link(text, href, title string) string {
	switch r.style {
	case core.LinkReferenceCollapsed, core.LinkReferenceShortcut:
		key := strings.ToLower(text)
		if _, ok := r.labels[key]; !ok {
			r.labels[key] = struct{}{}
			r.defs = append(r.defs, linkDef{label: text, url: href, title: title})
		}
		if r.style == core.LinkReferenceCollapsed {
			return "[" + text + "][]"
		}
		return "[" + text + "]"
	}

	k := refKey{url: href, title: title}
	n, ok := r.byKey[k]
	if !ok {
		n = len(r.byKey) + 1
		r.byKey[k] = n
		r.defs = append(r.defs, linkDef{label: fmt.Sprint(n), url: href, title: title})
	}
	return fmt.Sprintf("[%s][%d]", text, n)
}

// Len returns the number of definitions collected.
func (r *LinkRefs) Len() int { return len(r.defs) }

// Definitions renders the collected definitions block, or "" when empty.
func (r *LinkRefs) Definitions() string {
	if len(r.defs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n")
	for _, d := range r.defs {
		fmt.Fprintf(&b, "[%s]: %s", d.label, destination(d.url))
		if d.title != "" {
			b.WriteString(" " + quoteTitle(d.title))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
