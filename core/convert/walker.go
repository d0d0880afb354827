package convert

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gaurav-prasanna/mailmd/core/dom"
	"github.com/gaurav-prasanna/mailmd/core/normalize"
	"github.com/gaurav-prasanna/mailmd/core/rules"
)

// rawTags hold literal text that is never escaped.
var rawTags = map[string]bool{"code": true, "pre": true, "kbd": true, "samp": true}

// preserveTags keep their whitespace as written.
var preserveTags = map[string]bool{"pre": true, "textarea": true}

// mode is inherited from ancestors while walking down.
type mode struct {
	raw      bool
	preserve bool
}

// walker renders one document. It is never shared between conversions.
type walker struct {
	s       *state
	scope   *rules.Scope
	log     logrus.FieldLogger
	visited map[*dom.Node]struct{}
	errors  []string
}

func newWalker(s *state, scope *rules.Scope, log logrus.FieldLogger) *walker {
	return &walker{
		s:       s,
		scope:   scope,
		log:     log,
		visited: make(map[*dom.Node]struct{}),
	}
}

// block renders the children of root as the top-level container.
func (w *walker) block(root *dom.Node) string {
	w.visited[root] = struct{}{}
	return w.children(root, mode{preserve: w.s.opts.PreserveWhitespace})
}

func isContainer(n *dom.Node) bool {
	switch n.Kind {
	case dom.DocumentNode:
		return true
	case dom.ElementNode:
		return n.Tag == "body" || n.Tag == "html" || dom.IsBlock(n.Tag)
	}
	return false
}

func isInlineElement(n *dom.Node) bool {
	return n != nil && n.Kind == dom.ElementNode && dom.IsInline(n.Tag)
}

func isBlockElement(n *dom.Node) bool {
	return n != nil && n.Kind == dom.ElementNode && dom.IsBlock(n.Tag)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

// sibling returns the nearest non-comment sibling of kids[i] in direction
// step, or nil.
func sibling(kids []*dom.Node, i, step int) *dom.Node {
	for j := i + step; j >= 0 && j < len(kids); j += step {
		if kids[j].Kind != dom.CommentNode {
			return kids[j]
		}
	}
	return nil
}

func (w *walker) children(parent *dom.Node, m mode) string {
	var (
		b     strings.Builder
		last  byte
		kids  = parent.Children
		block = isContainer(parent)
	)
	for i, c := range kids {
		if _, seen := w.visited[c]; seen {
			continue
		}

		var out string
		switch c.Kind {
		case dom.TextNode:
			w.visited[c] = struct{}{}
			lineStart := (b.Len() == 0 && block) || last == '\n'
			out = w.text(c, kids, i, block, m, lineStart)
		case dom.ElementNode:
			out = w.element(c, m)
			if out == "" || m.preserve || b.Len() == 0 {
				break
			}
			prev := sibling(kids, i, -1)
			if isInlineElement(prev) && isInlineElement(c) && !isSpace(last) && !isSpace(out[0]) {
				b.WriteByte(' ')
			} else if isBlockElement(c) && c.Tag != "td" && c.Tag != "th" && last != '\n' && out[0] != '\n' {
				b.WriteByte('\n')
			}
		default:
			continue
		}

		if out != "" {
			b.WriteString(out)
			last = out[len(out)-1]
		}
	}
	return b.String()
}

// text renders a text node. Outside preserve mode whitespace is collapsed,
// runs at the edges of a block are trimmed, and a whitespace-only run next
// to a block element disappears.
func (w *walker) text(n *dom.Node, kids []*dom.Node, i int, block bool, m mode, lineStart bool) string {
	t := n.Data
	if !m.preserve {
		t = normalize.NormalizeWhitespace(t, normalize.Collapse)
		if block && sibling(kids, i, -1) == nil {
			t = strings.TrimLeft(t, " ")
		}
		if block && sibling(kids, i, 1) == nil {
			t = strings.TrimRight(t, " ")
		}
		if t == " " && (isBlockElement(sibling(kids, i, -1)) || isBlockElement(sibling(kids, i, 1))) {
			t = ""
		}
		if lineStart && !m.raw {
			t = strings.TrimLeft(t, " ")
		}
	}
	if m.raw || t == "" {
		return t
	}
	return normalize.EscapeText(t, w.s.opts.Escaping, lineStart)
}

func (w *walker) element(el *dom.Node, m mode) string {
	w.visited[el] = struct{}{}
	if w.s.ignore[el.Tag] {
		return ""
	}
	if w.s.keep[el.Tag] {
		return dom.OuterHTML(el)
	}

	child := m
	if rawTags[el.Tag] {
		child.raw = true
	}
	if preserveTags[el.Tag] {
		child.preserve = true
	}

	rule, source := w.lookup(el)
	if rule.Apply == nil {
		return w.children(el, child)
	}
	content := ""
	if rule.Opaque == nil || !rule.Opaque(el) {
		content = w.children(el, child)
	}
	return w.apply(rule, source, el, content)
}

// lookup resolves the rule for el: custom rules first, then email rules for
// email documents, then the base table.
func (w *walker) lookup(el *dom.Node) (rules.Rule, string) {
	if r, ok := w.s.custom.Lookup(el); ok {
		return r, "custom"
	}
	if w.scope.Email.IsEmailContent {
		if r, ok := w.s.email.Lookup(el.Tag); ok {
			return r, w.s.email.Name()
		}
	}
	if r, ok := w.s.base.Lookup(el.Tag); ok {
		return r, w.s.base.Name()
	}
	return rules.Rule{}, ""
}

// apply runs a rule. A panicking rule is logged and recorded, and the
// element renders as its child content.
func (w *walker) apply(r rules.Rule, source string, el *dom.Node, content string) (out string) {
	defer func() {
		if p := recover(); p != nil {
			w.log.WithFields(logrus.Fields{
				"tag":   el.Tag,
				"rule":  source,
				"error": p,
			}).Warn("Rule failed, using child content")
			w.errors = append(w.errors, fmt.Sprintf("%s: %v", el.Tag, p))
			out = content
		}
	}()
	return r.Apply(w.scope, el, content)
}
