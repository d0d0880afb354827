// Package dom is the document tree the converter walks.
// A Node is one of four kinds (document, element, text, comment). Trees built
// from golang.org/x/net/html keep a link to their source nodes so selector
// queries can run through cascadia; hand-built trees fall back to a manual
// tree search.
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Kind discriminates the node variants.
type Kind uint8

const (
	DocumentNode Kind = iota
	ElementNode
	TextNode
	CommentNode
)

func (k Kind) String() string {
	switch k {
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	default:
		return "unknown"
	}
}

// Node is a single node of the tree. Tag and Attrs are only meaningful for
// elements, Data only for text and comments. Parent is a lookup-only back
// reference.
type Node struct {
	Kind     Kind
	Tag      string
	Attrs    map[string]string
	Data     string
	Children []*Node
	Parent   *Node

	src   *html.Node
	index map[*html.Node]*Node
}

// NewDocument returns a document node owning the given children.
func NewDocument(children ...*Node) *Node {
	n := &Node{Kind: DocumentNode}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

// NewElement returns an element node. The tag and attribute names are
// lower-cased.
func NewElement(tag string, attrs map[string]string, children ...*Node) *Node {
	n := &Node{Kind: ElementNode, Tag: strings.ToLower(tag)}
	if len(attrs) > 0 {
		n.Attrs = make(map[string]string, len(attrs))
		for k, v := range attrs {
			n.Attrs[strings.ToLower(k)] = v
		}
	}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

// NewText returns a text node.
func NewText(s string) *Node {
	return &Node{Kind: TextNode, Data: s}
}

// NewComment returns a comment node.
func NewComment(s string) *Node {
	return &Node{Kind: CommentNode, Data: s}
}

// AppendChild adds c as the last child of n and points c back at n.
func (n *Node) AppendChild(c *Node) {
	if c == nil {
		return
	}
	c.Parent = n
	n.Children = append(n.Children, c)
}

// IsElement reports whether n is an element, optionally with one of the given tags.
func (n *Node) IsElement(tags ...string) bool {
	if n == nil || n.Kind != ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if n.Tag == t {
			return true
		}
	}
	return false
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil || n.Attrs == nil {
		return "", false
	}
	v, ok := n.Attrs[strings.ToLower(name)]
	return v, ok
}

// AttrOr returns the named attribute or def when it is absent.
func (n *Node) AttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// HasClass reports whether the class attribute lists c.
func (n *Node) HasClass(c string) bool {
	for _, f := range strings.Fields(n.AttrOr("class", "")) {
		if f == c {
			return true
		}
	}
	return false
}

// ElementChildren returns the element children of n in document order.
func (n *Node) ElementChildren() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of that node. A node reachable twice is visited once.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	seen := make(map[*Node]struct{})
	var visit func(*Node)
	visit = func(c *Node) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		if !fn(c) {
			return
		}
		for _, child := range c.Children {
			visit(child)
		}
	}
	visit(n)
}

// TextContent concatenates the text of n and its descendants.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case TextNode, CommentNode:
		return n.Data
	}
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		if c.Kind == TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// BlockText is like TextContent but ends every block element and <br> with
// a newline, which keeps line-oriented heuristics usable on collapsed HTML.
func (n *Node) BlockText() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	seen := make(map[*Node]struct{})
	var visit func(*Node)
	visit = func(c *Node) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		switch c.Kind {
		case TextNode:
			b.WriteString(c.Data)
			return
		case CommentNode:
			return
		}
		for _, child := range c.Children {
			visit(child)
		}
		if c.Kind == ElementNode && (c.Tag == "br" || IsBlock(c.Tag)) {
			b.WriteByte('\n')
		}
	}
	visit(n)
	return b.String()
}

// Ancestors calls fn for each ancestor of n, nearest first, until fn returns
// false. Parent chains that loop are cut at the first repeat.
func (n *Node) Ancestors(fn func(*Node) bool) {
	if n == nil {
		return
	}
	seen := map[*Node]struct{}{n: {}}
	for p := n.Parent; p != nil; p = p.Parent {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		if !fn(p) {
			return
		}
	}
}

// Closest returns the nearest ancestor element with the given tag.
func (n *Node) Closest(tag string) *Node {
	var found *Node
	n.Ancestors(func(p *Node) bool {
		if p.IsElement(tag) {
			found = p
			return false
		}
		return true
	})
	return found
}

// CountAncestors counts ancestor elements with the given tag.
func (n *Node) CountAncestors(tag string) int {
	count := 0
	n.Ancestors(func(p *Node) bool {
		if p.IsElement(tag) {
			count++
		}
		return true
	})
	return count
}

// FindAll returns every element below n (n included) with the given tag.
// This is the manual search used when no selector engine is available.
func (n *Node) FindAll(tag string) []*Node {
	tag = strings.ToLower(tag)
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.IsElement(tag) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// First returns the first element below n (n included) with the given tag.
func (n *Node) First(tag string) *Node {
	tag = strings.ToLower(tag)
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.IsElement(tag) {
			found = c
			return false
		}
		return true
	})
	return found
}

// Body returns the <body> element of a document, or n itself when there is none.
func (n *Node) Body() *Node {
	if b := n.First("body"); b != nil {
		return b
	}
	return n
}

var blockTags = map[string]bool{
	"div": true, "p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "ul": true, "ol": true, "li": true, "table": true,
	"tr": true, "td": true, "th": true, "thead": true, "tbody": true, "tfoot": true,
	"section": true, "article": true, "header": true, "footer": true, "main": true,
	"aside": true, "nav": true, "form": true, "fieldset": true, "hr": true,
}

var inlineTags = map[string]bool{
	"span": true, "a": true, "strong": true, "b": true, "em": true, "i": true, "u": true, "s": true,
	"strike": true, "del": true, "ins": true, "mark": true, "small": true, "sub": true,
	"sup": true, "code": true, "kbd": true, "samp": true, "var": true, "abbr": true,
	"acronym": true, "cite": true, "dfn": true, "time": true, "img": true,
}

// IsBlock reports whether tag is a block-level element.
func IsBlock(tag string) bool { return blockTags[tag] }

// IsInline reports whether tag is an inline element.
func IsInline(tag string) bool { return inlineTags[tag] }
