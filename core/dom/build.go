package dom

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Parse reads an HTML document and builds its tree.
func Parse(r io.Reader) (*Node, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return FromHTML(root), nil
}

// FromHTML converts an x/net/html tree. The returned root remembers the
// source nodes so NewQuerier can use cascadia selectors on it.
func FromHTML(root *html.Node) *Node {
	index := make(map[*html.Node]*Node)
	var build func(*html.Node) *Node
	build = func(h *html.Node) *Node {
		var n *Node
		switch h.Type {
		case html.DocumentNode:
			n = &Node{Kind: DocumentNode}
		case html.ElementNode:
			n = &Node{Kind: ElementNode, Tag: strings.ToLower(h.Data)}
			if len(h.Attr) > 0 {
				n.Attrs = make(map[string]string, len(h.Attr))
				for _, a := range h.Attr {
					key := strings.ToLower(a.Key)
					if a.Namespace != "" {
						key = a.Namespace + ":" + key
					}
					if _, dup := n.Attrs[key]; !dup {
						n.Attrs[key] = a.Val
					}
				}
			}
		case html.TextNode:
			n = &Node{Kind: TextNode, Data: h.Data}
		case html.CommentNode:
			n = &Node{Kind: CommentNode, Data: h.Data}
		default:
			return nil
		}
		n.src = h
		index[h] = n
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			n.AppendChild(build(c))
		}
		return n
	}

	doc := build(root)
	if doc == nil {
		doc = &Node{Kind: DocumentNode}
	}
	doc.index = index
	return doc
}

var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

// OuterHTML serialises n and its subtree back to HTML. Attributes are
// written in name order.
func OuterHTML(n *Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	seen := make(map[*Node]struct{})
	var write func(*Node)
	write = func(c *Node) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		switch c.Kind {
		case TextNode:
			buf.WriteString(html.EscapeString(c.Data))
			return
		case CommentNode:
			buf.WriteString("<!--")
			buf.WriteString(c.Data)
			buf.WriteString("-->")
			return
		case DocumentNode:
			for _, child := range c.Children {
				write(child)
			}
			return
		}
		buf.WriteByte('<')
		buf.WriteString(c.Tag)
		keys := make([]string, 0, len(c.Attrs))
		for k := range c.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&buf, " %s=\"%s\"", k, html.EscapeString(c.Attrs[k]))
		}
		buf.WriteByte('>')
		if voidTags[c.Tag] {
			return
		}
		for _, child := range c.Children {
			write(child)
		}
		buf.WriteString("</")
		buf.WriteString(c.Tag)
		buf.WriteByte('>')
	}
	write(n)
	return buf.String()
}
