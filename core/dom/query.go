package dom

import (
	"strings"

	"github.com/andybalholm/cascadia"
)

// Querier finds descendant elements by CSS selector.
type Querier interface {
	// QueryAll returns every element matching sel, in document order.
	QueryAll(sel string) []*Node
	// Query returns the first element matching sel, or nil.
	Query(sel string) *Node
}

// NewQuerier picks the selector engine for root once: cascadia when root was
// built from an x/net/html tree, a manual tree search otherwise. The returned
// querier caches compiled selectors and must not outlive one conversion.
func NewQuerier(root *Node) Querier {
	if root != nil && root.src != nil && root.index != nil {
		return &cascadiaQuerier{root: root, compiled: make(map[string]cascadia.SelectorGroup)}
	}
	return &treeQuerier{root: root, compiled: make(map[string][]compound)}
}

type cascadiaQuerier struct {
	root     *Node
	compiled map[string]cascadia.SelectorGroup
}

func (q *cascadiaQuerier) group(sel string) cascadia.SelectorGroup {
	if g, ok := q.compiled[sel]; ok {
		return g
	}
	g, err := cascadia.ParseGroup(sel)
	if err != nil {
		g = nil
	}
	q.compiled[sel] = g
	return g
}

func (q *cascadiaQuerier) QueryAll(sel string) []*Node {
	g := q.group(sel)
	if g == nil {
		return nil
	}
	var out []*Node
	for _, h := range cascadia.QueryAll(q.root.src, g) {
		if n, ok := q.root.index[h]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (q *cascadiaQuerier) Query(sel string) *Node {
	g := q.group(sel)
	if g == nil {
		return nil
	}
	h := cascadia.Query(q.root.src, g)
	if h == nil {
		return nil
	}
	return q.root.index[h]
}

// treeQuerier understands compound selectors only: an optional tag or "*"
// followed by .class, #id and [attr], [attr=v], [attr*=v], [attr^=v],
// [attr$=v], [attr~=v] parts, in comma-separated groups. For selectors with
// combinators only the last compound is matched.
type treeQuerier struct {
	root     *Node
	compiled map[string][]compound
}

func (q *treeQuerier) parse(sel string) []compound {
	if c, ok := q.compiled[sel]; ok {
		return c
	}
	var group []compound
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		if fields := strings.Fields(part); len(fields) > 1 {
			part = fields[len(fields)-1]
		}
		if c, ok := parseCompound(part); ok {
			group = append(group, c)
		}
	}
	q.compiled[sel] = group
	return group
}

func (q *treeQuerier) QueryAll(sel string) []*Node {
	group := q.parse(sel)
	if len(group) == 0 || q.root == nil {
		return nil
	}
	var out []*Node
	q.root.Walk(func(n *Node) bool {
		if n != q.root && n.Kind == ElementNode {
			for _, c := range group {
				if c.match(n) {
					out = append(out, n)
					break
				}
			}
		}
		return true
	})
	return out
}

func (q *treeQuerier) Query(sel string) *Node {
	group := q.parse(sel)
	if len(group) == 0 || q.root == nil {
		return nil
	}
	var found *Node
	q.root.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n != q.root && n.Kind == ElementNode {
			for _, c := range group {
				if c.match(n) {
					found = n
					return false
				}
			}
		}
		return true
	})
	return found
}

type attrTest struct {
	name  string
	op    string
	value string
}

type compound struct {
	tag   string
	tests []attrTest
}

func (c compound) match(n *Node) bool {
	if c.tag != "" && c.tag != "*" && n.Tag != c.tag {
		return false
	}
	for _, t := range c.tests {
		v, ok := n.Attr(t.name)
		if !ok {
			return false
		}
		switch t.op {
		case "":
		case "=":
			if v != t.value {
				return false
			}
		case "*=":
			if t.value == "" || !strings.Contains(v, t.value) {
				return false
			}
		case "^=":
			if t.value == "" || !strings.HasPrefix(v, t.value) {
				return false
			}
		case "$=":
			if t.value == "" || !strings.HasSuffix(v, t.value) {
				return false
			}
		case "~=":
			found := false
			for _, f := range strings.Fields(v) {
				if f == t.value {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func parseCompound(s string) (compound, bool) {
	var c compound
	i := 0
	readIdent := func() string {
		start := i
		for i < len(s) && isIdentByte(s[i]) {
			i++
		}
		return s[start:i]
	}

	if i < len(s) && s[i] == '*' {
		c.tag = "*"
		i++
	} else if i < len(s) && isIdentByte(s[i]) {
		c.tag = strings.ToLower(readIdent())
	}

	for i < len(s) {
		switch s[i] {
		case '.':
			i++
			name := readIdent()
			if name == "" {
				return c, false
			}
			c.tests = append(c.tests, attrTest{name: "class", op: "~=", value: name})
		case '#':
			i++
			name := readIdent()
			if name == "" {
				return c, false
			}
			c.tests = append(c.tests, attrTest{name: "id", op: "=", value: name})
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, false
			}
			t, ok := parseAttrTest(s[i+1 : i+end])
			if !ok {
				return c, false
			}
			c.tests = append(c.tests, t)
			i += end + 1
		default:
			return c, false
		}
	}
	return c, c.tag != "" || len(c.tests) > 0
}

func parseAttrTest(body string) (attrTest, bool) {
	for _, op := range []string{"*=", "^=", "$=", "~=", "="} {
		if idx := strings.Index(body, op); idx > 0 {
			name := strings.ToLower(strings.TrimSpace(body[:idx]))
			value := strings.TrimSpace(body[idx+len(op):])
			value = strings.Trim(value, `"'`)
			return attrTest{name: name, op: op, value: value}, name != ""
		}
	}
	name := strings.ToLower(strings.TrimSpace(body))
	return attrTest{name: name}, name != ""
}
