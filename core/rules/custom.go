package rules

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

var placeholder = regexp.MustCompile(`\$\{([\w-]+)\}`)

type customEntry struct {
	tag      string // "" matches any element
	class    string
	priority int
	seq      int
	rule     core.CustomRule
}

func (e *customEntry) matches(el *dom.Node) bool {
	if e.tag != "" && e.tag != el.Tag {
		return false
	}
	return e.class == "" || el.HasClass(e.class)
}

// before orders entries by descending priority, then registration order.
func (e *customEntry) before(o *customEntry) bool {
	if e.priority != o.priority {
		return e.priority > o.priority
	}
	return e.seq < o.seq
}

// CustomTable holds user rules. Selectors are deliberately simple: "tag",
// "*", ".class" and "tag.class" are understood; for "#id" or "[attr]"
// forms only a leading tag name is used, and without one the rule never
// matches. Comma-separated selectors register one entry per part.
type CustomTable struct {
	byTag map[string][]*customEntry
	any   []*customEntry
	seq   int
}

// NewCustom builds a table from rules in registration order.
func NewCustom(rules []core.CustomRule) *CustomTable {
	t := &CustomTable{byTag: make(map[string][]*customEntry)}
	for _, r := range rules {
		t.Add(r)
	}
	return t
}

// Add registers r. Tables must not be modified once handed to a converter.
func (t *CustomTable) Add(r core.CustomRule) {
	for _, part := range strings.Split(r.Selector, ",") {
		tag, class, ok := parseCustomSelector(strings.TrimSpace(part))
		if !ok {
			continue
		}
		t.seq++
		e := &customEntry{tag: tag, class: class, priority: r.Priority, seq: t.seq, rule: r}
		if tag == "" {
			t.any = insertEntry(t.any, e)
		} else {
			t.byTag[tag] = insertEntry(t.byTag[tag], e)
		}
	}
}

func insertEntry(list []*customEntry, e *customEntry) []*customEntry {
	i := sort.Search(len(list), func(i int) bool { return e.before(list[i]) })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = e
	return list
}

// Len returns the number of registered entries.
func (t *CustomTable) Len() int {
	if t == nil {
		return 0
	}
	n := len(t.any)
	for _, l := range t.byTag {
		n += len(l)
	}
	return n
}

// Lookup returns the highest-priority rule matching el.
func (t *CustomTable) Lookup(el *dom.Node) (Rule, bool) {
	if t == nil || el == nil {
		return Rule{}, false
	}
	var best *customEntry
	for _, list := range [][]*customEntry{t.byTag[el.Tag], t.any} {
		for _, e := range list {
			if e.matches(el) {
				if best == nil || e.before(best) {
					best = e
				}
				break
			}
		}
	}
	if best == nil {
		return Rule{}, false
	}
	r := best.rule
	return Rule{Apply: func(s *Scope, el *dom.Node, content string) string {
		if r.Func != nil {
			return r.Func(content, el, s.Opts)
		}
		return ExpandTemplate(r.Template, el, content)
	}}, true
}

// parseCustomSelector splits a selector into the tag and class it matches
// on. An empty tag means any element.
func parseCustomSelector(sel string) (tag, class string, ok bool) {
	if sel == "" {
		return "", "", false
	}
	// Only the leading compound of a descendant selector is matched on.
	if fields := strings.Fields(sel); len(fields) > 1 {
		sel = fields[0]
	}
	if sel == "*" {
		return "", "", true
	}

	i := 0
	for i < len(sel) && (isLetter(sel[i]) || (i > 0 && sel[i] >= '0' && sel[i] <= '9')) {
		i++
	}
	tag = strings.ToLower(sel[:i])
	rest := sel[i:]
	if strings.HasPrefix(rest, "*") && tag == "" {
		rest = rest[1:]
	}

	switch {
	case rest == "":
		return tag, "", tag != "" || sel == "*"
	case rest[0] == '.':
		class = rest[1:]
		if j := strings.IndexAny(class, ".#[:"); j >= 0 {
			class = class[:j]
		}
		return tag, class, class != ""
	default:
		// #id and [attr] parts are not matched on.
		return tag, "", tag != ""
	}
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// ExpandTemplate substitutes ${content}, ${text} and ${attr} placeholders in
// one pass. Unknown attributes expand to "".
func ExpandTemplate(tmpl string, el *dom.Node, content string) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[2 : len(m)-1]
		switch name {
		case "content":
			return content
		case "text":
			return el.TextContent()
		}
		return el.AttrOr(name, "")
	})
}
