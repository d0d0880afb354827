// JSON renderer.
// Builds the structured JSON output from a converted document. The Markdown
// is parsed with goldmark to report its structure (headings, links, code
// blocks, tables, lists) and a plain-text rendition.

package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/gaurav-prasanna/mailmd/core"
)

// Heading is a Markdown heading.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is a Markdown link or autolink.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Section is the text between a heading and the next one.
type Section struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Text    string `json:"text"`
}

// Structure summarises a Markdown document.
type Structure struct {
	Headings   []Heading `json:"headings"`
	Links      []Link    `json:"links"`
	Sections   []Section `json:"sections,omitempty"`
	CodeBlocks int       `json:"code_blocks"`
	Tables     int       `json:"tables"`
	Lists      int       `json:"lists"`
	Text       string    `json:"-"`
}

type jsonDocument struct {
	Source      string            `json:"source"`
	ConvertedAt time.Time         `json:"converted_at"`
	Markdown    string            `json:"markdown"`
	Text        string            `json:"text"`
	Metadata    core.Metadata     `json:"metadata"`
	Email       core.EmailContext `json:"email"`
	Structure   Structure         `json:"structure"`
}

// JSONRenderer produces structured JSON output.
type JSONRenderer struct {
	md goldmark.Markdown
}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{md: newMarkdownParser()}
}

func newMarkdownParser() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
}

// Render converts the document into JSON.
func (r *JSONRenderer) Render(doc core.Document) ([]byte, error) {
	s := analyze(r.md, doc.Result.Markdown)
	out := jsonDocument{
		Source:      doc.Source,
		ConvertedAt: doc.ConvertedAt,
		Markdown:    doc.Result.Markdown,
		Text:        s.Text,
		Metadata:    doc.Result.Metadata,
		Email:       doc.Result.Email,
		Structure:   s,
	}
	if out.Metadata.Images == nil {
		out.Metadata.Images = []core.ImageInfo{}
	}
	if out.Metadata.Links == nil {
		out.Metadata.Links = []core.LinkInfo{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// Analyze parses markdown and reports its structure.
func Analyze(markdown string) Structure {
	return analyze(newMarkdownParser(), markdown)
}

type headingSpan struct {
	heading    Heading
	start, end int
}

func analyze(md goldmark.Markdown, markdown string) Structure {
	src := []byte(markdown)
	root := md.Parser().Parse(text.NewReader(src))

	s := Structure{Headings: []Heading{}, Links: []Link{}}
	var spans []headingSpan
	var plain strings.Builder

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && plain.Len() > 0 && !strings.HasSuffix(plain.String(), "\n") {
				plain.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			h := Heading{Level: node.Level, Text: nodeText(node, src)}
			s.Headings = append(s.Headings, h)
			if lines := node.Lines(); lines.Len() > 0 {
				seg := lines.At(0)
				spans = append(spans, headingSpan{
					heading: h,
					start:   lineStart(src, seg.Start),
					end:     lineEnd(src, seg.Stop),
				})
			}
		case *ast.Link:
			s.Links = append(s.Links, Link{Text: nodeText(node, src), Href: string(node.Destination)})
		case *ast.AutoLink:
			s.Links = append(s.Links, Link{Text: string(node.Label(src)), Href: string(node.URL(src))})
			plain.Write(node.Label(src))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			s.CodeBlocks++
			writeLines(&plain, node, src)
			return ast.WalkSkipChildren, nil
		case *extast.Table:
			s.Tables++
		case *ast.List:
			s.Lists++
		case *ast.Text:
			plain.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				plain.WriteByte('\n')
			}
		case *ast.String:
			plain.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})

	s.Sections = sections(src, spans)
	s.Text = strings.TrimSpace(plain.String())
	return s
}

func sections(src []byte, spans []headingSpan) []Section {
	if len(spans) == 0 {
		return nil
	}
	out := make([]Section, len(spans))
	for i, sp := range spans {
		stop := len(src)
		if i+1 < len(spans) {
			stop = spans[i+1].start
		}
		body := ""
		if sp.end < stop {
			body = strings.TrimSpace(string(src[sp.end:stop]))
		}
		out[i] = Section{Heading: sp.heading.Text, Level: sp.heading.Level, Text: body}
	}
	return out
}

// nodeText concatenates the literal text below n.
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Text:
				b.Write(c.Segment.Value(src))
				if c.SoftLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(c.Value)
			case *ast.AutoLink:
				b.Write(c.Label(src))
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func writeLines(b *strings.Builder, n ast.Node, src []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
}

func lineStart(src []byte, i int) int {
	if i > len(src) {
		i = len(src)
	}
	if j := bytes.LastIndexByte(src[:i], '\n'); j >= 0 {
		return j + 1
	}
	return 0
}

func lineEnd(src []byte, i int) int {
	if i > len(src) {
		return len(src)
	}
	if j := bytes.IndexByte(src[i:], '\n'); j >= 0 {
		return i + j + 1
	}
	return len(src)
}
