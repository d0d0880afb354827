package convert

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

func markdown(t *testing.T, html string, configure ...func(*core.Options)) string {
	t.Helper()
	res, err := HTMLToMarkdown(html, configure...)
	require.NoError(t, err)
	return res.Markdown
}

func TestConvert_InlineFormatting(t *testing.T) {
	assert.Equal(t, "Hello **world**!", markdown(t, `<p>Hello <strong>world</strong>!</p>`))
	assert.Equal(t, "Hello **world**", markdown(t, `<p>Hello<strong> world</strong></p>`))
	assert.Equal(t, "**a** *b*", markdown(t, `<p><b>a</b><i>b</i></p>`))
	assert.Equal(t, "Use `a*b` here", markdown(t, `<p>Use <code>a*b</code> here</p>`))
}

func TestConvert_Table(t *testing.T) {
	got := markdown(t, `<table><tr><th>Name</th><th>Age</th></tr>`+
		`<tr><td>John</td><td>30</td></tr><tr><td>Jane</td><td>25</td></tr></table>`)
	assert.Equal(t, "| Name | Age |\n| --- | --- |\n| John | 30 |\n| Jane | 25 |", got)
}

func TestConvert_EmptyElementsAreSuppressed(t *testing.T) {
	got := markdown(t, `<p></p><p>   </p><div><span></span></div><p>Single line</p><div></div>`)
	assert.Equal(t, "Single line", got)
}

func TestConvert_Headings(t *testing.T) {
	for level := 1; level <= 6; level++ {
		html := fmt.Sprintf("<h%d>X</h%d>", level, level)
		assert.Equal(t, strings.Repeat("#", level)+" X", markdown(t, html))
	}
	assert.Equal(t, "Intro\n\n## Title\n\nBody", markdown(t, `<p>Intro</p><h2>Title</h2><p>Body</p>`))
}

func TestConvert_Lists(t *testing.T) {
	assert.Equal(t, "1. a\n2. b\n3. c", markdown(t, `<ol start="3"><li>a</li><li>b</li><li>c</li></ol>`))
	assert.Equal(t, "- one\n  - two", markdown(t, `<ul><li>one<ul><li>two</li></ul></li></ul>`))
	assert.Equal(t, "+ x", markdown(t, `<ul><li>x</li></ul>`, func(o *core.Options) { o.BulletListMarker = "+" }))
}

func TestConvert_NestedBlockquotes(t *testing.T) {
	got := markdown(t, `<blockquote><blockquote><blockquote>X</blockquote></blockquote></blockquote>`)
	assert.Equal(t, "> > > X", got)
}

func TestConvert_BlockquoteKeepsCodeLines(t *testing.T) {
	got := markdown(t, "<blockquote><pre>&gt; x\ny</pre></blockquote>")
	assert.Equal(t, "> ```\n> > x\n> y\n> ```", got)
}

func TestConvert_BlockquoteParagraphs(t *testing.T) {
	assert.Equal(t, "> a\n>\n> b", markdown(t, `<blockquote><p>a</p><p>b</p></blockquote>`))
}

func TestConvert_LeadingIndentedCodeBlock(t *testing.T) {
	got := markdown(t, "<pre>one\ntwo</pre><p>after</p>", func(o *core.Options) {
		o.CodeBlockStyle = core.CodeBlockIndented
	})
	assert.Equal(t, "    one\n    two\n\nafter", got)
}

func TestConvert_BlockSiblingsStartNewLines(t *testing.T) {
	assert.Equal(t, "a\nb", markdown(t, `<div>a<div>b</div></div>`))
}

func TestConvert_Mailto(t *testing.T) {
	res, err := HTMLToMarkdown(`<p><a href="mailto:x@y.com">x@y.com</a> or <a href="mailto:x@y.com">Contact</a></p>`)
	require.NoError(t, err)
	assert.Equal(t, "<x@y.com> or [Contact](mailto:x@y.com)", res.Markdown)
	require.Len(t, res.Metadata.Links, 2)
	assert.True(t, res.Metadata.Links[0].IsEmail)
}

func TestConvert_ReferencedLinks(t *testing.T) {
	got := markdown(t, `<p><a href="https://a.example">one</a> and <a href="https://b.example" title="B">two</a></p>`,
		func(o *core.Options) { o.LinkStyle = core.LinkReferenced })
	assert.Equal(t, "[one][1] and [two][2]\n\n[1]: https://a.example\n[2]: https://b.example \"B\"", got)
}

func TestConvert_CodeBlocks(t *testing.T) {
	got := markdown(t, `<pre><code class="language-go">fmt.Println("*hi*")</code></pre>`)
	assert.Equal(t, "```go\nfmt.Println(\"*hi*\")\n```", got)
}

func TestConvert_Escaping(t *testing.T) {
	assert.Equal(t, `1\. not a list and \*stars\*`, markdown(t, `<p>1. not a list and *stars*</p>`))
	assert.Equal(t, `1. not a list`, markdown(t, `<p>1. not a list</p>`, func(o *core.Options) { o.Escaping = core.EscapeNone }))
}

func TestConvert_IgnoreAndKeep(t *testing.T) {
	got := markdown(t, `<nav>menu</nav><p>Text</p><video src="a.mp4"></video>`, func(o *core.Options) {
		o.IgnoreElements = []string{"nav"}
		o.KeepElements = []string{"VIDEO"}
	})
	assert.Equal(t, "Text\n\n<video src=\"a.mp4\"></video>", got)
}

func TestConvert_PlainTextFallback(t *testing.T) {
	configure := func(o *core.Options) {
		o.IgnoreElements = []string{"p"}
		o.ExtractPlainTextFallback = true
	}
	assert.Equal(t, "Only text", markdown(t, `<p>Only text</p>`, configure))
	assert.Equal(t, "", markdown(t, `<p>Only text</p>`, func(o *core.Options) { o.IgnoreElements = []string{"p"} }))
}

func TestConvert_Metadata(t *testing.T) {
	res, err := HTMLToMarkdown(`<html><head><title> Report </title></head><body>`+
		`<img src="/a.png" alt="A"><img src="cid:logo"><a href="/docs">Docs  here</a><a>no href</a></body></html>`,
		func(o *core.Options) { o.BaseURL = "https://example.com" })
	require.NoError(t, err)

	meta := res.Metadata
	assert.Equal(t, "Report", meta.Title)
	assert.Equal(t, []core.ImageInfo{
		{Src: "https://example.com/a.png", Alt: "A"},
		{Src: "cid:logo", IsInline: true},
	}, meta.Images)
	assert.Equal(t, []core.LinkInfo{{Href: "https://example.com/docs", Text: "Docs here"}}, meta.Links)
	assert.Nil(t, meta.EmailHeaders)
	assert.Empty(t, meta.Errors)
	assert.Contains(t, res.Markdown, "![A](https://example.com/a.png) ![](cid:logo) [Docs here](https://example.com/docs)")
}

func TestEmailToMarkdown(t *testing.T) {
	html := `<div class="gmail_default">
<p>Hi team,</p>
<p>See <span style="font-weight:bold">notes</span> and <font color="red">deadline</font>.</p>
<div class="gmail_signature">Jane Doe</div>
<div class="gmail_quote">On Mon, Bob wrote:<blockquote type="cite">Old text</blockquote></div>
</div>`
	res, err := EmailToMarkdown(html)
	require.NoError(t, err)
	assert.Equal(t, "Hi team,\n\nSee **notes** and <mark>deadline</mark>.\n\n---\nJane Doe\n\n> On Mon, Bob wrote:\n> Old text", res.Markdown)
	assert.Equal(t, core.EmailContext{
		IsEmailContent:   true,
		HasSignature:     true,
		HasQuotedContent: true,
		ClientType:       core.ClientGmail,
	}, res.Email)
}

func TestEmailToMarkdown_DropsSignaturesAndQuotesWhenDisabled(t *testing.T) {
	html := `<div class="gmail_signature">Jane</div><div class="gmail_quote">old</div><p>Body</p>`
	res, err := EmailToMarkdown(html, func(o *core.Options) {
		o.HandleEmailSignatures = false
		o.PreserveEmailQuotes = false
	})
	require.NoError(t, err)
	assert.Equal(t, "Body", res.Markdown)
}

func TestConvert_EmailRulesOnlyForEmail(t *testing.T) {
	// Plain pages use the base span rule, which ignores inline styles.
	assert.Equal(t, "bold", markdown(t, `<p><span style="font-weight:bold">bold</span></p>`))
}

func TestConvert_RulePanicFallsBackToChildren(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	opts := core.DefaultOptions()
	opts.CustomRules = []core.CustomRule{{
		Selector: "span",
		Func:     func(string, *dom.Node, core.Options) string { panic("boom") },
	}}
	c, err := New(opts, WithLogger(logger))
	require.NoError(t, err)

	res, err := c.Convert(`<p>a <span>b</span></p>`)
	require.NoError(t, err)
	assert.Equal(t, "a b", res.Markdown)
	assert.Equal(t, []string{"span: boom"}, res.Metadata.Errors)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "span", entry.Data["tag"])
	assert.Equal(t, "custom", entry.Data["rule"])
}

func TestConvert_CustomRulesWin(t *testing.T) {
	got := markdown(t, `<p>Press <kbd>Ctrl</kbd> now</p><p class="note">Careful</p>`, func(o *core.Options) {
		o.CustomRules = []core.CustomRule{
			{Selector: "kbd", Template: "<kbd>${content}</kbd>"},
			{Selector: ".note", Template: "\n> **Note:** ${content}\n\n"},
		}
	})
	assert.Equal(t, "Press <kbd>Ctrl</kbd> now\n\n> **Note:** Careful", got)
}

func TestConvert_CycleTerminates(t *testing.T) {
	p := dom.NewElement("p", nil, dom.NewText("loop"))
	doc := dom.NewDocument(p)
	p.Children = append(p.Children, p)

	c, err := New(core.DefaultOptions())
	require.NoError(t, err)
	res, err := c.ConvertDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, "loop", res.Markdown)
}

func TestConvert_Errors(t *testing.T) {
	_, err := HTMLToMarkdown("   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
	assert.Contains(t, err.Error(), "HTML to Markdown conversion failed")

	c, err := New(core.DefaultOptions(), WithParser(nil))
	require.NoError(t, err)
	_, err = c.Convert("<p>x</p>")
	assert.True(t, errors.Is(err, core.ErrParserUnavailable))

	_, err = c.ConvertDocument(nil)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	_, err = HTMLToMarkdown("<p>x</p>", func(o *core.Options) { o.BulletListMarker = "x" })
	assert.ErrorContains(t, err, "invalid bullet list marker")
}

func TestConverter_SetOptionsRebuildsTables(t *testing.T) {
	c, err := New(core.DefaultOptions())
	require.NoError(t, err)

	res, err := c.Convert("<b>x</b>")
	require.NoError(t, err)
	assert.Equal(t, "**x**", res.Markdown)

	opts := c.Options()
	opts.StrongDelimiter = "__"
	require.NoError(t, c.SetOptions(opts))
	res, err = c.Convert("<b>x</b>")
	require.NoError(t, err)
	assert.Equal(t, "__x__", res.Markdown)

	opts.Fence = "---"
	assert.Error(t, c.SetOptions(opts))
	assert.Equal(t, "__", c.Options().StrongDelimiter)
}

func TestConverter_ConcurrentUse(t *testing.T) {
	c, err := New(core.DefaultOptions())
	require.NoError(t, err)

	done := make(chan string, 8)
	for i := 0; i < cap(done); i++ {
		go func(i int) {
			res, err := c.Convert(fmt.Sprintf("<p>n<b>%d</b></p>", i))
			if err != nil {
				done <- err.Error()
				return
			}
			done <- res.Markdown
		}(i)
	}
	seen := make(map[string]bool)
	for i := 0; i < cap(done); i++ {
		seen[<-done] = true
	}
	for i := 0; i < cap(done); i++ {
		assert.True(t, seen[fmt.Sprintf("n**%d**", i)])
	}
}

func TestConvertReader_Charset(t *testing.T) {
	c, err := New(core.DefaultOptions())
	require.NoError(t, err)
	res, err := c.ConvertReader(strings.NewReader("<p>caf\xe9</p>"), "text/html; charset=windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "café", res.Markdown)
}
