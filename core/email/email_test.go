package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

func parse(t *testing.T, src string) *dom.Node {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		html string
		want core.EmailContext
	}{
		{
			name: "gmail reply",
			html: `<div class="gmail_quote">On Mon, Bob wrote:<blockquote type="cite">hi</blockquote></div>`,
			want: core.EmailContext{IsEmailContent: true, HasQuotedContent: true, ClientType: core.ClientGmail},
		},
		{
			name: "outlook body",
			html: `<div class="WordSection1"><p class="MsoNormal">Hello</p></div>`,
			want: core.EmailContext{IsEmailContent: true, ClientType: core.ClientOutlook},
		},
		{
			name: "web page",
			html: `<h1>Docs</h1><p>Install the package.</p>`,
			want: core.EmailContext{ClientType: core.ClientOther},
		},
		{
			name: "phrases only",
			html: `<p>Best regards,<br>Ann</p>`,
			want: core.EmailContext{IsEmailContent: true, HasSignature: true, ClientType: core.ClientOther},
		},
		{
			name: "generator meta",
			html: `<html><head><meta name="generator" content="Microsoft Outlook 16"></head><body><p>x</p></body></html>`,
			want: core.EmailContext{ClientType: core.ClientOutlook},
		},
		{
			name: "quoted text without markup",
			html: `<p>Alice wrote:</p><p>&gt; earlier</p>`,
			want: core.EmailContext{HasQuotedContent: true, ClientType: core.ClientOther},
		},
		{
			name: "signature class",
			html: `<div id="footer">ACME Inc</div>`,
			want: core.EmailContext{HasSignature: true, ClientType: core.ClientOther},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(parse(t, tt.html)))
		})
	}
}

func TestDetect_ClientPrecedence(t *testing.T) {
	doc := parse(t, `<div class="yahoo_mail"><div class="gmail_default">x</div></div>`)
	assert.Equal(t, core.ClientGmail, Detect(doc).ClientType)
}

func TestDetect_HandBuiltTree(t *testing.T) {
	doc := dom.NewDocument(
		dom.NewElement("body", nil,
			dom.NewElement("div", map[string]string{"class": "yahoo_quoted"}, dom.NewText("old")),
		),
	)
	ctx := Detect(doc)
	assert.True(t, ctx.IsEmailContent)
	assert.True(t, ctx.HasQuotedContent)
	assert.Equal(t, core.ClientYahoo, ctx.ClientType)
}

func TestExtractHeaders_Structured(t *testing.T) {
	doc := parse(t, `<div class="hdr-from">Alice &lt;alice@example.com&gt;</div>`+
		`<div class="hdr-subject"> Lunch </div>`+
		`<div data-recipient="bob@example.com; Carol &lt;carol@example.com&gt;, nobody"></div>`)
	h := ExtractHeaders(doc)
	require.NotNil(t, h)
	assert.Equal(t, "Alice <alice@example.com>", h.From)
	assert.Equal(t, "Lunch", h.Subject)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, h.To)
	assert.Empty(t, h.CC)
}

func TestExtractHeaders_FromText(t *testing.T) {
	doc := parse(t, `<p>From: Alice &lt;a@x.com&gt;<br>To: b@x.com, c@x.com<br>Subject: Hi<br>Sent: Monday<br>Message-ID: &lt;123@x.com&gt;</p>`)
	h := ExtractHeaders(doc)
	require.NotNil(t, h)
	assert.Equal(t, &core.EmailHeaders{
		From:      "Alice <a@x.com>",
		To:        []string{"b@x.com", "c@x.com"},
		Subject:   "Hi",
		Date:      "Monday",
		MessageID: "123@x.com",
	}, h)
}

func TestExtractHeaders_None(t *testing.T) {
	assert.Nil(t, ExtractHeaders(parse(t, `<p>nothing here</p>`)))
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in, name, addr string
	}{
		{`"John Doe" <john@example.com>`, "John Doe", "john@example.com"},
		{`jane@example.com`, "", "jane@example.com"},
		{`<bare@example.com>`, "", "bare@example.com"},
		{`Name <not valid@@>`, "Name", "not valid@@"},
	}
	for _, tt := range tests {
		name, addr := ParseAddress(tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Equal(t, tt.addr, addr, tt.in)
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, ParseList("a@x.com; B <b@x.com>, junk"))
	assert.Nil(t, ParseList("nobody"))
}

func TestIsInlineImage(t *testing.T) {
	for src, want := range map[string]bool{
		"cid:logo@01D":                  true,
		"data:image/png;base64,AAAA":    true,
		"blob:https://x/1":              true,
		"https://x/image001.png":        true,
		"https://cdn.example.com/a.png": false,
		"":                              false,
	} {
		assert.Equal(t, want, IsInlineImage(src), src)
	}
}
