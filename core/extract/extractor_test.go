package extract

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

func TestParse_RemovesNoise(t *testing.T) {
	e := New(core.DefaultOptions())
	doc, err := e.ParseString(`<html><head><style>p{}</style></head><body>
<script>alert(1)</script><p>Keep me</p>
<img src="https://t.example/pixel.gif" width="1" height="1">
<img src="logo.png" width="100" height="40">
</body></html>`)
	require.NoError(t, err)

	assert.Nil(t, doc.First("script"))
	assert.Nil(t, doc.First("style"))
	imgs := doc.FindAll("img")
	require.Len(t, imgs, 1)
	assert.Equal(t, "logo.png", imgs[0].AttrOr("src", ""))
	assert.Equal(t, "Keep me", doc.First("p").TextContent())
}

func TestParse_CollapsesWhitespaceOutsidePre(t *testing.T) {
	e := New(core.DefaultOptions())
	doc, err := e.ParseString("<p>a \n\t b&nbsp;&nbsp;c</p><pre>x\n    y</pre>")
	require.NoError(t, err)

	assert.Equal(t, "a b c", doc.First("p").TextContent())
	assert.Equal(t, "x\n    y", doc.First("pre").TextContent())
}

func TestParse_PreserveWhitespace(t *testing.T) {
	opts := core.DefaultOptions()
	opts.PreserveWhitespace = true
	doc, err := New(opts).ParseString("<p>a \n b</p>")
	require.NoError(t, err)
	assert.Equal(t, "a \n b", doc.First("p").TextContent())
}

func TestParse_DecodesCharset(t *testing.T) {
	// "café" in windows-1252.
	raw := []byte("<p>caf\xe9</p>")
	doc, err := New(core.DefaultOptions()).Parse(bytes.NewReader(raw), "text/html; charset=windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", doc.First("p").TextContent())
}

func TestParse_NormalisesToNFC(t *testing.T) {
	doc, err := New(core.DefaultOptions()).ParseString("<p>cafe\u0301</p>")
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", doc.First("p").TextContent())
}

func TestCleanOutlook(t *testing.T) {
	src := `<?xml version="1.0"?><html xmlns:o="urn:schemas-microsoft-com:office:office">` +
		`<!--[if gte mso 9]><xml><o:OfficeDocumentSettings/></xml><![endif]-->` +
		`<p class="MsoNormal" style="mso-margin-top-alt:auto;color:red">Hi<o:p></o:p></p></html>`
	out := CleanOutlook(src)

	assert.NotContains(t, out, "<?xml")
	assert.NotContains(t, out, "xmlns:o")
	assert.NotContains(t, out, "OfficeDocumentSettings")
	assert.NotContains(t, out, "mso-margin")
	assert.NotContains(t, out, "o:p")
	assert.Contains(t, out, `class="MsoNormal"`)
	assert.Contains(t, out, "color:red")
}

func TestParse_DropsEmptyOutlookSpans(t *testing.T) {
	doc, err := New(core.DefaultOptions()).ParseString(
		`<p>a<span class="MsoSpacer"> </span>b<span class="x"> </span></p>`)
	require.NoError(t, err)

	spans := doc.FindAll("span")
	require.Len(t, spans, 1)
	assert.Equal(t, "x", spans[0].AttrOr("class", ""))
}

func TestParse_TreeSupportsSelectors(t *testing.T) {
	doc, err := New(core.DefaultOptions()).ParseString(`<div class="gmail_quote">q</div>`)
	require.NoError(t, err)
	q := dom.NewQuerier(doc)
	assert.Len(t, q.QueryAll(`[class*="gmail"]`), 1)
	assert.True(t, strings.Contains(doc.Body().TextContent(), "q"))
}
