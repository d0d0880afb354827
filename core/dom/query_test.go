package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const queryFixture = `<div id="gmail-root" class="gmail_quote x">
<p class="MsoNormal">one</p>
<blockquote type="cite"><span data-from="a@b.c">two</span></blockquote>
</div>`

func hand() *Node {
	return NewDocument(
		NewElement("div", map[string]string{"id": "gmail-root", "class": "gmail_quote x"},
			NewElement("p", map[string]string{"class": "MsoNormal"}, NewText("one")),
			NewElement("blockquote", map[string]string{"type": "cite"},
				NewElement("span", map[string]string{"data-from": "a@b.c"}, NewText("two")),
			),
		),
	)
}

func TestQuerier_BothEnginesAgree(t *testing.T) {
	parsed := mustParse(t, queryFixture)
	tests := []struct {
		sel  string
		want []string
	}{
		{`[id*="gmail"]`, []string{"div"}},
		{`[class*="Mso"]`, []string{"p"}},
		{`.gmail_quote`, []string{"div"}},
		{`blockquote[type="cite"]`, []string{"blockquote"}},
		{`[data-from]`, []string{"span"}},
		{`p, span`, []string{"p", "span"}},
		{`#gmail-root`, []string{"div"}},
		{`[class*="yahoo"]`, nil},
	}

	for _, root := range []*Node{parsed, hand()} {
		q := NewQuerier(root)
		for _, tt := range tests {
			var got []string
			for _, n := range q.QueryAll(tt.sel) {
				got = append(got, n.Tag)
			}
			assert.Equal(t, tt.want, got, tt.sel)
		}
	}
}

func TestQuerier_Query(t *testing.T) {
	q := NewQuerier(mustParse(t, queryFixture))
	n := q.Query(`[data-from]`)
	require.NotNil(t, n)
	assert.Equal(t, "two", n.TextContent())
	assert.Nil(t, q.Query(`[data-to]`))
}

func TestQuerier_InvalidSelector(t *testing.T) {
	for _, root := range []*Node{mustParse(t, queryFixture), hand()} {
		q := NewQuerier(root)
		assert.Empty(t, q.QueryAll(`[[`))
		assert.Nil(t, q.Query(`[[`))
	}
}

func TestTreeQuerier_DescendantUsesLastCompound(t *testing.T) {
	q := NewQuerier(hand())
	got := q.QueryAll(`div span`)
	require.Len(t, got, 1)
	assert.Equal(t, "span", got[0].Tag)
}
