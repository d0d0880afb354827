package normalize

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Fallback converts HTML with html-to-markdown. The converter uses it when
// its own rules produce nothing for a document that still has text.
type Fallback struct {
	conv *converter.Converter
}

// NewFallback creates a Fallback. The returned value is safe for concurrent use.
func NewFallback() *Fallback {
	return &Fallback{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Normalize converts an HTML fragment into Markdown. domain, when set,
// resolves relative links.
func (f *Fallback) Normalize(html, domain string) (string, error) {
	var opts []converter.ConvertOptionFunc
	if domain != "" {
		opts = append(opts, converter.WithDomain(domain))
	}
	markdown, err := f.conv.ConvertString(html, opts...)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}
