package convert

import (
	"strings"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
	"github.com/gaurav-prasanna/mailmd/core/email"
	"github.com/gaurav-prasanna/mailmd/core/rules"
)

// extractMetadata collects the title, email headers, images and links of
// doc. Image and link targets are resolved against the base URL.
func extractMetadata(doc *dom.Node, scope *rules.Scope, opts core.Options) core.Metadata {
	q := dom.NewQuerier(doc)
	meta := core.Metadata{
		Images: []core.ImageInfo{},
		Links:  []core.LinkInfo{},
	}

	if title := q.Query("title"); title != nil {
		meta.Title = strings.TrimSpace(title.TextContent())
	}

	if opts.PreserveEmailHeaders && (scope.Email.HasEmailHeaders || scope.Email.IsEmailContent) {
		meta.EmailHeaders = email.ExtractHeaders(doc)
	}

	for _, img := range q.QueryAll("img") {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		info := core.ImageInfo{
			Alt:      img.AttrOr("alt", ""),
			Title:    img.AttrOr("title", ""),
			IsInline: email.IsInlineImage(src),
		}
		if src != "" {
			info.Src = scope.Resolve(src)
		}
		meta.Images = append(meta.Images, info)
	}

	for _, a := range q.QueryAll("a[href]") {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			continue
		}
		meta.Links = append(meta.Links, core.LinkInfo{
			Href:    scope.Resolve(href),
			Text:    strings.Join(strings.Fields(a.TextContent()), " "),
			Title:   a.AttrOr("title", ""),
			IsEmail: strings.HasPrefix(strings.ToLower(href), "mailto:"),
		})
	}
	return meta
}
