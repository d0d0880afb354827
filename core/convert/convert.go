package convert

import "github.com/gaurav-prasanna/mailmd/core"

// HTMLToMarkdown converts html with DefaultOptions, adjusted by configure.
func HTMLToMarkdown(html string, configure ...func(*core.Options)) (*core.Result, error) {
	return convertWith(core.DefaultOptions(), html, configure)
}

// EmailToMarkdown converts html with EmailOptions, adjusted by configure.
func EmailToMarkdown(html string, configure ...func(*core.Options)) (*core.Result, error) {
	return convertWith(core.EmailOptions(), html, configure)
}

func convertWith(opts core.Options, html string, configure []func(*core.Options)) (*core.Result, error) {
	for _, fn := range configure {
		fn(&opts)
	}
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	return c.Convert(html)
}
