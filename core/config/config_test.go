package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/mailmd/core"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "mailmd.yaml", `
bullet_list_marker: "*"
link_style: referenced
table_handling: preserve
ignore_elements: [nav, footer]
custom_rules:
  - selector: .note
    template: "> ${content}"
    priority: 2
`)
	opts, err := Load(path, core.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "*", opts.BulletListMarker)
	assert.Equal(t, core.LinkReferenced, opts.LinkStyle)
	assert.Equal(t, core.TablePreserve, opts.TableHandling)
	assert.Equal(t, []string{"nav", "footer"}, opts.IgnoreElements)
	assert.Equal(t, []core.CustomRule{{Selector: ".note", Template: "> ${content}", Priority: 2}}, opts.CustomRules)

	// Untouched keys keep the base values.
	assert.Equal(t, "**", opts.StrongDelimiter)
	assert.True(t, opts.TrimWhitespace)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "mailmd.toml", `
code_block_style = "indented"
escaping = "full"
base_url = "https://example.com/"

[[custom_rules]]
selector = "kbd"
template = "<kbd>${content}</kbd>"
`)
	opts, err := Load(path, core.EmailOptions())
	require.NoError(t, err)
	assert.Equal(t, core.CodeBlockIndented, opts.CodeBlockStyle)
	assert.Equal(t, core.EscapeFull, opts.Escaping)
	assert.Equal(t, "https://example.com/", opts.BaseURL)
	require.Len(t, opts.CustomRules, 1)
	assert.Equal(t, "kbd", opts.CustomRules[0].Selector)
}

func TestLoad_KeepsBaseRulesWhenFileHasNone(t *testing.T) {
	base := core.DefaultOptions()
	base.CustomRules = []core.CustomRule{{Selector: "b", Template: "x"}}
	path := writeFile(t, "empty.yml", "")
	opts, err := Load(path, base)
	require.NoError(t, err)
	assert.Equal(t, base.CustomRules, opts.CustomRules)
}

func TestLoad_Errors(t *testing.T) {
	base := core.DefaultOptions()
	tests := []struct {
		name, file, contents, want string
	}{
		{"unknown yaml key", "a.yaml", "bullet: x\n", "decoding YAML"},
		{"unknown toml key", "a.toml", "bullets = \"-\"\n", "unknown keys: bullets"},
		{"invalid value", "a.yaml", "table_handling: drop\n", "invalid table handling"},
		{"bad syntax", "a.toml", "fence = \n", "decoding TOML"},
		{"format", "a.json", "{}", "unsupported config format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := Load(writeFile(t, tt.file, tt.contents), base)
			assert.ErrorContains(t, err, tt.want)
			assert.Equal(t, base, opts)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), base)
	assert.ErrorContains(t, err, "reading config file")
}
