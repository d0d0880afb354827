package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/mailmd/core"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--quiet"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestConvert_Stdout(t *testing.T) {
	out, err := run(t, "<p>Hello <strong>world</strong>!</p>", "convert", "-", "--stdout")
	require.NoError(t, err)
	assert.Equal(t, "Hello **world**!\n", out)
}

func TestConvert_FrontMatterForEmail(t *testing.T) {
	html := `<div class="gmail_quote"><p>Reply text</p></div>`
	out, err := run(t, html, "convert", "-", "--stdout", "--email", "--front-matter")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "---\n"))
	assert.Contains(t, out, "source:")
	assert.Contains(t, out, "client: gmail")
	assert.Contains(t, out, "Reply text")
}

func TestConvert_Directory(t *testing.T) {
	in := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.html"), []byte("<h1>A</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "b.htm"), []byte("<ul><li>x</li></ul>"), 0o644))

	out, err := run(t, "", "convert", in, "--output_dir", outDir, "--bullet", "*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Written: "+filepath.Join(outDir, "a.md"))

	a, err := os.ReadFile(filepath.Join(outDir, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "# A", string(a))
	b, err := os.ReadFile(filepath.Join(outDir, "b.md"))
	require.NoError(t, err)
	assert.Equal(t, "* x", string(b))
}

func TestConvert_JSON(t *testing.T) {
	out, err := run(t, "<h2>Title</h2>", "convert", "-", "--stdout", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"markdown": "## Title"`)
	assert.Contains(t, out, `"source": "-"`)
}

func TestConvert_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.html")
	empty := filepath.Join(dir, "empty.html")
	require.NoError(t, os.WriteFile(good, []byte("<p>ok</p>"), 0o644))
	require.NoError(t, os.WriteFile(empty, []byte("  "), 0o644))

	out, err := run(t, "", "convert", good, empty, "--output_dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1/2 inputs failed")
	assert.Contains(t, out, "good.md")
}

func TestConvert_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"two formats", []string{"--json", "--pdf"}, "only one output format"},
		{"front matter with json", []string{"--json", "--front-matter"}, "only applies to Markdown"},
		{"bad bullet", []string{"--bullet", "x"}, "invalid bullet list marker"},
		{"bad preset", []string{"--preset", "nope"}, `unknown preset "nope"`},
		{"bad jobs", []string{"--jobs", "0"}, "--jobs must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "<p>x</p>", append([]string{"convert", "-", "--stdout"}, tt.args...)...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestConvertFlags_Options(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "mailmd.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("link_style: referenced\nignore_elements: [nav]\n"), 0o644))

	cmd := newConvertCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", cfg, "--table", "remove", "--ignore", "footer", "--keep", "svg", "--preset", "highlight",
	}))
	f := &convertFlags{}
	f.configPath, _ = cmd.Flags().GetString("config")
	f.table, _ = cmd.Flags().GetString("table")
	f.ignore, _ = cmd.Flags().GetStringSlice("ignore")
	f.keep, _ = cmd.Flags().GetStringSlice("keep")
	f.presets, _ = cmd.Flags().GetStringSlice("preset")

	opts, err := f.options(cmd)
	require.NoError(t, err)
	assert.Equal(t, core.LinkReferenced, opts.LinkStyle)
	assert.Equal(t, core.TableRemove, opts.TableHandling)
	assert.Equal(t, []string{"nav", "footer"}, opts.IgnoreElements)
	assert.Equal(t, []string{"svg"}, opts.KeepElements)
	assert.NotEmpty(t, opts.CustomRules)
	assert.Equal(t, "-", opts.BulletListMarker)
}
