// The convert command.
// This is the main command that orchestrates the pipeline:
// fetch → convert → render → write.
//
// It handles flag validation, option layering (defaults, config file, flags)
// and renderer selection.

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/config"
	"github.com/gaurav-prasanna/mailmd/core/convert"
	"github.com/gaurav-prasanna/mailmd/core/fetch"
	"github.com/gaurav-prasanna/mailmd/core/output"
	"github.com/gaurav-prasanna/mailmd/core/render"
	"github.com/gaurav-prasanna/mailmd/core/rules"
)

type convertFlags struct {
	markdown    bool
	json        bool
	pdf         bool
	email       bool
	configPath  string
	outputDir   string
	stdout      bool
	frontMatter bool
	presets     []string
	ignore      []string
	keep        []string
	bullet      string
	linkStyle   string
	table       string
	baseURL     string
	jobs        int
}

func newConvertCmd() *cobra.Command {
	f := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert <file|dir|url|->...",
		Short: "Convert HTML inputs to Markdown, JSON or PDF",
		Long: `Convert loads each input (a file, every .html/.htm file in a directory,
an http(s) URL, or "-" for standard input), converts it to Markdown and
writes it in the selected output format.

Examples:
  mailmd convert message.html --markdown
  mailmd convert ./inbox --email --json --output_dir ./out
  cat message.html | mailmd convert - --email --stdout --front-matter
  mailmd convert https://example.com/newsletter --pdf --preset highlight`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, f, args)
		},
	}

	fl := cmd.Flags()
	fl.BoolVar(&f.markdown, "markdown", false, "Output Markdown (default)")
	fl.BoolVar(&f.json, "json", false, "Output structured JSON")
	fl.BoolVar(&f.pdf, "pdf", false, "Output PDF")

	fl.BoolVar(&f.email, "email", false, "Start from the email defaults")
	fl.StringVar(&f.configPath, "config", "", "Options file (.yaml, .yml or .toml)")
	fl.StringVar(&f.outputDir, "output_dir", "", "Output directory (default: current directory)")
	fl.BoolVar(&f.stdout, "stdout", false, "Write every output to standard output")
	fl.BoolVar(&f.frontMatter, "front-matter", false, "Prefix Markdown output with YAML front matter")

	fl.StringSliceVar(&f.presets, "preset", nil, "Rule presets to add ("+strings.Join(rules.PresetNames(), ", ")+")")
	fl.StringSliceVar(&f.ignore, "ignore", nil, "Tags to drop entirely")
	fl.StringSliceVar(&f.keep, "keep", nil, "Tags to keep as HTML")
	fl.StringVar(&f.bullet, "bullet", "-", "Bullet list marker (-, * or +)")
	fl.StringVar(&f.linkStyle, "link-style", string(core.LinkInlined), "Link style (inlined or referenced)")
	fl.StringVar(&f.table, "table", string(core.TableConvert), "Table handling (convert, preserve or remove)")
	fl.StringVar(&f.baseURL, "base-url", "", "Resolve relative links and images against this URL")
	fl.IntVarP(&f.jobs, "jobs", "j", 4, "Inputs converted in parallel")

	return cmd
}

// job is one input on its way through the pipeline.
type job struct {
	source string
	data   []byte
	err    error
}

func runConvert(cmd *cobra.Command, f *convertFlags, args []string) error {
	if err := f.validate(); err != nil {
		return err
	}

	opts, err := f.options(cmd)
	if err != nil {
		return err
	}

	renderer := f.renderer()
	log := logrus.StandardLogger()

	converter, err := convert.New(opts, convert.WithLogger(log))
	if err != nil {
		return err
	}

	sources, err := fetch.Expand(args)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no HTML inputs found in %s", strings.Join(args, ", "))
	}

	var writer *output.Writer
	if f.stdout {
		writer = output.ToStream(cmd.OutOrStdout())
	} else {
		writer, err = output.New(f.outputDir)
		if err != nil {
			return fmt.Errorf("initializing output writer: %w", err)
		}
		warnCollisions(log, writer, sources, renderer.Extension())
	}

	fetcher := fetch.New().WithStdin(cmd.InOrStdin())
	jobs := make([]job, len(sources))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(f.jobs)
	for i, source := range sources {
		jobs[i].source = source
		g.Go(func() error {
			jobs[i].data, jobs[i].err = process(ctx, source, fetcher, converter, renderer)
			return nil
		})
	}
	_ = g.Wait()

	var result *multierror.Error
	for _, j := range jobs {
		if j.err != nil {
			log.WithField("source", j.source).WithError(j.err).Error("conversion failed")
			result = multierror.Append(result, fmt.Errorf("%s: %w", j.source, j.err))
			continue
		}
		path, err := writer.Write(j.source, j.data, renderer.Extension())
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if !f.stdout {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Written: %s\n", path)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%d/%d inputs failed: %w", len(result.Errors), len(sources), err)
	}
	return nil
}

// process runs a single input through the full pipeline.
func process(
	ctx context.Context,
	source string,
	fetcher core.Fetcher,
	converter *convert.Converter,
	renderer core.Renderer,
) ([]byte, error) {
	// 1. Fetch
	fetched, err := fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if len(bytes.TrimSpace(fetched.Body)) == 0 {
		return nil, core.ErrInvalidInput
	}

	// 2. Convert to Markdown
	res, err := converter.ConvertReader(bytes.NewReader(fetched.Body), fetched.ContentType)
	if err != nil {
		return nil, err
	}
	for _, e := range res.Metadata.Errors {
		logrus.WithField("source", source).Warnf("rule failure: %s", e)
	}

	// 3. Render to output format
	data, err := renderer.Render(core.Document{
		Source:      source,
		ConvertedAt: time.Now().UTC(),
		Result:      *res,
	})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return data, nil
}

// options layers the defaults, the config file and any flags that were set.
func (f *convertFlags) options(cmd *cobra.Command) (core.Options, error) {
	opts := core.DefaultOptions()
	if f.email {
		opts = core.EmailOptions()
	}
	if f.configPath != "" {
		var err error
		if opts, err = config.Load(f.configPath, opts); err != nil {
			return opts, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("bullet") {
		opts.BulletListMarker = f.bullet
	}
	if changed("link-style") {
		opts.LinkStyle = core.LinkStyle(f.linkStyle)
	}
	if changed("table") {
		opts.TableHandling = core.TableHandling(f.table)
	}
	if changed("base-url") {
		opts.BaseURL = f.baseURL
	}
	opts.IgnoreElements = append(opts.IgnoreElements, f.ignore...)
	opts.KeepElements = append(opts.KeepElements, f.keep...)

	for _, name := range f.presets {
		preset, ok := rules.Preset(name)
		if !ok {
			return opts, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(rules.PresetNames(), ", "))
		}
		opts.CustomRules = append(opts.CustomRules, preset...)
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// validate checks that at most one output format is chosen.
func (f *convertFlags) validate() error {
	formatCount := 0
	for _, set := range []bool{f.markdown, f.json, f.pdf} {
		if set {
			formatCount++
		}
	}
	if formatCount > 1 {
		return fmt.Errorf("only one output format allowed per run (got %d)", formatCount)
	}
	if f.jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1")
	}
	if f.frontMatter && (f.json || f.pdf) {
		return fmt.Errorf("--front-matter only applies to Markdown output")
	}
	return nil
}

// renderer creates the Renderer selected by the flags.
func (f *convertFlags) renderer() core.Renderer {
	switch {
	case f.json:
		return render.NewJSONRenderer()
	case f.pdf:
		return render.NewPDFRenderer()
	default:
		return render.NewMarkdownRenderer(f.frontMatter)
	}
}

func warnCollisions(log logrus.FieldLogger, w *output.Writer, sources []string, ext string) {
	seen := make(map[string]string, len(sources))
	for _, s := range sources {
		path := w.Path(s, ext)
		if prev, ok := seen[path]; ok {
			log.WithFields(logrus.Fields{"path": path, "first": prev, "second": s}).
				Warn("inputs share an output file; the later one wins")
			continue
		}
		seen[path] = s
	}
}
