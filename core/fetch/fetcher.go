// Package fetch implements the Fetcher interface.
// Sources are http(s) URLs, local files, or "-" for standard input.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gaurav-prasanna/mailmd/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "mailmd/1.0 (https://github.com/gaurav-prasanna/mailmd)"
	maxBodySize      = 32 << 20
)

// Fetcher loads raw HTML.
type Fetcher struct {
	client *http.Client
	stdin  io.Reader
}

var _ core.Fetcher = (*Fetcher)(nil)

// New creates a Fetcher with a sensible timeout that reads "-" from os.Stdin.
func New() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: defaultTimeout},
		stdin:  os.Stdin,
	}
}

// WithStdin returns a copy of f that reads "-" from r.
func (f *Fetcher) WithStdin(r io.Reader) *Fetcher {
	cp := *f
	cp.stdin = r
	return &cp
}

// IsURL reports whether source is fetched over HTTP.
func IsURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Fetch reads source. ContentType is the server's header for URLs and a
// bare "text/html" otherwise, which leaves the charset to be sniffed from
// the document when it is parsed.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*core.FetchResult, error) {
	switch {
	case source == "-":
		body, err := io.ReadAll(io.LimitReader(f.stdin, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return &core.FetchResult{Source: source, ContentType: "text/html", Body: body}, nil
	case IsURL(source):
		return f.fetchURL(ctx, source)
	}

	body, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return &core.FetchResult{Source: source, ContentType: "text/html", Body: body}, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, url string) (*core.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &core.FetchResult{
		Source:      url,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Expand replaces every directory in sources with the .html and .htm files
// directly inside it, sorted by name. URLs, "-" and plain files pass through.
func Expand(sources []string) ([]string, error) {
	var out []string
	for _, s := range sources {
		if s == "-" || IsURL(s) {
			out = append(out, s)
			continue
		}
		info, err := os.Stat(s)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", s, err)
		}
		if !info.IsDir() {
			out = append(out, s)
			continue
		}
		entries, err := os.ReadDir(s)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", s, err)
		}
		var files []string
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".html" || ext == ".htm") {
				files = append(files, filepath.Join(s, e.Name()))
			}
		}
		sort.Strings(files)
		out = append(out, files...)
	}
	return out, nil
}
