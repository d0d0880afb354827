// Package output handles file naming and writing for mailmd outputs.
// Filenames are derived from the input: a URL becomes host_path
// (e.g. example_com_mail_42), a file keeps its base name without the
// extension, and standard input is written as "stdin".
package output

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/mailmd/core/fetch"
)

// Writer writes rendered output to disk, or to a single stream when Stdout is set.
type Writer struct {
	OutputDir string
	Stdout    io.Writer
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// ToStream returns a Writer that sends every output to w instead of disk.
func ToStream(w io.Writer) *Writer {
	return &Writer{Stdout: w}
}

// Write stores data for source and returns where it went. Two sources
// that map to the same name overwrite each other; Path reports the name
// in advance so callers can detect that.
func (w *Writer) Write(source string, data []byte, ext string) (string, error) {
	if w.Stdout != nil {
		if _, err := w.Stdout.Write(data); err != nil {
			return "", fmt.Errorf("writing %s to stdout: %w", source, err)
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			_, _ = io.WriteString(w.Stdout, "\n")
		}
		return "-", nil
	}

	path := w.Path(source, ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// Path returns the file Write would create for source.
func (w *Writer) Path(source, ext string) string {
	return filepath.Join(w.OutputDir, Filename(source)+ext)
}

// Filename converts a source into a flat name without extension.
func Filename(source string) string {
	switch {
	case source == "-" || source == "":
		return "stdin"
	case fetch.IsURL(source):
		return filenameFromURL(source)
	}
	base := filepath.Base(source)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		return sanitize(base)
	}
	return name
}

// filenameFromURL converts a URL into a flat filename.
// Example: https://example.com/mail/42 → example_com_mail_42
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return sanitize(rawURL)
	}

	parts := []string{sanitize(parsed.Host)}
	path := strings.Trim(parsed.Path, "/")
	if path != "" {
		for _, seg := range strings.Split(path, "/") {
			seg = strings.TrimSuffix(seg, filepath.Ext(seg))
			if seg != "" {
				parts = append(parts, sanitize(seg))
			}
		}
	}
	return strings.Join(parts, "_")
}

// sanitize replaces non-alphanumeric characters with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
