// Package render provides output renderers for converted documents.
// This file implements the Markdown renderer, a passthrough with optional
// YAML front matter.
package render

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/mailmd/core"
)

// MarkdownRenderer writes Markdown as-is. With FrontMatter set, a YAML block
// carrying the title, source and email headers is written first.
type MarkdownRenderer struct {
	FrontMatter bool
}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer(frontMatter bool) *MarkdownRenderer {
	return &MarkdownRenderer{FrontMatter: frontMatter}
}

type frontMatter struct {
	Title     string             `yaml:"title,omitempty"`
	Source    string             `yaml:"source,omitempty"`
	Converted string             `yaml:"converted,omitempty"`
	Client    core.ClientType    `yaml:"client,omitempty"`
	Email     *core.EmailHeaders `yaml:"email,omitempty"`
}

// Render returns the Markdown as bytes.
func (r *MarkdownRenderer) Render(doc core.Document) ([]byte, error) {
	if !r.FrontMatter {
		return []byte(doc.Result.Markdown), nil
	}

	fm := frontMatter{
		Title:  doc.Result.Metadata.Title,
		Source: doc.Source,
		Email:  doc.Result.Metadata.EmailHeaders,
	}
	if !doc.ConvertedAt.IsZero() {
		fm.Converted = doc.ConvertedAt.UTC().Format(time.RFC3339)
	}
	if doc.Result.Email.IsEmailContent {
		fm.Client = doc.Result.Email.ClientType
	}
	if fm.Title == "" && fm.Email != nil {
		fm.Title = fm.Email.Subject
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(doc.Result.Markdown)
	return buf.Bytes(), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}
