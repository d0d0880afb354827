// Package core defines the shared types and pipeline interfaces for mailmd.
// Each stage of the pipeline is a clean, testable interface.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gaurav-prasanna/mailmd/core/dom"
)

var (
	// ErrInvalidInput is returned for empty input to a conversion.
	ErrInvalidInput = errors.New("invalid HTML input: must be a non-empty string")
	// ErrParserUnavailable is returned when no parser is configured.
	ErrParserUnavailable = errors.New("no HTML parser available")
)

// CodeBlockStyle selects how <pre> blocks are rendered.
type CodeBlockStyle string

const (
	CodeBlockFenced   CodeBlockStyle = "fenced"
	CodeBlockIndented CodeBlockStyle = "indented"
)

// LinkStyle selects inline or reference links.
type LinkStyle string

const (
	LinkInlined    LinkStyle = "inlined"
	LinkReferenced LinkStyle = "referenced"
)

// LinkReferenceStyle selects the reference form used with LinkReferenced.
type LinkReferenceStyle string

const (
	LinkReferenceFull      LinkReferenceStyle = "full"
	LinkReferenceCollapsed LinkReferenceStyle = "collapsed"
	LinkReferenceShortcut  LinkReferenceStyle = "shortcut"
)

// TableHandling selects what happens to data tables.
type TableHandling string

const (
	TableConvert  TableHandling = "convert"
	TablePreserve TableHandling = "preserve"
	TableRemove   TableHandling = "remove"
)

// EscapeMode selects how text runs are escaped.
type EscapeMode string

const (
	// EscapeSmart escapes only where a character would otherwise turn into markup.
	EscapeSmart EscapeMode = "smart"
	// EscapeFull escapes every Markdown metacharacter.
	EscapeFull EscapeMode = "full"
	// EscapeNone leaves text untouched.
	EscapeNone EscapeMode = "none"
)

// ReplacementFunc renders an element matched by a custom rule.
type ReplacementFunc func(content string, el *dom.Node, opts Options) string

// CustomRule maps a selector to a replacement. Template is used when Func is nil.
// Template placeholders are ${content}, ${text} and ${attr-name}.
type CustomRule struct {
	Selector string          `yaml:"selector" toml:"selector" json:"selector"`
	Template string          `yaml:"template" toml:"template" json:"template,omitempty"`
	Func     ReplacementFunc `yaml:"-" toml:"-" json:"-"`
	Priority int             `yaml:"priority" toml:"priority" json:"priority,omitempty"`
}

// Options controls a conversion. Use DefaultOptions or EmailOptions as a base;
// the zero value is not valid.
type Options struct {
	PreserveWhitespace bool               `yaml:"preserve_whitespace" toml:"preserve_whitespace"`
	TrimWhitespace     bool               `yaml:"trim_whitespace" toml:"trim_whitespace"`
	BulletListMarker   string             `yaml:"bullet_list_marker" toml:"bullet_list_marker"`
	CodeBlockStyle     CodeBlockStyle     `yaml:"code_block_style" toml:"code_block_style"`
	Fence              string             `yaml:"fence" toml:"fence"`
	EmDelimiter        string             `yaml:"em_delimiter" toml:"em_delimiter"`
	StrongDelimiter    string             `yaml:"strong_delimiter" toml:"strong_delimiter"`
	LinkStyle          LinkStyle          `yaml:"link_style" toml:"link_style"`
	LinkReferenceStyle LinkReferenceStyle `yaml:"link_reference_style" toml:"link_reference_style"`
	Escaping           EscapeMode         `yaml:"escaping" toml:"escaping"`

	PreserveEmailHeaders     bool `yaml:"preserve_email_headers" toml:"preserve_email_headers"`
	HandleEmailSignatures    bool `yaml:"handle_email_signatures" toml:"handle_email_signatures"`
	ConvertInlineStyles      bool `yaml:"convert_inline_styles" toml:"convert_inline_styles"`
	PreserveEmailQuotes      bool `yaml:"preserve_email_quotes" toml:"preserve_email_quotes"`
	HandleOutlookSpecific    bool `yaml:"handle_outlook_specific" toml:"handle_outlook_specific"`
	ExtractPlainTextFallback bool `yaml:"extract_plain_text_fallback" toml:"extract_plain_text_fallback"`

	TableHandling  TableHandling `yaml:"table_handling" toml:"table_handling"`
	CustomRules    []CustomRule  `yaml:"custom_rules" toml:"custom_rules"`
	IgnoreElements []string      `yaml:"ignore_elements" toml:"ignore_elements"`
	KeepElements   []string      `yaml:"keep_elements" toml:"keep_elements"`
	BaseURL        string        `yaml:"base_url" toml:"base_url"`
}

// DefaultOptions returns the options used by HTMLToMarkdown.
func DefaultOptions() Options {
	return Options{
		TrimWhitespace:        true,
		BulletListMarker:      "-",
		CodeBlockStyle:        CodeBlockFenced,
		Fence:                 "```",
		EmDelimiter:           "*",
		StrongDelimiter:       "**",
		LinkStyle:             LinkInlined,
		LinkReferenceStyle:    LinkReferenceFull,
		Escaping:              EscapeSmart,
		PreserveEmailHeaders:  true,
		HandleEmailSignatures: true,
		ConvertInlineStyles:   true,
		PreserveEmailQuotes:   true,
		HandleOutlookSpecific: true,
		TableHandling:         TableConvert,
	}
}

// EmailOptions returns the options used by EmailToMarkdown.
func EmailOptions() Options {
	opts := DefaultOptions()
	opts.PreserveEmailHeaders = true
	opts.HandleEmailSignatures = true
	opts.ConvertInlineStyles = true
	opts.PreserveEmailQuotes = true
	opts.HandleOutlookSpecific = true
	opts.TableHandling = TableConvert
	opts.LinkStyle = LinkInlined
	opts.TrimWhitespace = true
	return opts
}

// Validate reports the first invalid setting.
func (o Options) Validate() error {
	switch o.BulletListMarker {
	case "-", "*", "+":
	default:
		return fmt.Errorf("invalid bullet list marker %q: must be one of -, *, +", o.BulletListMarker)
	}
	switch o.CodeBlockStyle {
	case CodeBlockFenced, CodeBlockIndented:
	default:
		return fmt.Errorf("invalid code block style %q", o.CodeBlockStyle)
	}
	if o.CodeBlockStyle == CodeBlockFenced && o.Fence != "```" && o.Fence != "~~~" {
		return fmt.Errorf("invalid fence %q: must be ``` or ~~~", o.Fence)
	}
	if o.EmDelimiter != "*" && o.EmDelimiter != "_" {
		return fmt.Errorf("invalid em delimiter %q", o.EmDelimiter)
	}
	if o.StrongDelimiter != "**" && o.StrongDelimiter != "__" {
		return fmt.Errorf("invalid strong delimiter %q", o.StrongDelimiter)
	}
	switch o.LinkStyle {
	case LinkInlined, LinkReferenced:
	default:
		return fmt.Errorf("invalid link style %q", o.LinkStyle)
	}
	switch o.LinkReferenceStyle {
	case LinkReferenceFull, LinkReferenceCollapsed, LinkReferenceShortcut:
	default:
		return fmt.Errorf("invalid link reference style %q", o.LinkReferenceStyle)
	}
	switch o.Escaping {
	case EscapeSmart, EscapeFull, EscapeNone:
	default:
		return fmt.Errorf("invalid escaping mode %q", o.Escaping)
	}
	switch o.TableHandling {
	case TableConvert, TablePreserve, TableRemove:
	default:
		return fmt.Errorf("invalid table handling %q", o.TableHandling)
	}
	for i, r := range o.CustomRules {
		if r.Selector == "" {
			return fmt.Errorf("custom rule %d: empty selector", i)
		}
		if r.Func == nil && r.Template == "" {
			return fmt.Errorf("custom rule %d (%s): needs a template or a function", i, r.Selector)
		}
	}
	return nil
}

// ClientType names the mail client that produced a message.
type ClientType string

const (
	ClientOutlook     ClientType = "outlook"
	ClientGmail       ClientType = "gmail"
	ClientYahoo       ClientType = "yahoo"
	ClientThunderbird ClientType = "thunderbird"
	ClientApple       ClientType = "apple"
	ClientOther       ClientType = "other"
)

// EmailContext classifies a document. It is computed once per conversion.
type EmailContext struct {
	IsEmailContent   bool       `json:"is_email_content"`
	HasEmailHeaders  bool       `json:"has_email_headers"`
	HasSignature     bool       `json:"has_signature"`
	HasQuotedContent bool       `json:"has_quoted_content"`
	ClientType       ClientType `json:"client_type"`
}

// EmailHeaders holds header fields found in the message body.
type EmailHeaders struct {
	From      string   `json:"from,omitempty" yaml:"from,omitempty"`
	To        []string `json:"to,omitempty" yaml:"to,omitempty"`
	CC        []string `json:"cc,omitempty" yaml:"cc,omitempty"`
	BCC       []string `json:"bcc,omitempty" yaml:"bcc,omitempty"`
	Subject   string   `json:"subject,omitempty" yaml:"subject,omitempty"`
	Date      string   `json:"date,omitempty" yaml:"date,omitempty"`
	MessageID string   `json:"message_id,omitempty" yaml:"message_id,omitempty"`
}

// IsZero reports whether no header was found.
func (h *EmailHeaders) IsZero() bool {
	return h == nil || (h.From == "" && h.Subject == "" && h.Date == "" && h.MessageID == "" &&
		len(h.To) == 0 && len(h.CC) == 0 && len(h.BCC) == 0)
}

// ImageInfo describes an <img>.
type ImageInfo struct {
	Src      string `json:"src"`
	Alt      string `json:"alt,omitempty"`
	Title    string `json:"title,omitempty"`
	IsInline bool   `json:"is_inline"`
}

// LinkInfo describes an <a> with an href.
type LinkInfo struct {
	Href    string `json:"href"`
	Text    string `json:"text"`
	Title   string `json:"title,omitempty"`
	IsEmail bool   `json:"is_email"`
}

// Metadata is collected alongside the Markdown.
type Metadata struct {
	Title        string        `json:"title,omitempty"`
	EmailHeaders *EmailHeaders `json:"email_headers,omitempty"`
	Images       []ImageInfo   `json:"images"`
	Links        []LinkInfo    `json:"links"`
	Errors       []string      `json:"errors,omitempty"`
}

// Result is the output of one conversion.
type Result struct {
	Markdown string       `json:"markdown"`
	Metadata Metadata     `json:"metadata"`
	Email    EmailContext `json:"email"`
}

// Document is a converted input ready for rendering.
type Document struct {
	Source      string    `json:"source"`
	ConvertedAt time.Time `json:"converted_at"`
	Result      Result    `json:"result"`
}

// Parser turns raw HTML into a document tree.
type Parser interface {
	Parse(r io.Reader, contentType string) (*dom.Node, error)
}

// Converter turns HTML into Markdown.
type Converter interface {
	Convert(html string) (*Result, error)
}

// Fetcher loads raw HTML from a URL, a file path or stdin ("-").
type Fetcher interface {
	Fetch(ctx context.Context, source string) (*FetchResult, error)
}

// FetchResult holds the raw bytes and what is known about their encoding.
type FetchResult struct {
	Source      string
	ContentType string
	Body        []byte
}

// Renderer converts a Document into a final output format.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
