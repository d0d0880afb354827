// PDF renderer.
// Converts Markdown into a styled PDF using gofpdf.
// Handles headings (variable font sizes), paragraphs, code blocks, quotes,
// tables, rules and lists. Images are not rendered.

package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/mailmd/core"
)

var (
	orderedItem  = regexp.MustCompile(`^\d+\.\s`)
	italicSpan   = regexp.MustCompile(`(^|[\s(])[*_]([^*_]+)[*_]([\s).,;:!?]|$)`)
	codeSpan     = regexp.MustCompile("`+\\s?([^`]+?)\\s?`+")
	inlineLink   = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
	refLink      = regexp.MustCompile(`\[([^\]]+)\]\[[^\]]*\]`)
	autoLink     = regexp.MustCompile(`<((?:https?://|mailto:)?[^\s<>@]+(?:@[^\s<>]+)?)>`)
	markdownRule = regexp.MustCompile(`^ {0,3}([-*_])(?:\s*[-*_]){2,}\s*$`)
)

// PDFRenderer renders Markdown content as a PDF document.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render converts the document's Markdown into PDF bytes.
func (r *PDFRenderer) Render(doc core.Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetCreator("mailmd", true)
	pdf.AddPage()
	// The core fonts are cp1252; translate so accented text survives.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	meta := doc.Result.Metadata
	title := meta.Title
	if title == "" && meta.EmailHeaders != nil {
		title = meta.EmailHeaders.Subject
	}
	if title != "" {
		pdf.SetTitle(title, true)
		pdf.SetFont("Helvetica", "B", 18)
		pdf.MultiCell(0, 8, tr(title), "", "L", false)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	if doc.Source != "" {
		pdf.MultiCell(0, 5, tr("Source: "+doc.Source), "", "L", false)
	}
	if h := meta.EmailHeaders; h != nil {
		for _, line := range headerLines(h) {
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
		}
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)

	lines := strings.Split(doc.Result.Markdown, "\n")
	var fence string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
				pdf.Ln(2)
				continue
			}
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(245, 245, 245)
			pdf.MultiCell(0, 4.5, tr(line), "", "L", true)
			continue
		}
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fence = trimmed[:3]
			pdf.Ln(2)
			continue
		}

		switch {
		case trimmed == "":
			pdf.Ln(3)

		case strings.HasPrefix(line, "#"):
			level := len(line) - len(strings.TrimLeft(line, "#"))
			renderHeading(pdf, tr(strings.TrimSpace(line[level:])), level)

		case markdownRule.MatchString(line):
			y := pdf.GetY() + 2
			left, _, right, _ := pdf.GetMargins()
			w, _ := pdf.GetPageSize()
			pdf.SetDrawColor(180, 180, 180)
			pdf.Line(left, y, w-right, y)
			pdf.Ln(5)

		case strings.HasPrefix(trimmed, ">"):
			depth := 0
			for strings.HasPrefix(trimmed, ">") {
				depth++
				trimmed = strings.TrimSpace(trimmed[1:])
			}
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(90, 90, 90)
			pdf.SetX(pdf.GetX() + float64(depth)*5)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(trimmed)), "", "L", false)
			pdf.SetTextColor(0, 0, 0)

		case strings.HasPrefix(trimmed, "|"):
			pdf.SetFont("Courier", "", 9)
			pdf.MultiCell(0, 4.5, tr(cleanInlineMarkdown(trimmed)), "", "L", false)

		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "+ "):
			pdf.SetFont("Helvetica", "", 10)
			indent := float64(len(line)-len(strings.TrimLeft(line, " "))) * 2
			pdf.SetX(pdf.GetX() + indent)
			pdf.MultiCell(0, 5, tr("• "+cleanInlineMarkdown(trimmed[2:])), "", "L", false)

		case orderedItem.MatchString(trimmed):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(trimmed)), "", "L", false)

		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(line)), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func headerLines(h *core.EmailHeaders) []string {
	var out []string
	add := func(name, value string) {
		if value != "" {
			out = append(out, name+": "+value)
		}
	}
	add("From", h.From)
	add("To", strings.Join(h.To, ", "))
	add("Cc", strings.Join(h.CC, ", "))
	add("Date", h.Date)
	return out
}

// renderHeading sets the font size based on heading level and writes text.
func renderHeading(pdf *gofpdf.Fpdf, text string, level int) {
	sizes := map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}
	size, ok := sizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, cleanInlineMarkdown(text), "", "L", false)
	pdf.Ln(2)
}

// cleanInlineMarkdown strips inline Markdown formatting for PDF rendering.
func cleanInlineMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = strings.ReplaceAll(text, "~~", "")
	text = italicSpan.ReplaceAllString(text, "$1$2$3")
	text = codeSpan.ReplaceAllString(text, "$1")
	text = inlineLink.ReplaceAllString(text, "$1")
	text = refLink.ReplaceAllString(text, "$1")
	text = autoLink.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
