package rules

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gaurav-prasanna/mailmd/core"
	"github.com/gaurav-prasanna/mailmd/core/dom"
)

// renderDataTable applies the table handling mode to a table element.
func renderDataTable(table *dom.Node, opts core.Options) string {
	switch opts.TableHandling {
	case core.TableRemove:
		return ""
	case core.TablePreserve:
		return "\n" + dom.OuterHTML(table) + "\n\n"
	}
	return ConvertTable(table, opts)
}

// tableRows returns the rows that belong to table itself, skipping rows of
// tables nested in its cells.
func tableRows(table *dom.Node) []*dom.Node {
	var rows []*dom.Node
	table.Walk(func(n *dom.Node) bool {
		if n == table {
			return true
		}
		if n.IsElement("table") {
			return false
		}
		if n.IsElement("tr") {
			rows = append(rows, n)
			return false
		}
		return true
	})
	return rows
}

func rowCells(row *dom.Node) []*dom.Node {
	var cells []*dom.Node
	for _, c := range row.Children {
		if c.IsElement("td", "th") {
			cells = append(cells, c)
		}
	}
	return cells
}

// ConvertTable renders a table as a pipe table. Cell text keeps bold,
// italic and code formatting; everything else is flattened to plain text.
// A separator row follows the first row when it is made of <th> cells or
// looks like a header row.
func ConvertTable(table *dom.Node, opts core.Options) string {
	var (
		rows   [][]string
		header bool
		width  int
	)
	for _, row := range tableRows(table) {
		cells := rowCells(row)
		if len(cells) == 0 {
			continue
		}
		contents := make([]string, len(cells))
		hasTH := false
		for i, cell := range cells {
			if cell.Tag == "th" {
				hasTH = true
			}
			text := cellContent(cell, opts)
			text = strings.ReplaceAll(text, "|", `\|`)
			text = strings.NewReplacer("\r\n", " ", "\n", " ").Replace(text)
			text = strings.TrimSpace(text)
			if text == "" {
				text = " "
			}
			contents[i] = text
		}
		if len(rows) == 0 {
			header = hasTH || looksLikeHeaders(contents)
		}
		if len(contents) > width {
			width = len(contents)
		}
		rows = append(rows, contents)
	}
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteByte('\n')
	for i, row := range rows {
		for len(row) < width {
			row = append(row, " ")
		}
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		if i == 0 && header {
			sep := make([]string, width)
			for j := range sep {
				sep[j] = "---"
			}
			b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
		}
	}
	b.WriteByte('\n')
	return b.String()
}

func cellContent(cell *dom.Node, opts core.Options) string {
	var b strings.Builder
	for _, c := range cell.Children {
		switch c.Kind {
		case dom.TextNode:
			b.WriteString(c.Data)
		case dom.ElementNode:
			text := c.TextContent()
			switch c.Tag {
			case "strong", "b":
				b.WriteString(wrap(text, opts.StrongDelimiter, opts.StrongDelimiter))
			case "em", "i":
				b.WriteString(wrap(text, opts.EmDelimiter, opts.EmDelimiter))
			case "code":
				b.WriteString(wrap(text, "`", "`"))
			case "br":
				b.WriteByte(' ')
			default:
				b.WriteString(text)
			}
		}
	}
	return b.String()
}

// looksLikeHeaders reports whether every cell is non-empty, shorter than 50
// characters and starts with an upper-case letter.
func looksLikeHeaders(cells []string) bool {
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" || utf8.RuneCountInString(c) >= 50 {
			return false
		}
		r, _ := utf8.DecodeRuneInString(c)
		if r > unicode.MaxASCII || !unicode.IsUpper(r) {
			return false
		}
	}
	return len(cells) > 0
}

// IsLayoutTable reports whether an email table is used for layout rather
// than data: role="presentation", zero cellpadding and cellspacing, or
// anything other than a multi-row table with header cells.
func IsLayoutTable(table *dom.Node) bool {
	if strings.EqualFold(table.AttrOr("role", ""), "presentation") {
		return true
	}
	if table.AttrOr("cellpadding", "") == "0" && table.AttrOr("cellspacing", "") == "0" {
		return true
	}
	rows := tableRows(table)
	hasTH := false
	for _, row := range rows {
		for _, c := range rowCells(row) {
			if c.Tag == "th" {
				hasTH = true
			}
		}
	}
	return !(hasTH && len(rows) > 1)
}
