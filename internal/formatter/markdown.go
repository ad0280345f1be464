// Package formatter renders tables as aligned markdown for console previews.
package formatter

import (
	"fmt"
	"strings"

	"cropdata/internal/table"

	"github.com/mattn/go-runewidth"
)

// minColumnWidth keeps the separator at least "---".
const minColumnWidth = 3

// Preview renders the header and first n rows of t, followed by a row count
// line when rows were cut.
func Preview(t *table.Table, n int) string {
	head := t.Head(n)
	lines := FormatTable(head.Header, head.Rows)

	if t.Len() > head.Len() {
		lines = append(lines, fmt.Sprintf("... %d more rows", t.Len()-head.Len()))
	}

	return strings.Join(lines, "\n")
}

// FormatTable lays out a header and rows as a markdown pipe table with every
// column padded to its widest cell. Widths are display widths, so East Asian
// and accented country names line up.
func FormatTable(header []string, rows [][]string) []string {
	colCount := len(header)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	if colCount == 0 {
		return nil
	}

	colWidths := make([]int, colCount)

	measure := func(row []string) {
		for i := 0; i < len(row) && i < colCount; i++ {
			width := runewidth.StringWidth(row[i])
			if width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	measure(header)

	for _, row := range rows {
		measure(row)
	}

	for i := range colWidths {
		if colWidths[i] < minColumnWidth {
			colWidths[i] = minColumnWidth
		}
	}

	result := make([]string, 0, len(rows)+2)
	result = append(result, formatRow(header, colWidths))

	separator := make([]string, colCount)
	for i, w := range colWidths {
		separator[i] = strings.Repeat("-", w)
	}

	result = append(result, formatRow(separator, colWidths))

	for _, row := range rows {
		result = append(result, formatRow(row, colWidths))
	}

	return result
}

func formatRow(row []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		sb.WriteString(" ")

		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(content)

		if padding := width - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}
