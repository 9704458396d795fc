// Package format renders result sets for the two downstream consumers: a
// self-contained HTML table for display and a compact delimited block for
// model prompts. Both functions are pure.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/reviewlens/reviewlens/internal/store"
)

// ToHTML renders the rows as a styled table fragment with alternating row
// shading. Empty input yields an empty string.
func ToHTML(rs store.ResultSet) string {
	if rs.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("<div style='overflow-x:auto'><table style='width:100%; border-collapse:collapse; color:white; font-size:0.9rem;'>")
	b.WriteString("<thead><tr style='background:#374151; text-align: left;'>")
	for _, column := range rs.Columns {
		b.WriteString("<th style='padding:12px; border-bottom: 2px solid #4B5563;'>")
		b.WriteString(prettyHeader(column))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for i, row := range rs.Rows {
		background := "#1F2937"
		if i%2 == 1 {
			background = "#2D3748"
		}
		fmt.Fprintf(&b, "<tr style='background:%s; border-bottom:1px solid #4B5563'>", background)
		for _, value := range row {
			b.WriteString("<td style='padding:10px;'>")
			b.WriteString(renderValue(value))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></div>")
	return b.String()
}

// ToText renders one pretty-header line and one line per row, columns
// joined by " | ". Callers cap the row count before formatting to bound
// prompt size. Empty input yields an empty string.
func ToText(rs store.ResultSet) string {
	if rs.Empty() {
		return ""
	}

	headers := make([]string, len(rs.Columns))
	for i, column := range rs.Columns {
		headers[i] = prettyHeader(column)
	}

	lines := make([]string, 0, len(rs.Rows)+1)
	lines = append(lines, strings.Join(headers, " | "))
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = renderValue(value)
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	return strings.Join(lines, "\n")
}

// prettyHeader replaces underscores with spaces and title-cases each word:
// first rune upper, remainder lower, so "reviewerID" becomes "Reviewerid".
func prettyHeader(name string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	words := strings.Fields(cleaned)
	for i, word := range words {
		runes := []rune(word)
		words[i] = string(unicode.ToUpper(runes[0])) + strings.ToLower(string(runes[1:]))
	}
	return strings.Join(words, " ")
}

func renderValue(value any) string {
	if value == nil {
		return "None"
	}
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
