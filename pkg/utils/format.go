package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FormatUSD formats a price as $1234.56.
func FormatUSD(amount float64) string {
	if amount < 0 {
		return fmt.Sprintf("-$%.2f", -amount)
	}
	return fmt.Sprintf("$%.2f", amount)
}

// PadRight pads s with spaces up to width runes.
func PadRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// GridTable renders rows as a boxed grid. The first row is the header and is
// separated from the body with '='.
//
//	+-------+-------+
//	| Query | Desc  |
//	+=======+=======+
//	| help  | ...   |
//	+-------+-------+
func GridTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	widths := make([]int, cols)
	for _, r := range rows {
		for i, cell := range r {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	rule := func(ch string) string {
		var sb strings.Builder
		sb.WriteString("+")
		for _, w := range widths {
			sb.WriteString(strings.Repeat(ch, w+2))
			sb.WriteString("+")
		}
		return sb.String()
	}
	line := func(r []string) string {
		var sb strings.Builder
		sb.WriteString("|")
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(r) {
				cell = r[i]
			}
			sb.WriteString(" ")
			sb.WriteString(PadRight(cell, widths[i]))
			sb.WriteString(" |")
		}
		return sb.String()
	}

	out := []string{rule("-"), line(rows[0]), rule("=")}
	for i, r := range rows[1:] {
		if i > 0 {
			out = append(out, rule("-"))
		}
		out = append(out, line(r))
	}
	out = append(out, rule("-"))
	return strings.Join(out, "\n")
}
