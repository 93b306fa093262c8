// Package util renders shell output.
package util

import (
	"fmt"
	"io"
	"strings"
)

const (
	truncatedStringEnd = " ..."
	defaultWidth       = 10
)

// Column is a table column, values wider than Width are truncated. A zero
// Width means the default.
type Column struct {
	Name  string
	Width int
}

func (c Column) width() int {
	if c.Width <= 0 {
		return max(defaultWidth, len(c.Name))
	}
	return c.Width
}

func PrintTableHeader(w io.Writer, columns []Column) {
	tableWidth := computeTableWidth(columns)

	fmt.Fprintf(w, "+%s+\n", strings.Repeat("-", tableWidth-2))
	for _, aColumn := range columns {
		fmt.Fprintf(w, "| %-*s ", aColumn.width(), truncate(aColumn.Name, aColumn.width()))
	}
	fmt.Fprint(w, "|\n")
	fmt.Fprintf(w, "+%s+\n", strings.Repeat("-", tableWidth-2))
}

// PrintTableRow prints one row, values beyond the number of columns are dropped
// and missing values are left blank.
func PrintTableRow(w io.Writer, columns []Column, values []any) {
	for i, aColumn := range columns {
		aStringValue := ""
		if i < len(values) && values[i] != nil {
			aStringValue = fmt.Sprint(values[i])
		}
		fmt.Fprintf(w, "| %-*s ", aColumn.width(), truncate(aStringValue, aColumn.width()))
	}
	fmt.Fprint(w, "|\n")
}

func PrintTableEnd(w io.Writer, columns []Column) {
	fmt.Fprintf(w, "+%s+\n", strings.Repeat("-", computeTableWidth(columns)-2))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= len(truncatedStringEnd) {
		return string(r[:width])
	}
	return string(r[:width-len(truncatedStringEnd)]) + truncatedStringEnd
}

// left border is | followed by a space, right border is space followed by | (2+2=4)
// then between each column we have space, |, space (3)
func computeTableWidth(columns []Column) int {
	tableWidth := 4 + (len(columns)-1)*3
	for _, aColumn := range columns {
		tableWidth += aColumn.width()
	}
	return tableWidth
}
