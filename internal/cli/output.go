// Package cli provides terminal output utilities for the boctl console:
// colored status lines, aligned tables and tree rendering.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// Colorize returns a colored string when stdout is a terminal.
func Colorize(text string, color string) string {
	if !IsTerminal() {
		return text
	}
	return color + text + ColorReset
}

// Success prints a success message.
func Success(message string) {
	if IsTerminal() {
		fmt.Printf("%s✓%s %s\n", ColorGreen, ColorReset, message)
	} else {
		fmt.Printf("✓ %s\n", message)
	}
}

// Error prints an error message to stderr.
func Error(message string) {
	if IsTerminal() {
		fmt.Fprintf(os.Stderr, "%s✗%s %s\n", ColorRed, ColorReset, message)
	} else {
		fmt.Fprintf(os.Stderr, "✗ %s\n", message)
	}
}

// Warning prints a warning message.
func Warning(message string) {
	if IsTerminal() {
		fmt.Printf("%s⚠%s %s\n", ColorYellow, ColorReset, message)
	} else {
		fmt.Printf("⚠ %s\n", message)
	}
}

// Info prints an info message.
func Info(message string) {
	if IsTerminal() {
		fmt.Printf("%sℹ%s %s\n", ColorBlue, ColorReset, message)
	} else {
		fmt.Printf("ℹ %s\n", message)
	}
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Table accumulates rows and renders them with aligned columns. Headers are
// bold on terminals; no box-drawing, output stays grep-friendly.
type Table struct {
	headers []string
	rows    [][]string
	writer  io.Writer
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, writer: os.Stdout}
}

// SetWriter sets the output writer.
func (t *Table) SetWriter(w io.Writer) *Table {
	t.writer = w
	return t
}

// AddRow appends one row. Missing cells render empty, extras are dropped.
func (t *Table) AddRow(cells ...string) *Table {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	t.rows = append(t.rows, row)
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Render writes the table.
func (t *Table) Render() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	headerLine := t.formatRow(t.headers, widths)
	if IsTerminal() && t.writer == os.Stdout {
		headerLine = ColorBold + headerLine + ColorReset
	}
	fmt.Fprintln(t.writer, headerLine)

	for _, row := range t.rows {
		fmt.Fprintln(t.writer, t.formatRow(row, widths))
	}
}

func (t *Table) formatRow(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(cell)
		// Pad every column but the last so lines carry no trailing spaces.
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
		}
	}
	return b.String()
}

// TreeNode is one entry of a rendered tree.
type TreeNode struct {
	Label    string
	Children []TreeNode
}

// RenderTree writes nodes with box-drawing guides, one per line.
func RenderTree(w io.Writer, nodes []TreeNode) {
	for i, n := range nodes {
		renderTreeNode(w, n, "", i == len(nodes)-1)
	}
}

func renderTreeNode(w io.Writer, n TreeNode, prefix string, last bool) {
	connector := "├── "
	childPrefix := prefix + "│   "
	if last {
		connector = "└── "
		childPrefix = prefix + "    "
	}
	fmt.Fprintln(w, prefix+connector+n.Label)
	for i, c := range n.Children {
		renderTreeNode(w, c, childPrefix, i == len(n.Children)-1)
	}
}
