package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Console output shared by the commands. Everything goes to out.
var out io.Writer = os.Stdout

const ruleWidth = 59

// PrintSeparator prints a single rule
func PrintSeparator() {
	fmt.Fprintln(out, strings.Repeat("─", ruleWidth))
}

// PrintDoubleSeparator prints a double rule
func PrintDoubleSeparator() {
	fmt.Fprintln(out, strings.Repeat("═", ruleWidth))
}

// PrintWarning prints a warning set off by blank lines
func PrintWarning(message string) {
	fmt.Fprintf(out, "\n⚠️  %s\n\n", message)
}

func PrintSuccess(message string) {
	fmt.Fprintf(out, "✅ %s\n", message)
}

func PrintError(message string) {
	fmt.Fprintf(out, "❌ %s\n", message)
}

func PrintInfo(message string) {
	fmt.Fprintf(out, "ℹ️  %s\n", message)
}

// PrintTableHeader prints the column names and a rule as wide as the table
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	total := 0
	for _, w := range widths {
		total += w
	}
	if len(widths) > 1 {
		total += 2 * (len(widths) - 1)
	}
	fmt.Fprintln(out, strings.Repeat("─", total))
}

// PrintTableRow left-aligns values in their columns, two spaces apart
func PrintTableRow(values []string, widths []int) {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = fmt.Sprintf("%-*s", widths[i], v)
	}
	fmt.Fprintln(out, strings.Join(cells, "  "))
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Fprintf(out, "   • %s\n", item)
	}
}

// PrintKeyValue prints key : value with the key padded to keyWidth
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Fprintf(out, "   %-*s : %s\n", keyWidth, key, value)
}
