package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

// printHeader prints a formatted header
func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := runewidth.StringWidth(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// printSideBySide prints two blocks of text side by side
// padding is the minimum spaces between the two columns
func printSideBySide(leftLines, rightLines []string, padding int) {
	leftWidth := 0
	for _, line := range leftLines {
		leftWidth = max(leftWidth, runewidth.StringWidth(line))
	}

	for i := 0; i < max(len(leftLines), len(rightLines)); i++ {
		leftPart, rightPart := "", ""
		if i < len(leftLines) {
			leftPart = leftLines[i]
		}
		if i < len(rightLines) {
			rightPart = rightLines[i]
		}

		if rightPart == "" {
			fmt.Fprintln(outputWriter, leftPart)
			continue
		}
		fmt.Fprint(outputWriter, runewidth.FillRight(leftPart, leftWidth+padding))
		fmt.Fprintln(outputWriter, rightPart)
	}
}
