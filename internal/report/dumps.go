package report

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// WriteProvides writes every virtual name followed by its selected
// providers, one per tab-indented line, and a blank line.
func WriteProvides(w io.Writer, provides map[string][]string) error {
	bw := bufio.NewWriter(w)
	for _, virtual := range slices.Sorted(maps.Keys(provides)) {
		fmt.Fprintln(bw, virtual)
		for _, pkg := range sortedUnique(provides[virtual]) {
			fmt.Fprintf(bw, "\t%s\n", pkg)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteBlacklisted writes the touched globally blacklisted sources with
// the label they were listed under.
func WriteBlacklisted(w io.Writer, blacklisted map[string]string) error {
	bw := bufio.NewWriter(w)
	for _, src := range slices.Sorted(maps.Keys(blacklisted)) {
		fmt.Fprintf(bw, "%s\t%s\n", src, blacklisted[src])
	}
	return bw.Flush()
}

// WriteSeedText echoes a seed's raw text.
func WriteSeedText(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		fmt.Fprintln(bw, strings.TrimRight(line, "\n"))
	}
	return bw.Flush()
}
