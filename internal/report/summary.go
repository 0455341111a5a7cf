package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/germinate/internal/germinator"
)

var (
	headerStyle = color.New(color.FgCyan, color.OpBold)
	seedStyle   = color.New(color.FgGreen)
	warnStyle   = color.New(color.FgYellow)
)

// Summary prints a short colored overview of r for the terminal.
func Summary(w io.Writer, r *germinator.Result, digest string) error {
	bw := bufio.NewWriter(w)

	title := fmt.Sprintf("Germination: %s (%s)", r.Branch, r.Arch)
	fmt.Fprintln(bw, headerStyle.Sprint(strings.Repeat("=", len(title)+4)))
	fmt.Fprintln(bw, headerStyle.Sprintf("  %s", title))
	fmt.Fprintln(bw, headerStyle.Sprint(strings.Repeat("=", len(title)+4)))

	nameLen := runewidth.StringWidth("Seed")
	for _, seed := range r.Seeds {
		nameLen = max(nameLen, runewidth.StringWidth(seed.Name))
	}

	fmt.Fprintf(bw, "  %s %8s %8s %8s %8s\n",
		runewidth.FillRight("Seed", nameLen), "Seed", "Depends", "Build", "Sources")
	for _, seed := range r.Seeds {
		fmt.Fprintf(bw, "  %s %8d %8d %8d %8d\n",
			seedStyle.Sprint(runewidth.FillRight(seed.Name, nameLen)),
			len(seed.Entries)+len(seed.Recommends),
			len(seed.Depends),
			len(seed.BuildDepends),
			len(seed.SourcePkgs),
		)
	}

	fmt.Fprintf(bw, "  Packages: %d  Sources: %d  Supported: %s\n", len(r.All), len(r.AllSources), r.Supported)
	if len(r.Blacklisted) > 0 {
		fmt.Fprintln(bw, warnStyle.Sprintf("  Blacklisted sources touched: %d", len(r.Blacklisted)))
	}
	if digest != "" {
		fmt.Fprintf(bw, "  Digest: %s\n", digest)
	}

	return bw.Flush()
}
