// Package report writes germination results: the per-seed package and
// source tables, reverse-dependency trees, provides and blacklist dumps,
// a YAML export and a digest used to compare runs.
package report

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/germinate/internal/archive"
	"github.com/dbsmedya/germinate/internal/germinator"
)

// sizeWidth is the width of both size columns.
const sizeWidth = 15

type listRow struct {
	pkg, src, why, maintainer string
	size, installedSize       int64
}

// WriteList writes the package table for pkgs, taking the Why column from
// whys. Packages unknown to model are skipped.
func WriteList(w io.Writer, model *archive.Model, whys map[string]germinator.Why, pkgs []string) error {
	pkgLen := runewidth.StringWidth("Package")
	srcLen := runewidth.StringWidth("Source")
	whyLen := runewidth.StringWidth("Why")
	mntLen := runewidth.StringWidth("Maintainer")

	var rows []listRow
	for _, pkg := range sortedUnique(pkgs) {
		p, ok := model.Package(pkg)
		if !ok {
			continue
		}
		row := listRow{
			pkg:           pkg,
			src:           p.Source,
			why:           whys[pkg].Reason,
			maintainer:    p.Maintainer,
			size:          p.Size,
			installedSize: p.InstalledSize,
		}
		pkgLen = max(pkgLen, runewidth.StringWidth(row.pkg))
		srcLen = max(srcLen, runewidth.StringWidth(row.src))
		whyLen = max(whyLen, runewidth.StringWidth(row.why))
		mntLen = max(mntLen, runewidth.StringWidth(row.maintainer))
		rows = append(rows, row)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s | %s | %s | %s | %-*s | %-*s\n",
		runewidth.FillRight("Package", pkgLen),
		runewidth.FillRight("Source", srcLen),
		runewidth.FillRight("Why", whyLen),
		runewidth.FillRight("Maintainer", mntLen),
		sizeWidth, "Deb Size (B)",
		sizeWidth, "Inst Size (KB)",
	)
	fmt.Fprintln(bw, rule(pkgLen, srcLen, whyLen, mntLen, sizeWidth, sizeWidth))

	var size, installedSize int64
	for _, row := range rows {
		size += row.size
		installedSize += row.installedSize
		fmt.Fprintf(bw, "%s | %s | %s | %s | %*d | %*d\n",
			runewidth.FillRight(row.pkg, pkgLen),
			runewidth.FillRight(row.src, srcLen),
			runewidth.FillRight(row.why, whyLen),
			runewidth.FillRight(row.maintainer, mntLen),
			sizeWidth, row.size,
			sizeWidth, row.installedSize,
		)
	}

	textLen := pkgLen + srcLen + whyLen + mntLen + 9
	fmt.Fprintln(bw, rule(textLen, sizeWidth, sizeWidth))
	fmt.Fprintf(bw, "%s | %*d | %*d\n", strings.Repeat(" ", textLen), sizeWidth, size, sizeWidth, installedSize)

	return bw.Flush()
}

// WriteSourceList writes the source table for srcs.
func WriteSourceList(w io.Writer, model *archive.Model, srcs []string) error {
	srcLen := runewidth.StringWidth("Source")
	mntLen := runewidth.StringWidth("Maintainer")

	list := sortedUnique(srcs)
	maintainers := make([]string, len(list))
	for i, src := range list {
		if s, ok := model.Source(src); ok {
			maintainers[i] = s.Maintainer
		}
		srcLen = max(srcLen, runewidth.StringWidth(src))
		mntLen = max(mntLen, runewidth.StringWidth(maintainers[i]))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s | %s\n", runewidth.FillRight("Source", srcLen), runewidth.FillRight("Maintainer", mntLen))
	fmt.Fprintln(bw, rule(srcLen, mntLen))
	for i, src := range list {
		fmt.Fprintf(bw, "%s | %s\n", runewidth.FillRight(src, srcLen), runewidth.FillRight(maintainers[i], mntLen))
	}
	return bw.Flush()
}

// rule draws the separator line under a header with the given column widths.
func rule(widths ...int) string {
	cols := make([]string, len(widths))
	for i, n := range widths {
		cols[i] = strings.Repeat("-", n)
	}
	return strings.Join(cols, "-+-") + "-"
}

func sortedUnique(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return slices.Compact(out)
}
