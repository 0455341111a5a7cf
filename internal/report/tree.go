package report

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dbsmedya/germinate/internal/archive"
	"github.com/dbsmedya/germinate/internal/germinator"
	"github.com/dbsmedya/germinate/internal/seeds"
)

var rdependFields = []string{
	archive.FieldPreDepends,
	archive.FieldDepends,
	archive.FieldRecommends,
	archive.FieldBuildDepends,
	archive.FieldBuildDependsIndep,
}

type rdependTree struct {
	w     *bufio.Writer
	model *archive.Model
	seeds []germinator.SeedResult
	done  map[string]bool
}

// WriteRdepends writes the tree of packages and sources that pulled pkg in,
// following the reverse edges recorded on the model. Build-dependency
// edges are listed but not descended into. A package already shown
// elsewhere in the tree is marked "! skipped"; a cycle is marked "! loop".
func WriteRdepends(w io.Writer, model *archive.Model, results []germinator.SeedResult, pkg string) error {
	t := &rdependTree{
		w:     bufio.NewWriter(w),
		model: model,
		seeds: results,
		done:  make(map[string]bool),
	}
	fmt.Fprintln(t.w, pkg)
	t.walk(pkg, "", nil)
	return t.w.Flush()
}

func (t *rdependTree) walk(pkg, prefix string, stack []string) {
	if slices.Contains(stack, pkg) {
		fmt.Fprintln(t.w, prefix+"! loop")
		return
	}
	stack = append(slices.Clip(stack), pkg)

	if t.done[pkg] {
		fmt.Fprintln(t.w, prefix+"! skipped")
		return
	}
	t.done[pkg] = true

	for _, seed := range t.seeds {
		if slices.Contains(seed.Entries, pkg) {
			fmt.Fprintln(t.w, prefix+"* "+seeds.Title(seed.Name)+" seed")
		}
	}

	p, ok := t.model.Package(pkg)
	if !ok || p.ReverseDepends == nil {
		return
	}

	for _, field := range rdependFields {
		rdeps, ok := p.ReverseDepends[field]
		if !ok {
			continue
		}
		fmt.Fprintln(t.w, prefix+"* Reverse "+field+":")
		for i, dep := range rdeps {
			fmt.Fprintln(t.w, prefix+" +- "+dep)
			if strings.HasPrefix(field, "Build-") {
				continue
			}
			extra := " |  "
			if i == len(rdeps)-1 {
				extra = "    "
			}
			t.walk(dep, prefix+extra, stack)
		}
	}
}
