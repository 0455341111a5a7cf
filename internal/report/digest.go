package report

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/dbsmedya/germinate/internal/germinator"
)

// Digest fingerprints the resolved sets of r: every seed's lists and
// reasons, the global sets, provides and blacklisted sources. Two runs
// over the same inputs produce the same digest.
func Digest(r *germinator.Result) string {
	h := xxhash.New()

	writeString(h, r.Arch)
	writeString(h, r.Branch)
	writeString(h, r.Supported)

	for _, seed := range r.Seeds {
		writeString(h, seed.Name)
		for _, list := range [][]string{
			seed.Inherit,
			seed.Entries,
			seed.Recommends,
			seed.Depends,
			seed.BuildDepends,
			seed.SourcePkgs,
			seed.BuildSourcePkgs,
			seed.Blacklist,
		} {
			writeList(h, list)
		}
		writeWhys(h, seed.Why)
	}

	writeList(h, r.All)
	writeList(h, r.AllSources)
	writeWhys(h, r.AllWhy)

	for _, virtual := range slices.Sorted(maps.Keys(r.Provides)) {
		writeString(h, virtual)
		writeList(h, r.Provides[virtual])
	}
	_, _ = h.Write([]byte{0})

	for _, src := range slices.Sorted(maps.Keys(r.Blacklisted)) {
		writeString(h, src)
		writeString(h, r.Blacklisted[src])
	}

	return fmt.Sprintf("%016x", h.Sum64())
}

func writeString(h *xxhash.Digest, s string) {
	_, _ = h.WriteString(s)
	_, _ = h.Write([]byte{0}) // Separator
}

func writeList(h *xxhash.Digest, list []string) {
	for _, s := range list {
		writeString(h, s)
	}
	_, _ = h.Write([]byte{0}) // Section separator
}

func writeWhys(h *xxhash.Digest, whys map[string]germinator.Why) {
	for _, pkg := range slices.Sorted(maps.Keys(whys)) {
		why := whys[pkg]
		writeString(h, pkg)
		writeString(h, why.Reason)
		writeString(h, strconv.FormatBool(why.BuildTree))
		writeString(h, strconv.FormatBool(why.Recommends))
	}
	_, _ = h.Write([]byte{0})
}
