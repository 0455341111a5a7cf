package seeds

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
)

// StructureFile is the name of the per-branch structure descriptor.
const StructureFile = "STRUCTURE"

// Fetcher supplies raw seed text. Branches are tried in order and the
// first one holding the file wins.
type Fetcher interface {
	Fetch(branches []string, name string) ([]string, error)
}

// DirFetcher reads seeds from local checkouts laid out as base/branch/name.
// Bases are tried in order, then branches within each base.
type DirFetcher struct {
	Bases []string
}

// Fetch implements Fetcher.
func (f DirFetcher) Fetch(branches []string, name string) ([]string, error) {
	for _, base := range f.Bases {
		for _, branch := range branches {
			data, err := os.ReadFile(filepath.Join(base, branch, name))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, "failed to read seed"), "path", filepath.Join(base, branch, name))
			}
			return SplitLines(string(data)), nil
		}
	}
	return nil, zerr.With(zerr.With(zerr.Wrap(ErrSeedNotFound, ""), "seed", name), "branches", strings.Join(branches, ","))
}

// MemoryFetcher serves seed text from memory, keyed by branch then file name.
type MemoryFetcher map[string]map[string]string

// Fetch implements Fetcher.
func (f MemoryFetcher) Fetch(branches []string, name string) ([]string, error) {
	for _, branch := range branches {
		if text, ok := f[branch][name]; ok {
			return SplitLines(text), nil
		}
	}
	return nil, zerr.With(zerr.With(zerr.Wrap(ErrSeedNotFound, ""), "seed", name), "branches", strings.Join(branches, ","))
}

// SplitLines splits text into lines without their terminators.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
