package germinator

import (
	"io"
	"maps"
	"slices"

	"github.com/dbsmedya/germinate/internal/archive"
	"github.com/dbsmedya/germinate/internal/logger"
	"github.com/dbsmedya/germinate/internal/seeds"
)

// SeedResult is the resolved output of one seed.
type SeedResult struct {
	Name            string         `yaml:"name"`
	Inherit         []string       `yaml:"inherit,omitempty"`
	Entries         []string       `yaml:"seed"`
	Recommends      []string       `yaml:"seed_recommends,omitempty"`
	Depends         []string       `yaml:"depends,omitempty"`
	BuildDepends    []string       `yaml:"build_depends,omitempty"`
	SourcePkgs      []string       `yaml:"sources,omitempty"`
	BuildSourcePkgs []string       `yaml:"build_sources,omitempty"`
	Blacklist       []string       `yaml:"blacklist,omitempty"`
	Why             map[string]Why `yaml:"why"`
}

// Packages returns the seed's runtime output: its entries, recommends and
// dependencies, sorted and without duplicates.
func (s *SeedResult) Packages() []string {
	all := slices.Concat(s.Entries, s.Recommends, s.Depends)
	slices.Sort(all)
	return slices.Compact(all)
}

// Result is a read-only view of a finished germination run.
type Result struct {
	Arch      string       `yaml:"arch"`
	Branch    string       `yaml:"branch"`
	Supported string       `yaml:"supported"`
	Seeds     []SeedResult `yaml:"seeds"`

	All         []string            `yaml:"all"`
	AllSources  []string            `yaml:"all_sources"`
	AllWhy      map[string]Why      `yaml:"-"`
	Provides    map[string][]string `yaml:"provides,omitempty"`
	Blacklisted map[string]string   `yaml:"blacklisted,omitempty"`
}

// Seed returns the result of the named seed.
func (r *Result) Seed(name string) (*SeedResult, bool) {
	for i := range r.Seeds {
		if r.Seeds[i].Name == name {
			return &r.Seeds[i], true
		}
	}
	return nil, false
}

// Result exports the current state. Sets are sorted; explicit entry lists
// keep their order.
func (g *Germinator) Result() *Result {
	r := &Result{
		Arch:        g.model.Arch(),
		All:         g.all.sorted(),
		AllSources:  g.allSrcs.sorted(),
		AllWhy:      maps.Clone(g.allWhy),
		Provides:    make(map[string][]string, len(g.pkgprovides)),
		Blacklisted: make(map[string]string, len(g.blacklisted)),
	}
	if g.structure != nil {
		r.Branch = g.structure.Branch()
		r.Supported = g.supported
	}

	for el := g.seeds.Front(); el != nil; el = el.Next() {
		st := el.Value
		sr := SeedResult{
			Name:            st.name,
			Entries:         slices.Clone(st.entries),
			Recommends:      slices.Clone(st.recommends),
			Depends:         st.depends.sorted(),
			BuildDepends:    st.buildDepends.sorted(),
			SourcePkgs:      st.sourcepkgs.sorted(),
			BuildSourcePkgs: st.buildSourcepkgs.sorted(),
			Blacklist:       st.blacklist.sorted(),
			Why:             maps.Clone(st.why),
		}
		if g.structure != nil {
			sr.Inherit = g.structure.Inherit(st.name)
		}
		r.Seeds = append(r.Seeds, sr)
	}

	for virtual, pkgs := range g.pkgprovides {
		r.Provides[virtual] = pkgs.sorted()
	}
	for src := range g.blacklisted {
		r.Blacklisted[src] = g.blacklist[src]
	}

	return r
}

// Run performs a complete germination of structure against model: plant,
// prune, grow, extras and reverse dependencies. hints and blacklist may be
// nil.
func Run(model *archive.Model, structure *seeds.Structure, names []string, log *logger.Logger, opts Options, hints, blacklist io.Reader) (*Germinator, error) {
	g := New(model, log, opts)

	if hints != nil {
		if err := g.ParseHints(hints); err != nil {
			return nil, err
		}
	}
	if blacklist != nil {
		if err := g.ParseBlacklist(blacklist); err != nil {
			return nil, err
		}
	}
	if err := g.PlantSeeds(structure, names); err != nil {
		return nil, err
	}
	g.Prune()
	if err := g.Grow(); err != nil {
		return nil, err
	}
	if err := g.AddExtras(); err != nil {
		return nil, err
	}
	if err := g.ReverseDepends(); err != nil {
		return nil, err
	}
	return g, nil
}
