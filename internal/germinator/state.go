package germinator

import (
	"maps"
	"slices"
)

// SeedID is the interned identifier of a seed within one Germinator.
// IDs are handed out in planting order, so comparing them compares
// processing order.
type SeedID int

// AllSeed is the pseudo-seed under which the aggregated why map is kept.
const AllSeed = "all"

// Why records why a package was added to a seed.
type Why struct {
	Reason     string `yaml:"reason"`
	BuildTree  bool   `yaml:"build_tree,omitempty"`
	Recommends bool   `yaml:"recommends,omitempty"`
}

// prefer reports whether candidate should replace current. A reason from
// the dependency tree beats one from the build-dependency tree, and within
// the same tree a dependency beats a recommendation. Otherwise the first
// reason stands.
func prefer(current, candidate Why) bool {
	if current.BuildTree != candidate.BuildTree {
		return !candidate.BuildTree
	}
	return current.Recommends && !candidate.Recommends
}

type stringSet map[string]bool

func (s stringSet) sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// seedState is the working state of one seed during germination.
type seedState struct {
	id   SeedID
	name string

	entries    []string // explicit requests
	recommends []string // explicit requests marked as recommendations
	blacklist  stringSet
	features   stringSet
	closeSeeds stringSet

	depends         stringSet
	buildDepends    stringSet
	sourcepkgs      stringSet
	buildSourcepkgs stringSet

	// build and notBuild hold packages present in this seed, in the build
	// tree and outside it respectively; the *Srcs sets are their source
	// analogues.
	build        stringSet
	notBuild     stringSet
	buildSrcs    stringSet
	notBuildSrcs stringSet

	why            map[string]Why
	kernelVersions stringSet
	includes       map[string][]string
	excludes       map[string][]string
}

func newSeedState(id SeedID, name string) *seedState {
	return &seedState{
		id:              id,
		name:            name,
		blacklist:       make(stringSet),
		features:        make(stringSet),
		closeSeeds:      make(stringSet),
		depends:         make(stringSet),
		buildDepends:    make(stringSet),
		sourcepkgs:      make(stringSet),
		buildSourcepkgs: make(stringSet),
		build:           make(stringSet),
		notBuild:        make(stringSet),
		buildSrcs:       make(stringSet),
		notBuildSrcs:    make(stringSet),
		why:             make(map[string]Why),
		kernelVersions:  make(stringSet),
		includes:        make(map[string][]string),
		excludes:        make(map[string][]string),
	}
}

// seeded reports whether pkg is an explicit request of this seed.
func (s *seedState) seeded(pkg string) bool {
	return slices.Contains(s.entries, pkg) || slices.Contains(s.recommends, pkg)
}

// unseed removes pkg from the explicit request lists.
func (s *seedState) unseed(pkg string) {
	s.entries = slices.DeleteFunc(s.entries, func(e string) bool { return e == pkg })
	s.recommends = slices.DeleteFunc(s.recommends, func(e string) bool { return e == pkg })
}

// OutcomeKind classifies how one OR-group was resolved.
type OutcomeKind int

const (
	Unresolved OutcomeKind = iota
	AlreadySatisfied
	Promoted
	Added
)

func (k OutcomeKind) String() string {
	switch k {
	case AlreadySatisfied:
		return "already-satisfied"
	case Promoted:
		return "promoted"
	case Added:
		return "added"
	default:
		return "unresolved"
	}
}

// DependencyOutcome is the result of resolving one OR-group.
type DependencyOutcome struct {
	Kind   OutcomeKind
	Choice string   // alternative that was used
	From   string   // seed a promoted package was taken from
	Added  []string // packages added for a new dependency
}
