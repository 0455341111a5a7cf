// Package germinator expands seeds into dependency-closed package and
// source sets, seed by seed in inheritance order, recording why every
// package was pulled in.
package germinator

import (
	"bufio"
	"io"
	"slices"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"go.trai.ch/zerr"

	"github.com/dbsmedya/germinate/internal/archive"
	"github.com/dbsmedya/germinate/internal/logger"
	"github.com/dbsmedya/germinate/internal/seeds"
)

var (
	// ErrNotPlanted is returned when growing before any seed was planted.
	ErrNotPlanted = zerr.New("seeds not planted")

	// ErrNotGrown is returned when extras or reverse dependencies are
	// requested before the seeds were grown.
	ErrNotGrown = zerr.New("seeds not grown")
)

const defaultMaxDepth = 10000

// Options tunes a germination run.
type Options struct {
	// FollowRecommends follows Recommends for every seed unless a seed or
	// the structure says otherwise.
	FollowRecommends bool

	// KernelVersions, when set, replaces every seed's Kernel-Version list.
	KernelVersions []string

	// MaxDepth bounds the recursion of the dependency walker.
	MaxDepth int
}

// Germinator holds the state of one germination run for one architecture.
type Germinator struct {
	model     *archive.Model
	structure *seeds.Structure
	log       *logger.Logger
	opts      Options
	matcher   *seeds.Matcher

	seeds  *orderedmap.OrderedMap[SeedID, *seedState]
	ids    map[string]SeedID
	allWhy map[string]Why

	all         stringSet
	allSrcs     stringSet
	pkgprovides map[string]stringSet
	pruned      map[string]stringSet
	blacklist   map[string]string
	blacklisted stringSet
	hints       map[string]string
	substvars   map[string][]string
	supported   string

	planted bool
	grown   bool
	extras  bool
	depth   int
}

// New creates a Germinator over an ingested archive model.
func New(model *archive.Model, log *logger.Logger, opts Options) *Germinator {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	return &Germinator{
		model:       model,
		log:         log.WithArch(model.Arch()),
		opts:        opts,
		matcher:     seeds.NewMatcher(0),
		seeds:       orderedmap.NewOrderedMap[SeedID, *seedState](),
		ids:         make(map[string]SeedID),
		allWhy:      make(map[string]Why),
		all:         make(stringSet),
		allSrcs:     make(stringSet),
		pkgprovides: make(map[string]stringSet),
		pruned:      make(map[string]stringSet),
		blacklist:   make(map[string]string),
		blacklisted: make(stringSet),
		hints:       make(map[string]string),
		substvars:   make(map[string][]string),
	}
}

// ParseHints reads "seed package" lines forcing package into seed.
// Comments, blank lines and lines without exactly two words are ignored.
func (g *Germinator) ParseHints(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words := strings.Fields(line)
		if len(words) != 2 {
			continue
		}
		g.hints[words[1]] = words[0]
	}
	return scanner.Err()
}

// ParseBlacklist reads the global blacklist. A "# blacklist: NAME" line
// sets the label recorded for the names that follow it.
func (g *Germinator) ParseBlacklist(r io.Reader) error {
	const labelPrefix = "# blacklist: "

	label := ""
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, labelPrefix):
			label = line[len(labelPrefix):]
		case line == "" || strings.HasPrefix(line, "#"):
		default:
			g.blacklist[line] = label
		}
	}
	return scanner.Err()
}

// PlantSeeds fetches and parses every seed of structure, optionally
// limited to names and their ancestors, and classifies each request.
func (g *Germinator) PlantSeeds(structure *seeds.Structure, names []string) error {
	if len(names) > 0 {
		if err := structure.Limit(names); err != nil {
			return err
		}
	}

	g.structure = structure
	g.supported = structure.Supported()
	g.log = g.log.WithBranch(structure.Branch())

	for _, name := range structure.Names() {
		if err := structure.Fetch(name); err != nil {
			return zerr.With(err, "seed", name)
		}
		g.plant(name)
	}

	g.planted = true
	return nil
}

func (g *Germinator) newSeed(name string) *seedState {
	id := SeedID(g.seeds.Len())
	state := newSeedState(id, name)
	g.seeds.Set(id, state)
	g.ids[name] = id
	return state
}

func (g *Germinator) state(name string) (*seedState, bool) {
	id, ok := g.ids[name]
	if !ok {
		return nil, false
	}
	return g.seeds.Get(id)
}

func (g *Germinator) plant(name string) {
	if _, ok := g.ids[name]; ok {
		return
	}
	state := g.newSeed(name)
	log := g.log.WithSeed(name)

	parsed := seeds.ParseText(name, g.structure.Text(name), &seeds.ParseContext{
		Arch:      g.model.Arch(),
		Catalog:   g.model,
		Substvars: g.substvars,
		KnownSeed: func(seed string) bool {
			_, ok := g.ids[seed]
			return ok
		},
		Matcher: g.matcher,
		Log:     g.log,
	})

	for _, s := range parsed.CloseSeeds {
		state.closeSeeds[s] = true
	}
	for _, f := range parsed.Features {
		state.features[f] = true
	}
	kernels := parsed.KernelVersions
	if len(g.opts.KernelVersions) > 0 {
		kernels = g.opts.KernelVersions
	}
	for _, k := range kernels {
		state.kernelVersions[k] = true
	}
	for pkg := range parsed.Blacklist {
		state.blacklist[pkg] = true
	}
	state.includes = parsed.Includes
	state.excludes = parsed.Excludes

	for _, pkg := range parsed.Entries {
		if hint, ok := g.hints[pkg]; ok && hint != name {
			log.Warnw("Taking the hint", "package", pkg, "hinted_seed", hint)
			continue
		}

		switch {
		case g.model.HasPackage(pkg):
			switch {
			case g.alreadySeeded(name, pkg):
				log.Warnw("Duplicated seed", "package", pkg)
			case g.isPruned(pkg, state):
				log.Warnw("Pruned package", "package", pkg)
			default:
				g.seedEntry(state, pkg, parsed.IsRecommend(pkg))
			}
		case g.model.IsVirtual(pkg):
			var chosen []string
			for _, provider := range g.model.Providers(pkg) {
				if g.alreadySeeded(name, provider) || g.isPruned(provider, state) {
					continue
				}
				chosen = append(chosen, provider)
				g.seedEntry(state, provider, parsed.IsRecommend(pkg))
			}
			log.Infow("Virtual seed package", "package", pkg, "providers", chosen)
		default:
			log.Errorw("Unknown seed package", "package", pkg)
		}
	}

	for _, pkg := range g.hintedTo(name) {
		if g.alreadySeeded(name, pkg) {
			continue
		}
		if !g.model.HasPackage(pkg) {
			log.Errorw("Unknown hinted package", "package", pkg)
			continue
		}
		g.seedEntry(state, pkg, parsed.IsRecommend(pkg))
	}
}

func (g *Germinator) seedEntry(state *seedState, pkg string, recommend bool) {
	if recommend {
		state.recommends = append(state.recommends, pkg)
	} else {
		state.entries = append(state.entries, pkg)
	}
}

// hintedTo returns the packages hinted into seed, sorted.
func (g *Germinator) hintedTo(seed string) []string {
	var pkgs []string
	for pkg, hint := range g.hints {
		if hint == seed {
			pkgs = append(pkgs, pkg)
		}
	}
	slices.Sort(pkgs)
	return pkgs
}

// alreadySeeded reports whether pkg is an explicit request of seed or of
// any seed it inherits from.
func (g *Germinator) alreadySeeded(seed, pkg string) bool {
	for _, inner := range g.structure.InnerSeeds(seed) {
		if state, ok := g.state(inner); ok && state.seeded(pkg) {
			return true
		}
	}
	return false
}

// isPruned reports whether pkg is a d-i module for a kernel flavour the
// seed does not allow.
func (g *Germinator) isPruned(pkg string, state *seedState) bool {
	if len(state.kernelVersions) == 0 {
		return false
	}
	p, ok := g.model.Package(pkg)
	if !ok {
		return false
	}
	return p.KernelVersion != "" && !state.kernelVersions[p.KernelVersion]
}

// Prune records, for every package, the seeds it is excluded from because
// of its kernel flavour.
func (g *Germinator) Prune() {
	for _, pkg := range g.model.PackageNames() {
		for el := g.seeds.Front(); el != nil; el = el.Next() {
			if g.isPruned(pkg, el.Value) {
				if g.pruned[pkg] == nil {
					g.pruned[pkg] = make(stringSet)
				}
				g.pruned[pkg][el.Value.name] = true
			}
		}
	}
}

func (g *Germinator) prunedFrom(pkg, seed string) bool {
	return g.pruned[pkg][seed]
}

// followRecommends decides whether Recommends are followed for seed. An
// empty seed asks for the structure-wide setting.
func (g *Germinator) followRecommends(seed string) bool {
	if state, ok := g.state(seed); ok {
		if state.features["follow-recommends"] {
			return true
		}
		if state.features["no-follow-recommends"] {
			return false
		}
	}
	if g.structure != nil && g.structure.HasFeature("follow-recommends") {
		return true
	}
	return g.opts.FollowRecommends
}

// seedReason is the why reason recorded for explicit seed entries.
func (g *Germinator) seedReason(seed string) string {
	if g.structure.Branch() == "" {
		return seeds.Title(seed) + " seed"
	}
	return seeds.Title(g.structure.Branch()) + " " + seed + " seed"
}

// Model returns the archive model the run works on.
func (g *Germinator) Model() *archive.Model {
	return g.model
}

// Structure returns the planted seed structure.
func (g *Germinator) Structure() *seeds.Structure {
	return g.structure
}
