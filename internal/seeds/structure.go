// Package seeds models a seed collection: the branch structure with its
// inheritance hierarchy, the raw seed texts, and the parser that turns seed
// text into package requests.
package seeds

import (
	"maps"
	"slices"
	"strings"

	"go.trai.ch/zerr"

	"github.com/dbsmedya/germinate/internal/graph"
	"github.com/dbsmedya/germinate/internal/logger"
)

// ExtraSeed is the synthetic seed that collects unclaimed binaries.
const ExtraSeed = "extra"

// SingleStructure is the parsed STRUCTURE file of one branch.
type SingleStructure struct {
	Names    []string
	Inherit  map[string][]string
	Branches []string // the branch itself followed by its includes
	Lines    []string // kept "seed: ..." declaration lines
	Features []string
}

// ParseStructure parses one STRUCTURE file. Lines are either
// "seed: inherited...", "include branch..." or "feature name...";
// blank lines and # comments are skipped and anything else is logged.
func ParseStructure(branch string, lines []string, log *logger.Logger) *SingleStructure {
	s := &SingleStructure{
		Inherit:  make(map[string][]string),
		Branches: []string{branch},
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words := strings.Fields(line)
		switch {
		case strings.HasSuffix(words[0], ":"):
			seed := strings.TrimSuffix(words[0], ":")
			s.Names = append(s.Names, seed)
			s.Inherit[seed] = slices.Clone(words[1:])
			s.Lines = append(s.Lines, line)
		case words[0] == "include":
			s.Branches = append(s.Branches, words[1:]...)
		case words[0] == "feature":
			s.Features = append(s.Features, words[1:]...)
		default:
			log.Errorw("Unparseable seed structure entry", "branch", branch, "line", line)
		}
	}

	return s
}

// Structure is the full, include-merged structure of a seed collection.
type Structure struct {
	branch  string
	fetcher Fetcher
	log     *logger.Logger

	graph           *graph.Graph
	names           []string            // active seeds, topologically ordered
	all             []string            // every seed, topologically ordered
	inherit         map[string][]string // expanded, irreflexive
	originalNames   []string
	originalInherit map[string][]string
	branches        []string
	lines           []string
	features        map[string]bool
	texts           map[string][]string

	innerCache map[string][]string
	outerCache map[string][]string
}

// NewStructure fetches the STRUCTURE file of branch and of every branch it
// includes, merges them and expands inheritance. Structural defects
// (missing structure, unknown or self inheritance, cycles) are returned
// as errors and must abort the run.
func NewStructure(branch string, fetcher Fetcher, log *logger.Logger) (*Structure, error) {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Structure{
		branch:   branch,
		fetcher:  fetcher,
		log:      log,
		features: make(map[string]bool),
		texts:    make(map[string][]string),
	}

	names, inherit, branches, lines, err := s.parse(branch, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, zerr.With(zerr.Wrap(ErrNoStructure, ""), "branch", branch)
	}

	s.originalNames = names
	s.originalInherit = maps.Clone(inherit)
	s.branches = branches
	s.lines = lines

	if err := s.expandInheritance(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Structure) parse(branch string, got map[string]bool) ([]string, map[string][]string, []string, []string, error) {
	text, err := s.fetcher.Fetch([]string{branch}, StructureFile)
	if err != nil {
		if len(got) == 0 {
			return nil, nil, nil, nil, zerr.With(zerr.Wrap(ErrNoStructure, err.Error()), "branch", branch)
		}
		return nil, nil, nil, nil, zerr.With(zerr.Wrap(ErrUnknownBranch, err.Error()), "branch", branch)
	}
	single := ParseStructure(branch, text, s.log)
	got[branch] = true

	var (
		allNames    []string
		allInherit  = make(map[string][]string)
		allBranches []string
		allLines    []string
	)

	for _, child := range single.Branches {
		if got[child] {
			continue
		}
		names, inherit, branches, lines, err := s.parse(child, got)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		allNames = append(allNames, names...)
		maps.Copy(allInherit, inherit)
		for _, b := range branches {
			if !slices.Contains(allBranches, b) {
				allBranches = append(allBranches, b)
			}
		}
		for _, line := range lines {
			allLines = overrideLine(allLines, line)
		}
	}

	// The branch's own data goes last so that it overrides its includes.
	allNames = append(allNames, single.Names...)
	maps.Copy(allInherit, single.Inherit)
	for _, b := range single.Branches {
		if !slices.Contains(allBranches, b) {
			allBranches = append(allBranches, b)
		}
	}
	for _, line := range single.Lines {
		allLines = overrideLine(allLines, line)
	}
	for _, f := range single.Features {
		s.features[f] = true
	}

	// Later branches are searched first when fetching seed texts.
	slices.Reverse(allBranches)

	return allNames, allInherit, allBranches, allLines, nil
}

// overrideLine appends line, replacing any earlier declaration of the same seed.
func overrideLine(lines []string, line string) []string {
	name := declaredSeed(line)
	for i, existing := range lines {
		if declaredSeed(existing) == name {
			lines = slices.Delete(lines, i, i+1)
			break
		}
	}
	return append(lines, line)
}

func declaredSeed(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimSuffix(fields[0], ":")
}

func (s *Structure) expandInheritance() error {
	seen := make(map[string]bool)
	var decls []graph.Declaration
	for _, name := range s.originalNames {
		if seen[name] {
			continue
		}
		seen[name] = true
		decls = append(decls, graph.Declaration{Name: name, Inherits: s.originalInherit[name]})
	}

	g, err := graph.BuildFromDeclarations(decls)
	if err != nil {
		return zerr.With(err, "branch", s.branch)
	}

	order, inherit, err := g.Expand()
	if err != nil {
		return zerr.With(err, "branch", s.branch)
	}

	s.graph = g
	s.all = order
	s.names = slices.Clone(order)
	s.inherit = inherit
	s.invalidate()
	return nil
}

func (s *Structure) invalidate() {
	s.innerCache = make(map[string][]string)
	s.outerCache = make(map[string][]string)
}

// Branch returns the top-level branch name.
func (s *Structure) Branch() string {
	return s.branch
}

// Branches returns the branches searched for seed texts, most specific first.
func (s *Structure) Branches() []string {
	return slices.Clone(s.branches)
}

// Names returns the active seeds in processing order.
func (s *Structure) Names() []string {
	return slices.Clone(s.names)
}

// Has reports whether name is an active seed.
func (s *Structure) Has(name string) bool {
	return slices.Contains(s.names, name)
}

// Inherit returns the expanded inherit list of a seed.
func (s *Structure) Inherit(name string) []string {
	return slices.Clone(s.inherit[name])
}

// OriginalNames returns the seeds as declared, before expansion.
func (s *Structure) OriginalNames() []string {
	return slices.Clone(s.originalNames)
}

// OriginalInherit returns the inherit list of a seed as declared.
func (s *Structure) OriginalInherit(name string) []string {
	return slices.Clone(s.originalInherit[name])
}

// Supported returns the last declared seed. It is the only outer seed
// consulted for build-dependency blacklisting.
func (s *Structure) Supported() string {
	return s.originalNames[len(s.originalNames)-1]
}

// Lines returns the merged seed declaration lines.
func (s *Structure) Lines() []string {
	return slices.Clone(s.lines)
}

// HasFeature reports whether the structure enables a feature.
func (s *Structure) HasFeature(feature string) bool {
	return s.features[feature]
}

// Features returns the structure features, sorted.
func (s *Structure) Features() []string {
	return slices.Sorted(maps.Keys(s.features))
}

// Graph returns the declared inheritance graph.
func (s *Structure) Graph() *graph.Graph {
	return s.graph
}

// Limit restricts the active seeds to names and everything they inherit,
// keeping the topological order.
func (s *Structure) Limit(names []string) error {
	keep := make(map[string]bool)
	for _, name := range names {
		if _, ok := s.inherit[name]; !ok {
			return zerr.With(zerr.Wrap(graph.ErrUnknownSeed, ""), "seed", name)
		}
		keep[name] = true
		for _, inherited := range s.inherit[name] {
			keep[inherited] = true
		}
	}

	var limited []string
	for _, name := range s.all {
		if keep[name] {
			limited = append(limited, name)
		}
	}
	s.names = limited
	s.invalidate()
	return nil
}

// Add appends a custom seed that inherits parent and everything parent inherits.
func (s *Structure) Add(name string, entries []string, parent string) error {
	if _, ok := s.inherit[name]; ok {
		return zerr.With(zerr.Wrap(graph.ErrDuplicateSeed, ""), "seed", name)
	}
	if _, ok := s.inherit[parent]; !ok {
		return zerr.With(zerr.Wrap(graph.ErrUnknownSeed, ""), "seed", parent)
	}

	s.graph.AddEdge(parent, name)
	s.names = append(s.names, name)
	s.all = append(s.all, name)
	s.inherit[name] = append(slices.Clone(s.inherit[parent]), parent)
	s.texts[name] = slices.Clone(entries)
	s.invalidate()
	return nil
}

// AddExtra appends the synthetic extra seed, inheriting every active seed.
func (s *Structure) AddExtra() {
	if s.Has(ExtraSeed) {
		return
	}
	s.inherit[ExtraSeed] = slices.Clone(s.names)
	s.names = append(s.names, ExtraSeed)
	s.all = append(s.all, ExtraSeed)
	s.texts[ExtraSeed] = nil
	s.invalidate()
}

// InnerSeeds returns the seeds name inherits followed by name itself.
// The result must not be modified.
func (s *Structure) InnerSeeds(name string) []string {
	if cached, ok := s.innerCache[name]; ok {
		return cached
	}
	inner := append(slices.Clone(s.inherit[name]), name)
	s.innerCache[name] = inner
	return inner
}

// StrictlyOuterSeeds returns the active seeds that inherit name, in
// processing order. The result must not be modified.
func (s *Structure) StrictlyOuterSeeds(name string) []string {
	if cached, ok := s.outerCache[name]; ok {
		return cached
	}
	var outer []string
	for _, seed := range s.names {
		if slices.Contains(s.inherit[seed], name) {
			outer = append(outer, seed)
		}
	}
	s.outerCache[name] = outer
	return outer
}

// OuterSeeds returns name followed by the seeds that inherit it.
func (s *Structure) OuterSeeds(name string) []string {
	return append([]string{name}, s.StrictlyOuterSeeds(name)...)
}

// Fetch loads the text of a seed once. Custom seeds added with Add are
// never fetched.
func (s *Structure) Fetch(name string) error {
	if _, ok := s.texts[name]; ok {
		return nil
	}
	lines, err := s.fetcher.Fetch(s.branches, name)
	if err != nil {
		return err
	}
	s.texts[name] = lines
	return nil
}

// Text returns the raw lines of a fetched seed.
func (s *Structure) Text(name string) []string {
	return s.texts[name]
}
