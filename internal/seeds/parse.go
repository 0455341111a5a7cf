package seeds

import (
	"regexp"
	"slices"
	"strings"

	"github.com/dbsmedya/germinate/internal/logger"
)

// Catalog is the view of the archive the parser needs to expand patterns
// and %source entries.
type Catalog interface {
	PackageNames() []string
	HasPackage(name string) bool
	Binaries(source string) ([]string, bool)
}

// ParseContext carries what parsing one seed depends on beyond its text.
// Substvars is shared by every seed of a structure and is updated in place
// by header lines.
type ParseContext struct {
	Arch      string
	Catalog   Catalog
	Substvars map[string][]string
	KnownSeed func(name string) bool
	Matcher   *Matcher
	Log       *logger.Logger

	names []string
}

// Parsed is the outcome of parsing one seed's text.
type Parsed struct {
	Entries        []string        // requested packages, in order
	Recommends     map[string]bool // entries that were wrapped in parentheses
	Blacklist      map[string]bool
	CloseSeeds     []string
	KernelVersions []string
	Features       []string
	Includes       map[string][]string // rescue seed -> patterns
	Excludes       map[string][]string
}

// IsRecommend reports whether pkg was requested as a recommendation.
func (p *Parsed) IsRecommend(pkg string) bool {
	return p.Recommends[pkg]
}

var substvarPattern = regexp.MustCompile(`\$\{.*?\}`)

const (
	entryPrefix     = " * "
	taskSeedsHeader = "task-seeds:"
	includeSuffix   = "-include"
	excludeSuffix   = "-exclude"
)

// ParseText parses the lines of the seed called name.
func ParseText(name string, lines []string, ctx *ParseContext) *Parsed {
	if ctx.Log == nil {
		ctx.Log = logger.NewNop()
	}
	if ctx.Matcher == nil {
		ctx.Matcher = NewMatcher(0)
	}
	if ctx.Substvars == nil {
		ctx.Substvars = make(map[string][]string)
	}
	log := ctx.Log.WithSeed(name)

	p := &Parsed{
		Recommends: make(map[string]bool),
		Blacklist:  make(map[string]bool),
		Includes:   make(map[string][]string),
		Excludes:   make(map[string][]string),
	}

	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), taskSeedsHeader) {
			p.CloseSeeds = append(p.CloseSeeds, strings.Fields(line[len(taskSeedsHeader):])...)
			continue
		}
		if !strings.HasPrefix(line, entryPrefix) {
			continue
		}

		entry := strings.TrimSpace(line[len(entryPrefix):])
		if i := strings.Index(entry, "#"); i != -1 {
			entry = entry[:i]
		}

		if i := strings.Index(entry, ":"); i != -1 {
			p.header(strings.ToLower(entry[:i]), strings.Fields(entry[i+1:]), ctx, log)
			continue
		}

		entry = strings.TrimSpace(entry)
		entry, ok := filterArch(entry, ctx.Arch)
		if !ok {
			continue
		}
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}
		entry = fields[0]

		blacklist := false
		if strings.HasPrefix(entry, "!") {
			entry = entry[1:]
			blacklist = true
		}

		recommend := false
		if len(entry) >= 2 && strings.HasPrefix(entry, "(") && strings.HasSuffix(entry, ")") {
			entry = entry[1 : len(entry)-1]
			recommend = true
		}

		var pkgs []string
		if source, isSource := strings.CutPrefix(entry, "%"); isSource {
			pkgs = ctx.sourceBinaries(source, log)
		} else {
			pkgs = ctx.expand(entry, log)
		}

		for _, pkg := range pkgs {
			expanded, ok := ctx.substitute(pkg, log)
			if !ok {
				continue
			}
			for _, e := range expanded {
				switch {
				case blacklist:
					log.Infow("Blacklisting package", "package", e)
					p.Blacklist[e] = true
				case recommend:
					p.Entries = append(p.Entries, e)
					p.Recommends[e] = true
				default:
					p.Entries = append(p.Entries, e)
				}
			}
		}
	}

	return p
}

func (p *Parsed) header(key string, values []string, ctx *ParseContext, log *logger.Logger) {
	switch {
	case key == "kernel-version":
		log.Infow("Allowing d-i kernel versions", "versions", values)
		p.KernelVersions = append(p.KernelVersions, values...)
	case key == "feature":
		log.Infow("Setting seed features", "features", values)
		p.Features = append(p.Features, values...)
	case strings.HasSuffix(key, includeSuffix):
		if seed := strings.TrimSuffix(key, includeSuffix); ctx.rescuable(seed) {
			log.Infow("Including packages", "from", seed, "patterns", values)
			p.Includes[seed] = append(p.Includes[seed], values...)
		} else {
			log.Errorw("Cannot include packages from unknown seed", "from", seed)
		}
	case strings.HasSuffix(key, excludeSuffix):
		if seed := strings.TrimSuffix(key, excludeSuffix); ctx.rescuable(seed) {
			log.Infow("Excluding packages", "from", seed, "patterns", values)
			p.Excludes[seed] = append(p.Excludes[seed], values...)
		} else {
			log.Errorw("Cannot exclude packages from unknown seed", "from", seed)
		}
	}
	ctx.Substvars[key] = values
}

func (ctx *ParseContext) rescuable(seed string) bool {
	return seed == ExtraSeed || (ctx.KnownSeed != nil && ctx.KnownSeed(seed))
}

// filterArch strips a trailing [arch !arch] qualifier and reports whether
// the entry applies to arch.
func filterArch(entry, arch string) (string, bool) {
	if !strings.HasSuffix(entry, "]") {
		return entry, true
	}
	start := strings.LastIndex(entry, "[")
	if start == -1 {
		return entry, true
	}

	var positive []string
	for _, a := range strings.Fields(entry[start+1 : len(entry)-1]) {
		if negated, ok := strings.CutPrefix(a, "!"); ok {
			if negated == arch {
				return "", false
			}
			continue
		}
		positive = append(positive, a)
	}
	if len(positive) > 0 && !slices.Contains(positive, arch) {
		return "", false
	}
	return strings.TrimSpace(entry[:start]), true
}

func (ctx *ParseContext) sourceBinaries(source string, log *logger.Logger) []string {
	binaries, ok := ctx.Catalog.Binaries(source)
	if !ok {
		log.Warnw("Unknown source package", "source", source)
		return nil
	}
	var pkgs []string
	for _, b := range binaries {
		if ctx.Catalog.HasPackage(b) {
			pkgs = append(pkgs, b)
		}
	}
	return pkgs
}

// expand resolves a pattern against the archive. A name matching nothing
// is kept as is: it may be virtual or still contain substitution variables.
func (ctx *ParseContext) expand(pattern string, log *logger.Logger) []string {
	if !IsPattern(pattern) {
		return []string{pattern}
	}
	if ctx.names == nil {
		ctx.names = ctx.Catalog.PackageNames()
	}
	pkgs, err := ctx.Matcher.Filter(ctx.names, pattern)
	if err != nil {
		log.Errorw("Bad seed pattern", "pattern", pattern, "error", err)
		return nil
	}
	if len(pkgs) == 0 {
		return []string{pattern}
	}
	return pkgs
}

// substitute expands every ${name} in pkg to each known value of that
// variable, producing the cartesian product. Variable names are case
// insensitive.
func (ctx *ParseContext) substitute(pkg string, log *logger.Logger) ([]string, bool) {
	locs := substvarPattern.FindAllStringIndex(pkg, -1)
	if len(locs) == 0 {
		return []string{pkg}, true
	}

	results := []string{""}
	last := 0
	for _, loc := range locs {
		results = appendAll(results, pkg[last:loc[0]])

		name := strings.ToLower(pkg[loc[0]+2 : loc[1]-1])
		values, ok := ctx.Substvars[name]
		if !ok {
			log.Errorw("Undefined seed substvar", "name", name, "entry", pkg)
			return nil, false
		}
		var next []string
		for _, v := range values {
			for _, r := range results {
				next = append(next, r+v)
			}
		}
		results = next
		last = loc[1]
	}
	return appendAll(results, pkg[last:]), true
}

func appendAll(prefixes []string, s string) []string {
	for i := range prefixes {
		prefixes[i] += s
	}
	return prefixes
}
