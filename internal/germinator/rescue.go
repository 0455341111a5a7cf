package germinator

import (
	"slices"

	"github.com/dbsmedya/germinate/internal/archive"
	"github.com/dbsmedya/germinate/internal/seeds"
)

// rescueIncludes pulls into seed the binaries of sources touched by
// rescueSeed that match seed's "<rescueSeed>-Include" patterns and none
// of its "<rescueSeed>-Exclude" patterns.
func (g *Germinator) rescueIncludes(seed, rescueSeed string, buildTree bool) {
	state, ok := g.state(seed)
	if !ok {
		return
	}
	includes := state.includes[rescueSeed]
	if len(includes) == 0 {
		return
	}
	if _, ok := g.state(rescueSeed); !ok && rescueSeed != seeds.ExtraSeed {
		return
	}

	rescueSeeds := []string{rescueSeed}
	if rescueSeed == seeds.ExtraSeed {
		rescueSeeds = g.structure.InnerSeeds(seed)
	}
	srcs := make(stringSet)
	for _, s := range rescueSeeds {
		st, ok := g.state(s)
		if !ok {
			continue
		}
		touched := st.notBuildSrcs
		if buildTree {
			touched = st.buildSrcs
		}
		for src := range touched {
			srcs[src] = true
		}
	}

	log := g.log.WithSeed(seed)
	for _, src := range srcs.sorted() {
		binaries, _ := g.model.Binaries(src)
		var candidates []string
		for _, b := range binaries {
			if g.model.HasPackage(b) {
				candidates = append(candidates, b)
			}
		}

		included, err := g.matcher.FilterAll(candidates, includes)
		if err != nil {
			log.Errorw("Bad include pattern", "from", rescueSeed, "error", err)
			return
		}
		excluded, err := g.matcher.FilterAll(candidates, state.excludes[rescueSeed])
		if err != nil {
			log.Errorw("Bad exclude pattern", "from", rescueSeed, "error", err)
			return
		}

		for _, pkg := range included {
			if slices.Contains(excluded, pkg) || g.all[pkg] {
				continue
			}

			for _, lesser := range g.structure.StrictlyOuterSeeds(seed) {
				st, ok := g.state(lesser)
				if ok && slices.Contains(st.entries, pkg) {
					st.entries = slices.DeleteFunc(st.entries, func(e string) bool { return e == pkg })
					log.Warnw("Promoted package due to includes",
						"package", pkg,
						"from", lesser,
						"includes", seeds.Title(rescueSeed)+"-Includes",
					)
					break
				}
			}

			log.Debugw("Rescued package", "package", pkg, "from", rescueSeed)
			if buildTree {
				state.buildDepends[pkg] = true
			} else {
				state.depends[pkg] = true
			}
			g.addPackage(seed, pkg, "Rescued from "+src, false, buildTree, false)
		}
	}
}

// AddExtras creates the extra seed and fills it with the binaries of
// every touched source that no seed claimed, until no more are found.
func (g *Germinator) AddExtras() error {
	if !g.grown {
		return ErrNotGrown
	}
	if g.extras {
		return nil
	}

	g.structure.AddExtra()
	state := g.newSeed(seeds.ExtraSeed)
	g.extras = true

	g.log.Infow("Identifying extras", "phase", "extras")

	for found := true; found; {
		found = false
		for _, src := range g.allSrcs.sorted() {
			binaries, _ := g.model.Binaries(src)
			for _, pkg := range binaries {
				if !g.generatedBy(pkg, src) || g.all[pkg] {
					continue
				}
				if hint, ok := g.hints[pkg]; ok && hint != seeds.ExtraSeed {
					g.log.Warnw("Taking the hint", "package", pkg, "hinted_seed", hint)
					continue
				}

				state.entries = append(state.entries, pkg)
				g.addPackage(seeds.ExtraSeed, pkg, "Generated by "+src, true, false, false)
				found = true
			}
		}
	}
	return nil
}

// generatedBy reports whether pkg exists and was built from src.
func (g *Germinator) generatedBy(pkg, src string) bool {
	p, ok := g.model.Package(pkg)
	return ok && p.Source == src
}

// ReverseDepends records, on every selected package, which selected
// packages and sources reference it.
func (g *Germinator) ReverseDepends() error {
	if !g.grown {
		return ErrNotGrown
	}

	g.model.ClearReverse()

	fields := []string{archive.FieldPreDepends, archive.FieldDepends}
	if g.followRecommends("") {
		fields = append(fields, archive.FieldRecommends)
	}

	for _, pkg := range g.all.sorted() {
		p, _ := g.model.Package(pkg)
		pkgFields := fields
		if p.Section == "metapackages" && !slices.Contains(fields, archive.FieldRecommends) {
			pkgFields = append(slices.Clone(fields), archive.FieldRecommends)
		}
		for _, field := range pkgFields {
			for _, group := range p.Relations(field) {
				for _, dep := range group {
					if g.all[dep.Name] && g.allowedDependency(pkg, dep.Name, "", false) {
						g.model.AddReverse(dep.Name, field, pkg)
					}
				}
			}
		}
	}

	for _, srcName := range g.allSrcs.sorted() {
		src, ok := g.model.Source(srcName)
		if !ok {
			continue
		}
		for _, field := range []string{archive.FieldBuildDepends, archive.FieldBuildDependsIndep} {
			for _, group := range src.Relations(field) {
				for _, dep := range group {
					if g.all[dep.Name] && g.allowedDependency(srcName, dep.Name, "", true) {
						g.model.AddReverse(dep.Name, field, srcName)
					}
				}
			}
		}
	}

	g.model.SortReverse()
	return nil
}
