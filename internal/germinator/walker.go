package germinator

import (
	"strings"

	"github.com/dbsmedya/germinate/internal/archive"
)

type depFlags struct {
	buildDepend bool
	secondClass bool
	buildTree   bool
	recommends  bool
}

// addDependencyTree resolves each OR-group of deps for pkg within seed.
func (g *Germinator) addDependencyTree(seed, pkg string, deps []archive.OrGroup, f depFlags) {
	if f.buildDepend {
		f.buildTree = true
	}
	if f.buildTree {
		f.secondClass = true
	}

	for _, group := range deps {
		outcome := g.resolveGroup(seed, pkg, group, f)

		switch outcome.Kind {
		case Promoted, Added:
			if len(group) > 1 {
				g.log.Infow("Chose alternative", "choice", outcome.Choice, "package", pkg, "seed", seed)
			}
		case Unresolved:
			if len(group) > 1 {
				g.log.Errorw("Nothing to choose", "alternatives", group.Names(), "package", pkg, "seed", seed)
			}
		}
	}
}

// resolveGroup walks one OR-group: it is either already satisfied, or
// satisfied by promoting an alternative from an outer seed, or by adding
// a new package, or left unresolved.
func (g *Germinator) resolveGroup(seed, pkg string, group archive.OrGroup, f depFlags) DependencyOutcome {
	for _, alt := range group {
		if g.alreadySatisfied(seed, pkg, alt, f.buildDepend, f.secondClass) {
			return DependencyOutcome{Kind: AlreadySatisfied, Choice: alt.Name}
		}
	}

	// The preferred alternative may be promoted from any outer seed; the
	// others only from seeds generating the same task.
	for i, alt := range group {
		if from, ok := g.promoteDependency(seed, pkg, alt, i > 0, f); ok {
			return DependencyOutcome{Kind: Promoted, Choice: alt.Name, From: from}
		}
	}

	for _, alt := range group {
		if added, ok := g.newDependency(seed, pkg, alt, f); ok {
			return DependencyOutcome{Kind: Added, Choice: alt.Name, Added: added}
		}
	}

	return DependencyOutcome{Kind: Unresolved}
}

// allowedDependency reports whether dep may satisfy a dependency of pkg in
// seed. An empty seed checks whether it is allowed anywhere.
func (g *Germinator) allowedDependency(pkg, dep, seed string, buildDepend bool) bool {
	d, ok := g.model.Package(dep)
	if !ok {
		g.log.Warnw("Virtual package passed as dependency", "package", dep)
		return false
	}
	if seed != "" && g.prunedFrom(dep, seed) {
		return false
	}
	if buildDepend {
		return d.Type == archive.TypeDeb
	}
	p, ok := g.model.Package(pkg)
	if !ok {
		return false
	}
	return p.Type == d.Type
}

// allowedVirtualDependency reports whether a relation of pkg with the
// given operator may be satisfied through Provides. Versioned relations
// only may for udebs.
func (g *Germinator) allowedVirtualDependency(pkg, operator string) bool {
	if p, ok := g.model.Package(pkg); ok && p.Type == archive.TypeUdeb {
		return true
	}
	return operator == ""
}

// checkVersionedDependency reports whether the real package alt.Name
// satisfies alt's version constraint.
func (g *Germinator) checkVersionedDependency(alt archive.Possibility) bool {
	p, ok := g.model.Package(alt.Name)
	if !ok {
		return false
	}
	return archive.SatisfiesVersion(p.Version, alt.Operator, alt.Version)
}

// providers returns the real providers of virtual allowed for pkg in seed.
func (g *Germinator) providers(pkg, virtual, seed string, buildDepend bool) []string {
	var allowed []string
	for _, d := range g.model.Providers(virtual) {
		if g.model.HasPackage(d) && g.allowedDependency(pkg, d, seed, buildDepend) {
			allowed = append(allowed, d)
		}
	}
	return allowed
}

func (g *Germinator) alreadySatisfied(seed, pkg string, alt archive.Possibility, buildDepend, withBuild bool) bool {
	var candidates []string
	switch {
	case g.allowedVirtualDependency(pkg, alt.Operator) && g.model.IsVirtual(alt.Name):
		candidates = g.providers(pkg, alt.Name, seed, buildDepend)
	case g.checkVersionedDependency(alt) && g.allowedDependency(pkg, alt.Name, seed, buildDepend):
		candidates = []string{alt.Name}
	default:
		return false
	}

	state, _ := g.state(seed)
	inner := g.structure.InnerSeeds(seed)
	for _, c := range candidates {
		if withBuild {
			if g.anyInner(inner, func(st *seedState) bool { return st.build[c] }) {
				return true
			}
		} else if g.anyInner(inner, func(st *seedState) bool { return st.notBuild[c] }) {
			return true
		}
		if state != nil && state.seeded(c) {
			return true
		}
	}
	return false
}

// promoteDependency tries to satisfy alt by taking a package requested by
// a seed that inherits from seed. With closeOnly set, only seeds naming seed
// in their Task-Seeds are searched. It returns the seed the package was
// found in.
func (g *Germinator) promoteDependency(seed, pkg string, alt archive.Possibility, closeOnly bool, f depFlags) (string, bool) {
	var candidates []string
	switch {
	case g.checkVersionedDependency(alt) && g.allowedDependency(pkg, alt.Name, seed, f.buildDepend):
		candidates = []string{alt.Name}
	case g.allowedVirtualDependency(pkg, alt.Operator) && g.model.IsVirtual(alt.Name):
		candidates = g.providers(pkg, alt.Name, seed, f.buildDepend)
	default:
		return "", false
	}

	for _, c := range candidates {
		for _, lesser := range g.structure.StrictlyOuterSeeds(seed) {
			st, ok := g.state(lesser)
			if !ok {
				continue
			}
			if closeOnly && !st.closeSeeds[seed] {
				continue
			}
			if !st.seeded(c) {
				continue
			}

			// The build tree leaves outer seeds intact: a package stays in,
			// say, ship even when it build-depends something in desktop.
			if !f.secondClass {
				st.unseed(c)
				g.log.Warnw("Promoted package",
					"package", c,
					"from", lesser,
					"to", seed,
					"to_satisfy", pkg,
				)
			}
			return lesser, g.addDependency(seed, pkg, []string{c}, f)
		}
	}
	return "", false
}

// newDependency satisfies alt with a package not yet in the output.
func (g *Germinator) newDependency(seed, pkg string, alt archive.Possibility, f depFlags) ([]string, bool) {
	virtual := ""
	switch {
	case g.checkVersionedDependency(alt) && g.allowedDependency(pkg, alt.Name, seed, f.buildDepend):
	case g.allowedVirtualDependency(pkg, alt.Operator) && g.model.IsVirtual(alt.Name):
		virtual = alt.Name
	default:
		desc := "dependency"
		switch {
		case f.buildDepend:
			desc = "build-dependency"
		case f.recommends:
			desc = "recommendation"
		}
		g.log.Errorw("Unknown "+desc, "relation", alt.String(), "package", pkg, "seed", seed)
		return nil, false
	}

	list := []string{alt.Name}
	if virtual != "" {
		allowed := g.providers(pkg, virtual, seed, f.buildDepend)
		if len(allowed) == 0 {
			g.log.Errorw("Nothing to choose out of virtual package", "virtual", virtual, "package", pkg, "seed", seed)
			return nil, false
		}

		list = []string{allowed[0]}
		// A d-i kernel module brings the modules for every other allowed
		// kernel flavour along.
		if chosen, _ := g.model.Package(allowed[0]); chosen.KernelVersion != "" {
			state, _ := g.state(seed)
			list = list[:0]
			for _, d := range allowed {
				dp, _ := g.model.Package(d)
				if len(state.kernelVersions) == 0 || state.kernelVersions[dp.KernelVersion] {
					list = append(list, d)
				}
			}
		}
		g.log.Infow("Chose provider",
			"chosen", strings.Join(list, ", "),
			"virtual", virtual,
			"package", pkg,
			"seed", seed,
		)
	}

	return list, g.addDependency(seed, pkg, list, f)
}

// addDependency adds the packages in list as dependencies of pkg. It
// reports whether anything survived the blacklist.
func (g *Germinator) addDependency(seed, pkg string, list []string, f depFlags) bool {
	var why string
	switch {
	case f.buildTree && f.buildDepend:
		p, _ := g.model.Package(pkg)
		why = p.Source + " (Build-Depend)"
	case f.recommends:
		why = pkg + " (Recommends)"
	default:
		why = pkg
	}

	list = g.weedBlacklist(list, seed, f.buildTree, why)
	if len(list) == 0 {
		return false
	}

	state, _ := g.state(seed)
	for _, dep := range list {
		if f.buildTree {
			state.buildDepends[dep] = true
		} else {
			state.depends[dep] = true
		}
	}
	// Dependencies of second-class packages only count towards the build tree.
	buildTree := f.buildTree || f.secondClass
	for _, dep := range list {
		g.addPackage(seed, dep, why, f.secondClass, buildTree, f.recommends)
	}
	return true
}
