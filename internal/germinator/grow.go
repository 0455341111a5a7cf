package germinator

import (
	"slices"

	"github.com/dbsmedya/germinate/internal/seeds"
)

// Grow resolves every planted seed in processing order, then rescues
// packages into seeds according to their include/exclude headers.
func (g *Germinator) Grow() error {
	if !g.planted {
		return ErrNotPlanted
	}

	for el := g.seeds.Front(); el != nil; el = el.Next() {
		state := el.Value
		name := state.name
		why := g.seedReason(name)

		g.log.Infow("Resolving dependencies", "phase", "grow", "seed", name)

		state.entries = g.weedBlacklist(state.entries, name, false, why)
		state.recommends = g.weedBlacklist(state.recommends, name, false, why)

		// Seed recommendations are added as ordinary requests; the
		// recommends flag is reserved for package Recommends.
		requests := slices.Concat(state.entries, state.recommends)
		for _, pkg := range requests {
			g.addPackage(name, pkg, why, false, false, false)
		}

		for rel := g.seeds.Front(); rel != nil; rel = rel.Next() {
			g.rescueIncludes(name, rel.Value.name, false)
			if rel.Value.name == name {
				break
			}
		}
		g.rescueIncludes(name, seeds.ExtraSeed, false)
	}

	g.rescueIncludes(g.supported, seeds.ExtraSeed, true)

	g.grown = true
	return nil
}

// blacklistSeeds returns the seeds whose blacklists apply to additions
// into seed: its outer seeds (only the supported seed for the build tree)
// and every seed it inherits from.
func (g *Germinator) blacklistSeeds(seed string, buildTree bool) []string {
	var outer []string
	if buildTree {
		outer = []string{g.supported}
	} else {
		outer = g.structure.OuterSeeds(seed)
	}
	return slices.Concat(outer, g.structure.Inherit(seed))
}

// blacklistedIn returns the seed blacklisting pkg for an addition into
// seed, or "" if none does.
func (g *Germinator) blacklistedIn(seed, pkg string, buildTree bool) string {
	for _, s := range g.blacklistSeeds(seed, buildTree) {
		if state, ok := g.state(s); ok && state.blacklist[pkg] {
			return s
		}
	}
	return ""
}

// weedBlacklist drops the blacklisted entries of pkgs.
func (g *Germinator) weedBlacklist(pkgs []string, seed string, buildTree bool, why string) []string {
	var white []string
	for _, pkg := range pkgs {
		if by := g.blacklistedIn(seed, pkg, buildTree); by != "" {
			g.log.Errorw("Package blacklisted",
				"package", pkg,
				"blacklisted_in", by,
				"seed", seed,
				"why", why,
			)
			continue
		}
		white = append(white, pkg)
	}
	return white
}

// rememberWhy records why pkg is in seed, keeping the stronger of the old
// and new reasons.
func rememberWhy(whys map[string]Why, pkg string, why Why) {
	if current, ok := whys[pkg]; ok && !prefer(current, why) {
		return
	}
	whys[pkg] = why
}

// addPackage adds pkg to seed together with its dependency trees and its
// source's build-dependency tree.
func (g *Germinator) addPackage(seed, pkg, why string, secondClass, buildTree, recommends bool) {
	g.depth++
	defer func() { g.depth-- }()
	if g.depth > g.opts.MaxDepth {
		g.log.Errorw("Dependency recursion too deep", "package", pkg, "seed", seed, "depth", g.depth)
		return
	}

	state, ok := g.state(seed)
	if !ok {
		return
	}
	p, ok := g.model.Package(pkg)
	if !ok {
		g.log.Errorw("Unknown package", "package", pkg, "seed", seed, "why", why)
		return
	}

	if g.prunedFrom(pkg, seed) {
		g.log.Warnw("Pruned package", "package", pkg, "seed", seed)
		return
	}
	if by := g.blacklistedIn(seed, pkg, buildTree); by != "" {
		g.log.Errorw("Package blacklisted",
			"package", pkg,
			"blacklisted_in", by,
			"seed", seed,
			"why", why,
		)
		return
	}
	if buildTree {
		secondClass = true
	}

	inner := g.structure.InnerSeeds(seed)

	if !g.all[pkg] {
		g.all[pkg] = true
	} else if !buildTree {
		// Needed for real now; no longer only a build-dependency.
		for _, s := range inner {
			if st, ok := g.state(s); ok {
				delete(st.buildDepends, pkg)
			}
		}
	}

	if !g.anyInner(inner, func(st *seedState) bool { return st.build[pkg] }) {
		state.build[pkg] = true
	}
	if !buildTree && !g.anyInner(inner, func(st *seedState) bool { return st.notBuild[pkg] }) {
		state.notBuild[pkg] = true
	}

	reason := Why{Reason: why, BuildTree: buildTree, Recommends: recommends}
	rememberWhy(state.why, pkg, reason)
	rememberWhy(g.allWhy, pkg, reason)

	for _, prov := range p.Provides {
		if g.pkgprovides[prov] == nil {
			g.pkgprovides[prov] = make(stringSet)
		}
		g.pkgprovides[prov][pkg] = true
	}

	flags := depFlags{secondClass: secondClass, buildTree: buildTree}
	g.addDependencyTree(seed, pkg, p.PreDepends, flags)
	g.addDependencyTree(seed, pkg, p.Depends, flags)
	if g.followRecommends(seed) || p.Section == "metapackages" {
		flags.recommends = true
		g.addDependencyTree(seed, pkg, p.Recommends, flags)
	}

	src, ok := g.model.Source(p.Source)
	if !ok {
		g.log.Errorw("Missing source package", "source", p.Source, "package", pkg)
		return
	}

	if secondClass {
		if g.anyInner(inner, func(st *seedState) bool { return st.buildSrcs[src.Name] }) {
			return
		}
	} else {
		if g.anyInner(inner, func(st *seedState) bool { return st.notBuildSrcs[src.Name] }) {
			return
		}
	}

	if buildTree {
		state.buildSourcepkgs[src.Name] = true
		if _, ok := g.blacklist[src.Name]; ok {
			g.blacklisted[src.Name] = true
		}
	} else {
		if g.allSrcs[src.Name] {
			for el := g.seeds.Front(); el != nil; el = el.Next() {
				delete(el.Value.buildSourcepkgs, src.Name)
			}
		}
		state.notBuildSrcs[src.Name] = true
		state.sourcepkgs[src.Name] = true
	}

	g.allSrcs[src.Name] = true
	state.buildSrcs[src.Name] = true

	build := depFlags{buildDepend: true}
	g.addDependencyTree(seed, pkg, src.BuildDepends, build)
	g.addDependencyTree(seed, pkg, src.BuildDependsIndep, build)
}

func (g *Germinator) anyInner(inner []string, pred func(*seedState) bool) bool {
	for _, s := range inner {
		if st, ok := g.state(s); ok && pred(st) {
			return true
		}
	}
	return false
}
