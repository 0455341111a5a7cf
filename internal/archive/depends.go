package archive

import (
	"strings"

	"go.trai.ch/zerr"
	"pault.ag/go/debian/dependency"
)

// ErrMalformedRelation is returned when a dependency field cannot be parsed.
var ErrMalformedRelation = zerr.New("malformed relation field")

// ParseDepends parses a binary package relationship field into OR-groups.
// Architecture qualifiers on package names (foo:any) are stripped.
func ParseDepends(field string) ([]OrGroup, error) {
	return parseRelations(field, nil)
}

// ParseSourceDepends parses a Build-Depends style field, dropping
// alternatives whose [arch] restriction excludes arch. Groups left empty
// by the filter are removed.
func ParseSourceDepends(field, arch string) ([]OrGroup, error) {
	target, err := dependency.ParseArch(arch)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "invalid architecture"), "arch", arch)
	}
	return parseRelations(field, target)
}

func parseRelations(field string, arch *dependency.Arch) ([]OrGroup, error) {
	field = strings.TrimSpace(strings.ReplaceAll(field, "\n", " "))
	if field == "" {
		return nil, nil
	}

	dep, err := dependency.Parse(field)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(ErrMalformedRelation, err.Error()), "field", field)
	}

	groups := make([]OrGroup, 0, len(dep.Relations))
	for _, rel := range dep.Relations {
		var group OrGroup
		for _, poss := range rel.Possibilities {
			if poss.Substvar {
				continue
			}
			if arch != nil && poss.Architectures != nil && !poss.Architectures.Matches(arch) {
				continue
			}
			p := Possibility{Name: poss.Name}
			if poss.Version != nil {
				p.Operator = normalizeOperator(poss.Version.Operator)
				p.Version = poss.Version.Number
			}
			group = append(group, p)
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, nil
}

// parseNameList splits a comma separated field such as Binary or Provides
// down to bare package names.
func parseNameList(field string) []string {
	var names []string
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		if i := strings.IndexAny(part, " (\t\n"); i >= 0 {
			part = part[:i]
		}
		if i := strings.IndexByte(part, ':'); i >= 0 {
			part = part[:i]
		}
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}
