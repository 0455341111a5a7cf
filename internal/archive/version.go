package archive

import (
	"strings"

	"pault.ag/go/debian/version"
)

// CompareVersions orders two version strings the way dpkg does.
// Strings that do not parse fall back to byte-wise ordering.
func CompareVersions(a, b string) int {
	va, errA := version.Parse(a)
	vb, errB := version.Parse(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return version.Compare(va, vb)
}

// SatisfiesVersion checks have against the constraint (op, want).
// An empty operator is always satisfied; an unknown one never is.
func SatisfiesVersion(have, op, want string) bool {
	if op == "" {
		return true
	}
	cmp := CompareVersions(have, want)
	switch op {
	case "<=":
		return cmp <= 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case ">":
		return cmp > 0
	case "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	}
	return false
}

// normalizeOperator maps the strict control-file spellings to the short form.
func normalizeOperator(op string) string {
	switch op {
	case ">>":
		return ">"
	case "<<":
		return "<"
	}
	return op
}
