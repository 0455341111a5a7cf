package seeds

import (
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/zerr"
)

// ErrBadPattern is returned for a /regex/ or glob pattern that does not compile.
var ErrBadPattern = zerr.New("invalid package pattern")

const defaultPatternCacheSize = 256

// Matcher filters package names by seed patterns. A pattern wrapped in
// slashes is an unanchored regular expression; a pattern containing any of
// *?[ is a shell glob; anything else is a literal name.
type Matcher struct {
	regexps *lru.Cache[string, *regexp.Regexp]
}

// NewMatcher returns a Matcher caching up to size compiled expressions.
func NewMatcher(size int) *Matcher {
	if size <= 0 {
		size = defaultPatternCacheSize
	}
	cache, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &Matcher{regexps: cache}
}

// IsRegexp reports whether pattern is a /regex/ pattern.
func IsRegexp(pattern string) bool {
	return len(pattern) >= 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/")
}

// IsGlob reports whether pattern uses shell wildcards.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// IsPattern reports whether pattern needs matching rather than a lookup.
func IsPattern(pattern string) bool {
	return IsRegexp(pattern) || IsGlob(pattern)
}

// Filter returns the candidates matched by pattern, sorted.
func (m *Matcher) Filter(candidates []string, pattern string) ([]string, error) {
	var filtered []string

	switch {
	case IsRegexp(pattern):
		re, err := m.compile(pattern[1 : len(pattern)-1])
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			if re.MatchString(c) {
				filtered = append(filtered, c)
			}
		}
	case IsGlob(pattern):
		for _, c := range candidates {
			ok, err := doublestar.Match(pattern, c)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(ErrBadPattern, err.Error()), "pattern", pattern)
			}
			if ok {
				filtered = append(filtered, c)
			}
		}
	default:
		if slices.Contains(candidates, pattern) {
			filtered = []string{pattern}
		}
	}

	slices.Sort(filtered)
	return filtered, nil
}

// FilterAll returns the union of candidates matched by any of patterns,
// sorted and without duplicates.
func (m *Matcher) FilterAll(candidates []string, patterns []string) ([]string, error) {
	var all []string
	for _, p := range patterns {
		matched, err := m.Filter(candidates, p)
		if err != nil {
			return nil, err
		}
		all = append(all, matched...)
	}
	slices.Sort(all)
	return slices.Compact(all), nil
}

func (m *Matcher) compile(expr string) (*regexp.Regexp, error) {
	if re, ok := m.regexps.Get(expr); ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(ErrBadPattern, err.Error()), "pattern", "/"+expr+"/")
	}
	m.regexps.Add(expr, re)
	return re, nil
}
