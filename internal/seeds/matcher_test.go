package seeds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherFilter(t *testing.T) {
	candidates := []string{"linux-image-generic", "linux-headers-generic", "libc6", "libc6-dev", "bash"}

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"literal present", "bash", []string{"bash"}},
		{"literal absent", "zsh", nil},
		{"glob star", "libc6*", []string{"libc6", "libc6-dev"}},
		{"glob question", "libc?", []string{"libc6"}},
		{"glob class", "linux-[ih]*-generic", []string{"linux-headers-generic", "linux-image-generic"}},
		{"regex unanchored", "/generic/", []string{"linux-headers-generic", "linux-image-generic"}},
		{"regex anchored", "/^lib.*dev$/", []string{"libc6-dev"}},
	}

	m := NewMatcher(4)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Filter(candidates, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcherBadRegex(t *testing.T) {
	m := NewMatcher(0)
	_, err := m.Filter([]string{"a"}, "/(/")
	assert.ErrorIs(t, err, ErrBadPattern)
	assert.ErrorContains(t, err, "missing closing )")
}

func TestMatcherFilterAll(t *testing.T) {
	m := NewMatcher(0)
	got, err := m.FilterAll([]string{"a-dev", "a-doc", "a"}, []string{"*-dev", "a*", "/doc/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a-dev", "a-doc"}, got)
}

func TestPatternKinds(t *testing.T) {
	assert.True(t, IsRegexp("/x/"))
	assert.False(t, IsRegexp("/"))
	assert.True(t, IsGlob("a*"))
	assert.True(t, IsPattern("[ab]"))
	assert.False(t, IsPattern("plain"))
}
