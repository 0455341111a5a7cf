package seeds

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/germinate/internal/graph"
)

const ubuntuStructure = `# seed structure
required:
minimal: required
boot: required
standard: minimal
desktop-common: standard
desktop: desktop-common
ship: boot desktop
feature follow-recommends
`

func ubuntuFetcher() MemoryFetcher {
	return MemoryFetcher{
		"ubuntu.noble": {
			StructureFile: ubuntuStructure,
			"required":    " * base-files\n",
			"minimal":     " * sudo\n",
		},
	}
}

func newUbuntu(t *testing.T) *Structure {
	t.Helper()
	s, err := NewStructure("ubuntu.noble", ubuntuFetcher(), nil)
	require.NoError(t, err)
	return s
}

func TestNewStructure(t *testing.T) {
	s := newUbuntu(t)

	assert.Equal(t, []string{"required", "minimal", "boot", "standard", "desktop-common", "desktop", "ship"}, s.Names())
	assert.Empty(t, s.Inherit("required"))
	assert.Equal(t, []string{"required", "minimal", "standard"}, s.Inherit("desktop-common"))
	assert.Equal(t, []string{"required", "boot", "minimal", "standard", "desktop-common", "desktop"}, s.Inherit("ship"))
	assert.Equal(t, "ship", s.Supported())
	assert.Equal(t, []string{"ubuntu.noble"}, s.Branches())
	assert.True(t, s.HasFeature("follow-recommends"))
	assert.Equal(t, []string{"follow-recommends"}, s.Features())
	assert.Len(t, s.Lines(), 7)
	assert.Equal(t, []string{"boot", "desktop"}, s.OriginalInherit("ship"))
}

func TestNewStructure_UnparseableLineIsSkipped(t *testing.T) {
	f := MemoryFetcher{"b": {StructureFile: "a:\nwhat is this\nb: a\n"}}

	s, err := NewStructure("b", f, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.Names())
}

func TestNewStructure_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fetcher MemoryFetcher
		want    error
	}{
		{
			name:    "missing structure",
			fetcher: MemoryFetcher{},
			want:    ErrNoStructure,
		},
		{
			name:    "empty structure",
			fetcher: MemoryFetcher{"b": {StructureFile: "# nothing\n"}},
			want:    ErrNoStructure,
		},
		{
			name:    "missing included branch",
			fetcher: MemoryFetcher{"b": {StructureFile: "include gone\na:\n"}},
			want:    ErrUnknownBranch,
		},
		{
			name:    "self inheritance",
			fetcher: MemoryFetcher{"b": {StructureFile: "a: a\n"}},
			want:    graph.ErrSelfInheritance,
		},
		{
			name:    "unknown inherited seed",
			fetcher: MemoryFetcher{"b": {StructureFile: "a: ghost\n"}},
			want:    graph.ErrUnknownSeed,
		},
		{
			name:    "cycle",
			fetcher: MemoryFetcher{"b": {StructureFile: "a: c\nb: a\nc: b\n"}},
			want:    graph.ErrCycleDetected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStructure("b", tt.fetcher, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewStructure_Include(t *testing.T) {
	f := MemoryFetcher{
		"platform": {
			StructureFile: "required:\nminimal: required\nstandard: minimal\nfeature no-follow-recommends\n",
			"required":    " * base-files\n",
			"standard":    " * from-platform\n",
		},
		"flavour": {
			StructureFile: "include platform\nstandard: required\ndesktop: standard\nfeature follow-recommends\n",
			"standard":    " * from-flavour\n",
		},
	}

	s, err := NewStructure("flavour", f, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"flavour", "platform"}, s.Branches())
	assert.Equal(t, []string{"required", "minimal", "standard", "desktop"}, s.Names())
	// The including branch's declaration wins.
	assert.Equal(t, []string{"required"}, s.Inherit("standard"))
	assert.Equal(t, []string{"required:", "minimal: required", "standard: required", "desktop: standard"}, s.Lines())
	assert.Equal(t, []string{"follow-recommends", "no-follow-recommends"}, s.Features())

	require.NoError(t, s.Fetch("standard"))
	assert.Equal(t, []string{" * from-flavour"}, s.Text("standard"))
	require.NoError(t, s.Fetch("required"))
	assert.Equal(t, []string{" * base-files"}, s.Text("required"))
	assert.ErrorIs(t, s.Fetch("desktop"), ErrSeedNotFound)
}

func TestLimit(t *testing.T) {
	s := newUbuntu(t)

	require.NoError(t, s.Limit([]string{"standard", "boot"}))
	assert.Equal(t, []string{"required", "minimal", "boot", "standard"}, s.Names())
	assert.Equal(t, []string{"minimal", "boot", "standard"}, s.StrictlyOuterSeeds("required"))
	assert.Equal(t, "ship", s.Supported())

	err := s.Limit([]string{"nope"})
	assert.ErrorIs(t, err, graph.ErrUnknownSeed)
}

func TestInnerOuterSeeds(t *testing.T) {
	s := newUbuntu(t)

	assert.Equal(t, []string{"required", "minimal", "standard"}, s.InnerSeeds("standard"))
	assert.Equal(t, []string{"desktop-common", "desktop", "ship"}, s.StrictlyOuterSeeds("standard"))
	assert.Equal(t, []string{"standard", "desktop-common", "desktop", "ship"}, s.OuterSeeds("standard"))
	assert.Equal(t, []string{"ship"}, s.StrictlyOuterSeeds("boot"))
	assert.Empty(t, s.StrictlyOuterSeeds("ship"))
}

func TestAddAndAddExtra(t *testing.T) {
	s := newUbuntu(t)

	require.NoError(t, s.Add("custom", []string{" * hello"}, "minimal"))
	assert.Equal(t, []string{"required", "minimal"}, s.Inherit("custom"))
	assert.Equal(t, []string{" * hello"}, s.Text("custom"))
	require.NoError(t, s.Fetch("custom"))
	assert.Contains(t, s.StrictlyOuterSeeds("minimal"), "custom")

	assert.ErrorIs(t, s.Add("custom", nil, "minimal"), graph.ErrDuplicateSeed)
	assert.ErrorIs(t, s.Add("other", nil, "ghost"), graph.ErrUnknownSeed)

	s.AddExtra()
	s.AddExtra()
	names := s.Names()
	assert.Equal(t, ExtraSeed, names[len(names)-1])
	assert.Equal(t, names[:len(names)-1], s.Inherit(ExtraSeed))
	assert.NotContains(t, s.Inherit(ExtraSeed), ExtraSeed)
	assert.Contains(t, s.StrictlyOuterSeeds("ship"), ExtraSeed)
}

func TestWriteDot(t *testing.T) {
	f := MemoryFetcher{"b": {StructureFile: "required:\nminimal: required\nship: minimal required\n"}}
	s, err := NewStructure("b", f, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.WriteDot(&buf))

	want := `digraph structure {
    node [color=lightblue2, style=filled];
    "required" -> "minimal";
    "minimal" -> "ship";
    "required" -> "ship";
}
`
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, s.Write(&buf))
	assert.Equal(t, "required:\nminimal: required\nship: minimal required\n", buf.String())
}

func TestMermaidSyntax(t *testing.T) {
	s := newUbuntu(t)

	out := s.MermaidSyntax()
	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, "    required[required]\n")
	assert.Contains(t, out, "    standard --> desktop_common[desktop-common]\n")
	assert.Contains(t, out, "    boot --> ship[ship]\n")
}
