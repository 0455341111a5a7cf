package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructureCommandStructure(t *testing.T) {
	assert.NotNil(t, structureCmd)
	assert.Equal(t, "structure", structureCmd.Use)
	assert.NotEmpty(t, structureCmd.Short)
	assert.NotEmpty(t, structureCmd.Long)
	assert.NotNil(t, structureCmd.RunE)

	flag := structureCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "f", flag.Shorthand)
	assert.Equal(t, "text", flag.DefValue)
}

func TestRunStructure(t *testing.T) {
	defer func() { structureFormat = "text" }()

	tests := []struct {
		format string
		want   []string
	}{
		{
			format: "text",
			want: []string{
				"Seed Structure: test",
				"[1] base (root)",
				"[2] desktop <- base",
				"Supported:  desktop",
				"Features:   follow-recommends",
				"[Expanded Inheritance]",
				"  base: (none)",
				"  desktop: base",
				"Edges:      1",
				"Leaves:     desktop",
				"[Inherited By]",
				"  base: desktop",
			},
		},
		{
			format: "dot",
			want:   []string{"digraph structure {", `"base" -> "desktop";`},
		},
		{
			format: "mermaid",
			want:   []string{"graph TD", "base[base]", "base --> desktop[desktop]"},
		},
		{
			format: "raw",
			want:   []string{"base:\ndesktop: base\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f := newFixture(t, "")
			structureFormat = tt.format

			require.NoError(t, runStructure(structureCmd, nil))
			for _, want := range tt.want {
				assert.Contains(t, f.out.String(), want)
			}
		})
	}
}

func TestRunStructureUnknownFormat(t *testing.T) {
	defer func() { structureFormat = "text" }()
	newFixture(t, "")
	structureFormat = "svg"

	assert.ErrorContains(t, runStructure(structureCmd, nil), "unknown output format")
}

func TestFormatSeedItem(t *testing.T) {
	tests := []struct {
		name    string
		num     int
		seed    string
		parents []string
		want    string
	}{
		{"root seed", 1, "minimal", nil, "  [1] minimal (root)"},
		{"single parent", 2, "standard", []string{"minimal"}, "  [2] standard <- minimal"},
		{"several parents", 10, "desktop", []string{"standard", "boot"}, "  [10] desktop <- standard, boot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSeedItem(tt.num, tt.seed, tt.parents))
		})
	}
}
