package seeds

import (
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dbsmedya/germinate/internal/logger"
)

type fakeCatalog struct {
	packages []string
	sources  map[string][]string
}

func (c fakeCatalog) PackageNames() []string {
	names := slices.Clone(c.packages)
	sort.Strings(names)
	return names
}

func (c fakeCatalog) HasPackage(name string) bool {
	return slices.Contains(c.packages, name)
}

func (c fakeCatalog) Binaries(source string) ([]string, bool) {
	b, ok := c.sources[source]
	return b, ok
}

func testCatalog() fakeCatalog {
	return fakeCatalog{
		packages: []string{"bash", "coreutils", "libc6", "libc6-dev", "linux-image-6.8-generic", "linux-image-6.8-lowlatency", "vim", "vim-tiny", "hello"},
		sources: map[string][]string{
			"vim":   {"vim", "vim-tiny", "vim-gtk3"},
			"glibc": {"libc6", "libc6-dev"},
		},
	}
}

func newContext(t *testing.T, arch string) (*ParseContext, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return &ParseContext{
		Arch:      arch,
		Catalog:   testCatalog(),
		Substvars: make(map[string][]string),
		KnownSeed: func(name string) bool { return name == "minimal" || name == "standard" },
		Log:       logger.NewWithCore(core),
	}, logs
}

func TestParseText_Entries(t *testing.T) {
	ctx, _ := newContext(t, "amd64")
	lines := []string{
		"This is a comment line",
		" * bash",
		" * coreutils # the basics",
		"   * not-an-entry",
		" * (vim)",
		" * libc6*",
		" * virtual-thing",
		" * %vim",
	}

	p := ParseText("standard", lines, ctx)

	assert.Equal(t, []string{"bash", "coreutils", "vim", "libc6", "libc6-dev", "virtual-thing", "vim", "vim-tiny"}, p.Entries)
	assert.True(t, p.IsRecommend("vim"))
	assert.False(t, p.IsRecommend("bash"))
	assert.Empty(t, p.Blacklist)
}

func TestParseText_ArchFilter(t *testing.T) {
	lines := []string{
		" * only-amd64 [amd64]",
		" * not-amd64 [!amd64]",
		" * either [amd64 arm64]",
		" * ppc-only [ppc64el]",
		" * not-s390x [!s390x]",
	}

	ctx, _ := newContext(t, "amd64")
	assert.Equal(t, []string{"only-amd64", "either", "not-s390x"}, ParseText("s", lines, ctx).Entries)

	ctx, _ = newContext(t, "ppc64el")
	assert.Equal(t, []string{"not-amd64", "ppc-only", "not-s390x"}, ParseText("s", lines, ctx).Entries)
}

func TestParseText_Blacklist(t *testing.T) {
	ctx, logs := newContext(t, "amd64")
	p := ParseText("minimal", []string{" * !vim*", " * !(bash)", " * hello"}, ctx)

	assert.Equal(t, map[string]bool{"vim": true, "vim-tiny": true, "bash": true}, p.Blacklist)
	assert.Equal(t, []string{"hello"}, p.Entries)
	assert.Equal(t, 3, logs.FilterMessage("Blacklisting package").Len())
}

func TestParseText_Headers(t *testing.T) {
	ctx, logs := newContext(t, "amd64")
	lines := []string{
		"Task-Seeds: desktop-common desktop",
		" * Kernel-Version: 6.8-generic 6.8-lowlatency",
		" * Feature: follow-recommends",
		" * Minimal-Include: lib*",
		" * Minimal-Exclude: libc6-dev",
		" * Extra-Include: *-doc",
		" * Ghost-Include: anything",
		" * linux-image-${Kernel-Version}",
	}

	p := ParseText("standard", lines, ctx)

	assert.Equal(t, []string{"desktop-common", "desktop"}, p.CloseSeeds)
	assert.Equal(t, []string{"6.8-generic", "6.8-lowlatency"}, p.KernelVersions)
	assert.Equal(t, []string{"follow-recommends"}, p.Features)
	assert.Equal(t, map[string][]string{"minimal": {"lib*"}, ExtraSeed: {"*-doc"}}, p.Includes)
	assert.Equal(t, map[string][]string{"minimal": {"libc6-dev"}}, p.Excludes)
	assert.Equal(t, []string{"linux-image-6.8-generic", "linux-image-6.8-lowlatency"}, p.Entries)

	assert.Equal(t, 1, logs.FilterMessage("Cannot include packages from unknown seed").Len())
	assert.Equal(t, []string{"6.8-generic", "6.8-lowlatency"}, ctx.Substvars["kernel-version"])
	assert.Equal(t, []string{"anything"}, ctx.Substvars["ghost-include"])
}

func TestParseText_SubstvarsAreSharedAndCombinatorial(t *testing.T) {
	ctx, logs := newContext(t, "amd64")

	ParseText("minimal", []string{" * flavour: generic lowlatency", " * abi: 6.8 6.9"}, ctx)
	p := ParseText("standard", []string{
		" * linux-${abi}-${FLAVOUR}",
		" * missing-${undefined}",
		" * plain",
	}, ctx)

	assert.Equal(t, []string{
		"linux-6.8-generic", "linux-6.9-generic",
		"linux-6.8-lowlatency", "linux-6.9-lowlatency",
		"plain",
	}, p.Entries)

	entries := logs.FilterMessage("Undefined seed substvar").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "undefined", entries[0].ContextMap()["name"])
}

func TestParseText_UnknownSource(t *testing.T) {
	ctx, logs := newContext(t, "amd64")
	p := ParseText("minimal", []string{" * %nosuch", " * %glibc"}, ctx)

	assert.Equal(t, []string{"libc6", "libc6-dev"}, p.Entries)
	assert.Equal(t, 1, logs.FilterMessage("Unknown source package").Len())
}

func TestParseText_BadPattern(t *testing.T) {
	ctx, logs := newContext(t, "amd64")
	p := ParseText("minimal", []string{" * /[/", " * bash"}, ctx)

	assert.Equal(t, []string{"bash"}, p.Entries)
	assert.Equal(t, 1, logs.FilterMessage("Bad seed pattern").Len())
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a\r\n\nb\n"))
}
