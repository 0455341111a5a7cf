package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/germinate/internal/archive"
	"github.com/dbsmedya/germinate/internal/germinator"
	"github.com/dbsmedya/germinate/internal/seeds"
)

func record(kind archive.RecordKind, name string, kv ...string) archive.Record {
	fields := map[string]string{"Package": name, "Version": "1.0"}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return archive.Record{Kind: kind, Fields: fields}
}

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}

// cyclicRun germinates a small archive whose reverse dependencies contain
// both a loop and a shared branch.
func cyclicRun(t *testing.T) *germinator.Germinator {
	t.Helper()
	model := archive.NewModel("amd64", false, nil)
	model.Ingest([]archive.Record{
		record(archive.KindPackage, "a", "Depends", "b", "Maintainer", "Ann <a@x>", "Size", "100", "Installed-Size", "5"),
		record(archive.KindPackage, "x", "Depends", "b, d"),
		record(archive.KindPackage, "b", "Depends", "c", "Provides", "bee"),
		record(archive.KindPackage, "c", "Depends", "a"),
		record(archive.KindPackage, "d", "Depends", "c"),
		record(archive.KindPackage, "bt"),
		record(archive.KindSource, "a", "Build-Depends", "c, bt", "Maintainer", "Ann <a@x>"),
		record(archive.KindSource, "bt"),
		record(archive.KindSource, "x"),
		record(archive.KindSource, "b"),
		record(archive.KindSource, "c"),
		record(archive.KindSource, "d"),
	})

	structure, err := seeds.NewStructure("test", seeds.MemoryFetcher{"test": {
		seeds.StructureFile: "base:\ndesktop: base\n",
		"base":              " * a\n * x\n",
		"desktop":           "# nothing extra\n",
	}}, nil)
	require.NoError(t, err)

	g, err := germinator.Run(model, structure, nil, nil, germinator.Options{}, nil,
		strings.NewReader("# blacklist: tooling\nbt\n"))
	require.NoError(t, err)
	return g
}

func TestWriteList(t *testing.T) {
	model := archive.NewModel("amd64", false, nil)
	model.Ingest([]archive.Record{
		record(archive.KindPackage, "a", "Maintainer", "Ann <a@x>", "Size", "100", "Installed-Size", "5"),
		record(archive.KindPackage, "bb", "Source", "b-src", "Maintainer", "Bo", "Size", "20", "Installed-Size", "3"),
	})
	whys := map[string]germinator.Why{
		"a":  {Reason: "Test base seed"},
		"bb": {Reason: "a"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteList(&buf, model, whys, []string{"bb", "a", "missing", "a"}))

	want := lines(
		"Package | Source | Why            | Maintainer | Deb Size (B)    | Inst Size (KB) ",
		"--------+--------+----------------+------------+-----------------+-----------------",
		"a       | a      | Test base seed | Ann <a@x>  |             100 |               5",
		"bb      | b-src  | a              | Bo         |              20 |               3",
		"-----------------------------------------------+-----------------+-----------------",
		"                                               |             120 |               8",
	)
	assert.Equal(t, want, buf.String())
}

func TestWriteListEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteList(&buf, archive.NewModel("amd64", false, nil), nil, nil))

	out := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, out, 4)
	assert.True(t, strings.HasPrefix(out[0], "Package | Source | Why | Maintainer | "))
	assert.True(t, strings.HasSuffix(out[3], "|               0 |               0"))
}

func TestWriteSourceList(t *testing.T) {
	model := archive.NewModel("amd64", false, nil)
	model.Ingest([]archive.Record{
		record(archive.KindSource, "a", "Maintainer", "Ann <a@x>"),
		record(archive.KindSource, "b-src", "Maintainer", "Bo"),
	})

	var buf bytes.Buffer
	require.NoError(t, WriteSourceList(&buf, model, []string{"b-src", "a"}))

	want := lines(
		"Source | Maintainer",
		"-------+------------",
		"a      | Ann <a@x> ",
		"b-src  | Bo        ",
	)
	assert.Equal(t, want, buf.String())
}

func TestWriteRdepends(t *testing.T) {
	g := cyclicRun(t)

	var buf bytes.Buffer
	require.NoError(t, WriteRdepends(&buf, g.Model(), g.Result().Seeds, "c"))

	want := lines(
		"c",
		"* Reverse Depends:",
		" +- b",
		" |  * Reverse Depends:",
		" |   +- a",
		" |   |  * Base seed",
		" |   |  * Reverse Depends:",
		" |   |   +- c",
		" |   |      ! loop",
		" |   +- x",
		" |      * Base seed",
		" +- d",
		"    * Reverse Depends:",
		"     +- x",
		"        ! skipped",
		"* Reverse Build-Depends:",
		" +- a",
	)
	assert.Equal(t, want, buf.String())
}

func TestWriteProvides(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProvides(&buf, map[string][]string{
		"mail-transport-agent": {"postfix", "exim4"},
		"awk":                  {"mawk"},
	}))

	assert.Equal(t, "awk\n\tmawk\n\nmail-transport-agent\n\texim4\n\tpostfix\n\n", buf.String())
}

func TestWriteBlacklisted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBlacklisted(&buf, map[string]string{"zsh": "", "firefox": "non-free"}))

	assert.Equal(t, "firefox\tnon-free\nzsh\t\n", buf.String())
}

func TestWriteSeedText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeedText(&buf, []string{"Task-Seeds: base", " * a\n"}))

	assert.Equal(t, "Task-Seeds: base\n * a\n", buf.String())
}

func TestExport(t *testing.T) {
	g := cyclicRun(t)
	dir := t.TempDir()

	files, err := Export(dir, g, Options{Rdepends: true, YAML: true})
	require.NoError(t, err)

	for _, name := range []string{
		"base", "base.seed", "base.seed-recommends", "base.depends", "base.build-depends",
		"base.sources", "base.build-sources", "base.seedtext",
		"desktop", "desktop.seedtext",
		"extra", "extra.seed",
		"all", "all.sources", "all+extra", "all+extra.sources",
		"desktop+build-depends", "desktop+build-depends.sources",
		"provides", "blacklisted", "structure", "structure.dot", YAMLFile,
		filepath.Join(RdependsDir, "c", "c"),
		filepath.Join(RdependsDir, "a", "a"),
		filepath.Join(RdependsDir, "bt", "bt"),
	} {
		assert.Contains(t, files, name)
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NotContains(t, files, "extra.seedtext")

	text, err := os.ReadFile(filepath.Join(dir, "base.seedtext"))
	require.NoError(t, err)
	assert.Equal(t, " * a\n * x\n", string(text))

	blacklisted, err := os.ReadFile(filepath.Join(dir, BlacklistedFile))
	require.NoError(t, err)
	assert.Equal(t, "bt\ttooling\n", string(blacklisted))

	provides, err := os.ReadFile(filepath.Join(dir, ProvidesFile))
	require.NoError(t, err)
	assert.Equal(t, "bee\n\tb\n\n", string(provides))

	all, err := os.ReadFile(filepath.Join(dir, AllFile))
	require.NoError(t, err)
	assert.Contains(t, string(all), "| Test base seed |")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), "temporary file %s left behind", e.Name())
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	r := cyclicRun(t).Result()

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, r))
	assert.Contains(t, buf.String(), "supported: desktop")

	back, err := ReadYAML(&buf)
	require.NoError(t, err)
	assert.Nil(t, back.AllWhy)
	assert.Equal(t, r.All, back.All)

	// The digest ignores nil versus empty lists, which YAML does not keep.
	back.AllWhy = r.AllWhy
	assert.Equal(t, Digest(r), Digest(back))
}

func TestReadYAMLError(t *testing.T) {
	_, err := ReadYAML(strings.NewReader("seeds: [unterminated"))
	assert.Error(t, err)
}

func TestDigest(t *testing.T) {
	first := Digest(cyclicRun(t).Result())
	second := Digest(cyclicRun(t).Result())

	assert.Len(t, first, 16)
	assert.Equal(t, first, second)

	changed := cyclicRun(t).Result()
	changed.Seeds[0].Why["a"] = germinator.Why{Reason: "Somewhere else"}
	assert.NotEqual(t, first, Digest(changed))
}

func TestSummary(t *testing.T) {
	r := cyclicRun(t).Result()

	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, r, "0123456789abcdef"))
	out := color.ClearCode(buf.String())

	assert.Contains(t, out, "Germination: test (amd64)")
	assert.Contains(t, out, "base")
	assert.Contains(t, out, "desktop")
	assert.Contains(t, out, "extra")
	assert.Contains(t, out, "Packages: 6  Sources: 6  Supported: desktop")
	assert.Contains(t, out, "Blacklisted sources touched: 1")
	assert.Contains(t, out, "Digest: 0123456789abcdef")
}
