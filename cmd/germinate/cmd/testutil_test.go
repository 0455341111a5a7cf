package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixturePackages = `Package: a
Version: 1.0-1
Section: admin
Maintainer: Ann Example <ann@example.org>
Depends: b
Size: 1024
Installed-Size: 4

Package: b
Version: 2.0-1
Section: libs
Maintainer: Bob Example <bob@example.org>
Size: 2048
Installed-Size: 8

Package: c
Version: 1.0-1
Section: x11
Maintainer: Ann Example <ann@example.org>
Depends: a
Size: 512
Installed-Size: 2
`

const fixtureSources = `Package: a
Version: 1.0-1
Maintainer: Ann Example <ann@example.org>
Binary: a, c

Package: b
Version: 2.0-1
Maintainer: Bob Example <bob@example.org>
Binary: b
`

// fixture writes an archive, a seed collection and a config file into a
// temp dir, points the --config flag at it and captures command output.
type fixture struct {
	dir    string
	config string
	out    *bytes.Buffer
}

func newFixture(t *testing.T, extraConfig string) *fixture {
	t.Helper()
	dir := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write("dists/amd64/Packages", fixturePackages)
	write("dists/Sources", fixtureSources)
	write("seeds/test/STRUCTURE", "base:\ndesktop: base\nfeature follow-recommends\n")
	write("seeds/test/base", " * a\n")
	write("seeds/test/desktop", " * c\n")

	f := &fixture{
		dir:    dir,
		config: filepath.Join(dir, "germinate.yaml"),
		out:    &bytes.Buffer{},
	}
	write("germinate.yaml", fmt.Sprintf(`archive:
  architectures: [amd64]
  packages: ["%[1]s/dists/{arch}/Packages"]
  sources: ["%[1]s/dists/Sources"]
  installer: false
seeds:
  bases: ["%[1]s/seeds"]
  branch: test
output:
  directory: "%[1]s/out"
logging:
  level: error
%[2]s`, dir, extraConfig))

	originalCfgFile := cfgFile
	cfgFile = f.config
	setOutputWriter(f.out)
	t.Cleanup(func() {
		cfgFile = originalCfgFile
		resetOutputWriter()
	})
	return f
}
