package run

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/germinate/internal/config"
	"github.com/dbsmedya/germinate/internal/lock"
	"github.com/dbsmedya/germinate/internal/logger"
)

const testPackages = `Package: a
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
`

const testSources = `Package: a
Version: 1.0-1
Maintainer: Ann Example <ann@example.org>
Binary: a

Package: b
Version: 2.0-1
Maintainer: Bob Example <bob@example.org>
Binary: b
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// testConfig lays out a tiny archive and seed collection under a temp dir.
func testConfig(t *testing.T, archs ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	for _, arch := range archs {
		writeFile(t, filepath.Join(dir, "dists", arch, "Packages"), testPackages)
	}
	writeFile(t, filepath.Join(dir, "dists", "Sources"), testSources)
	writeFile(t, filepath.Join(dir, "seeds", "test", "STRUCTURE"), "base:\n")
	writeFile(t, filepath.Join(dir, "seeds", "test", "base"), " * a\n")

	cfg := config.DefaultConfig()
	cfg.Archive.Architectures = archs
	cfg.Archive.Packages = []string{filepath.Join(dir, "dists", "{arch}", "Packages")}
	cfg.Archive.Sources = []string{filepath.Join(dir, "dists", "Sources")}
	cfg.Archive.Installer = false
	cfg.Seeds.Bases = []string{filepath.Join(dir, "seeds")}
	cfg.Seeds.Branch = "test"
	cfg.Output.Directory = filepath.Join(dir, "out")
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(cfg, logger.NewNop())
	require.NoError(t, err)
	return o
}

func TestRunSingleArch(t *testing.T) {
	cfg := testConfig(t, "amd64")
	results, err := newTestOrchestrator(t, cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, "amd64", res.Arch)
	assert.Equal(t, cfg.Output.Directory, res.Dir)
	assert.Equal(t, []string{"a", "b"}, res.Result.All)
	assert.Len(t, res.Digest, 16)
	assert.Zero(t, res.RunID)
	assert.Contains(t, res.Files, "base")
	assert.Contains(t, res.Files, "all")

	data, err := os.ReadFile(filepath.Join(cfg.Output.Directory, "all"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ann Example")
}

func TestRunMultipleArchs(t *testing.T) {
	cfg := testConfig(t, "amd64", "arm64")
	results, err := newTestOrchestrator(t, cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i, arch := range []string{"amd64", "arm64"} {
		assert.Equal(t, arch, results[i].Arch)
		assert.Equal(t, filepath.Join(cfg.Output.Directory, arch), results[i].Dir)
		assert.FileExists(t, filepath.Join(cfg.Output.Directory, arch, "base"))
	}
	assert.NotEqual(t, results[0].Digest, results[1].Digest)
}

func TestRunMissingIndex(t *testing.T) {
	cfg := testConfig(t, "amd64", "riscv64")
	require.NoError(t, os.RemoveAll(filepath.Join(filepath.Dir(cfg.Output.Directory), "dists", "riscv64")))

	_, err := newTestOrchestrator(t, cfg).Run(context.Background())
	assert.ErrorContains(t, err, "failed to open index")
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t, "amd64")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestOrchestrator(t, cfg).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Directory, "all"))
}

func TestRunWithHintsAndBlacklist(t *testing.T) {
	cfg := testConfig(t, "amd64")
	root := filepath.Dir(cfg.Output.Directory)

	cfg.Seeds.Hints = filepath.Join(root, "hints")
	writeFile(t, cfg.Seeds.Hints, "# forced\nbase b\n")
	cfg.Seeds.Blacklist = filepath.Join(root, "blacklist")
	writeFile(t, cfg.Seeds.Blacklist, "# blacklist: not wanted\nzzz\n")

	results, err := newTestOrchestrator(t, cfg).Run(context.Background())
	require.NoError(t, err)

	base := results[0].Result.Seeds[0]
	assert.Equal(t, "base", base.Name)
	assert.Equal(t, []string{"a", "b"}, base.Entries)
	assert.Empty(t, base.Depends)
	assert.Empty(t, results[0].Result.Blacklisted)

	cfg.Seeds.Hints = filepath.Join(root, "missing-hints")
	_, err = NewOrchestrator(cfg, nil)
	assert.ErrorContains(t, err, "failed to read seed list")
}

func TestNewOrchestratorNilConfig(t *testing.T) {
	_, err := NewOrchestrator(nil, nil)
	assert.Error(t, err)
}

func TestStructure(t *testing.T) {
	cfg := testConfig(t, "amd64")
	s, err := newTestOrchestrator(t, cfg).Structure()
	require.NoError(t, err)
	assert.Equal(t, []string{"base"}, s.Names())
	assert.Equal(t, "base", s.Supported())
}

var (
	getLock     = regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")
	releaseLock = regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")
	latestQuery = regexp.QuoteMeta("SELECT digest FROM `germinate_runs`")
)

func storeConfig(t *testing.T) (*config.Config, sqlmock.Sqlmock, *Orchestrator) {
	t.Helper()
	cfg := testConfig(t, "amd64")
	cfg.Store.Enabled = true

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	o := newTestOrchestrator(t, cfg)
	o.UseDB(db)

	for i := 0; i < 3; i++ {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	return cfg, mock, o
}

func TestRunStoresResult(t *testing.T) {
	_, mock, o := storeConfig(t)

	lockName := lock.GenerateExportLockName("test", "amd64")
	mock.ExpectQuery(getLock).WithArgs(lockName, 10).
		WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectQuery(latestQuery).WithArgs("test", "amd64").
		WillReturnRows(sqlmock.NewRows([]string{"digest"}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `germinate_runs`").WillReturnResult(sqlmock.NewResult(42, 1))
	pkgs := mock.ExpectPrepare("INSERT INTO `germinate_seed_packages`")
	srcs := mock.ExpectPrepare("INSERT INTO `germinate_seed_sources`")
	ok := sqlmock.NewResult(0, 1)
	pkgs.ExpectExec().WithArgs(int64(42), "base", "a", "seed", "Test base seed", false, false).WillReturnResult(ok)
	pkgs.ExpectExec().WithArgs(int64(42), "base", "b", "depends", "a", false, false).WillReturnResult(ok)
	srcs.ExpectExec().WithArgs(int64(42), "base", "a", false).WillReturnResult(ok)
	srcs.ExpectExec().WithArgs(int64(42), "base", "b", false).WillReturnResult(ok)
	mock.ExpectCommit()

	mock.ExpectQuery(releaseLock).WithArgs(lockName).
		WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))

	results, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), results[0].RunID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSkipsUnchangedResult(t *testing.T) {
	cfg, mock, o := storeConfig(t)

	// A plain run yields the digest the store will report as latest.
	plain := *cfg
	plain.Store.Enabled = false
	first, err := newTestOrchestrator(t, &plain).Run(context.Background())
	require.NoError(t, err)

	mock.ExpectQuery(getLock).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
	mock.ExpectQuery(latestQuery).
		WillReturnRows(sqlmock.NewRows([]string{"digest"}).AddRow(first[0].Digest))
	mock.ExpectQuery(releaseLock).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))

	results, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, results[0].RunID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStoreLocked(t *testing.T) {
	_, mock, o := storeConfig(t)
	mock.ExpectQuery(getLock).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(0))

	results, err := o.Run(context.Background())
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
	require.Len(t, results, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerify(t *testing.T) {
	cfg := testConfig(t, "amd64", "arm64")
	results, err := newTestOrchestrator(t, cfg).Verify(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, v := range results {
		assert.True(t, v.Match(), v.Arch)
		assert.Len(t, v.First, 16)
	}
	assert.NoDirExists(t, cfg.Output.Directory)
}

func TestVerifyResultMatch(t *testing.T) {
	assert.True(t, VerifyResult{First: "x", Second: "x"}.Match())
	assert.False(t, VerifyResult{First: "x", Second: "y"}.Match())
}
