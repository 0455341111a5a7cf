package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.trai.ch/zerr"

	"github.com/dbsmedya/germinate/internal/germinator"
	"github.com/dbsmedya/germinate/internal/logger"
)

// Package membership kinds stored per seed.
const (
	KindEntry        = "seed"
	KindRecommends   = "seed-recommends"
	KindDepends      = "depends"
	KindBuildDepends = "build-depends"
)

// ResultStore writes germination results into three tables named after a
// common prefix: runs, seed_packages and seed_sources.
type ResultStore struct {
	db  *sql.DB
	log *logger.Logger

	runs     string
	packages string
	sources  string
}

// NewResultStore validates prefix and returns a store writing through db.
func NewResultStore(db *sql.DB, prefix string, log *logger.Logger) (*ResultStore, error) {
	if log == nil {
		log = logger.NewNop()
	}
	s := &ResultStore{db: db, log: log}

	for _, t := range []struct {
		dst  *string
		name string
	}{
		{&s.runs, prefix + "runs"},
		{&s.packages, prefix + "seed_packages"},
		{&s.sources, prefix + "seed_sources"},
	} {
		quoted, err := QuoteIdentifierSafe(t.name)
		if err != nil {
			return nil, err
		}
		*t.dst = quoted
	}
	return s, nil
}

// EnsureSchema creates the result tables when they do not exist.
func (s *ResultStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  branch VARCHAR(255) NOT NULL,
  arch VARCHAR(64) NOT NULL,
  supported VARCHAR(255) NOT NULL,
  digest CHAR(16) NOT NULL,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  KEY idx_branch_arch (branch, arch)
)`, s.runs),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  run_id BIGINT NOT NULL,
  seed VARCHAR(255) NOT NULL,
  package VARCHAR(255) NOT NULL,
  kind VARCHAR(32) NOT NULL,
  reason TEXT NOT NULL,
  build_tree BOOLEAN NOT NULL,
  recommends BOOLEAN NOT NULL,
  PRIMARY KEY (run_id, seed, package, kind)
)`, s.packages),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  run_id BIGINT NOT NULL,
  seed VARCHAR(255) NOT NULL,
  source VARCHAR(255) NOT NULL,
  build_tree BOOLEAN NOT NULL,
  PRIMARY KEY (run_id, seed, source, build_tree)
)`, s.sources),
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return zerr.Wrap(err, "failed to create result table")
		}
	}
	return nil
}

// SaveRun stores r in one transaction and returns the new run id. Nothing
// is stored when any insert fails.
func (s *ResultStore) SaveRun(ctx context.Context, r *germinator.Result, digest string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, zerr.Wrap(err, "failed to begin transaction")
	}

	runID, err := s.saveRun(ctx, tx, r, digest)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Errorw("Rollback failed", "error", rbErr)
		}
		return 0, zerr.With(zerr.With(err, "branch", r.Branch), "arch", r.Arch)
	}

	if err := tx.Commit(); err != nil {
		return 0, zerr.Wrap(err, "failed to commit run")
	}

	s.log.Infow("Stored germination run", "run_id", runID, "branch", r.Branch, "arch", r.Arch, "digest", digest)
	return runID, nil
}

func (s *ResultStore) saveRun(ctx context.Context, tx *sql.Tx, r *germinator.Result, digest string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (branch, arch, supported, digest) VALUES (?, ?, ?, ?)", s.runs),
		r.Branch, r.Arch, r.Supported, digest,
	)
	if err != nil {
		return 0, zerr.Wrap(err, "failed to insert run")
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, zerr.Wrap(err, "failed to read run id")
	}

	pkgStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (run_id, seed, package, kind, reason, build_tree, recommends) VALUES (?, ?, ?, ?, ?, ?, ?)", s.packages))
	if err != nil {
		return 0, zerr.Wrap(err, "failed to prepare package insert")
	}
	defer pkgStmt.Close() //nolint:errcheck // closed with the transaction

	srcStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (run_id, seed, source, build_tree) VALUES (?, ?, ?, ?)", s.sources))
	if err != nil {
		return 0, zerr.Wrap(err, "failed to prepare source insert")
	}
	defer srcStmt.Close() //nolint:errcheck // closed with the transaction

	for _, seed := range r.Seeds {
		for _, group := range []struct {
			kind string
			pkgs []string
		}{
			{KindEntry, seed.Entries},
			{KindRecommends, seed.Recommends},
			{KindDepends, seed.Depends},
			{KindBuildDepends, seed.BuildDepends},
		} {
			for _, pkg := range group.pkgs {
				why := seed.Why[pkg]
				if _, err := pkgStmt.ExecContext(ctx, runID, seed.Name, pkg, group.kind, why.Reason, why.BuildTree, why.Recommends); err != nil {
					return 0, zerr.With(zerr.With(zerr.Wrap(err, "failed to insert package"), "seed", seed.Name), "package", pkg)
				}
			}
		}

		for _, group := range []struct {
			buildTree bool
			srcs      []string
		}{
			{false, seed.SourcePkgs},
			{true, seed.BuildSourcePkgs},
		} {
			for _, src := range group.srcs {
				if _, err := srcStmt.ExecContext(ctx, runID, seed.Name, src, group.buildTree); err != nil {
					return 0, zerr.With(zerr.With(zerr.Wrap(err, "failed to insert source"), "seed", seed.Name), "source", src)
				}
			}
		}
	}

	return runID, nil
}

// LatestDigest returns the digest of the newest stored run for branch and
// arch, or "" when none exists.
func (s *ResultStore) LatestDigest(ctx context.Context, branch, arch string) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT digest FROM %s WHERE branch = ? AND arch = ? ORDER BY id DESC LIMIT 1", s.runs),
		branch, arch,
	).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", zerr.Wrap(err, "failed to query latest digest")
	}
	return digest, nil
}
