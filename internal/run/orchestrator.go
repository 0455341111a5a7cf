// Package run drives complete germination runs: it reads the archive
// indexes and seed collection named by the configuration, germinates each
// architecture, writes the reports and optionally stores the result.
package run

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/germinate/internal/archive"
	"github.com/dbsmedya/germinate/internal/config"
	"github.com/dbsmedya/germinate/internal/germinator"
	"github.com/dbsmedya/germinate/internal/lock"
	"github.com/dbsmedya/germinate/internal/logger"
	"github.com/dbsmedya/germinate/internal/report"
	"github.com/dbsmedya/germinate/internal/seeds"
	"github.com/dbsmedya/germinate/internal/store"
)

// ErrNondeterministic is returned by Verify when two runs over the same
// inputs disagree.
var ErrNondeterministic = zerr.New("germination is not deterministic")

// ArchResult describes the outcome for one architecture.
type ArchResult struct {
	Arch     string
	Dir      string
	Files    []string
	Digest   string
	Result   *germinator.Result
	RunID    int64 // 0 when not stored
	Duration time.Duration
}

// Orchestrator runs germination for every configured architecture.
type Orchestrator struct {
	config *config.Config
	log    *logger.Logger

	// db, when set, is used instead of dialling the configured store.
	db *sql.DB

	hints     []byte
	blacklist []byte
}

// NewOrchestrator creates an orchestrator for cfg. The configuration is
// expected to be validated.
func NewOrchestrator(cfg *config.Config, log *logger.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, zerr.New("config is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	o := &Orchestrator{config: cfg, log: log}

	var err error
	if o.hints, err = readOptional(cfg.Seeds.Hints); err != nil {
		return nil, err
	}
	if o.blacklist, err = readOptional(cfg.Seeds.Blacklist); err != nil {
		return nil, err
	}
	return o, nil
}

// UseDB makes the orchestrator store results through db rather than
// opening its own connection.
func (o *Orchestrator) UseDB(db *sql.DB) {
	o.db = db
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read seed list"), "path", path)
	}
	return data, nil
}

// Structure builds the seed structure of the configured branch.
func (o *Orchestrator) Structure() (*seeds.Structure, error) {
	fetcher := seeds.DirFetcher{Bases: o.config.Seeds.Bases}
	return seeds.NewStructure(o.config.Seeds.Branch, fetcher, o.log)
}

// LoadModel reads the archive indexes of arch into a new model.
func (o *Orchestrator) LoadModel(arch string) (*archive.Model, error) {
	a := o.config.Archive
	model := archive.NewModel(arch, a.Installer, o.log)

	sets := []struct {
		paths []string
		kind  archive.RecordKind
	}{
		{a.Packages, archive.KindPackage},
		{a.Sources, archive.KindSource},
	}
	if a.Installer {
		sets = append(sets, struct {
			paths []string
			kind  archive.RecordKind
		}{a.InstallerPackages, archive.KindInstallerPackage})
	}

	for _, set := range sets {
		records, err := archive.LoadTagFiles(config.ArchPaths(set.paths, arch), set.kind)
		if err != nil {
			return nil, zerr.With(err, "arch", arch)
		}
		model.Ingest(records)
		o.log.Debugw("Read archive index", "arch", arch, "kind", set.kind.String(), "records", len(records))
	}
	return model, nil
}

// Germinate performs one complete germination of arch without writing
// anything.
func (o *Orchestrator) Germinate(ctx context.Context, arch string) (*germinator.Germinator, error) {
	log := o.log.WithArch(arch)

	log.Infow("Reading archive", "phase", "archive")
	model, err := o.LoadModel(arch)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Infow("Reading seed structure", "phase", "structure", "branch", o.config.Seeds.Branch)
	structure, err := o.Structure()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := germinator.Options{
		FollowRecommends: o.config.Germination.FollowRecommends,
		KernelVersions:   o.config.Germination.KernelVersions,
	}

	log.Infow("Germinating", "phase", "germinate")
	return germinator.Run(model, structure, o.config.Seeds.Names, o.log, opts,
		o.reader(o.hints), o.reader(o.blacklist))
}

func (o *Orchestrator) reader(data []byte) io.Reader {
	if data == nil {
		return nil
	}
	return bytes.NewReader(data)
}

// Run germinates every architecture in parallel, writes the reports and,
// when the store is enabled, saves each result. The results are returned
// in configuration order.
func (o *Orchestrator) Run(ctx context.Context) ([]ArchResult, error) {
	archs := o.config.Archive.Architectures
	results := make([]ArchResult, len(archs))

	g, gctx := errgroup.WithContext(ctx)
	for i, arch := range archs {
		g.Go(func() (err error) {
			defer zerr.Defer(func(perr error) { err = zerr.With(perr, "arch", arch) })

			res, err := o.runArch(gctx, arch)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if o.config.Store.Enabled {
		if err := o.storeResults(ctx, results); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (o *Orchestrator) runArch(ctx context.Context, arch string) (*ArchResult, error) {
	start := time.Now()

	g, err := o.Germinate(ctx, arch)
	if err != nil {
		return nil, zerr.With(err, "arch", arch)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := o.outputDir(arch)
	o.log.Infow("Writing reports", "phase", "output", "arch", arch, "dir", dir)
	files, err := report.Export(dir, g, report.Options{
		Rdepends: o.config.Output.Rdepends,
		YAML:     o.config.Output.YAML,
	})
	if err != nil {
		return nil, zerr.With(err, "arch", arch)
	}

	result := g.Result()
	return &ArchResult{
		Arch:     arch,
		Dir:      dir,
		Files:    files,
		Digest:   report.Digest(result),
		Result:   result,
		Duration: time.Since(start),
	}, nil
}

// outputDir is the configured directory itself for a single architecture
// and a per-architecture subdirectory otherwise.
func (o *Orchestrator) outputDir(arch string) string {
	dir := o.config.Output.Directory
	if len(o.config.Archive.Architectures) > 1 {
		return filepath.Join(dir, arch)
	}
	return dir
}

func (o *Orchestrator) storeResults(ctx context.Context, results []ArchResult) error {
	db := o.db
	if db == nil {
		mgr := store.NewManager(&o.config.Store, o.log)
		if err := mgr.Connect(ctx); err != nil {
			return err
		}
		defer func() {
			if err := mgr.Close(); err != nil {
				o.log.Warnw("Failed to close store connection", "error", err)
			}
		}()
		db = mgr.DB
	}

	rs, err := store.NewResultStore(db, o.config.Store.TablePrefix, o.log)
	if err != nil {
		return err
	}
	if err := rs.EnsureSchema(ctx); err != nil {
		return err
	}

	for i := range results {
		res := &results[i]
		l := lock.NewExportLock(db, res.Result.Branch, res.Arch, o.log)

		err := l.WithLock(ctx, o.config.Store.LockTimeout, func() error {
			latest, err := rs.LatestDigest(ctx, res.Result.Branch, res.Arch)
			if err != nil {
				return err
			}
			if latest == res.Digest {
				o.log.Infow("Result unchanged since last stored run, skipping", "arch", res.Arch, "digest", res.Digest)
				return nil
			}
			res.RunID, err = rs.SaveRun(ctx, res.Result, res.Digest)
			return err
		})
		if err != nil {
			return zerr.With(err, "arch", res.Arch)
		}
	}
	return nil
}
