package report

import (
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"

	"github.com/dbsmedya/germinate/internal/archive"
	"github.com/dbsmedya/germinate/internal/germinator"
	"github.com/dbsmedya/germinate/internal/seeds"
)

// Output file names shared by every run.
const (
	AllFile         = "all"
	AllExtraFile    = "all+extra"
	ProvidesFile    = "provides"
	StructureFile   = "structure"
	StructureDot    = "structure.dot"
	BlacklistedFile = "blacklisted"
	YAMLFile        = "germinate.yaml"
	RdependsDir     = "rdepends"

	sourcesSuffix      = ".sources"
	buildDependsSuffix = "+build-depends"
)

// Options selects the optional parts of an export.
type Options struct {
	Rdepends bool
	YAML     bool
}

type exporter struct {
	dir       string
	model     *archive.Model
	structure *seeds.Structure
	result    *germinator.Result
	files     []string
}

// Export writes every output file of a finished run into dir and returns
// the paths written, relative to dir. Each file is replaced atomically.
func Export(dir string, g *germinator.Germinator, opts Options) ([]string, error) {
	e := &exporter{
		dir:       dir,
		model:     g.Model(),
		structure: g.Structure(),
		result:    g.Result(),
	}

	steps := []func() error{
		e.seedFiles,
		e.summaryFiles,
		e.structureFiles,
	}
	if opts.Rdepends {
		steps = append(steps, e.rdependsFiles)
	}
	if opts.YAML {
		steps = append(steps, func() error {
			return e.file(YAMLFile, func(w io.Writer) error { return WriteYAML(w, e.result) })
		})
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return e.files, err
		}
	}
	return e.files, nil
}

func (e *exporter) seedFiles() error {
	for i := range e.result.Seeds {
		seed := &e.result.Seeds[i]
		name := seed.Name

		lists := []struct {
			file string
			pkgs []string
		}{
			{name, seed.Packages()},
			{name + ".seed", seed.Entries},
			{name + ".seed-recommends", seed.Recommends},
			{name + ".depends", seed.Depends},
			{name + ".build-depends", seed.BuildDepends},
		}
		for _, l := range lists {
			if err := e.list(l.file, seed.Why, l.pkgs); err != nil {
				return err
			}
		}

		if err := e.sources(name+sourcesSuffix, seed.SourcePkgs); err != nil {
			return err
		}
		if err := e.sources(name+".build-sources", seed.BuildSourcePkgs); err != nil {
			return err
		}

		if name != seeds.ExtraSeed {
			text := e.structure.Text(name)
			if err := e.file(name+".seedtext", func(w io.Writer) error { return WriteSeedText(w, text) }); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *exporter) summaryFiles() error {
	var all, allSrcs, allExtra, allExtraSrcs, supported, supportedSrcs []string

	inner := map[string]bool{e.result.Supported: true}
	if s, ok := e.result.Seed(e.result.Supported); ok {
		for _, name := range s.Inherit {
			inner[name] = true
		}
	}

	for _, seed := range e.result.Seeds {
		full := seed.Packages()
		allExtra = append(allExtra, full...)
		allExtraSrcs = append(allExtraSrcs, seed.SourcePkgs...)
		if seed.Name == seeds.ExtraSeed {
			continue
		}

		all = append(all, full...)
		allSrcs = append(allSrcs, seed.SourcePkgs...)
		if inner[seed.Name] {
			supported = append(supported, full...)
			supportedSrcs = append(supportedSrcs, seed.SourcePkgs...)
		}
		supported = append(supported, seed.BuildDepends...)
		supportedSrcs = append(supportedSrcs, seed.BuildSourcePkgs...)
	}

	whys := e.result.AllWhy
	if err := e.list(AllFile, whys, all); err != nil {
		return err
	}
	if err := e.sources(AllFile+sourcesSuffix, allSrcs); err != nil {
		return err
	}
	if e.result.Supported != "" {
		name := e.result.Supported + buildDependsSuffix
		if err := e.list(name, whys, supported); err != nil {
			return err
		}
		if err := e.sources(name+sourcesSuffix, supportedSrcs); err != nil {
			return err
		}
	}
	if err := e.list(AllExtraFile, whys, allExtra); err != nil {
		return err
	}
	if err := e.sources(AllExtraFile+sourcesSuffix, allExtraSrcs); err != nil {
		return err
	}

	if err := e.file(ProvidesFile, func(w io.Writer) error { return WriteProvides(w, e.result.Provides) }); err != nil {
		return err
	}
	return e.file(BlacklistedFile, func(w io.Writer) error { return WriteBlacklisted(w, e.result.Blacklisted) })
}

func (e *exporter) structureFiles() error {
	if err := e.file(StructureFile, e.structure.Write); err != nil {
		return err
	}
	return e.file(StructureDot, e.structure.WriteDot)
}

func (e *exporter) rdependsFiles() error {
	for _, pkg := range e.result.All {
		p, ok := e.model.Package(pkg)
		if !ok {
			continue
		}
		path := filepath.Join(RdependsDir, p.Source, pkg)
		err := e.file(path, func(w io.Writer) error {
			return WriteRdepends(w, e.model, e.result.Seeds, pkg)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *exporter) list(name string, whys map[string]germinator.Why, pkgs []string) error {
	return e.file(name, func(w io.Writer) error { return WriteList(w, e.model, whys, pkgs) })
}

func (e *exporter) sources(name string, srcs []string) error {
	return e.file(name, func(w io.Writer) error { return WriteSourceList(w, e.model, srcs) })
}

// file writes name through a temporary file renamed into place.
func (e *exporter) file(name string, write func(io.Writer) error) error {
	path := filepath.Join(e.dir, name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output directory"), "path", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output file"), "path", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if err := write(tmp); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return zerr.With(zerr.Wrap(err, "failed to write output file"), "path", path)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close() //nolint:errcheck,gosec // chmod error takes precedence
		return zerr.With(zerr.Wrap(err, "failed to set output file mode"), "path", path)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to close output file"), "path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to replace output file"), "path", path)
	}

	e.files = append(e.files, name)
	return nil
}

