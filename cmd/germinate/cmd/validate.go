package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/dbsmedya/germinate/internal/config"
	"github.com/dbsmedya/germinate/internal/lock"
	"github.com/dbsmedya/germinate/internal/logger"
	"github.com/dbsmedya/germinate/internal/run"
	"github.com/dbsmedya/germinate/internal/store"
)

var validateCheckStore bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and inputs",
	Long: `Validate checks the configuration file and the inputs it names without
germinating anything.

Checks performed:
  - Configuration syntax and required fields
  - Archive index files exist for every architecture
  - Seed structure parses (includes, inheritance, cycles)
  - Every seed named in seeds.names is declared
  - Store connectivity (with --check-store)

Example:
  germinate validate --config germinate.yaml`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateCheckStore, "check-store", false,
		"Also connect to the configured store")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return zerr.Wrap(err, "failed to initialize logger")
	}

	fmt.Fprintf(outputWriter, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(outputWriter, "Config file: %s\n", configFile)
	fmt.Fprintf(outputWriter, "Architectures: %d\n\n", len(cfg.Archive.Architectures))

	hasErrors := false
	for _, arch := range cfg.Archive.Architectures {
		fmt.Fprintf(outputWriter, "--- Architecture: %s ---\n", arch)
		if missing := missingIndexes(cfg, arch); len(missing) > 0 {
			for _, path := range missing {
				fmt.Fprintf(outputWriter, "❌ Missing index: %s\n", path)
			}
			fmt.Fprintln(outputWriter)
			hasErrors = true
			continue
		}
		fmt.Fprintf(outputWriter, "✅ All indexes present\n\n")
	}

	fmt.Fprintf(outputWriter, "--- Seeds: %s ---\n", cfg.Seeds.Branch)
	orch, err := run.NewOrchestrator(cfg, log)
	if err != nil {
		fmt.Fprintf(outputWriter, "❌ %v\n\n", err)
		hasErrors = true
	} else if s, err := orch.Structure(); err != nil {
		fmt.Fprintf(outputWriter, "❌ Structure failed: %v\n\n", err)
		hasErrors = true
	} else {
		fmt.Fprintf(outputWriter, "Seeds: %d (supported: %s)\n", len(s.Names()), s.Supported())
		unknown := false
		for _, name := range cfg.Seeds.Names {
			if !s.Has(name) {
				fmt.Fprintf(outputWriter, "❌ Unknown seed: %s\n", name)
				unknown = true
			}
		}
		if unknown {
			hasErrors = true
			fmt.Fprintln(outputWriter)
		} else {
			fmt.Fprintf(outputWriter, "✅ Structure is valid\n\n")
		}
	}

	if validateCheckStore {
		fmt.Fprintf(outputWriter, "--- Store: %s:%d ---\n", cfg.Store.Host, cfg.Store.Port)
		if err := checkStore(cmd.Context(), cfg, log); err != nil {
			fmt.Fprintf(outputWriter, "❌ %v\n\n", err)
			hasErrors = true
		} else {
			fmt.Fprintln(outputWriter)
		}
	}

	if hasErrors {
		return zerr.New("validation failed")
	}

	fmt.Fprintln(outputWriter, "=== Validation Complete ===")
	fmt.Fprintln(outputWriter, "✅ Configuration validated successfully")
	return nil
}

// missingIndexes returns the index files of arch that do not exist.
func missingIndexes(cfg *config.Config, arch string) []string {
	paths := append(config.ArchPaths(cfg.Archive.Packages, arch), config.ArchPaths(cfg.Archive.Sources, arch)...)
	if cfg.Archive.Installer {
		paths = append(paths, config.ArchPaths(cfg.Archive.InstallerPackages, arch)...)
	}

	var missing []string
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	return missing
}

func checkStore(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mgr := store.NewManager(&cfg.Store, log)
	if err := mgr.Connect(ctx); err != nil {
		return err
	}
	defer mgr.Close() //nolint:errcheck // read-only check

	if err := mgr.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(outputWriter, "✅ Store reachable")

	return checkExports(ctx, mgr.DB, cfg.Seeds.Branch, cfg.Archive.Architectures)
}

// checkExports reports the architectures whose export lock is held by
// another instance. A running export is not a validation failure.
func checkExports(ctx context.Context, db *sql.DB, branch string, archs []string) error {
	for _, arch := range archs {
		running, err := lock.IsExportRunning(ctx, db, branch, arch)
		if err != nil {
			return zerr.With(err, "arch", arch)
		}
		if running {
			fmt.Fprintf(outputWriter, "⚠️  Export in progress: %s/%s\n", branch, arch)
			continue
		}
		fmt.Fprintf(outputWriter, "✅ No export running: %s/%s\n", branch, arch)
	}
	return nil
}
