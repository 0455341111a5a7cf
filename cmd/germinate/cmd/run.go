package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/dbsmedya/germinate/internal/logger"
	"github.com/dbsmedya/germinate/internal/report"
	"github.com/dbsmedya/germinate/internal/run"
)

var (
	runRdepends bool
	runYAML     bool
	runStore    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Germinate seeds and write package lists",
	Long: `Run reads the archive indexes and seeds named in the configuration,
germinates every architecture and writes the resulting lists.

For each seed the output directory receives:
  - <seed>, <seed>.seed, <seed>.seed-recommends, <seed>.depends,
    <seed>.build-depends: package tables with the reason for each package
  - <seed>.sources, <seed>.build-sources: source package tables
and for the whole run: all, all+extra, provides, blacklisted, structure
and structure.dot. With several architectures each gets its own
subdirectory.

Example:
  germinate run --config germinate.yaml --arch amd64,arm64 --rdepends`,
	RunE: runGerminate,
}

func init() {
	runCmd.Flags().BoolVar(&runRdepends, "rdepends", false,
		"Also write reverse-dependency trees")
	runCmd.Flags().BoolVar(&runYAML, "yaml", false,
		"Also write the result as YAML")
	runCmd.Flags().BoolVar(&runStore, "store", false,
		"Store results in the configured database")

	rootCmd.AddCommand(runCmd)
}

func runGerminate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runRdepends {
		cfg.Output.Rdepends = true
	}
	if runYAML {
		cfg.Output.YAML = true
	}
	if runStore {
		cfg.Store.Enabled = true
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return zerr.Wrap(err, "failed to initialize logger")
	}
	defer log.Sync() //nolint:errcheck // best effort on exit

	orch, err := run.NewOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	ctx := run.SetupSignalHandlerWithCallback(func(sig os.Signal) {
		log.Warnw("Received signal, stopping", "signal", sig.String())
	})

	results, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	for _, res := range results {
		if err := report.Summary(outputWriter, res.Result, res.Digest); err != nil {
			return err
		}
		fmt.Fprintf(outputWriter, "  Output: %s (%d files, %s)\n",
			res.Dir, len(res.Files), res.Duration.Round(time.Millisecond))
		if res.RunID > 0 {
			fmt.Fprintf(outputWriter, "  Stored as run %d\n", res.RunID)
		}
		fmt.Fprintln(outputWriter)
	}
	return nil
}
