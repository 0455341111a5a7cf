package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/dbsmedya/germinate/internal/logger"
	"github.com/dbsmedya/germinate/internal/run"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that germination is deterministic",
	Long: `Verify germinates every architecture twice from the same inputs and
compares digests of the two results. Nothing is written.

Example:
  germinate verify --config germinate.yaml`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return zerr.Wrap(err, "failed to initialize logger")
	}

	orch, err := run.NewOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	results, err := orch.Verify(run.SetupSignalHandler())
	if err != nil && !errors.Is(err, run.ErrNondeterministic) {
		return err
	}

	printHeader("Determinism Check: %s", cfg.Seeds.Branch)
	fmt.Fprintln(outputWriter)
	for _, v := range results {
		if v.Match() {
			fmt.Fprintf(outputWriter, "  ✅ %s: %s\n", v.Arch, v.First)
			continue
		}
		fmt.Fprintf(outputWriter, "  ❌ %s: %s != %s\n", v.Arch, v.First, v.Second)
	}
	return err
}
