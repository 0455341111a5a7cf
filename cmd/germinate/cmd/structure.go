package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/dbsmedya/germinate/internal/logger"
	"github.com/dbsmedya/germinate/internal/run"
	"github.com/dbsmedya/germinate/internal/seeds"
)

var structureFormat string

var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Show the seed structure of the configured branch",
	Long: `Structure reads the STRUCTURE file of the configured branch, follows its
includes and prints the resulting seeds in inheritance order.

Formats:
  - text: seed order with expanded inheritance and a summary
  - dot: graphviz digraph of the declared inheritance
  - mermaid: mermaid flowchart of the declared inheritance
  - raw: the merged declaration lines

Example:
  germinate structure --config germinate.yaml --format dot | dot -Tpng`,
	RunE: runStructure,
}

func init() {
	structureCmd.Flags().StringVarP(&structureFormat, "format", "f", "text",
		"Output format (text, dot, mermaid, raw)")

	rootCmd.AddCommand(structureCmd)
}

func runStructure(cmd *cobra.Command, args []string) error {
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
	s, err := orch.Structure()
	if err != nil {
		return zerr.Wrap(err, "failed to read seed structure")
	}

	switch structureFormat {
	case "text":
		printStructure(s)
		return nil
	case "dot":
		return s.WriteDot(outputWriter)
	case "mermaid":
		_, err := fmt.Fprint(outputWriter, s.MermaidSyntax())
		return err
	case "raw":
		return s.Write(outputWriter)
	default:
		return zerr.With(zerr.New("unknown output format"), "format", structureFormat)
	}
}

// printStructure prints the seed order next to a short summary.
func printStructure(s *seeds.Structure) {
	g := s.Graph()
	printHeader("Seed Structure: %s", s.Branch())
	fmt.Fprintln(outputWriter)

	var order []string
	for i, name := range s.Names() {
		order = append(order, formatSeedItem(i+1, name, s.OriginalInherit(name)))
	}

	features := "none"
	if f := s.Features(); len(f) > 0 {
		features = strings.Join(f, ", ")
	}
	summary := []string{
		"[ Summary ]",
		strings.Repeat("-", 11),
		fmt.Sprintf("Seeds:      %d", len(s.Names())),
		fmt.Sprintf("Edges:      %d", g.EdgeCount()),
		fmt.Sprintf("Supported:  %s", s.Supported()),
		fmt.Sprintf("Leaves:     %s", strings.Join(g.LeafNodes(), ", ")),
		fmt.Sprintf("Branches:   %s", strings.Join(s.Branches(), ", ")),
		fmt.Sprintf("Features:   %s", features),
	}
	printSideBySide(order, summary, 4)

	fmt.Fprintln(outputWriter)
	printSection("Expanded Inheritance")
	for _, name := range s.Names() {
		inherit := s.Inherit(name)
		if len(inherit) == 0 {
			fmt.Fprintf(outputWriter, "  %s: (none)\n", name)
			continue
		}
		fmt.Fprintf(outputWriter, "  %s: %s\n", name, strings.Join(inherit, ", "))
	}

	fmt.Fprintln(outputWriter)
	printSection("Inherited By")
	for _, name := range s.Names() {
		if outer := g.Descendants(name); len(outer) > 0 {
			fmt.Fprintf(outputWriter, "  %s: %s\n", name, strings.Join(outer, ", "))
		}
	}
}

// formatSeedItem formats a seed in the inheritance order list
func formatSeedItem(num int, name string, parents []string) string {
	numStr := fmt.Sprintf("[%d]", num)
	if len(parents) == 0 {
		return fmt.Sprintf("  %s %s (root)", numStr, name)
	}
	return fmt.Sprintf("  %s %s <- %s", numStr, name, strings.Join(parents, ", "))
}
