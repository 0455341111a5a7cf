package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/dbsmedya/germinate/internal/config"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile          string
	logLevel         string
	logFormat        string
	architectures    []string
	seedNames        []string
	outputDir        string
	followRecommends bool
	noInstaller      bool
)

var rootCmd = &cobra.Command{
	Use:   "germinate",
	Short: "Expand seed lists into complete package sets",
	Long: `Germinate reads Debian-style archive indexes and a collection of seeds
and expands every seed into the complete set of binary and source packages
needed to satisfy it, recording why each package was pulled in.

Features:
  - Seed inheritance with include-merged STRUCTURE files
  - Runtime and build-dependency closure with virtual package resolution
  - Per-seed package lists, source lists and reverse-dependency trees
  - Parallel germination across architectures
  - Optional export of resolved sets to MySQL`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "germinate.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Germination overrides
	rootCmd.PersistentFlags().StringSliceVarP(&architectures, "arch", "a", nil,
		"Override architectures to germinate (comma separated)")
	rootCmd.PersistentFlags().StringSliceVarP(&seedNames, "seeds", "s", nil,
		"Limit germination to these seeds and their ancestors")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "",
		"Override output directory")
	rootCmd.PersistentFlags().BoolVar(&followRecommends, "follow-recommends", false,
		"Treat Recommends as dependencies")
	rootCmd.PersistentFlags().BoolVar(&noInstaller, "no-installer", false,
		"Ignore installer (udeb) packages")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() config.Overrides {
	return config.Overrides{
		LogLevel:         logLevel,
		LogFormat:        logFormat,
		Architectures:    architectures,
		Seeds:            seedNames,
		OutputDir:        outputDir,
		FollowRecommends: followRecommends,
		NoInstaller:      noInstaller,
	}
}

// loadConfig loads the config file, applies CLI overrides and validates
// the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load config")
	}

	cfg.ApplyOverrides(GetCLIOverrides())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
