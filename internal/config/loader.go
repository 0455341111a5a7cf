package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
// A .env file next to the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) {
	expandAll(cfg.Archive.Packages)
	expandAll(cfg.Archive.Sources)
	expandAll(cfg.Archive.InstallerPackages)
	expandAll(cfg.Seeds.Bases)

	cfg.Seeds.Branch = expandEnvVar(cfg.Seeds.Branch)
	cfg.Seeds.Blacklist = expandEnvVar(cfg.Seeds.Blacklist)
	cfg.Seeds.Hints = expandEnvVar(cfg.Seeds.Hints)
	cfg.Output.Directory = expandEnvVar(cfg.Output.Directory)

	cfg.Store.Host = expandEnvVar(cfg.Store.Host)
	cfg.Store.User = expandEnvVar(cfg.Store.User)
	cfg.Store.Password = expandEnvVar(cfg.Store.Password)
	cfg.Store.Database = expandEnvVar(cfg.Store.Database)

	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

func expandAll(values []string) {
	for i := range values {
		values[i] = expandEnvVar(values[i])
	}
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// expandArch replaces the {arch} placeholder. It runs after env substitution,
// so a literal {arch} never collides with ${VAR} syntax.
func expandArch(path, arch string) string {
	return strings.ReplaceAll(path, "{arch}", arch)
}
