// Package config provides configuration structures and loading for germinate.
package config

// Config represents the complete application configuration.
type Config struct {
	Archive     ArchiveConfig     `yaml:"archive" mapstructure:"archive"`
	Seeds       SeedsConfig       `yaml:"seeds" mapstructure:"seeds"`
	Germination GerminationConfig `yaml:"germination" mapstructure:"germination"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// ArchiveConfig lists the already-fetched archive index files to read.
// Paths may contain an {arch} placeholder that is expanded per architecture.
type ArchiveConfig struct {
	Architectures     []string `yaml:"architectures" mapstructure:"architectures"`
	Packages          []string `yaml:"packages" mapstructure:"packages"`
	Sources           []string `yaml:"sources" mapstructure:"sources"`
	InstallerPackages []string `yaml:"installer_packages" mapstructure:"installer_packages"`
	Installer         bool     `yaml:"installer" mapstructure:"installer"` // consider udebs at all
}

// SeedsConfig locates the seed collection and the optional blacklist/hints files.
type SeedsConfig struct {
	Bases     []string `yaml:"bases" mapstructure:"bases"`
	Branch    string   `yaml:"branch" mapstructure:"branch"`
	Names     []string `yaml:"names" mapstructure:"names"` // empty means every seed
	Blacklist string   `yaml:"blacklist" mapstructure:"blacklist"`
	Hints     string   `yaml:"hints" mapstructure:"hints"`
}

// GerminationConfig holds algorithm switches.
type GerminationConfig struct {
	FollowRecommends bool     `yaml:"follow_recommends" mapstructure:"follow_recommends"`
	KernelVersions   []string `yaml:"kernel_versions" mapstructure:"kernel_versions"`
}

// OutputConfig controls where and what the report writers produce.
type OutputConfig struct {
	Directory string `yaml:"directory" mapstructure:"directory"`
	Rdepends  bool   `yaml:"rdepends" mapstructure:"rdepends"`
	YAML      bool   `yaml:"yaml" mapstructure:"yaml"`
}

// StoreConfig represents the optional MySQL sink for resolved sets.
type StoreConfig struct {
	Enabled            bool   `yaml:"enabled" mapstructure:"enabled"`
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
	TablePrefix        string `yaml:"table_prefix" mapstructure:"table_prefix"`
	LockTimeout        int    `yaml:"lock_timeout" mapstructure:"lock_timeout"` // seconds
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Archive: ArchiveConfig{
			Architectures: []string{"amd64"},
			Installer:     true,
		},
		Output: OutputConfig{
			Directory: ".",
		},
		Store: StoreConfig{
			Enabled:            false,
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     4,
			MaxIdleConnections: 2,
			TablePrefix:        "germinate_",
			LockTimeout:        10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// ArchPaths expands the {arch} placeholder in each path for the given architecture.
func ArchPaths(paths []string, arch string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, expandArch(p, arch))
	}
	return out
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
	if len(o.Architectures) > 0 {
		c.Archive.Architectures = o.Architectures
	}
	if len(o.Seeds) > 0 {
		c.Seeds.Names = o.Seeds
	}
	if o.OutputDir != "" {
		c.Output.Directory = o.OutputDir
	}
	if o.FollowRecommends {
		c.Germination.FollowRecommends = true
	}
	if o.NoInstaller {
		c.Archive.Installer = false
	}
}

// Overrides contains flag values that override config file settings.
type Overrides struct {
	LogLevel         string
	LogFormat        string
	Architectures    []string
	Seeds            []string
	OutputDir        string
	FollowRecommends bool
	NoInstaller      bool
}
