package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
	"github.com/jamesainslie/kbsense/pkg/kbsense/kb"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level"`
	Path       string            `mapstructure:"path" yaml:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components map[string]string `mapstructure:"components" yaml:"components"`
}

// NamespacesConfig holds the two artifact namespaces.
type NamespacesConfig struct {
	Facts kb.Namespace `mapstructure:"facts" yaml:"facts"`
	Rules kb.Namespace `mapstructure:"rules" yaml:"rules"`
}

// ScanConfig configures fingerprinting and change comparison.
type ScanConfig struct {
	Extension string   `mapstructure:"extension" yaml:"extension"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude"`
	Compare   string   `mapstructure:"compare" yaml:"compare"`
}

// StateConfig configures the history store.
type StateConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	Path       string `mapstructure:"path" yaml:"path"` // Empty means <kb_path>/.kbsense/state.json
	MaxRecords int    `mapstructure:"max_records" yaml:"max_records"`
}

// DeltaConfig configures pair analysis.
type DeltaConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	DiffContext         int     `mapstructure:"diff_context" yaml:"diff_context"`
}

// ValidateConfig configures the thresholds used by the validate command.
type ValidateConfig struct {
	MaxChangeRate        float64 `mapstructure:"max_change_rate" yaml:"max_change_rate"`
	MinAverageSimilarity float64 `mapstructure:"min_average_similarity" yaml:"min_average_similarity"`
}

// Config represents the application configuration.
type Config struct {
	KBPath     string           `mapstructure:"kb_path" yaml:"kb_path"`
	Namespaces NamespacesConfig `mapstructure:"namespaces" yaml:"namespaces"`
	Scan       ScanConfig       `mapstructure:"scan" yaml:"scan"`
	State      StateConfig      `mapstructure:"state" yaml:"state"`
	Trend      struct {
		Window int `mapstructure:"window" yaml:"window"`
	} `mapstructure:"trend" yaml:"trend"`
	Delta    DeltaConfig    `mapstructure:"delta" yaml:"delta"`
	Validate ValidateConfig `mapstructure:"validate" yaml:"validate"`
	Output   struct {
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"output" yaml:"output"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/kbsense/config.yaml
//   - $HOME/.config/kbsense/config.yaml
//
// Environment variables are prefixed with KBSENSE_ (e.g., KBSENSE_KB_PATH).
func Load() (*Config, error) {
	v := viper.New()
	if err := Configure(v, ""); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Configure prepares v with config search paths, environment binding and
// defaults, then reads the config file. A missing config file is not an error.
// A non-empty configFile is read instead of searching.
func Configure(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	return nil
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("kb_path", DefaultKBPath)

	facts, rules := kb.Facts(), kb.Rules()
	for key, ns := range map[string]kb.Namespace{"facts": facts, "rules": rules} {
		v.SetDefault("namespaces."+key+".name", ns.Name)
		v.SetDefault("namespaces."+key+".dir", ns.Dir)
		v.SetDefault("namespaces."+key+".prefix", ns.Prefix)
		v.SetDefault("namespaces."+key+".ext", ns.Ext)
	}

	v.SetDefault("scan.extension", DefaultExtension)
	v.SetDefault("scan.exclude", DefaultExclusions)
	v.SetDefault("scan.compare", DefaultCompare)

	v.SetDefault("state.backend", DefaultBackend)
	v.SetDefault("state.path", "")
	v.SetDefault("state.max_records", DefaultMaxRecords)

	v.SetDefault("trend.window", DefaultTrendWindow)

	v.SetDefault("delta.similarity_threshold", DefaultSimilarityThreshold)
	v.SetDefault("delta.diff_context", DefaultDiffContext)

	v.SetDefault("validate.max_change_rate", DefaultMaxChangeRate)
	v.SetDefault("validate.min_average_similarity", DefaultMinAverageSimilarity)

	v.SetDefault("output.format", DefaultFormat)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.components", map[string]string{
		"scanner": "info",
		"history": "info",
		"pairs":   "info",
	})
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	kbPath, err := ExpandPath(cfg.KBPath)
	if err != nil {
		return nil, err
	}
	cfg.KBPath = kbPath

	if cfg.State.Path != "" {
		statePath, err := ExpandPath(cfg.State.Path)
		if err != nil {
			return nil, err
		}
		cfg.State.Path = statePath
	}

	if err := cfg.Check(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Check checks the configuration for values the analyzers cannot use.
func (c *Config) Check() error {
	if c.KBPath == "" {
		return errors.New("kb_path cannot be empty")
	}
	if err := c.Namespaces.Facts.Validate(); err != nil {
		return fmt.Errorf("namespaces.facts: %w", err)
	}
	if err := c.Namespaces.Rules.Validate(); err != nil {
		return fmt.Errorf("namespaces.rules: %w", err)
	}
	if c.Namespaces.Facts.Dir == c.Namespaces.Rules.Dir && c.Namespaces.Facts.Prefix == c.Namespaces.Rules.Prefix {
		return errors.New("fact and rule namespaces cannot share both directory and prefix")
	}
	if !slices.Contains(CompareModes, c.Scan.Compare) {
		return fmt.Errorf("scan.compare: unknown mode %q (available: %s)", c.Scan.Compare, strings.Join(CompareModes, ", "))
	}
	if !slices.Contains(Backends, c.State.Backend) {
		return fmt.Errorf("state.backend: unknown backend %q (available: %s)", c.State.Backend, strings.Join(Backends, ", "))
	}
	if c.State.MaxRecords < 1 {
		return fmt.Errorf("state.max_records must be positive, got %d", c.State.MaxRecords)
	}
	if c.Delta.SimilarityThreshold < 0 || c.Delta.SimilarityThreshold > 1 {
		return fmt.Errorf("delta.similarity_threshold must be between 0 and 1, got %v", c.Delta.SimilarityThreshold)
	}
	if c.Delta.DiffContext < 0 {
		return fmt.Errorf("delta.diff_context cannot be negative, got %d", c.Delta.DiffContext)
	}
	return nil
}

// StatePath returns the history location, derived from kb_path when unset.
func (c *Config) StatePath() string {
	if c.State.Path != "" {
		return c.State.Path
	}
	name := "state.json"
	if c.State.Backend == "badger" {
		name = "state.db"
	}
	return filepath.Join(c.KBPath, StateDirName, name)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	// Check XDG_CONFIG_HOME first
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists and returns its path.
// An existing config file is left untouched.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	// Check if config file already exists
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# kbsense Knowledge Base Analyzer Configuration

# Knowledge-base root containing the fact and rule directories
kb_path: %s

# Artifact namespaces. Files are named <prefix><id><ext>.
namespaces:
  facts:
    name: fact
    dir: facts
    prefix: fact
    ext: .txt
  rules:
    name: rule
    dir: rules
    prefix: rule
    ext: .txt

# Change detection
scan:
  extension: %s
  exclude:
    - "*.tmp"
    - "*.bak"
    - ".*"
  # Comparison mode: metadata (hash, size or mtime) or content (hash only)
  compare: %s

# Scan history
state:
  # Backend: json, badger or memory
  backend: %s
  # State location (empty means <kb_path>/.kbsense/state.json)
  path: ""
  max_records: %d

trend:
  window: %d

# Pair analysis
delta:
  similarity_threshold: %.1f
  diff_context: %d

# Thresholds used by the validate command
validate:
  max_change_rate: %.1f
  min_average_similarity: %.1f

output:
  # Output format: pretty, plain, json, yaml
  format: %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/kbsense/kbsense.log)
  path: ""
  rotation:
    max_size: %s
    max_backups: %d
  # Per-component log levels
  components:
    scanner: info
    history: info
    pairs: info
`, DefaultKBPath, DefaultExtension, DefaultCompare, DefaultBackend, DefaultMaxRecords,
		DefaultTrendWindow, DefaultSimilarityThreshold, DefaultDiffContext,
		DefaultMaxChangeRate, DefaultMinAverageSimilarity, DefaultFormat,
		DefaultLogMaxSize, DefaultLogMaxBackups)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// StateDir returns $XDG_STATE_HOME/kbsense/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), AppName+".log")
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
