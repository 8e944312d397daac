// Package config provides configuration management for kbsense.
package config

// Default configuration values for kbsense.
const (
	// AppName names the config, data and state directories.
	AppName = "kbsense"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "KBSENSE"

	// DefaultKBPath is the knowledge-base root when none is specified.
	DefaultKBPath = "kb"

	// DefaultExtension is the file extension tracked by the scanner.
	DefaultExtension = ".txt"

	// DefaultCompare is the default change comparison mode.
	DefaultCompare = "metadata"

	// DefaultBackend is the default history backend.
	DefaultBackend = "json"

	// StateDirName is the directory under the knowledge-base root holding state.
	StateDirName = ".kbsense"

	// DefaultMaxRecords is the number of scan records kept in history.
	DefaultMaxRecords = 50

	// DefaultTrendWindow is the number of recent records used for trends.
	DefaultTrendWindow = 10

	// DefaultSimilarityThreshold is the score below which a pair is flagged.
	DefaultSimilarityThreshold = 0.5

	// DefaultDiffContext is the number of context lines in unified diffs.
	DefaultDiffContext = 3

	// DefaultMaxChangeRate is the change rate above which validation warns.
	DefaultMaxChangeRate = 0.2

	// DefaultMinAverageSimilarity is the average pair similarity below which validation warns.
	DefaultMinAverageSimilarity = 0.5

	// DefaultFormat is the default output format.
	DefaultFormat = "pretty"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MB"

	// DefaultLogMaxBackups is the number of rotated log files kept.
	DefaultLogMaxBackups = 5
)

// DefaultExclusions contains file-name globs excluded from scanning by default.
var DefaultExclusions = []string{
	"*.tmp",
	"*.bak",
	".*",
}

// Backends lists the supported history backends.
var Backends = []string{"json", "badger", "memory"}

// CompareModes lists the supported change comparison modes.
var CompareModes = []string{"metadata", "content"}
