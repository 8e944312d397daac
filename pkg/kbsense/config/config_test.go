package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Use a temp directory that doesn't have a config file
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultKBPath, cfg.KBPath)
	assert.Equal(t, "facts", cfg.Namespaces.Facts.Dir)
	assert.Equal(t, "fact", cfg.Namespaces.Facts.Prefix)
	assert.Equal(t, ".txt", cfg.Namespaces.Facts.Ext)
	assert.Equal(t, "rules", cfg.Namespaces.Rules.Dir)
	assert.Equal(t, "rule", cfg.Namespaces.Rules.Prefix)
	assert.Equal(t, DefaultExtension, cfg.Scan.Extension)
	assert.Equal(t, DefaultExclusions, cfg.Scan.Exclude)
	assert.Equal(t, DefaultCompare, cfg.Scan.Compare)
	assert.Equal(t, DefaultBackend, cfg.State.Backend)
	assert.Equal(t, DefaultMaxRecords, cfg.State.MaxRecords)
	assert.Equal(t, DefaultTrendWindow, cfg.Trend.Window)
	assert.InDelta(t, DefaultSimilarityThreshold, cfg.Delta.SimilarityThreshold, 1e-9)
	assert.Equal(t, DefaultDiffContext, cfg.Delta.DiffContext)
	assert.InDelta(t, DefaultMaxChangeRate, cfg.Validate.MaxChangeRate, 1e-9)
	assert.Equal(t, DefaultFormat, cfg.Output.Format)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultLogMaxSize, cfg.Logging.Rotation.MaxSize)
	assert.Equal(t, "info", cfg.Logging.Components["scanner"])
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", AppName)
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	configContent := `
kb_path: /srv/knowledge
namespaces:
  rules:
    dir: policies
    prefix: policy
scan:
  compare: content
  exclude:
    - "draft*"
state:
  backend: badger
  max_records: 20
delta:
  similarity_threshold: 0.7
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644))

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/knowledge", cfg.KBPath)
	assert.Equal(t, "policies", cfg.Namespaces.Rules.Dir)
	assert.Equal(t, "policy", cfg.Namespaces.Rules.Prefix)
	assert.Equal(t, ".txt", cfg.Namespaces.Rules.Ext, "unset keys keep defaults")
	assert.Equal(t, "content", cfg.Scan.Compare)
	assert.Equal(t, []string{"draft*"}, cfg.Scan.Exclude)
	assert.Equal(t, "badger", cfg.State.Backend)
	assert.Equal(t, 20, cfg.State.MaxRecords)
	assert.InDelta(t, 0.7, cfg.Delta.SimilarityThreshold, 1e-9)
	assert.Equal(t, filepath.Join("/srv/knowledge", StateDirName, "state.db"), cfg.StatePath())
}

func TestLoad_XDGConfigHome(t *testing.T) {
	xdgDir := t.TempDir()
	configDir := filepath.Join(xdgDir, AppName)
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("kb_path: xdg-kb\n"), 0o644))

	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", xdgDir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "xdg-kb", cfg.KBPath)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("KBSENSE_KB_PATH", "/env/kb")
	t.Setenv("KBSENSE_STATE_BACKEND", "memory")
	t.Setenv("KBSENSE_DELTA_SIMILARITY_THRESHOLD", "0.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/env/kb", cfg.KBPath)
	assert.Equal(t, "memory", cfg.State.Backend)
	assert.InDelta(t, 0.25, cfg.Delta.SimilarityThreshold, 1e-9)
}

func TestLoad_InvalidFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", AppName)
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("kb_path: [unclosed\n"), 0o644))

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestConfigure_ExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: json\n"), 0o644))

	v := viper.New()
	require.NoError(t, Configure(v, path))

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, DefaultKBPath, cfg.KBPath)
}

func TestConfig_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid"},
		{name: "empty kb path", mutate: func(c *Config) { c.KBPath = "" }, wantErr: "kb_path"},
		{name: "unknown compare", mutate: func(c *Config) { c.Scan.Compare = "fuzzy" }, wantErr: "scan.compare"},
		{name: "unknown backend", mutate: func(c *Config) { c.State.Backend = "sqlite" }, wantErr: "state.backend"},
		{name: "zero max records", mutate: func(c *Config) { c.State.MaxRecords = 0 }, wantErr: "max_records"},
		{name: "threshold above one", mutate: func(c *Config) { c.Delta.SimilarityThreshold = 1.5 }, wantErr: "similarity_threshold"},
		{name: "negative diff context", mutate: func(c *Config) { c.Delta.DiffContext = -1 }, wantErr: "diff_context"},
		{name: "missing prefix", mutate: func(c *Config) { c.Namespaces.Rules.Prefix = "" }, wantErr: "namespaces.rules"},
		{
			name: "identical namespaces",
			mutate: func(c *Config) {
				c.Namespaces.Rules.Dir = c.Namespaces.Facts.Dir
				c.Namespaces.Rules.Prefix = c.Namespaces.Facts.Prefix
			},
			wantErr: "cannot share",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			err := cfg.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_StatePath(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.KBPath = "/data/kb"
	assert.Equal(t, filepath.Join("/data/kb", ".kbsense", "state.json"), cfg.StatePath())

	cfg.State.Backend = "badger"
	assert.Equal(t, filepath.Join("/data/kb", ".kbsense", "state.db"), cfg.StatePath())

	cfg.State.Path = "/elsewhere/state.json"
	assert.Equal(t, "/elsewhere/state.json", cfg.StatePath())
}

func TestWriteDefault(t *testing.T) {
	xdgDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgDir)

	path, err := WriteDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(xdgDir, AppName, "config.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "similarity_threshold: 0.5")
	assert.Contains(t, string(data), "max_change_rate: 0.2")

	// The written file loads back to the defaults.
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	// A second call leaves the existing file alone.
	require.NoError(t, os.WriteFile(path, []byte("kb_path: mine\n"), 0o644))
	_, err = WriteDefault()
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "kb_path: mine\n", string(data))
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/kb")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "kb"), got)

	got, err = ExpandPath("/abs/kb")
	require.NoError(t, err)
	assert.Equal(t, "/abs/kb", got)
}
