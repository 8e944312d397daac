package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/kbsense/pkg/kbsense/logging"
	"github.com/jamesainslie/kbsense/pkg/kbsense/output"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// isolate points config, logging and home at temporary directories.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("KBSENSE_LOGGING_PATH", filepath.Join(home, "kbsense.log"))
	t.Cleanup(func() { _ = logging.Close() })
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// runCLI executes the root command with args and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	resetFlags(rootCmd)
	cfgFile = ""
	configErr = nil

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// runJSON executes the command with JSON output and decodes the result.
func runJSON(t *testing.T, args ...string) (*output.Result, error) {
	t.Helper()

	out, err := runCLI(t, append([]string{"-o", "json"}, args...)...)
	if out == "" {
		return nil, err
	}
	var result output.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	return &result, err
}

// writeKB creates a knowledge base from relative paths to contents.
func writeKB(t *testing.T, files map[string]string) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "kb")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "facts"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "rules"), 0o755))
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// consistentKB returns two complete pairs with identical facts and rules.
func consistentKB(t *testing.T) string {
	t.Helper()
	return writeKB(t, map[string]string{
		"facts/fact1.txt": "the sky is blue\n",
		"rules/rule1.txt": "the sky is blue\n",
		"facts/fact2.txt": "water boils at one hundred degrees\n",
		"rules/rule2.txt": "water boils at one hundred degrees\n",
	})
}
