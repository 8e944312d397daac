package main

import (
	"fmt"
	"os"

	"github.com/jamesainslie/kbsense/pkg/kbsense/config"
	"github.com/jamesainslie/kbsense/pkg/kbsense/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// configErr holds a failure from initConfig, reported by the first command.
	configErr error

	rootCmd = &cobra.Command{
		Use:   "kbsense",
		Short: "Sense changes and consistency in a fact/rule knowledge base",
		Long: `kbsense watches a knowledge base of paired fact and rule files.

Gamma sensing fingerprints every tracked file and reports what was added,
deleted or modified since the previous scan, with change-rate trends.
Delta sensing pairs fact<N> with rule<N> and checks each pair for
completeness and content similarity.

Examples:
  kbsense gamma                  # Detect changes since the last scan
  kbsense delta                  # Check fact/rule pair consistency
  kbsense delta --detail 3       # Inspect pair 3 with a line diff
  kbsense status                 # Quick overview of the knowledge base
  kbsense validate               # Run both checks, exit 1 on issues
  kbsense explore                # Browse pairs interactively
  kbsense -o json gamma          # Machine-readable output`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  initializeLogging,
		PersistentPostRunE: closeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/kbsense/config.yaml)")
	rootCmd.PersistentFlags().StringP("kb-path", "k", "", "knowledge-base root directory")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (pretty, plain, json, yaml, template, csv, tsv, markdown, paths)")
	rootCmd.PersistentFlags().String("template", "", "go template used with -o template")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
}

// initConfig reads in config file and environment variables, then binds
// the persistent flags so that set flags override both.
func initConfig() {
	v := viper.GetViper()
	configErr = config.Configure(v, cfgFile)

	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("kb_path", flags.Lookup("kb-path"))
	_ = v.BindPFlag("output.format", flags.Lookup("output"))
	_ = v.BindPFlag("template", flags.Lookup("template"))
	_ = v.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
}

// loadConfig decodes the configuration prepared by initConfig.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.Decode(viper.GetViper())
}

// initializeLogging configures file logging from the config, with console
// output at debug level when --verbose is set. Logging failures are
// reported but never stop a command.
func initializeLogging(_ *cobra.Command, _ []string) error {
	return setupLogging(false)
}

// setupLogging initializes logging; tuiMode keeps stderr clear for a TUI.
func setupLogging(tuiMode bool) error {
	// Commands report config errors themselves; logging falls back to defaults.
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.Default()
	}

	rotation, err := logging.ParseRotation(cfg.Logging.Rotation.MaxSize, cfg.Logging.Rotation.MaxBackups)
	if err != nil {
		printError("%v (using default rotation)", err)
		rotation = logging.DefaultRotationConfig()
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   rotation,
		Components: cfg.Logging.Components,
		TUIMode:    tuiMode,
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		printError("logging disabled: %v", err)
	}
	return nil
}

// closeLogging flushes the log file.
func closeLogging(_ *cobra.Command, _ []string) error {
	return logging.Close()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message to stderr if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
