package main

import (
	"github.com/jamesainslie/kbsense/cmd/kbsense/tui"
	"github.com/spf13/cobra"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Browse fact/rule pairs interactively",
	Long: `Open an interactive browser over the fact/rule pairs.

Keys:
  ↑/↓ j/k   move through the pairs
  enter     show the pair with its word overlap and line diff
  f         toggle showing only pairs with issues
  r         re-run the analysis
  esc       go back
  q         quit`,
	Args: cobra.NoArgs,
	RunE: runExplore,
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(_ *cobra.Command, _ []string) error {
	// Keep stderr clear while the TUI owns the screen.
	if err := setupLogging(true); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}

	return tui.Run(tui.Options{
		Root:    cfg.KBPath,
		Resolve: resolver.Resolve,
	})
}
