package main

import (
	"fmt"

	"github.com/jamesainslie/kbsense/pkg/kbsense/output"
	"github.com/jamesainslie/kbsense/pkg/kbsense/report"
	"github.com/spf13/cobra"
)

var deltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "Check fact/rule pair consistency",
	Long: `Pair every fact<N> with rule<N> and check each pair for completeness
and content similarity.

Pairs missing one side are listed as incomplete. Complete pairs scoring below
delta.similarity_threshold are listed as low similarity. Use --detail to
inspect one pair with its word overlap and a line diff.`,
	Example: `  kbsense delta
  kbsense delta --detail 3
  kbsense -o csv delta`,
	Args: cobra.NoArgs,
	RunE: runDelta,
}

func init() {
	deltaCmd.Flags().Int("detail", 0, "show the analysis of one pair id")
	deltaCmd.Flags().String("save", "", "write the full report as JSON to this file")
	rootCmd.AddCommand(deltaCmd)
}

func runDelta(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatter, err := selectFormatter(cfg)
	if err != nil {
		return err
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	delta, err := resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	result := &output.Result{
		Command: "delta",
		KBPath:  cfg.KBPath,
		Delta:   delta,
	}

	if cmd.Flags().Changed("detail") {
		id, _ := cmd.Flags().GetInt("detail")
		pair, ok := delta.Pair(id)
		if !ok {
			return fmt.Errorf("no fact or rule with id %d", id)
		}
		result.Detail = pair
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := report.Save(path, delta); err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		printInfo("Report saved to %s", path)
	}

	return render(cmd.OutOrStdout(), formatter, result)
}
