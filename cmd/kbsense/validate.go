package main

import (
	"fmt"
	"time"

	"github.com/jamesainslie/kbsense/pkg/kbsense/output"
	"github.com/jamesainslie/kbsense/pkg/kbsense/report"
	"github.com/spf13/cobra"
)

// exitError carries a process exit code for a command whose output has
// already been printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run gamma and delta sensing and assess the knowledge base",
	Long: `Run a change-detection scan and a pair analysis, then assess the results:

  - a change rate above validate.max_change_rate fails with "High change rate detected"
  - any incomplete pair fails with "N incomplete pairs"
  - an average similarity below validate.min_average_similarity fails with
    "Low average content similarity"

The command exits with status 1 when the assessment fails, so it can gate
a pipeline.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().String("save", "", "write the combined report as JSON to this file")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatter, err := selectFormatter(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	det, store, err := openDetector(cfg)
	if err != nil {
		return err
	}
	gamma, err := det.Scan(ctx)
	closeStore(store)
	if err != nil {
		return err
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}
	delta, err := resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	assessment := report.Assess(gamma, delta, report.Thresholds{
		MaxChangeRate:        cfg.Validate.MaxChangeRate,
		MinAverageSimilarity: cfg.Validate.MinAverageSimilarity,
	}, time.Now())

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := report.Save(path, assessment); err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		printInfo("Report saved to %s", path)
	}

	if err := render(cmd.OutOrStdout(), formatter, &output.Result{
		Command:    "validate",
		KBPath:     cfg.KBPath,
		Validation: assessment,
	}); err != nil {
		return err
	}

	if !assessment.Passed() {
		return &exitError{code: 1}
	}
	return nil
}
