package main

import (
	"fmt"

	"github.com/jamesainslie/kbsense/pkg/kbsense/output"
	"github.com/jamesainslie/kbsense/pkg/kbsense/report"
	"github.com/spf13/cobra"
)

var gammaCmd = &cobra.Command{
	Use:   "gamma",
	Short: "Detect changes since the previous scan",
	Long: `Fingerprint every tracked fact and rule file and compare the result
against the baseline stored by the previous scan.

The scan is recorded in the history and becomes the new baseline. On a first
run every file is reported as new.`,
	Args: cobra.NoArgs,
	RunE: runGamma,
}

func init() {
	gammaCmd.Flags().String("save", "", "write the full report as JSON to this file")
	rootCmd.AddCommand(gammaCmd)
}

func runGamma(cmd *cobra.Command, _ []string) error {
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
	defer closeStore(store)

	printVerbose("Scanning %s", cfg.KBPath)
	gamma, err := det.Scan(ctx)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := report.Save(path, gamma); err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		printInfo("Report saved to %s", path)
	}

	return render(cmd.OutOrStdout(), formatter, &output.Result{
		Command: "gamma",
		KBPath:  cfg.KBPath,
		Gamma:   gamma,
	})
}
