package main

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/kbsense/pkg/kbsense/detector"
	"github.com/jamesainslie/kbsense/pkg/kbsense/output"
	"github.com/jamesainslie/kbsense/pkg/kbsense/trend"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded scans and change-rate trends",
	Long: `View the scans recorded by gamma, status and validate, oldest first,
with the change-rate trend over the latest --window scans.

The history is capped at state.max_records; older scans are dropped.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show the changes recorded by one scan",
	Long:  `Display the changes recorded by one scan. A unique id prefix is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var (
	historyLimit  int
	historyWindow int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of scans to show (0 for all)")
	historyCmd.Flags().IntVarP(&historyWindow, "window", "w", 0, "scans used for the trend (default: trend.window)")

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
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

	records, err := det.History(ctx)
	if err != nil {
		return err
	}
	tr, err := det.Trends(ctx, historyWindow)
	if err != nil {
		return err
	}

	if historyLimit > 0 && len(records) > historyLimit {
		records = records[len(records)-historyLimit:]
	}
	if len(records) == 0 {
		printInfo("No scans recorded in %s", cfg.StatePath())
	}

	return render(cmd.OutOrStdout(), formatter, &output.Result{
		Command: "history",
		KBPath:  cfg.KBPath,
		History: records,
		Trend:   &tr,
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
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

	records, err := det.History(ctx)
	if err != nil {
		return err
	}

	i, err := findRecord(records, args[0])
	if err != nil {
		return err
	}

	// The trend is the one reported when the scan ran.
	return render(cmd.OutOrStdout(), formatter, &output.Result{
		Command: "history show",
		KBPath:  cfg.KBPath,
		Gamma: &detector.Result{
			Record: records[i],
			Trend:  trend.Analyze(records[:i+1], cfg.Trend.Window),
			Saved:  true,
		},
	})
}

// findRecord returns the index of the record whose id starts with prefix.
func findRecord(records []types.ScanRecord, prefix string) (int, error) {
	var matches []int
	for i, r := range records {
		if r.ID == prefix {
			return i, nil
		}
		if prefix != "" && strings.HasPrefix(r.ID, prefix) {
			matches = append(matches, i)
		}
	}

	switch len(matches) {
	case 0:
		return -1, fmt.Errorf("no scan with id %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return -1, fmt.Errorf("id %q is ambiguous: %d scans match", prefix, len(matches))
	}
}
