package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jamesainslie/kbsense/pkg/kbsense/config"
	"github.com/jamesainslie/kbsense/pkg/kbsense/kb"
	"github.com/jamesainslie/kbsense/pkg/kbsense/output"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a quick overview of the knowledge base",
	Long: `Show whether the knowledge-base directories exist, how many files each
holds, and a one-line summary of gamma and delta sensing.

The gamma summary runs a scan, which is recorded in the history like any
other. Use --no-scan to leave the history untouched.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("no-scan", false, "skip the change-detection scan")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
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

	result := &output.Result{
		Command: "status",
		KBPath:  cfg.KBPath,
	}

	st, missing := collectStatus(ctx, cfg)
	result.Status = st
	for _, label := range missing {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s directory not found", label))
	}

	// Both analyzers need every namespace; report the missing ones instead.
	if len(missing) > 0 {
		return render(cmd.OutOrStdout(), formatter, result)
	}

	if noScan, _ := cmd.Flags().GetBool("no-scan"); !noScan {
		det, store, err := openDetector(cfg)
		if err != nil {
			return err
		}
		gamma, err := det.Scan(ctx)
		closeStore(store)
		if err != nil {
			return err
		}
		result.Gamma = gamma
		st.RecentChanges = gamma.Record.Metrics.TotalChanges
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}
	delta, err := resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	result.Delta = delta

	return render(cmd.OutOrStdout(), formatter, result)
}

// collectStatus inspects the knowledge-base directories and counts the
// tracked files in each namespace. It returns the labels of the missing
// namespace directories.
func collectStatus(ctx context.Context, cfg *config.Config) (*output.StatusInfo, []string) {
	st := &output.StatusInfo{}

	_, statErr := os.Stat(cfg.KBPath)
	st.Dirs = append(st.Dirs, output.DirStatus{
		Label:  "Knowledge base",
		Path:   cfg.KBPath,
		Exists: statErr == nil,
	})

	var missing []string
	lister := kb.WalkLister{}
	for i, ns := range namespaces(cfg) {
		dir := output.DirStatus{
			Label:  namespaceLabel(ns),
			Path:   ns.Root(cfg.KBPath),
			Exists: true,
		}

		ext := cfg.Scan.Extension
		if ext == "" {
			ext = ns.Ext
		}
		paths, err := lister.List(ctx, dir.Path, func(name string) bool {
			return strings.HasSuffix(name, ext)
		})
		switch {
		case errors.Is(err, types.ErrNamespaceNotFound):
			dir.Exists = false
			missing = append(missing, dir.Label)
		case err != nil:
			printVerbose("Counting %s: %v", dir.Path, err)
		default:
			dir.Files = len(paths)
		}

		if i == 0 {
			st.FactFiles = dir.Files
		} else {
			st.RuleFiles = dir.Files
		}
		st.Dirs = append(st.Dirs, dir)
	}

	st.TotalFiles = st.FactFiles + st.RuleFiles
	return st, missing
}

// namespaceLabel returns the display label for ns, e.g. "Facts".
func namespaceLabel(ns kb.Namespace) string {
	name := ns.Dir
	if name == "" {
		name = ns.Name
	}
	if name == "" {
		return "Namespace"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
