package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesainslie/kbsense/pkg/kbsense/changes"
	"github.com/jamesainslie/kbsense/pkg/kbsense/config"
	"github.com/jamesainslie/kbsense/pkg/kbsense/detector"
	"github.com/jamesainslie/kbsense/pkg/kbsense/history"
	"github.com/jamesainslie/kbsense/pkg/kbsense/kb"
	"github.com/jamesainslie/kbsense/pkg/kbsense/output"
	"github.com/jamesainslie/kbsense/pkg/kbsense/pairs"
	"github.com/jamesainslie/kbsense/pkg/kbsense/scanner"
	"github.com/spf13/viper"
)

// namespaces returns the fact and rule namespaces, in scan order.
func namespaces(cfg *config.Config) []kb.Namespace {
	return []kb.Namespace{cfg.Namespaces.Facts, cfg.Namespaces.Rules}
}

// newScanner builds the fingerprint scanner for the configured knowledge base.
func newScanner(cfg *config.Config) (*scanner.Scanner, error) {
	return scanner.New(scanner.Options{
		Root:       cfg.KBPath,
		Namespaces: namespaces(cfg),
		Extension:  cfg.Scan.Extension,
		Exclude:    cfg.Scan.Exclude,
	})
}

// openDetector opens the history store and builds a detector on top of it.
// The caller closes the returned store.
func openDetector(cfg *config.Config) (*detector.Detector, history.Store, error) {
	mode, err := changes.ParseMode(cfg.Scan.Compare)
	if err != nil {
		return nil, nil, err
	}

	sc, err := newScanner(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := history.Open(cfg.State.Backend, cfg.StatePath(), cfg.State.MaxRecords)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history: %w", err)
	}
	printVerbose("History: %s (%s)", cfg.StatePath(), cfg.State.Backend)

	det, err := detector.New(detector.Options{
		Scanner:     sc,
		Store:       store,
		Mode:        mode,
		MaxRecords:  cfg.State.MaxRecords,
		TrendWindow: cfg.Trend.Window,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return det, store, nil
}

// closeStore closes store, reporting failures without failing the command.
func closeStore(store history.Store) {
	if err := store.Close(); err != nil {
		printError("closing history: %v", err)
	}
}

// newResolver builds the fact/rule pair resolver.
func newResolver(cfg *config.Config) (*pairs.Resolver, error) {
	return pairs.New(cfg.KBPath, cfg.Namespaces.Facts, cfg.Namespaces.Rules,
		pairs.WithThreshold(cfg.Delta.SimilarityThreshold),
		pairs.WithDiffContext(cfg.Delta.DiffContext),
	)
}

// selectFormatter returns the formatter named by the output setting.
func selectFormatter(cfg *config.Config) (output.Formatter, error) {
	name := viper.GetString("output.format")
	if name == "" {
		name = cfg.Output.Format
	}
	if name == "" {
		name = config.DefaultFormat
	}

	if name == "template" {
		tmplStr := viper.GetString("template")
		if tmplStr == "" {
			return nil, errors.New("--template is required when using -o template")
		}
		return output.NewTemplateFormatter(tmplStr), nil
	}

	formatter, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", name, output.Available())
	}
	return formatter, nil
}

// render formats result and writes it to w in one piece.
func render(w io.Writer, formatter output.Formatter, result *output.Result) error {
	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// signalContext returns a context cancelled on interrupt or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx, cancel
}
