package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/Veraticus/spice-sift/internal/cli"
	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/service"
	"github.com/spf13/cobra"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize stored uncategorized transactions with the active rules",
		RunE:  runCategorize,
	}

	cmd.Flags().Int("workers", 0, "Number of parallel workers (default: categorize.workers)")
	cmd.Flags().Bool("dry-run", false, "Show how many would be categorized without saving")

	return cmd
}

type categorizeSummary struct {
	Considered  int
	Categorized int
	ByCategory  map[string]int
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	workers, _ := cmd.Flags().GetInt("workers")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if workers <= 0 {
		workers = settings.Workers
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	var progress io.Writer
	if !dryRun {
		progress = cmd.ErrOrStderr()
	}
	summary, err := categorizeStored(ctx, store, workers, dryRun, progress)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	verb := "Categorized"
	if dryRun {
		verb = "Would categorize"
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s %d of %d uncategorized transactions",
		verb, summary.Categorized, summary.Considered)))
	for _, category := range slices.Sorted(maps.Keys(summary.ByCategory)) {
		fmt.Fprintf(out, "  %s: %d\n", category, summary.ByCategory[category])
	}
	return nil
}

// categorizeStored runs the active rules over every uncategorized stored
// transaction.
func categorizeStored(ctx context.Context, store service.Storage, workers int, dryRun bool, progress io.Writer) (categorizeSummary, error) {
	summary := categorizeSummary{ByCategory: make(map[string]int)}

	txns, err := store.GetTransactions(ctx, service.TransactionFilter{UncategorizedOnly: true})
	if err != nil {
		return summary, fmt.Errorf("failed to load transactions: %w", err)
	}
	summary.Considered = len(txns)

	activeRules, err := store.GetRules(ctx, true)
	if err != nil {
		return summary, fmt.Errorf("failed to load rules: %w", err)
	}
	common.LogInfo("Categorizing transactions", common.Fields{
		"transactions": len(txns),
		"rules":        len(activeRules),
		"workers":      workers,
	})
	if len(txns) == 0 || len(activeRules) == 0 {
		return summary, nil
	}

	results := newEngine(activeRules, workers).CategorizeMany(txns)
	for _, res := range results {
		if res != nil {
			summary.Categorized++
			summary.ByCategory[res.CategoryID]++
		}
	}

	if dryRun {
		return summary, nil
	}
	return summary, applyResults(ctx, store, txns, results, progress)
}
