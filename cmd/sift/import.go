package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/spice-sift/internal/cli"
	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/dedupe"
	"github.com/Veraticus/spice-sift/internal/fingerprint"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/Veraticus/spice-sift/internal/rules"
	"github.com/Veraticus/spice-sift/internal/service"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import transactions from a JSON file",
		Long: `Import a JSON array of transactions into the local database.

Records already stored are recognized by fingerprint and skipped. New
transactions are categorized with the active rules before they are saved.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("dry-run", false, "Show what would be imported without saving")

	return cmd
}

type importOptions struct {
	progress               io.Writer // Nil disables the progress bar
	NearDuplicateThreshold float64
	Workers                int
	DryRun                 bool
}

type importSummary struct {
	Total           int
	Unique          int
	ExactDuplicates int
	NearDuplicates  int
	Categorized     int
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	txns, rejected, err := readRecordsFile(args[0])
	if err != nil {
		return err
	}
	for _, rerr := range rejected {
		slog.Warn("Skipping invalid record", "index", rerr.Index, "error", rerr.Err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	summary, err := importTransactions(ctx, store, txns, importOptions{
		NearDuplicateThreshold: settings.NearDuplicateThreshold,
		Workers:                settings.Workers,
		DryRun:                 dryRun,
		progress:               cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	title := "Import complete"
	if dryRun {
		title = "Import preview (nothing saved)"
	}
	fmt.Fprintln(out, cli.RenderBox(title, fmt.Sprintf(
		"records:          %d\nrejected:         %d\nnew:              %d\nexact duplicates: %d\nnear duplicates:  %d\ncategorized:      %d",
		summary.Total+len(rejected), len(rejected), summary.Unique,
		summary.ExactDuplicates, summary.NearDuplicates, summary.Categorized)))
	return nil
}

// importTransactions deduplicates txns against stored transactions from the
// same date range, categorizes the new ones and saves them.
func importTransactions(ctx context.Context, store service.Storage, txns []model.Transaction, opts importOptions) (importSummary, error) {
	summary := importSummary{Total: len(txns)}
	if len(txns) == 0 {
		return summary, common.ErrNoTransactions
	}

	start, end := dateSpan(txns)
	existing, err := store.GetTransactions(ctx, service.TransactionFilter{Start: start, End: end})
	if err != nil {
		return summary, fmt.Errorf("failed to load stored transactions: %w", err)
	}

	classification := dedupe.NewDetector(opts.NearDuplicateThreshold).Classify(txns, existing)
	for _, dup := range classification.Duplicates {
		switch dup.Verdict.Kind {
		case dedupe.ExactDuplicate:
			summary.ExactDuplicates++
		case dedupe.NearDuplicate:
			summary.NearDuplicates++
		case dedupe.Unique:
		}
		slog.Debug("Skipping duplicate",
			"id", dup.Transaction.ID,
			"kind", dup.Verdict.Kind,
			"existing_id", dup.Verdict.ExistingID,
			"score", dup.Verdict.Score)
	}

	unique := classification.Unique
	summary.Unique = len(unique)
	if len(unique) == 0 {
		return summary, nil
	}

	for i, fp := range fingerprint.Batch(unique) {
		unique[i].Fingerprint = fp
	}

	activeRules, err := store.GetRules(ctx, true)
	if err != nil {
		return summary, fmt.Errorf("failed to load rules: %w", err)
	}
	engine := newEngine(activeRules, opts.Workers)
	results := engine.CategorizeMany(unique)
	for _, res := range results {
		if res != nil {
			summary.Categorized++
		}
	}

	if opts.DryRun {
		return summary, nil
	}

	if err := store.SaveTransactions(ctx, unique); err != nil {
		return summary, fmt.Errorf("failed to save transactions: %w", err)
	}
	if err := applyResults(ctx, store, unique, results, opts.progress); err != nil {
		return summary, err
	}

	slog.Info("Imported transactions",
		"new", summary.Unique,
		"exact_duplicates", summary.ExactDuplicates,
		"near_duplicates", summary.NearDuplicates,
		"categorized", summary.Categorized)
	return summary, nil
}

// newEngine builds a rule engine, logging rules whose patterns never match.
func newEngine(activeRules []model.Rule, workers int) *rules.Engine {
	engine := rules.NewEngine(activeRules, rules.WithWorkers(workers))
	for _, rule := range engine.InvalidPatterns() {
		common.LogDebug("Rule pattern does not compile and will never match", common.Fields{
			"rule_id": rule.ID,
			"pattern": rule.Condition.Value,
		})
	}
	return engine
}

// applyResults writes each non-nil categorization to storage. results[i]
// belongs to txns[i].
func applyResults(ctx context.Context, store service.Storage, txns []model.Transaction, results []*model.CategorizationResult, progress io.Writer) error {
	var bar *cli.Progress
	if progress != nil {
		bar = cli.NewProgress(progress, len(txns), "Saving categories...")
		defer bar.Finish()
	}

	for i, txn := range txns {
		bar.Add(1)
		res := results[i]
		if res == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.UpdateTransactionCategory(ctx, txn.ID, res.CategoryID, res.Confidence); err != nil {
			return fmt.Errorf("failed to categorize transaction %s: %w", txn.ID, err)
		}
	}
	return nil
}
