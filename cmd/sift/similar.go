package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Veraticus/spice-sift/internal/cli"
	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/dedupe"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/Veraticus/spice-sift/internal/service"
	"github.com/spf13/cobra"
)

func similarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <transaction-id>",
		Short: "List stored transactions similar to one transaction",
		Long: `Rank stored uncategorized transactions by similarity to the given one.

With --apply, the target's category is written to every listed transaction,
which makes it quick to categorize a recurring merchant in bulk.`,
		Args: cobra.ExactArgs(1),
		RunE: runSimilar,
	}

	cmd.Flags().Float64("threshold", -1, "Minimum similarity score (default: similar.threshold)")
	cmd.Flags().Bool("include-categorized", false, "Also consider transactions that already have a category")
	cmd.Flags().Bool("apply", false, "Assign the target's category to every match")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation with --apply")

	return cmd
}

var errTargetUncategorized = errors.New("target transaction is uncategorized")

func runSimilar(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	includeCategorized, _ := cmd.Flags().GetBool("include-categorized")
	apply, _ := cmd.Flags().GetBool("apply")
	yes, _ := cmd.Flags().GetBool("yes")

	opts := dedupe.DefaultSimilarOptions()
	opts.Threshold = settings.SimilarThreshold
	if threshold >= 0 {
		opts.Threshold = threshold
	}
	opts.IncludeCategorized = includeCategorized

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	target, matches, err := findSimilar(ctx, store, args[0], opts)
	if err != nil {
		return err
	}
	if apply {
		if err := requireCategorized(target); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if len(matches) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No similar transactions found."))
		return nil
	}
	if err := writeMatches(out, matches); err != nil {
		return err
	}

	if !apply {
		return nil
	}
	if !yes {
		ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), out,
			fmt.Sprintf("Apply category to %d transactions?", len(matches)))
		if err != nil || !ok {
			return err
		}
	}

	categoryID, err := applySimilar(ctx, store, args[0], matches)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Categorized %d transactions as %s", len(matches), categoryID)))
	return nil
}

// findSimilar ranks stored transactions against the one with targetID and
// returns the target alongside the matches.
func findSimilar(ctx context.Context, store service.Storage, targetID string, opts dedupe.SimilarOptions) (*model.Transaction, []dedupe.Match, error) {
	target, err := store.GetTransactionByID(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}

	candidates, err := store.GetTransactions(ctx, service.TransactionFilter{UncategorizedOnly: !opts.IncludeCategorized})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load stored transactions: %w", err)
	}

	return target, dedupe.FindSimilar(*target, candidates, opts), nil
}

// requireCategorized rejects a target that has no category to hand out.
func requireCategorized(target *model.Transaction) error {
	if target.IsCategorized() {
		return nil
	}
	return common.NewUserError(
		fmt.Sprintf("transaction %s has no category to apply; categorize it first", target.ID),
		errTargetUncategorized)
}

// applySimilar copies the target's category onto every match, recording the
// similarity score as confidence.
func applySimilar(ctx context.Context, store service.Storage, targetID string, matches []dedupe.Match) (string, error) {
	target, err := store.GetTransactionByID(ctx, targetID)
	if err != nil {
		return "", err
	}
	if err := requireCategorized(target); err != nil {
		return "", err
	}

	for _, m := range matches {
		if err := store.UpdateTransactionCategory(ctx, m.Transaction.ID, target.CategoryID, m.Result.Score); err != nil {
			return "", fmt.Errorf("failed to categorize transaction %s: %w", m.Transaction.ID, err)
		}
	}
	return target.CategoryID, nil
}

func writeMatches(out io.Writer, matches []dedupe.Match) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("SCORE"),
		cli.HeaderStyle.Render("ID"),
		cli.HeaderStyle.Render("DATE"),
		cli.HeaderStyle.Render("MERCHANT"),
		cli.HeaderStyle.Render("AMOUNT")); err != nil {
		return err
	}
	for _, m := range matches {
		txn := m.Transaction
		if _, err := fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\t%s %s\n",
			m.Result.Score, txn.ID, txn.Day(), txn.Merchant, txn.Amount.StringFixed(2), txn.Currency); err != nil {
			return err
		}
	}
	return w.Flush()
}
