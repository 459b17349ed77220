package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/spice-sift/internal/cli"
	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/Veraticus/spice-sift/internal/service"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
		Long: `Rules assign a category to transactions whose field satisfies a condition.
When several rules match, the one with the highest confidence wins; ties go to
the higher priority, then to the older rule.`,
	}

	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesToggleCmd("enable", true))
	cmd.AddCommand(rulesToggleCmd("disable", false))
	cmd.AddCommand(rulesTestCmd())

	return cmd
}

// withStorage opens storage for the duration of fn.
func withStorage(cmd *cobra.Command, fn func(ctx context.Context, store service.Storage) error) error {
	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)
	return fn(ctx, store)
}

type ruleInput struct {
	Name          string
	CategoryID    string
	Field         string
	Operator      string
	Value         string
	Confidence    float64
	Priority      int
	CaseSensitive bool
}

func rulesAddCmd() *cobra.Command {
	var in ruleInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a rule",
		Example: `  sift rules add --category coffee --field merchant --operator contains --value starbucks
  sift rules add --category rent --field amount --operator between --value 900,1100 --confidence 0.95`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd, func(ctx context.Context, store service.Storage) error {
				rule, err := addRule(ctx, store, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created rule %d: %s → %s", rule.ID, rule.Condition, rule.CategoryID)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Rule name")
	cmd.Flags().StringVar(&in.CategoryID, "category", "", "Category to assign (required)")
	cmd.Flags().StringVar(&in.Field, "field", string(model.FieldMerchant), "Transaction field to test")
	cmd.Flags().StringVar(&in.Operator, "operator", string(model.OpContains), "Comparison operator")
	cmd.Flags().StringVar(&in.Value, "value", "", "Value to compare against (required)")
	cmd.Flags().Float64Var(&in.Confidence, "confidence", 0.8, "Confidence between 0 and 1")
	cmd.Flags().IntVar(&in.Priority, "priority", 0, "Tie-break priority; higher wins")
	cmd.Flags().BoolVar(&in.CaseSensitive, "case-sensitive", false, "Compare text case-sensitively")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

// addRule validates in and stores it as an active rule.
func addRule(ctx context.Context, store service.Storage, in ruleInput) (model.Rule, error) {
	cond, err := model.NewCondition(model.Field(in.Field), model.Operator(in.Operator), in.Value, in.CaseSensitive)
	if err != nil {
		return model.Rule{}, common.NewUserError(
			fmt.Sprintf("fields: %v; operators: %v", model.Fields, model.Operators), err)
	}

	name := in.Name
	if name == "" {
		name = fmt.Sprintf("%s %s", in.CategoryID, cond)
	}

	rule, err := model.NewRule(name, in.CategoryID, cond, in.Confidence, in.Priority)
	if err != nil {
		return model.Rule{}, err
	}
	if err := store.CreateRule(ctx, &rule); err != nil {
		return model.Rule{}, err
	}
	return rule, nil
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			activeOnly, _ := cmd.Flags().GetBool("active")
			return withStorage(cmd, func(ctx context.Context, store service.Storage) error {
				list, err := store.GetRules(ctx, activeOnly)
				if err != nil {
					return fmt.Errorf("failed to get rules: %w", err)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No rules found. Use 'sift rules add' to create one."))
					return nil
				}
				return writeRules(cmd.OutOrStdout(), list)
			})
		},
	}

	cmd.Flags().Bool("active", false, "Only show active rules")

	return cmd
}

func writeRules(out io.Writer, list []model.Rule) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("ID"),
		cli.HeaderStyle.Render("CATEGORY"),
		cli.HeaderStyle.Render("CONDITION"),
		cli.HeaderStyle.Render("CONFIDENCE"),
		cli.HeaderStyle.Render("PRIORITY"),
		cli.HeaderStyle.Render("ACTIVE")); err != nil {
		return err
	}
	for _, r := range list {
		active := cli.SuccessStyle.Render("yes")
		if !r.IsActive {
			active = cli.SubtleStyle.Render("no")
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.CategoryID, r.Condition, r.Confidence, r.Priority, active); err != nil {
			return err
		}
	}
	return w.Flush()
}

func parseRuleID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("invalid rule ID %q", arg), common.ErrInvalidRecord)
	}
	return id, nil
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			return withStorage(cmd, func(ctx context.Context, store service.Storage) error {
				if err := store.DeleteRule(ctx, id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted rule %d", id)))
				return nil
			})
		},
	}
}

func rulesToggleCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <rule-id>",
		Short: fmt.Sprintf("%s a rule", map[bool]string{true: "Enable", false: "Disable"}[active]),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			return withStorage(cmd, func(ctx context.Context, store service.Storage) error {
				if err := store.SetRuleActive(ctx, id, active); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Rule %d %sd", id, use)))
				return nil
			})
		},
	}
}

type sampleInput struct {
	Date           string
	Merchant       string
	Description    string
	Amount         string
	Currency       string
	Type           string
	CounterpartyID string
}

func rulesTestCmd() *cobra.Command {
	var in sampleInput
	cmd := &cobra.Command{
		Use:     "test",
		Short:   "Show which active rules match a sample transaction",
		Example: `  sift rules test --merchant "STARBUCKS #123" --amount -4.50`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txn, err := in.transaction()
			if err != nil {
				return err
			}
			return withStorage(cmd, func(ctx context.Context, store service.Storage) error {
				matched, result, err := testRules(ctx, store, txn)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(matched) == 0 {
					fmt.Fprintln(out, cli.FormatInfo("No active rule matches."))
					return nil
				}
				if err := writeRules(out, matched); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Winner: rule %d → %s (confidence %.2f)",
					result.MatchedRule.ID, result.CategoryID, result.Confidence)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Date, "date", time.Now().Format(model.DateLayout), "Transaction date")
	cmd.Flags().StringVar(&in.Merchant, "merchant", "", "Merchant name")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	cmd.Flags().StringVar(&in.Amount, "amount", "0", "Signed amount")
	cmd.Flags().StringVar(&in.Currency, "currency", "EUR", "Currency code")
	cmd.Flags().StringVar(&in.Type, "type", "", "Transaction type (expense, income, transfer)")
	cmd.Flags().StringVar(&in.CounterpartyID, "counterparty", "", "Counterparty ID")

	return cmd
}

func (in sampleInput) transaction() (model.Transaction, error) {
	return record{
		ID:             "sample",
		Date:           in.Date,
		Merchant:       in.Merchant,
		Description:    in.Description,
		Amount:         json.Number(in.Amount),
		Currency:       in.Currency,
		Type:           in.Type,
		CounterpartyID: in.CounterpartyID,
	}.transaction()
}

// testRules returns every active rule matching txn and the winning result.
func testRules(ctx context.Context, store service.Storage, txn model.Transaction) ([]model.Rule, *model.CategorizationResult, error) {
	active, err := store.GetRules(ctx, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get rules: %w", err)
	}
	engine := newEngine(active, 1)
	return engine.Match(txn), engine.Categorize(txn), nil
}
