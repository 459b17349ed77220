package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/model"
)

const ruleColumns = `id, name, category_id, field, operator, value, case_sensitive,
	confidence, priority, is_active, created_at`

// CreateRule stores rule and sets its ID and CreatedAt.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (name, category_id, field, operator, value, case_sensitive,
			confidence, priority, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Name,
		rule.CategoryID,
		string(rule.Condition.Field),
		string(rule.Condition.Operator),
		rule.Condition.Value,
		rule.Condition.CaseSensitive,
		rule.Confidence.Float64(),
		rule.Priority,
		rule.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}

	stored, err := s.GetRule(ctx, int(id))
	if err != nil {
		return err
	}
	*rule = *stored
	return nil
}

// GetRule returns one rule or common.ErrNotFound.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM rules WHERE id = ?", id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: rule %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// GetRules returns rules in the order the engine evaluates them: priority
// descending, then creation order.
func (s *SQLiteStorage) GetRules(ctx context.Context, activeOnly bool) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := "SELECT " + ruleColumns + " FROM rules"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY priority DESC, id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SetRuleActive enables or disables a rule.
func (s *SQLiteStorage) SetRuleActive(ctx context.Context, id int, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "UPDATE rules SET is_active = ? WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("rule %d", id))
}

// DeleteRule removes a rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("rule %d", id))
}

// scanRule rebuilds a rule through the model constructors so a corrupt row
// surfaces as an error instead of an unusable rule.
func scanRule(row rowScanner) (model.Rule, error) {
	var (
		rule          model.Rule
		field, op     string
		value         string
		caseSensitive bool
		confidence    float64
	)
	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.CategoryID,
		&field,
		&op,
		&value,
		&caseSensitive,
		&confidence,
		&rule.Priority,
		&rule.IsActive,
		&rule.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rule, err
		}
		return rule, fmt.Errorf("failed to scan rule: %w", err)
	}

	cond, err := model.NewCondition(model.Field(field), model.Operator(op), value, caseSensitive)
	if err != nil {
		return rule, fmt.Errorf("rule %d: %w", rule.ID, err)
	}
	conf, err := model.NewConfidence(confidence)
	if err != nil {
		return rule, fmt.Errorf("rule %d: %w", rule.ID, err)
	}
	rule.Condition = cond
	rule.Confidence = conf
	return rule, nil
}
