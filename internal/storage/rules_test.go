package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRule(t *testing.T, categoryID string, op model.Operator, value string, priority int) model.Rule {
	t.Helper()
	cond, err := model.NewCondition(model.FieldMerchant, op, value, false)
	require.NoError(t, err)
	rule, err := model.NewRule(categoryID+" rule", categoryID, cond, 0.8, priority)
	require.NoError(t, err)
	return rule
}

func TestCreateRule_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	rule := testRule(t, "coffee", model.OpRegex, "star.*bucks", 5)
	rule.Condition.CaseSensitive = true
	require.NoError(t, store.CreateRule(ctx, &rule))
	assert.NotZero(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())

	got, err := store.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "coffee rule", got.Name)
	assert.Equal(t, "coffee", got.CategoryID)
	assert.Equal(t, model.FieldMerchant, got.Condition.Field)
	assert.Equal(t, model.OpRegex, got.Condition.Operator)
	assert.Equal(t, "star.*bucks", got.Condition.Value)
	assert.True(t, got.Condition.CaseSensitive)
	assert.InDelta(t, 0.8, got.Confidence.Float64(), 1e-9)
	assert.Equal(t, 5, got.Priority)
	assert.True(t, got.IsActive)
}

func TestCreateRule_Invalid(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	assert.ErrorIs(t, store.CreateRule(ctx, nil), ErrNilParameter)

	rule := testRule(t, "coffee", model.OpContains, "cafe", 0)
	rule.Condition.Operator = "sounds-like"
	assert.ErrorIs(t, store.CreateRule(ctx, &rule), ErrInvalidRule)

	rule = testRule(t, "coffee", model.OpContains, "cafe", 0)
	rule.CategoryID = " "
	assert.ErrorIs(t, store.CreateRule(ctx, &rule), ErrInvalidRule)
}

func TestGetRules_OrderAndActive(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	low := testRule(t, "misc", model.OpContains, "shop", 0)
	high := testRule(t, "groceries", model.OpContains, "mart", 10)
	mid := testRule(t, "coffee", model.OpContains, "cafe", 5)
	for _, r := range []*model.Rule{&low, &high, &mid} {
		require.NoError(t, store.CreateRule(ctx, r))
	}
	require.NoError(t, store.SetRuleActive(ctx, mid.ID, false))

	all, err := store.GetRules(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"groceries", "coffee", "misc"},
		[]string{all[0].CategoryID, all[1].CategoryID, all[2].CategoryID})
	assert.False(t, all[1].IsActive)

	active, err := store.GetRules(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "groceries", active[0].CategoryID)
	assert.Equal(t, "misc", active[1].CategoryID)
}

func TestDeleteRule(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	rule := testRule(t, "coffee", model.OpContains, "cafe", 0)
	require.NoError(t, store.CreateRule(ctx, &rule))

	require.NoError(t, store.DeleteRule(ctx, rule.ID))
	_, err := store.GetRule(ctx, rule.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, store.DeleteRule(ctx, rule.ID), common.ErrNotFound)
	assert.ErrorIs(t, store.SetRuleActive(ctx, 999, true), common.ErrNotFound)
}

func TestGetRules_CorruptRow(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO rules (name, category_id, field, operator, value, confidence)
		VALUES ('bad', 'misc', 'merchant', 'soundex', 'x', 0.5)`)
	require.NoError(t, err)

	_, err = store.GetRules(ctx, false)
	assert.ErrorIs(t, err, model.ErrInvalidCondition)
}
