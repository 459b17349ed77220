package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfidence(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{name: "zero", value: 0},
		{name: "one", value: 1},
		{name: "middle", value: 0.42},
		{name: "above one", value: 1.5, wantErr: true},
		{name: "negative", value: -0.1, wantErr: true},
		{name: "NaN", value: math.NaN(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConfidence(tt.value)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrConfidenceOutOfRange)
				assert.Zero(t, c.Float64())
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.value, c.Float64(), 1e-9)
		})
	}
}

func TestNewRule(t *testing.T) {
	cond := Condition{Field: FieldMerchant, Operator: OpContains, Value: "netflix"}

	t.Run("valid bounds", func(t *testing.T) {
		for _, conf := range []float64{0, 1} {
			rule, err := NewRule("streaming", "entertainment", cond, conf, 1)
			require.NoError(t, err)
			assert.True(t, rule.IsActive)
			assert.InDelta(t, conf, rule.Confidence.Float64(), 1e-9)
		}
	})

	t.Run("confidence out of range", func(t *testing.T) {
		for _, conf := range []float64{1.5, -0.1} {
			_, err := NewRule("streaming", "entertainment", cond, conf, 1)
			assert.ErrorIs(t, err, ErrConfidenceOutOfRange)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		bad := cond
		bad.Field = "memo"
		_, err := NewRule("streaming", "entertainment", bad, 0.5, 1)
		assert.ErrorIs(t, err, ErrInvalidCondition)
	})

	t.Run("unknown operator", func(t *testing.T) {
		bad := cond
		bad.Operator = "like"
		_, err := NewRule("streaming", "entertainment", bad, 0.5, 1)
		assert.ErrorIs(t, err, ErrInvalidCondition)
	})

	t.Run("missing category", func(t *testing.T) {
		_, err := NewRule("streaming", "  ", cond, 0.5, 1)
		assert.ErrorIs(t, err, ErrMissingCategory)
	})
}

func TestCondition_String(t *testing.T) {
	c := Condition{Field: FieldAmount, Operator: OpBetween, Value: "10,20"}
	assert.Equal(t, `amount between "10,20"`, c.String())

	c.CaseSensitive = true
	assert.Equal(t, `amount between "10,20" (case sensitive)`, c.String())
}
