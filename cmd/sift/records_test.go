package main

import (
	"strings"
	"testing"

	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecords(t *testing.T) {
	input := `[
		{"id": "t1", "date": "2024-01-05", "merchant": "SuperMart", "amount": -85.50, "currency": "eur", "type": "expense", "source_id": "bank-1"},
		{"date": "2024-01-06T09:30:00Z", "merchant": "Employer", "description": "Salary", "amount": "2500.00", "currency": "EUR", "counterparty_id": "emp-7"},
		{"id": "bad-amount", "date": "2024-01-07", "merchant": "X", "currency": "EUR"},
		{"id": "bad-type", "date": "2024-01-07", "merchant": "X", "amount": 1, "currency": "EUR", "type": "refund"},
		{"id": "bad-date", "date": "07/01/2024", "merchant": "X", "amount": 1, "currency": "EUR"}
	]`

	txns, rejected, err := decodeRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	require.Len(t, rejected, 3)

	first := txns[0]
	assert.Equal(t, "t1", first.ID)
	assert.Equal(t, "2024-01-05", first.Day())
	assert.Equal(t, "-85.5", first.Amount.String())
	assert.Equal(t, "EUR", first.Currency)
	assert.Equal(t, model.TypeExpense, first.Type)
	assert.Equal(t, "bank-1", first.SourceID)

	second := txns[1]
	_, err = uuid.Parse(second.ID)
	assert.NoError(t, err, "missing IDs are generated")
	assert.Equal(t, "2024-01-06", second.Day())
	assert.Equal(t, "Salary", second.Description)
	assert.Equal(t, "emp-7", second.CounterpartyID)
	assert.Equal(t, model.TypeIncome, second.Kind())

	assert.Equal(t, 2, rejected[0].Index)
	assert.ErrorIs(t, rejected[0], model.ErrInvalidAmount)
	assert.Equal(t, 3, rejected[1].Index)
	assert.ErrorIs(t, rejected[1], errUnknownType)
	assert.Equal(t, 4, rejected[2].Index)
	assert.ErrorIs(t, rejected[2], model.ErrInvalidDate)
}

func TestDecodeRecords_MalformedDocument(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not an array", input: `{"id": "t1"}`},
		{name: "truncated", input: `[{"id": "t1"`},
		{name: "unknown field", input: `[{"id": "t1", "memo": "x"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeRecords(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, common.ErrInvalidRecord)
		})
	}
}
