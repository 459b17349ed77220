package fingerprint

import (
	"testing"
	"time"

	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txn(t *testing.T, date, merchant, amount, currency string) model.Transaction {
	t.Helper()
	out, err := model.NewTransaction(date, merchant, "", amount, currency)
	require.NoError(t, err)
	return out
}

func TestHash(t *testing.T) {
	// Reference values for the classic 31-multiplier string hash.
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "0"},
		{in: "a", want: "2p"},
		{in: "hello", want: "1n1e4y"},
		// Hashes to MinInt32; the absolute value must not overflow.
		{in: "polygenelubricants", want: "zik0zk"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, hash(tt.in))
		})
	}
}

func TestCanonical(t *testing.T) {
	got := Canonical("2024-01-05T10:00:00Z", "SuperMart #42", decimal.RequireFromString("-85.5"), "eur", "")
	assert.Equal(t, "2024-01-05_supermart 42_85.50_EUR", got)

	got = Canonical("2024-01-05", "", decimal.NewFromInt(3), "EUR", "idx_4")
	assert.Equal(t, "2024-01-05_unknown_3.00_EUR_idx_4", got)
}

func TestCompute_Deterministic(t *testing.T) {
	amount := decimal.RequireFromString("12.34")
	first := Compute("2024-03-01", "Coffee Shop", amount, "EUR", "")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Compute("2024-03-01", "Coffee Shop", amount, "EUR", ""))
	}
	assert.NotEmpty(t, first)
}

func TestCompute_SignInvariant(t *testing.T) {
	pos := Compute("2024-03-01", "Coffee Shop", decimal.RequireFromString("42.00"), "EUR", "")
	neg := Compute("2024-03-01", "Coffee Shop", decimal.RequireFromString("-42.00"), "EUR", "")
	assert.Equal(t, pos, neg)
}

func TestCompute_Disambiguator(t *testing.T) {
	amount := decimal.RequireFromString("3.50")
	plain := Compute("2024-02-01", "Coffee Shop", amount, "EUR", "")
	suffixed := Compute("2024-02-01", "Coffee Shop", amount, "EUR", "idx_1")
	assert.NotEqual(t, plain, suffixed)
}

func TestCompute_GarbageMerchant(t *testing.T) {
	amount := decimal.RequireFromString("1")
	empty := Compute("2024-02-01", "", amount, "EUR", "")
	punct := Compute("2024-02-01", "!!!", amount, "EUR", "")
	assert.Equal(t, empty, punct)
	assert.NotEmpty(t, empty)
}

func TestOf_Normalization(t *testing.T) {
	stored := txn(t, "2024-01-05", "SuperMart #42", "-85.50", "EUR")
	incoming := txn(t, "2024-01-05", "supermart   #42!!", "85.50", "EUR")
	assert.Equal(t, Of(stored), Of(incoming))

	other := txn(t, "2024-01-06", "SuperMart #42", "-85.50", "EUR")
	assert.NotEqual(t, Of(stored), Of(other))
}

func TestOf_IgnoresTimeOfDay(t *testing.T) {
	morning := model.Transaction{
		Date:     time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC),
		Merchant: "Bakery",
		Amount:   decimal.NewFromInt(4),
		Currency: "EUR",
	}
	evening := morning
	evening.Date = time.Date(2024, 1, 5, 21, 30, 0, 0, time.UTC)
	assert.Equal(t, Of(morning), Of(evening))
}

func TestBatch(t *testing.T) {
	coffee := txn(t, "2024-02-01", "Coffee Shop", "-3.50", "EUR")
	lunch := txn(t, "2024-02-01", "Lunch Place", "-12.00", "EUR")

	t.Run("identical items get distinct fingerprints", func(t *testing.T) {
		got := Batch([]model.Transaction{coffee, coffee})
		require.Len(t, got, 2)
		assert.NotEqual(t, got[0], got[1])
		assert.Equal(t, Of(coffee), got[0])
		assert.Equal(t, Of(coffee), Of(coffee))
	})

	t.Run("position based suffix", func(t *testing.T) {
		got := Batch([]model.Transaction{coffee, lunch, coffee, coffee})
		require.Len(t, got, 4)
		assert.Equal(t, Of(coffee), got[0])
		assert.Equal(t, Of(lunch), got[1])
		assert.Equal(t, Compute("2024-02-01", "Coffee Shop", coffee.Amount, "EUR", "idx_2"), got[2])
		assert.Equal(t, Compute("2024-02-01", "Coffee Shop", coffee.Amount, "EUR", "idx_3"), got[3])
	})

	t.Run("empty batch", func(t *testing.T) {
		assert.Empty(t, Batch(nil))
	})
}
