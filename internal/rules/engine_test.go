package rules

import (
	"math"
	"testing"
	"time"

	"github.com/Veraticus/flagrant/internal/common"
	"github.com/Veraticus/flagrant/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

func txn(user string, amount float64, country string, offset time.Duration) model.Transaction {
	return model.Transaction{
		UserID:  user,
		Amount:  amount,
		Country: country,
		Time:    base.Add(offset),
	}
}

func TestEvaluate_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		txns      []model.Transaction
		wantRules [][]model.Rule
		threshold float64
	}{
		{
			name: "high amount then rapid repeat",
			txns: []model.Transaction{
				txn("1", 10000, "CA", 0),
				txn("1", 20, "CA", 30*time.Second),
			},
			threshold: 5000,
			wantRules: [][]model.Rule{
				{model.RuleHighAmount},
				{model.RuleHighFrequency},
			},
		},
		{
			name:      "unusual country only",
			txns:      []model.Transaction{txn("1", 100, "FR", 0)},
			threshold: 5000,
			wantRules: [][]model.Rule{{model.RuleUnusualCountry}},
		},
		{
			name: "frequency never crosses users",
			txns: []model.Transaction{
				txn("1", 10, "US", 0),
				txn("2", 10, "US", time.Second),
			},
			threshold: 5000,
			wantRules: [][]model.Rule{nil, nil},
		},
		{
			name:      "amount equal to threshold is not flagged",
			txns:      []model.Transaction{txn("1", 5000, "US", 0)},
			threshold: 5000,
			wantRules: [][]model.Rule{nil},
		},
		{
			name:      "empty input",
			txns:      nil,
			threshold: 5000,
			wantRules: [][]model.Rule{},
		},
		{
			name:      "lowercase country is unusual",
			txns:      []model.Transaction{txn("1", 1, "ca", 0)},
			threshold: 5000,
			wantRules: [][]model.Rule{{model.RuleUnusualCountry}},
		},
		{
			name:      "empty country is unusual",
			txns:      []model.Transaction{txn("1", 1, "", 0)},
			threshold: 5000,
			wantRules: [][]model.Rule{{model.RuleUnusualCountry}},
		},
		{
			name: "identical timestamps count as rapid",
			txns: []model.Transaction{
				txn("1", 1, "US", 0),
				txn("1", 1, "US", 0),
			},
			threshold: 5000,
			wantRules: [][]model.Rule{nil, {model.RuleHighFrequency}},
		},
		{
			name: "gap of exactly sixty seconds is not rapid",
			txns: []model.Transaction{
				txn("1", 1, "US", 0),
				txn("1", 1, "US", 60*time.Second),
			},
			threshold: 5000,
			wantRules: [][]model.Rule{nil, nil},
		},
		{
			name: "all rules in fixed order",
			txns: []model.Transaction{
				txn("7", 1, "US", 0),
				txn("7", 9000, "UK", 10*time.Second),
			},
			threshold: 5000,
			wantRules: [][]model.Rule{
				nil,
				{model.RuleHighAmount, model.RuleUnusualCountry, model.RuleHighFrequency},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.txns, tt.threshold)
			require.NoError(t, err)
			require.Len(t, got, len(tt.wantRules))

			for i, want := range tt.wantRules {
				assert.Equal(t, want, got[i].Rules, "row %d", i)
				assert.Equal(t, len(want) > 0, got[i].IsFlagged, "row %d", i)
			}
		})
	}
}

func TestEvaluate_ReferenceReasons(t *testing.T) {
	got, err := Evaluate([]model.Transaction{
		txn("1", 10000, "CA", 0),
		txn("1", 20, "CA", 30*time.Second),
	}, 5000)
	require.NoError(t, err)

	assert.Equal(t, "High Amount; ", got[0].Reason())
	assert.Equal(t, "High Frequency; ", got[1].Reason())
}

func TestEvaluate_PreservesInputOrder(t *testing.T) {
	// Out of time order and interleaved across users.
	txns := []model.Transaction{
		txn("101", 200, "CA", 0),
		txn("102", 7000, "CA", 5*time.Minute),
		txn("101", 50, "UK", 45*time.Second),
		txn("103", 300, "US", time.Hour),
		txn("101", 75, "US", 20*time.Second),
	}
	snapshot := append([]model.Transaction(nil), txns...)

	got, err := Evaluate(txns, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, got, len(txns))

	for i := range txns {
		assert.Equal(t, txns[i], got[i].Transaction, "row %d", i)
	}
	assert.Equal(t, snapshot, txns, "input must not be reordered")

	// 101 sorted by time: 0s, 20s, 45s.
	assert.Nil(t, got[0].Rules)
	assert.Equal(t, []model.Rule{model.RuleHighAmount}, got[1].Rules)
	assert.Equal(t, []model.Rule{model.RuleUnusualCountry, model.RuleHighFrequency}, got[2].Rules)
	assert.Nil(t, got[3].Rules)
	assert.Equal(t, []model.Rule{model.RuleHighFrequency}, got[4].Rules)
}

func TestEvaluate_FirstTransactionPerUserNeverFrequent(t *testing.T) {
	txns := []model.Transaction{
		txn("a", 1, "US", 0),
		txn("b", 1, "US", 0),
		txn("c", 1, "US", 0),
		txn("a", 1, "US", time.Second),
	}

	got, err := Evaluate(txns, DefaultThreshold)
	require.NoError(t, err)

	firstSeen := map[string]bool{}
	for _, a := range got {
		if !firstSeen[a.UserID] {
			firstSeen[a.UserID] = true
			assert.False(t, a.Has(model.RuleHighFrequency), "user %s first row", a.UserID)
		}
	}
	assert.True(t, got[3].Has(model.RuleHighFrequency))
}

func TestEvaluate_Invariants(t *testing.T) {
	txns := []model.Transaction{
		txn("1", 10, "US", 0),
		txn("1", 6000, "US", 10*time.Second),
		txn("2", 4000, "MX", 0),
		txn("3", 5000, "CA", time.Hour),
		txn("2", 20000, "CA", 2*time.Minute),
	}

	got, err := Evaluate(txns, DefaultThreshold)
	require.NoError(t, err)

	assert.Len(t, got, len(txns))
	for i, a := range got {
		assert.Equal(t, a.IsFlagged, a.Reason() != "", "row %d", i)
	}

	again, err := Evaluate(txns, DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestEvaluate_ThresholdMonotonic(t *testing.T) {
	txns := []model.Transaction{
		txn("1", 100, "US", 0),
		txn("2", 4999.99, "US", 0),
		txn("3", 5000, "US", 0),
		txn("4", 5000.01, "US", 0),
		txn("5", 25000, "US", 0),
	}

	thresholds := []float64{0, 100, 4999.99, 5000, 10000, 25000, 1e9}

	var previous []model.AnnotatedTransaction
	for _, threshold := range thresholds {
		got, err := Evaluate(txns, threshold)
		require.NoError(t, err)

		if previous != nil {
			for i := range got {
				if got[i].Has(model.RuleHighAmount) {
					assert.True(t, previous[i].Has(model.RuleHighAmount),
						"raising threshold to %v added a flag on row %d", threshold, i)
				}
			}
		}
		previous = got
	}
}

func TestEvaluate_InvalidThreshold(t *testing.T) {
	for _, threshold := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Evaluate([]model.Transaction{txn("1", 1, "US", 0)}, threshold)
		assert.ErrorIs(t, err, common.ErrInvalidThreshold, "threshold %v", threshold)
	}
}

func TestFlagged(t *testing.T) {
	got, err := Evaluate([]model.Transaction{
		txn("1", 1, "US", 0),
		txn("2", 1, "FR", 0),
		txn("3", 1, "CA", 0),
		txn("4", 9000, "CA", 0),
	}, DefaultThreshold)
	require.NoError(t, err)

	flagged := Flagged(got)
	require.Len(t, flagged, 2)
	assert.Equal(t, "2", flagged[0].UserID)
	assert.Equal(t, "4", flagged[1].UserID)

	assert.Empty(t, Flagged(nil))
}
