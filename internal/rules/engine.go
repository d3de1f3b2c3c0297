// Package rules evaluates the suspicion rules over a transaction set.
package rules

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/Veraticus/flagrant/internal/common"
	"github.com/Veraticus/flagrant/internal/model"
)

// DefaultThreshold is the amount above which a transaction is flagged when
// no threshold is configured.
const DefaultThreshold = 5000.0

// FrequencyWindow is the gap below which a user's transaction is flagged.
const FrequencyWindow = 60 * time.Second

// allowedCountries are matched exactly; any other code is unusual.
var allowedCountries = map[string]struct{}{
	"CA": {},
	"US": {},
}

// ValidateThreshold rejects negative and non-finite thresholds.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		return fmt.Errorf("%w: %v", common.ErrInvalidThreshold, threshold)
	}
	return nil
}

// Evaluate annotates every transaction with the rules it triggers.
// The result has one entry per input row, in input order. The input is not modified.
func Evaluate(txns []model.Transaction, threshold float64) ([]model.AnnotatedTransaction, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	frequent := highFrequencyMask(txns)

	annotated := make([]model.AnnotatedTransaction, len(txns))
	for i, txn := range txns {
		var fired []model.Rule
		if isHighAmount(txn, threshold) {
			fired = append(fired, model.RuleHighAmount)
		}
		if isUnusualCountry(txn) {
			fired = append(fired, model.RuleUnusualCountry)
		}
		if frequent[i] {
			fired = append(fired, model.RuleHighFrequency)
		}
		annotated[i] = model.Annotate(txn, fired)
	}

	common.LogDebug("Evaluated rules", common.Fields{
		"rows":      len(txns),
		"threshold": threshold,
	})

	return annotated, nil
}

// Flagged returns the rows that triggered at least one rule, preserving order.
func Flagged(annotated []model.AnnotatedTransaction) []model.AnnotatedTransaction {
	flagged := make([]model.AnnotatedTransaction, 0, len(annotated))
	for _, a := range annotated {
		if a.IsFlagged {
			flagged = append(flagged, a)
		}
	}
	return flagged
}

func isHighAmount(txn model.Transaction, threshold float64) bool {
	return txn.Amount > threshold
}

func isUnusualCountry(txn model.Transaction) bool {
	_, ok := allowedCountries[txn.Country]
	return !ok
}

// highFrequencyMask reports, per input index, whether the row follows the
// same user's previous transaction by less than FrequencyWindow. Rows are
// ordered through an index slice so the caller's order is untouched.
func highFrequencyMask(txns []model.Transaction) []bool {
	order := make([]int, len(txns))
	for i := range order {
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		if c := cmp.Compare(txns[a].UserID, txns[b].UserID); c != 0 {
			return c
		}
		return txns[a].Time.Compare(txns[b].Time)
	})

	mask := make([]bool, len(txns))
	for k := 1; k < len(order); k++ {
		prev, cur := txns[order[k-1]], txns[order[k]]
		if prev.UserID != cur.UserID {
			continue
		}
		if cur.Time.Sub(prev.Time) < FrequencyWindow {
			mask[order[k]] = true
		}
	}

	return mask
}
