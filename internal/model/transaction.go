// Package model defines the core data structures for the flagrant application.
package model

import (
	"time"
)

// Transaction represents a single row of a transaction log.
type Transaction struct {
	Time    time.Time
	Extra   map[string]string // Columns beyond the required four, passed through unchanged
	UserID  string
	Country string
	Amount  float64
	Line    int // Source row number, 1-based including the header
}

// AnnotatedTransaction is a Transaction plus the rules it triggered.
type AnnotatedTransaction struct {
	Rules []Rule
	Transaction
	IsFlagged bool
}

// Annotate builds an AnnotatedTransaction, keeping IsFlagged consistent with rules.
func Annotate(txn Transaction, rules []Rule) AnnotatedTransaction {
	return AnnotatedTransaction{
		Transaction: txn,
		Rules:       rules,
		IsFlagged:   len(rules) > 0,
	}
}

// Reason renders the triggered rules for display, e.g. "High Amount; Unusual Country; ".
func (a AnnotatedTransaction) Reason() string {
	return RenderReason(a.Rules)
}

// Has reports whether the given rule fired for this row.
func (a AnnotatedTransaction) Has(rule Rule) bool {
	for _, r := range a.Rules {
		if r == rule {
			return true
		}
	}
	return false
}
