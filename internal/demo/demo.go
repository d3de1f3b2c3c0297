// Package demo provides fixed illustrative transaction sets.
package demo

import (
	"time"

	"github.com/Veraticus/flagrant/internal/model"
)

func at(clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", "2026-01-18 "+clock)
	if err != nil {
		panic(err)
	}
	return t
}

// Transactions returns the four-row command-line demo dataset.
// With the default threshold, 102 is flagged for amount and 101's second
// purchase for country and frequency.
func Transactions() []model.Transaction {
	return number([]model.Transaction{
		{UserID: "101", Amount: 200, Country: "CA", Time: at("10:00:00")},
		{UserID: "102", Amount: 7000, Country: "CA", Time: at("10:05:00")},
		{UserID: "101", Amount: 50, Country: "UK", Time: at("10:00:45")},
		{UserID: "103", Amount: 300, Country: "US", Time: at("11:00:00")},
	})
}

// Extended returns the six-row sample used by the dashboard.
func Extended() []model.Transaction {
	return number(append(Transactions(),
		model.Transaction{UserID: "104", Amount: 15000, Country: "US", Time: at("12:00:00")},
		model.Transaction{UserID: "105", Amount: 450, Country: "RU", Time: at("13:00:00")},
	))
}

func number(txns []model.Transaction) []model.Transaction {
	for i := range txns {
		txns[i].Line = i + 2
	}
	return txns
}
