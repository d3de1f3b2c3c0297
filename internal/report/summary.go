// Package report turns annotated transactions into metrics and rendered output.
package report

import (
	"cmp"
	"slices"

	"github.com/Veraticus/flagrant/internal/model"
)

// Summary holds the headline metrics of a detection run.
type Summary struct {
	ByRule        map[model.Rule]int `json:"by_rule"`
	ByReason      []ReasonCount      `json:"by_reason"`
	Total         int                `json:"total"`
	Flagged       int                `json:"flagged"`
	FlaggedRatio  float64            `json:"flagged_ratio"`
	FlaggedAmount float64            `json:"flagged_amount"`
}

// ReasonCount counts flagged rows sharing the same combination of rules.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Summarize computes counts, the flagged ratio, the flagged amount and the
// per-rule and per-combination breakdowns.
func Summarize(annotated []model.AnnotatedTransaction) Summary {
	s := Summary{
		Total:  len(annotated),
		ByRule: make(map[model.Rule]int, len(model.AllRules)),
	}
	for _, r := range model.AllRules {
		s.ByRule[r] = 0
	}

	reasons := make(map[string]int)
	for _, a := range annotated {
		if !a.IsFlagged {
			continue
		}
		s.Flagged++
		s.FlaggedAmount += a.Amount
		for _, r := range a.Rules {
			s.ByRule[r]++
		}
		reasons[a.Reason()]++
	}

	if s.Total > 0 {
		s.FlaggedRatio = float64(s.Flagged) / float64(s.Total)
	}

	s.ByReason = make([]ReasonCount, 0, len(reasons))
	for reason, count := range reasons {
		s.ByReason = append(s.ByReason, ReasonCount{Reason: reason, Count: count})
	}
	slices.SortFunc(s.ByReason, func(a, b ReasonCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Reason, b.Reason)
	})

	return s
}
