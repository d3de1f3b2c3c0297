package model

import "strings"

// Rule identifies one of the suspicion rules.
type Rule string

// Rules in evaluation order.
const (
	RuleHighAmount     Rule = "high_amount"
	RuleUnusualCountry Rule = "unusual_country"
	RuleHighFrequency  Rule = "high_frequency"
)

// ReasonSeparator follows every label in a rendered reason.
const ReasonSeparator = "; "

// AllRules lists every rule in the fixed order reasons are rendered in.
var AllRules = []Rule{RuleHighAmount, RuleUnusualCountry, RuleHighFrequency}

// Label returns the human-readable name of the rule.
func (r Rule) Label() string {
	switch r {
	case RuleHighAmount:
		return "High Amount"
	case RuleUnusualCountry:
		return "Unusual Country"
	case RuleHighFrequency:
		return "High Frequency"
	default:
		return string(r)
	}
}

// RenderReason joins rule labels, each followed by ReasonSeparator.
func RenderReason(rules []Rule) string {
	var b strings.Builder
	for _, r := range rules {
		b.WriteString(r.Label())
		b.WriteString(ReasonSeparator)
	}
	return b.String()
}
