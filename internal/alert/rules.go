// Package alert owns threshold evaluation and the alert lifecycle:
// create, supersede, and expire, with at most one active alert per
// (destination, type) pair.
package alert

import (
	"fmt"

	"github.com/trailhaven/ecowatch/internal/domain"
)

// Evaluation is the outcome of running a rule set over one input.
// Fires is true iff Reasons is non-empty.
type Evaluation struct {
	Fires   bool
	Reasons []string
}

// weatherRule is one independent threshold check. Rules never
// short-circuit: every matching rule contributes its reason.
type weatherRule struct {
	reason string
	match  func(domain.Snapshot) bool
}

// weatherRules is the fixed, ordered rule set. Order and thresholds are
// contracts; tests pin the literal boundaries.
var weatherRules = []weatherRule{
	{"extreme heat", func(s domain.Snapshot) bool { return s.Temperature > 40 }},
	{"freezing", func(s domain.Snapshot) bool { return s.Temperature < 0 }},
	{"high wind", func(s domain.Snapshot) bool { return s.WindSpeed > 15 }},
	{"heavy precipitation", func(s domain.Snapshot) bool { return s.PrecipChance > 80 }},
	{"low visibility", func(s domain.Snapshot) bool { return s.Visibility < 1 }},
	{"extreme UV", func(s domain.Snapshot) bool { return s.UVIndex > 8 }},
	{"thunderstorm warning", func(s domain.Snapshot) bool { return s.Condition == domain.ConditionThunderstorm }},
}

// EvaluateSnapshot runs every weather rule over the snapshot and collects
// all matching reasons in rule order.
func EvaluateSnapshot(s domain.Snapshot) Evaluation {
	var reasons []string
	for _, r := range weatherRules {
		if r.match(s) {
			reasons = append(reasons, r.reason)
		}
	}
	return Evaluation{Fires: len(reasons) > 0, Reasons: reasons}
}

// SnapshotSeverity ranks a firing snapshot. It is deliberately separate
// from EvaluateSnapshot: severity is a function of the same snapshot, not
// of which rules matched.
func SnapshotSeverity(s domain.Snapshot) domain.Severity {
	switch {
	case s.Temperature > 45 || s.Temperature < -10 || s.WindSpeed > 20 || s.Visibility < 0.5:
		return domain.SeverityCritical
	case s.Temperature > 40 || s.Temperature < 0 || s.WindSpeed > 15 || s.PrecipChance > 80:
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}

// EvaluateOccupancy checks a destination's occupancy pressure against its
// adjusted capacity. It fires only at the high and critical risk tiers;
// severity equals the tier.
func EvaluateOccupancy(d domain.Destination) (Evaluation, domain.Severity) {
	switch domain.DestinationRiskTier(d) {
	case domain.RiskCritical:
		return Evaluation{
			Fires: true,
			Reasons: []string{fmt.Sprintf("over adjusted capacity: %d of %d visitors",
				d.CurrentOccupancy, domain.AdjustedCapacity(d))},
		}, domain.SeverityCritical
	case domain.RiskHigh:
		return Evaluation{
			Fires: true,
			Reasons: []string{fmt.Sprintf("approaching capacity: %d of %d visitors",
				d.CurrentOccupancy, domain.AdjustedCapacity(d))},
		}, domain.SeverityHigh
	default:
		return Evaluation{}, domain.SeverityLow
	}
}
