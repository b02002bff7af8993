package domain

import "math"

// Sensitivity is the ecological-sensitivity tier assigned to a destination
// by the admin workflow. Higher tiers tolerate fewer visitors.
type Sensitivity string

const (
	SensitivityLow      Sensitivity = "low"
	SensitivityMedium   Sensitivity = "medium"
	SensitivityHigh     Sensitivity = "high"
	SensitivityCritical Sensitivity = "critical"
)

// RiskTier buckets a destination's occupancy pressure against its
// ecologically-adjusted capacity.
type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// Destination is a protected site under monitoring. Rows are owned by the
// external admin workflow; this service only reads them.
type Destination struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Location         string      `json:"location,omitempty"`
	Latitude         float64     `json:"latitude,omitempty"`
	Longitude        float64     `json:"longitude,omitempty"`
	MaxCapacity      int         `json:"max_capacity"`
	CurrentOccupancy int         `json:"current_occupancy"`
	Sensitivity      Sensitivity `json:"ecological_sensitivity"`
	Active           bool        `json:"is_active"`
}

// CapacityPolicy holds the per-tier capacity multiplier and the occupancy
// fractions at which risk escalates. Static configuration, never mutated
// at runtime.
type CapacityPolicy struct {
	Multiplier        float64
	MediumThreshold   float64
	HighThreshold     float64
	CriticalThreshold float64
}

// capacityPolicies maps each sensitivity tier to its policy. Multipliers
// strictly decrease as sensitivity increases.
var capacityPolicies = map[Sensitivity]CapacityPolicy{
	SensitivityLow:      {Multiplier: 1.0, MediumThreshold: 0.50, HighThreshold: 0.70, CriticalThreshold: 0.85},
	SensitivityMedium:   {Multiplier: 0.9, MediumThreshold: 0.50, HighThreshold: 0.70, CriticalThreshold: 0.85},
	SensitivityHigh:     {Multiplier: 0.8, MediumThreshold: 0.50, HighThreshold: 0.70, CriticalThreshold: 0.85},
	SensitivityCritical: {Multiplier: 0.6, MediumThreshold: 0.50, HighThreshold: 0.70, CriticalThreshold: 0.85},
}

// PolicyFor returns the capacity policy for a sensitivity tier. Unknown
// tiers fall back to the low-sensitivity policy (multiplier 1.0) so a bad
// row never inflates risk artificially.
func PolicyFor(s Sensitivity) CapacityPolicy {
	if p, ok := capacityPolicies[s]; ok {
		return p
	}
	return capacityPolicies[SensitivityLow]
}

// AdjustedCapacity scales a destination's physical ceiling by its
// sensitivity multiplier, rounding down. Pure and safe to call
// concurrently.
func AdjustedCapacity(d Destination) int {
	p := PolicyFor(d.Sensitivity)
	return int(math.Floor(float64(d.MaxCapacity) * p.Multiplier))
}

// Utilization returns occupancy as a fraction of adjusted capacity.
// Values above 1.0 are valid and expected: over-capacity is itself the
// strongest signal and is never clamped. A zero adjusted capacity with
// occupants present reports +Inf.
func Utilization(d Destination) float64 {
	adjusted := AdjustedCapacity(d)
	if adjusted <= 0 {
		if d.CurrentOccupancy > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return float64(d.CurrentOccupancy) / float64(adjusted)
}

// DestinationRiskTier buckets a destination's utilization against its
// policy thresholds.
func DestinationRiskTier(d Destination) RiskTier {
	p := PolicyFor(d.Sensitivity)
	u := Utilization(d)
	switch {
	case u >= p.CriticalThreshold:
		return RiskCritical
	case u >= p.HighThreshold:
		return RiskHigh
	case u >= p.MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
