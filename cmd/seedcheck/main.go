// Command seedcheck verifies the built-in seed destination dataset against
// the capacity policy invariants: every seed destination must resolve to
// valid coordinates, carry a known sensitivity tier, and produce an
// adjusted capacity no larger than its physical ceiling. It exists so a
// gazetteer or policy-table edit cannot silently break the sweep's
// empty-catalog fallback.
//
// Usage:
//
//	go run ./cmd/seedcheck
package main

import (
	"fmt"
	"os"

	"github.com/trailhaven/ecowatch/internal/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seedcheck:", err)
		os.Exit(1)
	}
	fmt.Println("seed dataset OK")
}

func run() error {
	seeds := domain.SeedDestinations()
	if len(seeds) == 0 {
		return fmt.Errorf("seed list is empty")
	}

	seen := make(map[string]bool, len(seeds))
	for _, d := range seeds {
		if seen[d.ID] {
			return fmt.Errorf("%s: duplicate seed ID", d.ID)
		}
		seen[d.ID] = true

		if !d.Active {
			return fmt.Errorf("%s: seed destination must be active", d.ID)
		}
		if d.MaxCapacity <= 0 {
			return fmt.Errorf("%s: non-positive max capacity %d", d.ID, d.MaxCapacity)
		}

		coords, err := domain.ResolveCoordinates(d)
		if err != nil {
			return fmt.Errorf("%s: %w", d.ID, err)
		}
		if coords.Lat < -90 || coords.Lat > 90 || coords.Lon < -180 || coords.Lon > 180 {
			return fmt.Errorf("%s: coordinates out of range (%.4f, %.4f)", d.ID, coords.Lat, coords.Lon)
		}

		adjusted := domain.AdjustedCapacity(d)
		if adjusted > d.MaxCapacity {
			return fmt.Errorf("%s: adjusted capacity %d exceeds ceiling %d", d.ID, adjusted, d.MaxCapacity)
		}
		if adjusted == d.MaxCapacity && d.Sensitivity != domain.SensitivityLow {
			return fmt.Errorf("%s: tier %s must scale capacity down", d.ID, d.Sensitivity)
		}

		fmt.Printf("%-22s %-12s cap %4d -> %4d  (%.4f, %.4f)\n",
			d.ID, d.Sensitivity, d.MaxCapacity, adjusted, coords.Lat, coords.Lon)
	}

	// The policy table itself: multipliers must strictly decrease with
	// sensitivity.
	order := []domain.Sensitivity{
		domain.SensitivityLow,
		domain.SensitivityMedium,
		domain.SensitivityHigh,
		domain.SensitivityCritical,
	}
	prev := 2.0
	for _, tier := range order {
		m := domain.PolicyFor(tier).Multiplier
		if m <= 0 || m > 1 {
			return fmt.Errorf("tier %s: multiplier %.2f out of (0, 1]", tier, m)
		}
		if m >= prev {
			return fmt.Errorf("tier %s: multiplier %.2f does not decrease", tier, m)
		}
		prev = m
	}

	return nil
}
