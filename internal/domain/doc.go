// Package domain models protected destinations, their ecological capacity
// policies, weather snapshots, and alerts.
//
// # Capacity Policy
//
// Each destination carries an ecological-sensitivity tier. The tier scales
// the physical visitor ceiling down to an adjusted capacity:
//
//	adjusted = floor(maxCapacity × multiplier)
//
//	low      ×1.0   medium  ×0.9
//	high     ×0.8   critical ×0.6
//
// Risk tiers bucket occupancy pressure against the adjusted capacity:
//
//	≥85% critical | ≥70% high | ≥50% medium | else low
//
// Utilization above 100% is a valid, expected state ("over capacity") and is
// never clamped — it is itself the strongest signal. See [AdjustedCapacity],
// [Utilization], and [DestinationRiskTier]; all are pure functions over
// immutable inputs and safe to call concurrently.
//
// # Snapshots
//
// A snapshot is one immutable reading of environmental conditions at a
// destination. Provider payloads may omit any subset of numeric fields;
// missing values are recorded as zero rather than null because threshold
// rules assume numeric fields are always present. Provider-specific
// condition strings are normalized onto the [Condition] vocabulary, with
// unknown codes mapping to [ConditionUnknown] and a generic icon instead
// of failing.
//
// # Alerts
//
// Alerts are typed (weather, capacity, ecological, emergency, maintenance)
// and severity-ranked. The invariant — at most one active alert per
// (destination, type) pair — is enforced by the lifecycle manager in
// package alert, not by the record store.
//
// # Coordinate Resolution
//
// Destination rows often lack coordinates. [ResolveCoordinates] falls back
// to a built-in gazetteer, looked up by ID, then normalized name, then the
// first name token; first match wins. Unresolvable destinations are skipped
// silently during sweeps.
package domain
