// Package monitor drives the per-destination monitoring sweep:
// fetch → evaluate → persist → alert → broadcast, with partial-failure
// isolation between destinations.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trailhaven/ecowatch/internal/alert"
	"github.com/trailhaven/ecowatch/internal/domain"
	"github.com/trailhaven/ecowatch/internal/observability"
)

// RecordStore is the slice of the record store the orchestrator reads and
// writes.
type RecordStore interface {
	ListActiveDestinations(ctx context.Context) ([]domain.Destination, error)
	LatestSnapshot(ctx context.Context, destinationID string) (domain.Snapshot, error)
	InsertSnapshot(ctx context.Context, s domain.Snapshot) error
}

// Fetcher retrieves current conditions for coordinates.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64, label string) (domain.Snapshot, error)
}

// AlertManager owns alert lifecycle semantics.
type AlertManager interface {
	Activate(ctx context.Context, destinationID string, typ domain.AlertType, severity domain.Severity, title, message string) (domain.Alert, error)
	SweepCleanup(ctx context.Context, types ...domain.AlertType) error
}

// Publisher pushes events onto the shared broadcast topic.
type Publisher interface {
	Publish(ev domain.BroadcastEvent)
}

// sweepAlertTypes are the alert types this sweep owns end to end. Other
// types (ecological, emergency, maintenance) are raised by external
// workflows and never touched by cleanup.
var sweepAlertTypes = []domain.AlertType{domain.AlertWeather, domain.AlertCapacity}

// Options tune a sweep.
type Options struct {
	FreshnessWindow    time.Duration // reuse stored snapshots younger than this
	Workers            int           // bounded pool size
	DestinationTimeout time.Duration // per-destination budget
}

// Service is the monitoring orchestrator.
type Service struct {
	store     RecordStore
	fetcher   Fetcher
	alerts    AlertManager
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options

	// sweepMu serializes whole sweeps: cleanup is a global barrier, so two
	// interleaved sweeps could resurrect superseded alerts.
	sweepMu sync.Mutex
	ready   atomic.Bool
}

// New creates the orchestrator.
func New(store RecordStore, fetcher Fetcher, alerts AlertManager, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	return &Service{
		store:     store,
		fetcher:   fetcher,
		alerts:    alerts,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once at least one sweep has completed with no
// failed destinations. Readiness latches; later partial failures do not
// unready the service.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no sweep has completed yet")
	}
	return nil
}

// AlertSummary is the compact per-alert entry in a sweep report.
type AlertSummary struct {
	DestinationTitle string          `json:"destination_title"`
	Severity         domain.Severity `json:"severity"`
	FirstReason      string          `json:"first_reason"`
}

// Failure records one destination's sweep failure.
type Failure struct {
	DestinationID   string `json:"destination_id"`
	DestinationName string `json:"destination_name,omitempty"`
	Reason          string `json:"reason"` // fetch, persistence, cleanup, store
	Error           string `json:"error"`
}

// Report is the structured result of one sweep. The trigger always gets a
// report, never a raised fault: total failure and all-skipped are distinct
// observable states, not errors.
type Report struct {
	Success          bool           `json:"success"`
	Processed        int            `json:"destinations_processed"`
	Skipped          int            `json:"destinations_skipped"`
	Failed           int            `json:"destinations_failed"`
	AlertsGenerated  int            `json:"alerts_generated"`
	Alerts           []AlertSummary `json:"alerts,omitempty"`
	Failures         []Failure      `json:"failures,omitempty"`
	UsedSeedFallback bool           `json:"used_seed_fallback,omitempty"`
}

// RunSweep executes one full sweep. destinationID narrows the sweep to a
// single destination; empty means all active destinations, falling back to
// the built-in seed list when the store yields zero active rows. Cleanup's
// deactivate phase completes before any destination work begins. No single
// destination's failure aborts the sweep.
func (s *Service) RunSweep(ctx context.Context, destinationID string) Report {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	s.metrics.SweepsTotal.Inc()
	s.metrics.SweepRunning.Set(1)
	defer s.metrics.SweepRunning.Set(0)
	start := time.Now()
	defer func() {
		s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	var report Report

	targets, usedSeed, err := s.resolveTargets(ctx, destinationID)
	if err != nil {
		s.logger.Error("resolve destinations failed", "error", err)
		report.Failures = append(report.Failures, Failure{Reason: "store", Error: err.Error()})
		return report
	}
	report.UsedSeedFallback = usedSeed

	// Barrier: every currently-active sweep-owned alert goes inactive
	// before any fresh activation anywhere in this sweep.
	if err := s.alerts.SweepCleanup(ctx, sweepAlertTypes...); err != nil {
		s.logger.Error("sweep cleanup failed", "error", err)
		report.Failures = append(report.Failures, Failure{Reason: "cleanup", Error: err.Error()})
		return report
	}

	results := s.sweepDestinations(ctx, targets)

	for _, r := range results {
		switch {
		case r.skipped:
			report.Skipped++
			s.metrics.DestinationsSkipped.Inc()
		case r.failure != nil:
			report.Failed++
			report.Failures = append(report.Failures, *r.failure)
			s.metrics.DestinationFailures.WithLabelValues(r.failure.Reason).Inc()
		default:
			report.Processed++
			s.metrics.DestinationsProcessed.Inc()
			report.Alerts = append(report.Alerts, r.alerts...)
			report.AlertsGenerated += len(r.alerts)
		}
	}

	report.Success = report.Failed == 0
	if report.Success {
		s.ready.Store(true)
	}

	s.logger.Info("sweep complete",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"alerts", report.AlertsGenerated,
		"seed_fallback", report.UsedSeedFallback,
		"duration", time.Since(start),
	)
	return report
}

// resolveTargets picks the destination set for this sweep. The seed list
// is used only when the primary query yields zero active rows; it is never
// merged with real data.
func (s *Service) resolveTargets(ctx context.Context, destinationID string) ([]domain.Destination, bool, error) {
	active, err := s.store.ListActiveDestinations(ctx)
	if err != nil {
		return nil, false, err
	}

	if destinationID != "" {
		for _, d := range active {
			if d.ID == destinationID {
				return []domain.Destination{d}, false, nil
			}
		}
		for _, d := range domain.SeedDestinations() {
			if d.ID == destinationID {
				return []domain.Destination{d}, true, nil
			}
		}
		return nil, false, nil
	}

	if len(active) == 0 {
		s.logger.Warn("no active destinations in record store, using seed list")
		return domain.SeedDestinations(), true, nil
	}
	return active, false, nil
}

// destinationResult is one destination's outcome within a sweep.
type destinationResult struct {
	skipped bool
	failure *Failure
	alerts  []AlertSummary
}

// sweepDestinations runs per-destination work under a bounded worker pool.
// Destinations are independent; alert writes for one (destination, type)
// pair are serialized inside the lifecycle manager.
func (s *Service) sweepDestinations(ctx context.Context, targets []domain.Destination) []destinationResult {
	results := make([]destinationResult, len(targets))
	sem := make(chan struct{}, s.opts.Workers)

	var wg sync.WaitGroup
	for i, d := range targets {
		wg.Add(1)
		go func(i int, d domain.Destination) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			destCtx := ctx
			if s.opts.DestinationTimeout > 0 {
				var cancel context.CancelFunc
				destCtx, cancel = context.WithTimeout(ctx, s.opts.DestinationTimeout)
				defer cancel()
			}
			results[i] = s.sweepDestination(destCtx, d)
		}(i, d)
	}
	wg.Wait()

	return results
}

// sweepDestination runs fetch → evaluate → persist → alert → broadcast for
// one destination. Every failure is caught and reported against this
// destination only.
func (s *Service) sweepDestination(ctx context.Context, d domain.Destination) destinationResult {
	coords, err := domain.ResolveCoordinates(d)
	if errors.Is(err, domain.ErrNoCoordinates) {
		// Not an error: the destination simply has nowhere to look up.
		s.logger.Debug("destination has no resolvable coordinates, skipping", "destination_id", d.ID)
		return destinationResult{skipped: true}
	}

	snap, reused, err := s.obtainSnapshot(ctx, d, coords)
	if err != nil {
		return failureFor(d, err)
	}
	if reused {
		s.metrics.SnapshotReuses.Inc()
	} else {
		if err := s.store.InsertSnapshot(ctx, snap); err != nil {
			return failureFor(d, &domain.PersistenceError{Op: "insert snapshot", Err: err})
		}
	}

	s.publisher.Publish(domain.BroadcastEvent{
		Type:          domain.EventWeatherUpdate,
		DestinationID: d.ID,
		Payload:       snap,
	})

	var summaries []AlertSummary

	if eval := alert.EvaluateSnapshot(snap); eval.Fires {
		severity := alert.SnapshotSeverity(snap)
		summary, err := s.raise(ctx, d, domain.AlertWeather, severity,
			"Weather warning: "+d.Name, eval.Reasons)
		if err != nil {
			return failureFor(d, err)
		}
		summaries = append(summaries, summary)
	}

	if eval, severity := alert.EvaluateOccupancy(d); eval.Fires {
		summary, err := s.raise(ctx, d, domain.AlertCapacity, severity,
			"Capacity warning: "+d.Name, eval.Reasons)
		if err != nil {
			return failureFor(d, err)
		}
		summaries = append(summaries, summary)
	}

	return destinationResult{alerts: summaries}
}

// obtainSnapshot reuses the latest stored snapshot when it is younger than
// the freshness window, otherwise fetches a new one from the provider.
func (s *Service) obtainSnapshot(ctx context.Context, d domain.Destination, coords domain.Coordinates) (domain.Snapshot, bool, error) {
	latest, err := s.store.LatestSnapshot(ctx, d.ID)
	if err == nil && latest.FreshAt(domain.Now(), s.opts.FreshnessWindow) {
		return latest, true, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		// A failed freshness read is not fatal; fall through to a fetch.
		s.logger.Warn("latest snapshot read failed", "destination_id", d.ID, "error", err)
	}

	snap, err := s.fetcher.Fetch(ctx, coords.Lat, coords.Lon, d.Name)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	snap.DestinationID = d.ID
	return snap, false, nil
}

// raise activates an alert and broadcasts it.
func (s *Service) raise(ctx context.Context, d domain.Destination, typ domain.AlertType, severity domain.Severity, title string, reasons []string) (AlertSummary, error) {
	a, err := s.alerts.Activate(ctx, d.ID, typ, severity, title, strings.Join(reasons, "; "))
	if err != nil {
		return AlertSummary{}, err
	}

	s.metrics.AlertsGenerated.WithLabelValues(string(typ), string(severity)).Inc()
	s.publisher.Publish(domain.BroadcastEvent{
		Type:          domain.EventAlertCreated,
		DestinationID: d.ID,
		Payload:       a,
	})

	return AlertSummary{
		DestinationTitle: d.Name,
		Severity:         severity,
		FirstReason:      reasons[0],
	}, nil
}

// failureFor classifies an error against a destination.
func failureFor(d domain.Destination, err error) destinationResult {
	reason := "other"
	var fetchErr *domain.FetchError
	var persistErr *domain.PersistenceError
	switch {
	case errors.As(err, &fetchErr):
		reason = "fetch"
	case errors.As(err, &persistErr):
		reason = "persistence"
	}
	return destinationResult{failure: &Failure{
		DestinationID:   d.ID,
		DestinationName: d.Name,
		Reason:          reason,
		Error:           err.Error(),
	}}
}
