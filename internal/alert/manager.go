package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/trailhaven/ecowatch/internal/domain"
)

// Store is the slice of the record store the lifecycle manager writes to.
type Store interface {
	// InsertAlert writes a new alert row.
	InsertAlert(ctx context.Context, a domain.Alert) error
	// DeactivateAlerts marks active alerts of the given type inactive.
	// An empty destinationID deactivates across all destinations.
	DeactivateAlerts(ctx context.Context, destinationID string, typ domain.AlertType) error
	// PurgeInactiveAlerts hard-deletes inactive alerts of the given type
	// created before the cutoff.
	PurgeInactiveAlerts(ctx context.Context, typ domain.AlertType, before time.Time) error
}

// Manager owns alert create/supersede/expire semantics. Writes to one
// (destination, type) pair are serialized by a keyed mutex so a query at
// any instant never observes two simultaneously-active alerts of the same
// type for the same destination.
type Manager struct {
	store     Store
	logger    *slog.Logger
	retention time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a lifecycle manager. Inactive rows older than
// retention are purged during sweep cleanup.
func NewManager(store Store, retention time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		store:     store,
		logger:    logger,
		retention: retention,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Activate supersedes any currently-active alert of the same
// (destination, type) and writes a fresh one. Deactivation happens before
// the insert. Content is never diffed: re-firing with unchanged conditions
// still supersedes, which doubles as duplicate-spam protection across
// consecutive sweeps.
func (m *Manager) Activate(ctx context.Context, destinationID string, typ domain.AlertType, severity domain.Severity, title, message string) (domain.Alert, error) {
	lock := m.pairLock(destinationID + "|" + string(typ))
	lock.Lock()
	defer lock.Unlock()

	if err := m.store.DeactivateAlerts(ctx, destinationID, typ); err != nil {
		return domain.Alert{}, &domain.PersistenceError{Op: "deactivate alerts", Err: err}
	}

	a := domain.NewAlert(destinationID, typ, severity, title, message)
	if err := m.store.InsertAlert(ctx, a); err != nil {
		return domain.Alert{}, &domain.PersistenceError{Op: "insert alert", Err: err}
	}

	m.logger.Info("alert activated",
		"destination_id", destinationID,
		"type", typ,
		"severity", severity,
		"alert_id", a.ID,
	)
	return a, nil
}

// SweepCleanup runs the two-phase cleanup once per sweep, before any
// destination is evaluated: bulk-deactivate every active alert of the
// managed types, then hard-delete inactive rows older than the retention
// window. Deactivate-all-then-evaluate-fresh is what keeps stale alerts
// from lingering when a destination drops out of the active set or its
// condition clears. Calling it twice with no intervening Activate is
// idempotent.
func (m *Manager) SweepCleanup(ctx context.Context, types ...domain.AlertType) error {
	cutoff := domain.Now().Add(-m.retention)

	for _, typ := range types {
		if err := m.store.DeactivateAlerts(ctx, "", typ); err != nil {
			return &domain.PersistenceError{Op: "bulk deactivate " + string(typ), Err: err}
		}
	}
	for _, typ := range types {
		if err := m.store.PurgeInactiveAlerts(ctx, typ, cutoff); err != nil {
			return &domain.PersistenceError{Op: "purge " + string(typ), Err: err}
		}
	}
	return nil
}

// pairLock returns the mutex serializing writes for one (destination, type) key.
func (m *Manager) pairLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}
