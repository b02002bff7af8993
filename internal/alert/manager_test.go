package alert_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhaven/ecowatch/internal/alert"
	"github.com/trailhaven/ecowatch/internal/domain"
)

// fakeStore keeps alert rows in memory and records the violation if two
// alerts of the same (destination, type) pair are ever active at once.
type fakeStore struct {
	mu       sync.Mutex
	rows     []domain.Alert
	ops      []string
	violated bool

	insertErr     error
	deactivateErr error
	purgeErr      error
}

func (f *fakeStore) InsertAlert(_ context.Context, a domain.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, r := range f.rows {
		if r.Active && r.DestinationID == a.DestinationID && r.Type == a.Type {
			f.violated = true
		}
	}
	f.rows = append(f.rows, a)
	f.ops = append(f.ops, "insert")
	return nil
}

func (f *fakeStore) DeactivateAlerts(_ context.Context, destinationID string, typ domain.AlertType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deactivateErr != nil {
		return f.deactivateErr
	}
	for i := range f.rows {
		if f.rows[i].Type != typ {
			continue
		}
		if destinationID != "" && f.rows[i].DestinationID != destinationID {
			continue
		}
		f.rows[i].Active = false
	}
	f.ops = append(f.ops, "deactivate")
	return nil
}

func (f *fakeStore) PurgeInactiveAlerts(_ context.Context, typ domain.AlertType, before time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgeErr != nil {
		return f.purgeErr
	}
	kept := f.rows[:0]
	for _, r := range f.rows {
		if !r.Active && r.Type == typ && r.CreatedAt.Before(before) {
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	f.ops = append(f.ops, "purge")
	return nil
}

func (f *fakeStore) activeCount(destinationID string, typ domain.AlertType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r.Active && r.DestinationID == destinationID && r.Type == typ {
			n++
		}
	}
	return n
}

func newManager(store *fakeStore) *alert.Manager {
	return alert.NewManager(store, time.Hour, slog.Default())
}

func TestActivate_CreatesActiveAlert(t *testing.T) {
	store := &fakeStore{}
	m := newManager(store)

	a, err := m.Activate(context.Background(), "yala", domain.AlertWeather, domain.SeverityHigh, "Weather warning", "high wind")
	require.NoError(t, err)

	assert.True(t, a.Active)
	assert.Equal(t, domain.AlertWeather, a.Type)
	assert.Equal(t, 1, store.activeCount("yala", domain.AlertWeather))
}

func TestActivate_SupersedesBeforeInsert(t *testing.T) {
	store := &fakeStore{}
	m := newManager(store)
	ctx := context.Background()

	_, err := m.Activate(ctx, "yala", domain.AlertWeather, domain.SeverityHigh, "t", "first")
	require.NoError(t, err)
	_, err = m.Activate(ctx, "yala", domain.AlertWeather, domain.SeverityCritical, "t", "second")
	require.NoError(t, err)

	assert.Equal(t, 1, store.activeCount("yala", domain.AlertWeather))
	assert.False(t, store.violated, "two alerts of the same pair were active at once")
	assert.Equal(t, []string{"deactivate", "insert", "deactivate", "insert"}, store.ops)
}

func TestActivate_DifferentTypesCoexist(t *testing.T) {
	store := &fakeStore{}
	m := newManager(store)
	ctx := context.Background()

	_, err := m.Activate(ctx, "yala", domain.AlertWeather, domain.SeverityHigh, "t", "m")
	require.NoError(t, err)
	_, err = m.Activate(ctx, "yala", domain.AlertCapacity, domain.SeverityHigh, "t", "m")
	require.NoError(t, err)

	assert.Equal(t, 1, store.activeCount("yala", domain.AlertWeather))
	assert.Equal(t, 1, store.activeCount("yala", domain.AlertCapacity))
}

func TestActivate_ConcurrentSamePairHoldsInvariant(t *testing.T) {
	store := &fakeStore{}
	m := newManager(store)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Activate(context.Background(), "yala", domain.AlertWeather, domain.SeverityHigh, "t", "m")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.activeCount("yala", domain.AlertWeather))
	assert.False(t, store.violated)
}

func TestActivate_InsertFailureIsPersistenceError(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("store down")}
	m := newManager(store)

	_, err := m.Activate(context.Background(), "yala", domain.AlertWeather, domain.SeverityHigh, "t", "m")

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "insert alert", perr.Op)
}

func TestSweepCleanup_DeactivatesAndPurges(t *testing.T) {
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	store := &fakeStore{rows: []domain.Alert{
		{ID: "a1", DestinationID: "yala", Type: domain.AlertWeather, Active: true, CreatedAt: now.Add(-10 * time.Minute)},
		{ID: "a2", DestinationID: "horton", Type: domain.AlertCapacity, Active: true, CreatedAt: now.Add(-10 * time.Minute)},
		// Inactive and older than the 1h retention window: purged.
		{ID: "a3", DestinationID: "yala", Type: domain.AlertWeather, Active: false, CreatedAt: now.Add(-2 * time.Hour)},
	}}
	m := newManager(store)

	err := m.SweepCleanup(context.Background(), domain.AlertWeather, domain.AlertCapacity)
	require.NoError(t, err)

	assert.Equal(t, 0, store.activeCount("yala", domain.AlertWeather))
	assert.Equal(t, 0, store.activeCount("horton", domain.AlertCapacity))
	for _, r := range store.rows {
		assert.NotEqual(t, "a3", r.ID, "expired inactive row must be purged")
	}
}

func TestSweepCleanup_Idempotent(t *testing.T) {
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	store := &fakeStore{rows: []domain.Alert{
		{ID: "a1", DestinationID: "yala", Type: domain.AlertWeather, Active: true, CreatedAt: now.Add(-5 * time.Minute)},
	}}
	m := newManager(store)
	ctx := context.Background()

	require.NoError(t, m.SweepCleanup(ctx, domain.AlertWeather))
	afterFirst := len(store.rows)

	require.NoError(t, m.SweepCleanup(ctx, domain.AlertWeather))
	assert.Equal(t, afterFirst, len(store.rows), "second cleanup must be a no-op")
	assert.Equal(t, 0, store.activeCount("yala", domain.AlertWeather))
}

func TestSweepCleanup_DeactivateFailureSurfaces(t *testing.T) {
	store := &fakeStore{deactivateErr: errors.New("store down")}
	m := newManager(store)

	err := m.SweepCleanup(context.Background(), domain.AlertWeather)

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
}
