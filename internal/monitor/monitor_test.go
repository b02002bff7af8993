package monitor

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

	"github.com/trailhaven/ecowatch/internal/domain"
	"github.com/trailhaven/ecowatch/internal/observability"
)

type fakeStore struct {
	mu           sync.Mutex
	destinations []domain.Destination
	listErr      error
	latest       map[string]domain.Snapshot
	inserted     []domain.Snapshot
	insertErr    error
}

func (f *fakeStore) ListActiveDestinations(_ context.Context) ([]domain.Destination, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.destinations, nil
}

func (f *fakeStore) LatestSnapshot(_ context.Context, destinationID string) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.latest[destinationID]
	if !ok {
		return domain.Snapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (f *fakeStore) InsertSnapshot(_ context.Context, s domain.Snapshot) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, s)
	return nil
}

type fakeFetcher struct {
	mu       sync.Mutex
	snapshot domain.Snapshot
	failFor  map[string]error // keyed by label
	fetches  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, _, _ float64, label string) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, label)
	if err, ok := f.failFor[label]; ok {
		return domain.Snapshot{}, err
	}
	snap := f.snapshot
	snap.Label = label
	return snap, nil
}

type fakeAlerts struct {
	mu         sync.Mutex
	ops        []string
	activated  []domain.Alert
	cleanupErr error
}

func (f *fakeAlerts) Activate(_ context.Context, destinationID string, typ domain.AlertType, severity domain.Severity, title, message string) (domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "activate")
	a := domain.NewAlert(destinationID, typ, severity, title, message)
	f.activated = append(f.activated, a)
	return a, nil
}

func (f *fakeAlerts) SweepCleanup(_ context.Context, _ ...domain.AlertType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "cleanup")
	return f.cleanupErr
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.BroadcastEvent
}

func (f *fakePublisher) Publish(ev domain.BroadcastEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakePublisher) byType(typ domain.EventType) []domain.BroadcastEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BroadcastEvent
	for _, ev := range f.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func calmSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Temperature:  26,
		WindSpeed:    4,
		PrecipChance: 10,
		Visibility:   10,
		UVIndex:      3,
		Condition:    domain.ConditionClear,
	}
}

func newService(store *fakeStore, fetcher *fakeFetcher, alerts *fakeAlerts, pub *fakePublisher, opts Options) *Service {
	return New(store, fetcher, alerts, pub, slog.Default(), observability.NewMetricsForTesting(), opts)
}

func TestRunSweep_PartialFailureIsolation(t *testing.T) {
	store := &fakeStore{destinations: []domain.Destination{
		{ID: "yala-national-park", Name: "Yala National Park", Latitude: 6.37, Longitude: 81.52, MaxCapacity: 600, Sensitivity: domain.SensitivityHigh, Active: true},
		{ID: "horton-plains", Name: "Horton Plains", Latitude: 6.80, Longitude: 80.80, MaxCapacity: 300, Sensitivity: domain.SensitivityHigh, Active: true},
	}}
	fetcher := &fakeFetcher{
		snapshot: calmSnapshot(),
		failFor:  map[string]error{"Horton Plains": domain.NewFetchError(domain.ProviderUnavailable, errors.New("upstream 502"))},
	}
	alerts := &fakeAlerts{}
	pub := &fakePublisher{}
	svc := newService(store, fetcher, alerts, pub, Options{})

	report := svc.RunSweep(context.Background(), "")

	assert.False(t, report.Success)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Skipped)
	assert.False(t, report.UsedSeedFallback)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "horton-plains", report.Failures[0].DestinationID)
	assert.Equal(t, "fetch", report.Failures[0].Reason)

	// The healthy destination's snapshot was persisted and broadcast.
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "yala-national-park", store.inserted[0].DestinationID)
	updates := pub.byType(domain.EventWeatherUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, "yala-national-park", updates[0].DestinationID)
}

func TestRunSweep_SeedFallbackOnEmptyStore(t *testing.T) {
	store := &fakeStore{}
	fetcher := &fakeFetcher{snapshot: calmSnapshot()}
	svc := newService(store, fetcher, &fakeAlerts{}, &fakePublisher{}, Options{})

	report := svc.RunSweep(context.Background(), "")

	assert.True(t, report.UsedSeedFallback)
	assert.Equal(t, len(domain.SeedDestinations()), report.Processed)
	assert.True(t, report.Success)
	assert.Len(t, store.inserted, len(domain.SeedDestinations()))
}

func TestRunSweep_SkipsUnresolvableCoordinates(t *testing.T) {
	store := &fakeStore{destinations: []domain.Destination{
		{ID: "dest-9f2", Name: "Unknown Basin Reserve", MaxCapacity: 100, Sensitivity: domain.SensitivityLow, Active: true},
	}}
	fetcher := &fakeFetcher{snapshot: calmSnapshot()}
	svc := newService(store, fetcher, &fakeAlerts{}, &fakePublisher{}, Options{})

	report := svc.RunSweep(context.Background(), "")

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 0, report.Failed)
	assert.True(t, report.Success)
	assert.Empty(t, fetcher.fetches)
}

func TestRunSweep_ReusesFreshSnapshot(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	defer domain.SetClock(clockwork.NewRealClock())

	stored := calmSnapshot()
	stored.DestinationID = "yala-national-park"
	stored.FetchedAt = fake.Now().Add(-2 * time.Hour)

	store := &fakeStore{
		destinations: []domain.Destination{
			{ID: "yala-national-park", Name: "Yala National Park", Latitude: 6.37, Longitude: 81.52, MaxCapacity: 600, Sensitivity: domain.SensitivityHigh, Active: true},
		},
		latest: map[string]domain.Snapshot{"yala-national-park": stored},
	}
	fetcher := &fakeFetcher{snapshot: calmSnapshot()}
	pub := &fakePublisher{}
	svc := newService(store, fetcher, &fakeAlerts{}, pub, Options{FreshnessWindow: 6 * time.Hour})

	report := svc.RunSweep(context.Background(), "")

	assert.Equal(t, 1, report.Processed)
	assert.Empty(t, fetcher.fetches, "provider must not be called for a fresh snapshot")
	assert.Empty(t, store.inserted, "reused snapshots are not re-persisted")
	require.Len(t, pub.byType(domain.EventWeatherUpdate), 1)

	// Age the snapshot past the window: the next sweep must fetch again.
	fake.Advance(5 * time.Hour)
	report = svc.RunSweep(context.Background(), "")
	assert.Equal(t, 1, report.Processed)
	assert.Len(t, fetcher.fetches, 1)
	assert.Len(t, store.inserted, 1)
}

func TestRunSweep_CleanupRunsBeforeActivation(t *testing.T) {
	hot := calmSnapshot()
	hot.Temperature = 41

	store := &fakeStore{destinations: []domain.Destination{
		{ID: "yala-national-park", Name: "Yala National Park", Latitude: 6.37, Longitude: 81.52, MaxCapacity: 600, Sensitivity: domain.SensitivityHigh, Active: true},
	}}
	alerts := &fakeAlerts{}
	pub := &fakePublisher{}
	svc := newService(store, &fakeFetcher{snapshot: hot}, alerts, pub, Options{})

	report := svc.RunSweep(context.Background(), "")

	require.GreaterOrEqual(t, len(alerts.ops), 2)
	assert.Equal(t, "cleanup", alerts.ops[0])
	assert.Equal(t, "activate", alerts.ops[1])

	assert.Equal(t, 1, report.AlertsGenerated)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, "Yala National Park", report.Alerts[0].DestinationTitle)
	assert.Equal(t, domain.SeverityHigh, report.Alerts[0].Severity)
	assert.Equal(t, "extreme heat", report.Alerts[0].FirstReason)
	require.Len(t, pub.byType(domain.EventAlertCreated), 1)
}

func TestRunSweep_CleanupFailureAbortsSweep(t *testing.T) {
	store := &fakeStore{destinations: []domain.Destination{
		{ID: "yala-national-park", Name: "Yala National Park", Latitude: 6.37, Longitude: 81.52, MaxCapacity: 600, Sensitivity: domain.SensitivityHigh, Active: true},
	}}
	alerts := &fakeAlerts{cleanupErr: errors.New("store unavailable")}
	fetcher := &fakeFetcher{snapshot: calmSnapshot()}
	svc := newService(store, fetcher, alerts, &fakePublisher{}, Options{})

	report := svc.RunSweep(context.Background(), "")

	assert.Equal(t, 0, report.Processed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "cleanup", report.Failures[0].Reason)
	assert.Empty(t, fetcher.fetches, "no destination work after a failed cleanup barrier")
}

func TestRunSweep_OccupancyAlert(t *testing.T) {
	// 90 of adjusted 80 (100 × 0.8): over adjusted capacity, critical tier.
	store := &fakeStore{destinations: []domain.Destination{
		{ID: "pigeon-island", Name: "Pigeon Island", Latitude: 8.72, Longitude: 81.20, MaxCapacity: 100, CurrentOccupancy: 90, Sensitivity: domain.SensitivityHigh, Active: true},
	}}
	alerts := &fakeAlerts{}
	svc := newService(store, &fakeFetcher{snapshot: calmSnapshot()}, alerts, &fakePublisher{}, Options{})

	report := svc.RunSweep(context.Background(), "")

	assert.Equal(t, 1, report.AlertsGenerated)
	require.Len(t, alerts.activated, 1)
	assert.Equal(t, domain.AlertCapacity, alerts.activated[0].Type)
	assert.Equal(t, domain.SeverityCritical, alerts.activated[0].Severity)
	assert.Contains(t, alerts.activated[0].Message, "over adjusted capacity: 90 of 80")
}

func TestRunSweep_SingleDestination(t *testing.T) {
	store := &fakeStore{destinations: []domain.Destination{
		{ID: "yala-national-park", Name: "Yala National Park", Latitude: 6.37, Longitude: 81.52, MaxCapacity: 600, Sensitivity: domain.SensitivityHigh, Active: true},
		{ID: "horton-plains", Name: "Horton Plains", Latitude: 6.80, Longitude: 80.80, MaxCapacity: 300, Sensitivity: domain.SensitivityHigh, Active: true},
	}}
	fetcher := &fakeFetcher{snapshot: calmSnapshot()}
	svc := newService(store, fetcher, &fakeAlerts{}, &fakePublisher{}, Options{})

	report := svc.RunSweep(context.Background(), "horton-plains")

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, []string{"Horton Plains"}, fetcher.fetches)
}

func TestRunSweep_SingleDestinationFromSeeds(t *testing.T) {
	// The requested ID is absent from the store but present in the seed list.
	store := &fakeStore{destinations: []domain.Destination{
		{ID: "horton-plains", Name: "Horton Plains", Latitude: 6.80, Longitude: 80.80, MaxCapacity: 300, Sensitivity: domain.SensitivityHigh, Active: true},
	}}
	fetcher := &fakeFetcher{snapshot: calmSnapshot()}
	svc := newService(store, fetcher, &fakeAlerts{}, &fakePublisher{}, Options{})

	report := svc.RunSweep(context.Background(), "sinharaja-forest")

	assert.Equal(t, 1, report.Processed)
	assert.True(t, report.UsedSeedFallback)
}

func TestRunSweep_UnknownDestinationIsEmptyReport(t *testing.T) {
	store := &fakeStore{destinations: []domain.Destination{
		{ID: "horton-plains", Name: "Horton Plains", Latitude: 6.80, Longitude: 80.80, MaxCapacity: 300, Sensitivity: domain.SensitivityHigh, Active: true},
	}}
	svc := newService(store, &fakeFetcher{snapshot: calmSnapshot()}, &fakeAlerts{}, &fakePublisher{}, Options{})

	report := svc.RunSweep(context.Background(), "no-such-destination")

	assert.True(t, report.Success)
	assert.Zero(t, report.Processed+report.Skipped+report.Failed)
}

func TestRunSweep_ListFailureReportsStoreFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection refused")}
	svc := newService(store, &fakeFetcher{}, &fakeAlerts{}, &fakePublisher{}, Options{})

	report := svc.RunSweep(context.Background(), "")

	assert.False(t, report.Success)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "store", report.Failures[0].Reason)
}

func TestCheckReadiness(t *testing.T) {
	store := &fakeStore{destinations: []domain.Destination{
		{ID: "horton-plains", Name: "Horton Plains", Latitude: 6.80, Longitude: 80.80, MaxCapacity: 300, Sensitivity: domain.SensitivityHigh, Active: true},
	}}
	svc := newService(store, &fakeFetcher{snapshot: calmSnapshot()}, &fakeAlerts{}, &fakePublisher{}, Options{})

	require.Error(t, svc.CheckReadiness(context.Background()))
	svc.RunSweep(context.Background(), "")
	require.NoError(t, svc.CheckReadiness(context.Background()))
}
