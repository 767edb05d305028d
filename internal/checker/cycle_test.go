package checker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precipwatch/internal/alerts"
	"precipwatch/internal/notify"
	"precipwatch/internal/types"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)       {}
func (nopLogger) Info(string, ...any)        {}
func (nopLogger) Error(string, ...any)       {}
func (nopLogger) Warn(string, ...any)        {}
func (n nopLogger) With(...any) types.Logger { return n }

type fakeLister struct {
	configs []*types.AlertConfig
	err     error
}

func (f *fakeLister) List(context.Context) ([]*types.AlertConfig, error) {
	return f.configs, f.err
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	data  map[string]*types.ForecastData
	errs  map[string]error
}

func key(lat, lon float64) string { return coordKey(types.ProviderOpenMeteo, lat, lon) }

func (f *fakeFetcher) Fetch(_ context.Context, lat, lon float64) (*types.ForecastData, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err, ok := f.errs[key(lat, lon)]; ok {
		return nil, err
	}
	if d, ok := f.data[key(lat, lon)]; ok {
		return d, nil
	}
	return &types.ForecastData{Latitude: lat, Longitude: lon}, nil
}

func (f *fakeFetcher) ActiveKind() types.ProviderKind { return types.ProviderOpenMeteo }

type fakeHistory struct {
	mu      sync.Mutex
	entries []*types.AlertHistory
}

func (f *fakeHistory) Append(_ context.Context, entry *types.AlertHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, n notify.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

type fakeSnapshots struct {
	mu    sync.Mutex
	saved []*types.ForecastSnapshot
	err   error
}

func (f *fakeSnapshots) Save(_ context.Context, snap *types.ForecastSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, snap)
	return nil
}

func testAlert(id string, lat, lon float64, threshold float32) *types.AlertConfig {
	return &types.AlertConfig{
		ID:          id,
		CityID:      "city-" + id,
		Category:    types.CategorySnow,
		ThresholdMM: threshold,
		City: &types.City{
			ID:        "city-" + id,
			Name:      "City " + id,
			Latitude:  lat,
			Longitude: lon,
		},
	}
}

func newTestCycle(lister *fakeLister, fetcher *fakeFetcher, history *fakeHistory, notifier *fakeNotifier, snaps *fakeSnapshots) *Cycle {
	clock := fixedClock{time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	gate := alerts.NewGate(history, clock, nopLogger{})
	return NewCycle(lister, fetcher, gate, notifier, notify.NopMetrics{}, snaps, clock, nopLogger{}, 4)
}

func TestCycleRun_TriggersAndNotifies(t *testing.T) {
	fetcher := &fakeFetcher{
		data: map[string]*types.ForecastData{
			key(46.5, 6.6): {Latitude: 46.5, Longitude: 6.6, Snow: types.Snow{DailyCumulativeMM: 12.0}},
		},
	}
	lister := &fakeLister{configs: []*types.AlertConfig{testAlert("a1", 46.5, 6.6, 5.0)}}
	notifier := &fakeNotifier{}
	history := &fakeHistory{}
	snaps := &fakeSnapshots{}

	stats := newTestCycle(lister, fetcher, history, notifier, snaps).Run(context.Background())

	assert.Equal(t, 1, stats.Alerts)
	assert.Equal(t, 1, stats.Triggered)
	assert.Equal(t, 1, stats.Notified)
	assert.Equal(t, 0, stats.Failed)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "precip-snow-city-a1-a1", notifier.sent[0].Tag)
	require.Len(t, history.entries, 1)
	assert.Equal(t, 12.0, history.entries[0].WeatherValueMM)
	require.Len(t, snaps.saved, 1)
	assert.Equal(t, types.ProviderOpenMeteo, snaps.saved[0].Provider)
}

func TestCycleRun_CoalescesSameCoordinate(t *testing.T) {
	fetcher := &fakeFetcher{
		data: map[string]*types.ForecastData{
			key(46.5, 6.6): {Latitude: 46.5, Longitude: 6.6, Snow: types.Snow{DailyCumulativeMM: 12.0}, Rain: types.Rain{DailyCumulativeMM: 3.0}},
		},
	}
	// Three alerts on the same coordinate: one fetch, one snapshot.
	a1 := testAlert("a1", 46.5, 6.6, 5.0)
	a2 := testAlert("a2", 46.5, 6.6, 20.0)
	a3 := testAlert("a3", 46.5, 6.6, 1.0)
	a3.Category = types.CategoryRain
	lister := &fakeLister{configs: []*types.AlertConfig{a1, a2, a3}}
	notifier := &fakeNotifier{}
	snaps := &fakeSnapshots{}

	stats := newTestCycle(lister, fetcher, &fakeHistory{}, notifier, snaps).Run(context.Background())

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, stats.Fetches)
	assert.Len(t, snaps.saved, 1)
	// a1 (12 > 5) and a3 (3 > 1) trigger; a2 (12 <= 20) does not.
	assert.Equal(t, 2, stats.Triggered)
	assert.Equal(t, 2, stats.Notified)
}

func TestCycleRun_ProviderFailureIsolatedPerCoordinate(t *testing.T) {
	fetcher := &fakeFetcher{
		data: map[string]*types.ForecastData{
			key(46.5, 6.6): {Latitude: 46.5, Longitude: 6.6, Snow: types.Snow{DailyCumulativeMM: 12.0}},
		},
		errs: map[string]error{
			key(47.0, 7.0): types.NewAppError(types.ErrCodeUpstreamTransport, "provider request failed", nil),
		},
	}
	lister := &fakeLister{configs: []*types.AlertConfig{
		testAlert("a1", 46.5, 6.6, 5.0),
		testAlert("a2", 47.0, 7.0, 5.0),
	}}
	notifier := &fakeNotifier{}

	stats := newTestCycle(lister, fetcher, &fakeHistory{}, notifier, &fakeSnapshots{}).Run(context.Background())

	// The failing coordinate does not stop the healthy one.
	assert.Equal(t, 1, stats.Notified)
	assert.Equal(t, 1, stats.Failed)
}

func TestCycleRun_SnoozedAlertSuppressed(t *testing.T) {
	fetcher := &fakeFetcher{
		data: map[string]*types.ForecastData{
			key(46.5, 6.6): {Latitude: 46.5, Longitude: 6.6, Snow: types.Snow{DailyCumulativeMM: 12.0}},
		},
	}
	alert := testAlert("a1", 46.5, 6.6, 5.0)
	until := time.Date(2026, 1, 10, 12, 30, 0, 0, time.UTC)
	alert.SnoozedUntil = &until
	lister := &fakeLister{configs: []*types.AlertConfig{alert}}
	notifier := &fakeNotifier{}
	history := &fakeHistory{}

	stats := newTestCycle(lister, fetcher, history, notifier, &fakeSnapshots{}).Run(context.Background())

	assert.Equal(t, 1, stats.Triggered)
	assert.Equal(t, 1, stats.Suppressed)
	assert.Equal(t, 0, stats.Notified)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, history.entries)
}

func TestCycleRun_DeliveryFailureCounted(t *testing.T) {
	fetcher := &fakeFetcher{
		data: map[string]*types.ForecastData{
			key(46.5, 6.6): {Latitude: 46.5, Longitude: 6.6, Snow: types.Snow{DailyCumulativeMM: 12.0}},
		},
	}
	lister := &fakeLister{configs: []*types.AlertConfig{testAlert("a1", 46.5, 6.6, 5.0)}}
	notifier := &fakeNotifier{err: errors.New("webhook down")}

	stats := newTestCycle(lister, fetcher, &fakeHistory{}, notifier, &fakeSnapshots{}).Run(context.Background())

	assert.Equal(t, 1, stats.Triggered)
	assert.Equal(t, 0, stats.Notified)
	assert.Equal(t, 1, stats.Failed)
}

func TestCycleRun_ListFailureAborts(t *testing.T) {
	lister := &fakeLister{err: types.NewAppError(types.ErrCodeInternalDB, "db down", nil)}
	fetcher := &fakeFetcher{}

	stats := newTestCycle(lister, fetcher, &fakeHistory{}, &fakeNotifier{}, &fakeSnapshots{}).Run(context.Background())

	assert.Equal(t, 0, stats.Alerts)
	assert.Equal(t, 0, fetcher.calls)
}

func TestCycleRun_SnapshotFailureDoesNotBlockEvaluation(t *testing.T) {
	fetcher := &fakeFetcher{
		data: map[string]*types.ForecastData{
			key(46.5, 6.6): {Latitude: 46.5, Longitude: 6.6, Snow: types.Snow{DailyCumulativeMM: 12.0}},
		},
	}
	lister := &fakeLister{configs: []*types.AlertConfig{testAlert("a1", 46.5, 6.6, 5.0)}}
	notifier := &fakeNotifier{}
	snaps := &fakeSnapshots{err: errors.New("disk full")}

	stats := newTestCycle(lister, fetcher, &fakeHistory{}, notifier, snaps).Run(context.Background())

	assert.Equal(t, 1, stats.Notified)
}

func TestCycleRun_NextDayFallbackEndToEnd(t *testing.T) {
	// Zero cumulative with a positive next-day aggregate still triggers.
	fetcher := &fakeFetcher{
		data: map[string]*types.ForecastData{
			key(46.5, 6.6): {Latitude: 46.5, Longitude: 6.6, Snow: types.Snow{NextDayMM: 20.0}},
		},
	}
	lister := &fakeLister{configs: []*types.AlertConfig{testAlert("a1", 46.5, 6.6, 5.0)}}
	notifier := &fakeNotifier{}
	history := &fakeHistory{}

	stats := newTestCycle(lister, fetcher, history, notifier, &fakeSnapshots{}).Run(context.Background())

	assert.Equal(t, 1, stats.Notified)
	require.Len(t, history.entries, 1)
	assert.Equal(t, 20.0, history.entries[0].WeatherValueMM)
}
