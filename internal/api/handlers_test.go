package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precipwatch/internal/checker"
	"precipwatch/internal/config"
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

type fakeCityStore struct {
	cities map[string]*types.City
}

func newFakeCityStore() *fakeCityStore {
	return &fakeCityStore{cities: make(map[string]*types.City)}
}

func (f *fakeCityStore) Create(_ context.Context, city *types.City) error {
	f.cities[city.ID] = city
	return nil
}

func (f *fakeCityStore) GetByID(_ context.Context, id string) (*types.City, error) {
	city, ok := f.cities[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundCity, "city not found", nil)
	}
	return city, nil
}

func (f *fakeCityStore) List(context.Context) ([]*types.City, error) {
	var out []*types.City
	for _, c := range f.cities {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCityStore) Update(_ context.Context, city *types.City) error {
	if _, ok := f.cities[city.ID]; !ok {
		return types.NewAppError(types.ErrCodeNotFoundCity, "city not found", nil)
	}
	f.cities[city.ID] = city
	return nil
}

func (f *fakeCityStore) Delete(_ context.Context, id string) error {
	if _, ok := f.cities[id]; !ok {
		return types.NewAppError(types.ErrCodeNotFoundCity, "city not found", nil)
	}
	delete(f.cities, id)
	return nil
}

type fakeAlertStore struct {
	alerts map[string]*types.AlertConfig
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{alerts: make(map[string]*types.AlertConfig)}
}

func (f *fakeAlertStore) Create(_ context.Context, alert *types.AlertConfig) error {
	f.alerts[alert.ID] = alert
	return nil
}

func (f *fakeAlertStore) GetByID(_ context.Context, id string) (*types.AlertConfig, error) {
	alert, ok := f.alerts[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundAlert, "alert config not found", nil)
	}
	return alert, nil
}

func (f *fakeAlertStore) List(context.Context) ([]*types.AlertConfig, error) {
	var out []*types.AlertConfig
	for _, a := range f.alerts {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAlertStore) ListByCity(_ context.Context, cityID string) ([]*types.AlertConfig, error) {
	var out []*types.AlertConfig
	for _, a := range f.alerts {
		if a.CityID == cityID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertStore) Update(_ context.Context, alert *types.AlertConfig) error {
	if _, ok := f.alerts[alert.ID]; !ok {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert config not found", nil)
	}
	f.alerts[alert.ID] = alert
	return nil
}

func (f *fakeAlertStore) UpdateSnoozedUntil(_ context.Context, id string, until *time.Time) error {
	alert, ok := f.alerts[id]
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert config not found", nil)
	}
	alert.SnoozedUntil = until
	return nil
}

func (f *fakeAlertStore) Delete(_ context.Context, id string) error {
	if _, ok := f.alerts[id]; !ok {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert config not found", nil)
	}
	delete(f.alerts, id)
	return nil
}

type fakeHistoryReader struct {
	entries []*types.AlertHistory
}

func (f *fakeHistoryReader) List(_ context.Context, limit int) ([]*types.AlertHistory, error) {
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

type fakeSnapshotReader struct {
	snap *types.ForecastSnapshot
}

func (f *fakeSnapshotReader) GetLatest(context.Context, float64, float64) (*types.ForecastSnapshot, error) {
	return f.snap, nil
}

type fakeCycleRunner struct{ runs int }

func (f *fakeCycleRunner) Run(context.Context) checker.Stats {
	f.runs++
	return checker.Stats{}
}

type serverFixture struct {
	server  *Server
	cities  *fakeCityStore
	alerts  *fakeAlertStore
	history *fakeHistoryReader
	snaps   *fakeSnapshotReader
	router  http.Handler
}

func newFixture() *serverFixture {
	cities := newFakeCityStore()
	alertStore := newFakeAlertStore()
	history := &fakeHistoryReader{}
	snaps := &fakeSnapshotReader{}
	srv := NewServer(
		config.ServerConfig{Port: "8080"},
		config.BuildInfo{Version: "1.2.3", Commit: "abc123"},
		cities,
		alertStore,
		history,
		snaps,
		&fakeCycleRunner{},
		time.UTC,
		fixedClock{time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)},
		nopLogger{},
	)
	return &serverFixture{
		server:  srv,
		cities:  cities,
		alerts:  alertStore,
		history: history,
		snaps:   snaps,
		router:  srv.Routes(),
	}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestCreateCity_Success(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/cities", cityRequest{Name: "Lausanne", Latitude: 46.5197, Longitude: 6.6323})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data types.City `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Lausanne", resp.Data.Name)
	assert.NotEmpty(t, resp.Data.ID)
	assert.Len(t, f.cities.cities, 1)
}

func TestCreateCity_InvalidLatitude(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/cities", cityRequest{Name: "Nowhere", Latitude: 91.0, Longitude: 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidLat), errorCode(t, rec))
	assert.Empty(t, f.cities.cities)
}

func TestGetCity_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/v1/cities/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(types.ErrCodeNotFoundCity), errorCode(t, rec))
}

func TestCreateAlert_UnknownCity(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/alerts", alertRequest{CityID: "missing", Category: "snow", ThresholdMM: 10})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(types.ErrCodeNotFoundCity), errorCode(t, rec))
}

func TestCreateAlert_InvalidThreshold(t *testing.T) {
	f := newFixture()
	f.cities.cities["c1"] = &types.City{ID: "c1", Name: "Lausanne", Latitude: 46.5, Longitude: 6.6}

	rec := f.do(t, http.MethodPost, "/v1/alerts", alertRequest{CityID: "c1", Category: "snow", ThresholdMM: 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationThreshold), errorCode(t, rec))
}

func TestCreateAlert_Success(t *testing.T) {
	f := newFixture()
	f.cities.cities["c1"] = &types.City{ID: "c1", Name: "Lausanne", Latitude: 46.5, Longitude: 6.6}

	rec := f.do(t, http.MethodPost, "/v1/alerts", alertRequest{CityID: "c1", Category: "rain", ThresholdMM: 5.5})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data types.AlertConfig `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.CategoryRain, resp.Data.Category)
	require.NotNil(t, resp.Data.City)
	assert.Equal(t, "Lausanne", resp.Data.City.Name)
}

func TestSnoozeAlert_OneHour(t *testing.T) {
	f := newFixture()
	f.alerts.alerts["a1"] = &types.AlertConfig{ID: "a1", CityID: "c1", Category: types.CategorySnow, ThresholdMM: 5}

	rec := f.do(t, http.MethodPost, "/v1/alerts/a1/snooze", snoozeRequest{Option: "1h"})
	require.Equal(t, http.StatusOK, rec.Code)

	want := time.Date(2026, 1, 10, 13, 0, 0, 0, time.UTC)
	require.NotNil(t, f.alerts.alerts["a1"].SnoozedUntil)
	assert.Equal(t, want, f.alerts.alerts["a1"].SnoozedUntil.UTC())
}

func TestSnoozeAlert_UntilTomorrow(t *testing.T) {
	f := newFixture()
	f.alerts.alerts["a1"] = &types.AlertConfig{ID: "a1", CityID: "c1", Category: types.CategorySnow, ThresholdMM: 5}

	rec := f.do(t, http.MethodPost, "/v1/alerts/a1/snooze", snoozeRequest{Option: "until_tomorrow"})
	require.Equal(t, http.StatusOK, rec.Code)

	want := time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC)
	require.NotNil(t, f.alerts.alerts["a1"].SnoozedUntil)
	assert.Equal(t, want, f.alerts.alerts["a1"].SnoozedUntil.UTC())
}

func TestSnoozeAlert_InvalidOption(t *testing.T) {
	f := newFixture()
	f.alerts.alerts["a1"] = &types.AlertConfig{ID: "a1", CityID: "c1", Category: types.CategorySnow, ThresholdMM: 5}

	rec := f.do(t, http.MethodPost, "/v1/alerts/a1/snooze", snoozeRequest{Option: "forever"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationSnoozeOption), errorCode(t, rec))
	assert.Nil(t, f.alerts.alerts["a1"].SnoozedUntil)
}

func TestClearSnooze(t *testing.T) {
	f := newFixture()
	until := time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC)
	f.alerts.alerts["a1"] = &types.AlertConfig{ID: "a1", SnoozedUntil: &until}

	rec := f.do(t, http.MethodDelete, "/v1/alerts/a1/snooze", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, f.alerts.alerts["a1"].SnoozedUntil)
}

func TestListHistory_LimitValidation(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/v1/history?limit=abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/history?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetCityForecast_NoSnapshot(t *testing.T) {
	f := newFixture()
	f.cities.cities["c1"] = &types.City{ID: "c1", Name: "Lausanne", Latitude: 46.5, Longitude: 6.6}

	rec := f.do(t, http.MethodGet, "/v1/cities/c1/forecast", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCityForecast_Success(t *testing.T) {
	f := newFixture()
	f.cities.cities["c1"] = &types.City{ID: "c1", Name: "Lausanne", Latitude: 46.5, Longitude: 6.6}
	f.snaps.snap = &types.ForecastSnapshot{
		ID:       "snap1",
		Provider: types.ProviderOpenMeteo,
		Data:     types.ForecastData{Snow: types.Snow{DailyCumulativeMM: 8}},
	}

	rec := f.do(t, http.MethodGet, "/v1/cities/c1/forecast", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data types.ForecastSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 8.0, resp.Data.Data.Snow.DailyCumulativeMM)
}

func TestHealth(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestUnknownField_Rejected(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodPost, "/v1/cities", bytes.NewReader([]byte(`{"name":"X","latitude":1,"longitude":1,"unknown":true}`)))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errCodeValidationInvalidJSON), errorCode(t, rec))
}
