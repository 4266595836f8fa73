package api_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bebther/bebther/internal/api"
	"github.com/bebther/bebther/internal/app"
	"github.com/bebther/bebther/internal/models"
	"github.com/bebther/bebther/internal/provider"
	"github.com/bebther/bebther/internal/store"
)

type stubProvider struct {
	name string
	rec  models.WeatherRecord
	err  error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) ResolveCity(ctx context.Context, displayName string) (string, error) {
	return displayName, nil
}

func (s *stubProvider) FetchCurrent(ctx context.Context, cityID string) (*models.WeatherRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	rec := s.rec
	return &rec, nil
}

func stubRecord() models.WeatherRecord {
	return models.WeatherRecord{
		Temperature:      15.2,
		DayTemperature:   17.8,
		NightTemperature: 9.4,
		Pressure:         1013,
		UVIndex:          3.2,
		SunriseTime:      "07:19",
		SunsetTime:       "16:42",
		Humidity:         80,
		WindSpeed:        4.6,
	}
}

func setupServer(t *testing.T, providers ...provider.Provider) (*api.Server, *app.App) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	st, err := store.NewWithDB(db, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	a := app.New(st, provider.NewRegistry(providers...), filepath.Join(t.TempDir(), "settings.json"), time.UTC)
	return api.NewServer(a, "8080"), a
}

func get(t *testing.T, srv *api.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func postForm(t *testing.T, srv *api.Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupServer(t, &stubProvider{name: "Stub", rec: stubRecord()})

	w := get(t, srv, "/health")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status"`) {
		t.Error("expected status field in JSON response")
	}
}

func TestIndexBeforeFetch(t *testing.T) {
	srv, _ := setupServer(t, &stubProvider{name: "Stub", rec: stubRecord()})

	w := get(t, srv, "/")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "No weather fetched yet") {
		t.Error("expected empty-state message")
	}
	if !strings.Contains(body, `value="London"`) {
		t.Error("expected default city in the city field")
	}
	if !strings.Contains(body, `class="dark"`) {
		t.Error("expected dark theme by default")
	}
}

func TestRefreshThenIndexShowsRecord(t *testing.T) {
	srv, _ := setupServer(t, &stubProvider{name: "Stub", rec: stubRecord()})

	w := postForm(t, srv, "/refresh", url.Values{"city": {"London"}, "provider": {"Stub"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("refresh status = %d, want 303", w.Code)
	}

	body := get(t, srv, "/").Body.String()
	if !strings.Contains(body, "+15.2°") {
		t.Errorf("expected temperature in page, got:\n%s", body)
	}
	if !strings.Contains(body, "07:19") || !strings.Contains(body, "16:42") {
		t.Error("expected sunrise and sunset times in page")
	}
}

func TestRefreshFailureRedirectsWithNotice(t *testing.T) {
	srv, _ := setupServer(t, &stubProvider{name: "Stub", err: provider.ErrProviderUnavailable})

	w := postForm(t, srv, "/refresh", url.Values{})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.Contains(loc, "notice=") {
		t.Errorf("Location = %q, want a notice", loc)
	}
}

func TestSaveAndCompareDays(t *testing.T) {
	srv, a := setupServer(t, &stubProvider{name: "Stub", rec: stubRecord()})

	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	w := postForm(t, srv, "/save", url.Values{})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("save status = %d, want 303", w.Code)
	}
	if !strings.Contains(w.Header().Get("Location"), "notice=saved") {
		t.Errorf("Location = %q, want saved notice", w.Header().Get("Location"))
	}

	body := get(t, srv, "/compare/days").Body.String()
	if !strings.Contains(body, "+15.2°") && !strings.Contains(body, "+17.8°") {
		t.Error("expected today's record in compare-days view")
	}
	if !strings.Contains(body, "No weather logged that day") {
		t.Error("expected empty state for days with no record")
	}
}

func TestSaveWithoutFetch(t *testing.T) {
	srv, _ := setupServer(t, &stubProvider{name: "Stub", rec: stubRecord()})

	w := postForm(t, srv, "/save", url.Values{})
	if !strings.Contains(w.Header().Get("Location"), "notice=") {
		t.Error("expected save-failure notice")
	}
}

func TestCompareSources(t *testing.T) {
	good := &stubProvider{name: "Good", rec: stubRecord()}
	bad := &stubProvider{name: "Bad", err: provider.ErrProviderUnavailable}
	srv, _ := setupServer(t, good, bad)

	body := get(t, srv, "/compare/sources?left=Good&right=Bad").Body.String()
	if !strings.Contains(body, "+15.2°") {
		t.Error("expected record from the working provider")
	}
	if !strings.Contains(body, "no weather data") {
		t.Error("expected notice for the failing provider")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	srv, a := setupServer(t, &stubProvider{name: "Stub", rec: stubRecord()})

	w := postForm(t, srv, "/settings", url.Values{
		"defaultCity": {"Irkutsk"},
		"theme":       {"light"},
		"autorun":     {"on"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}

	prefs := a.Settings()
	if prefs.DefaultCity != "Irkutsk" || prefs.DarkTheme || !prefs.Autorun {
		t.Errorf("settings = %+v, want Irkutsk/light/autorun", prefs)
	}
	if !strings.Contains(get(t, srv, "/").Body.String(), `class="light"`) {
		t.Error("expected light theme after settings change")
	}
}

func TestShareImage(t *testing.T) {
	srv, a := setupServer(t, &stubProvider{name: "Stub", rec: stubRecord()})

	if w := get(t, srv, "/share.png"); w.Code != http.StatusNotFound {
		t.Fatalf("share before fetch status = %d, want 404", w.Code)
	}

	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	w := get(t, srv, "/share.png")
	if w.Code != 200 {
		t.Fatalf("share status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupServer(t, &stubProvider{name: "Stub", rec: stubRecord()})

	w := get(t, srv, "/metrics")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
