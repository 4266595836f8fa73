package app

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bebther/bebther/internal/models"
	"github.com/bebther/bebther/internal/provider"
	"github.com/bebther/bebther/internal/store"
)

type stubProvider struct {
	name    string
	rec     models.WeatherRecord
	err     error
	fetched int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) ResolveCity(ctx context.Context, displayName string) (string, error) {
	return displayName, nil
}

func (s *stubProvider) FetchCurrent(ctx context.Context, cityID string) (*models.WeatherRecord, error) {
	s.fetched++
	if s.err != nil {
		return nil, s.err
	}
	rec := s.rec
	return &rec, nil
}

func setupApp(t *testing.T, providers ...provider.Provider) *App {
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
	settingsPath := filepath.Join(t.TempDir(), "settings.json")
	return New(st, provider.NewRegistry(providers...), settingsPath, time.UTC)
}

func stubRecord() models.WeatherRecord {
	return models.WeatherRecord{
		Temperature:      15.2,
		DayTemperature:   17.8,
		NightTemperature: 9.4,
		Pressure:         1013,
		UVIndex:          3.2,
		SunriseTime:      models.FormatClock(1700000000, time.UTC),
		SunsetTime:       models.FormatClock(1700040000, time.UTC),
		Humidity:         80,
		WindSpeed:        4.6,
	}
}

func TestFetchSaveReadEndToEnd(t *testing.T) {
	stub := &stubProvider{name: "Stub", rec: stubRecord()}
	a := setupApp(t, stub)

	rec, err := a.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rec.City != "London" {
		t.Errorf("City = %q, want London (default city)", rec.City)
	}
	if rec.Source != "Stub" {
		t.Errorf("Source = %q, want Stub", rec.Source)
	}
	if rec.SunriseTime != "22:13" || rec.SunsetTime != "09:20" {
		t.Errorf("times = %q/%q, want 22:13/09:20", rec.SunriseTime, rec.SunsetTime)
	}

	if err := a.SaveToday(); err != nil {
		t.Fatalf("SaveToday: %v", err)
	}

	got, err := a.RecordForDaysAgo(0)
	if err != nil {
		t.Fatalf("RecordForDaysAgo: %v", err)
	}
	if got == nil {
		t.Fatal("no record for today after SaveToday")
	}
	if got.Temperature != 15.2 || got.Humidity != 80 {
		t.Errorf("temperature/humidity = %v/%v, want 15.2/80", got.Temperature, got.Humidity)
	}
	if got.SunriseTime != "22:13" || got.SunsetTime != "09:20" {
		t.Errorf("times = %q/%q, want 22:13/09:20", got.SunriseTime, got.SunsetTime)
	}
	if got.City != "London" || got.Source != "Stub" {
		t.Errorf("identity = %q/%q, want London/Stub", got.City, got.Source)
	}
}

func TestSaveTodayWithoutFetch(t *testing.T) {
	a := setupApp(t, &stubProvider{name: "Stub", rec: stubRecord()})

	if err := a.SaveToday(); !errors.Is(err, ErrNothingFetched) {
		t.Fatalf("SaveToday error = %v, want ErrNothingFetched", err)
	}
}

func TestSaveTodayTwiceRejected(t *testing.T) {
	a := setupApp(t, &stubProvider{name: "Stub", rec: stubRecord()})

	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := a.SaveToday(); err != nil {
		t.Fatalf("first SaveToday: %v", err)
	}
	if err := a.SaveToday(); !errors.Is(err, store.ErrDuplicateDate) {
		t.Fatalf("second SaveToday error = %v, want ErrDuplicateDate", err)
	}
}

func TestRefreshFailureKeepsLastRecord(t *testing.T) {
	stub := &stubProvider{name: "Stub", rec: stubRecord()}
	a := setupApp(t, stub)

	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	stub.err = provider.ErrProviderUnavailable
	if _, err := a.Refresh(context.Background()); !errors.Is(err, provider.ErrProviderUnavailable) {
		t.Fatalf("Refresh error = %v, want ErrProviderUnavailable", err)
	}

	if last := a.Last(); last == nil || last.Temperature != 15.2 {
		t.Errorf("Last() = %+v, want previous record preserved", last)
	}
}

func TestSelectProvider(t *testing.T) {
	first := &stubProvider{name: "First", rec: stubRecord()}
	second := &stubProvider{name: "Second", rec: stubRecord()}
	a := setupApp(t, first, second)

	if got := a.SelectedProvider(); got != "First" {
		t.Errorf("default provider = %q, want First", got)
	}
	if err := a.SelectProvider("Second"); err != nil {
		t.Fatalf("SelectProvider: %v", err)
	}
	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if second.fetched != 1 || first.fetched != 0 {
		t.Errorf("fetch counts = %d/%d, want 0/1", first.fetched, second.fetched)
	}
	if err := a.SelectProvider("Nope"); err == nil {
		t.Error("SelectProvider(Nope) = nil, want error")
	}
}

func TestCompareSources(t *testing.T) {
	okRec := stubRecord()
	good := &stubProvider{name: "Good", rec: okRec}
	bad := &stubProvider{name: "Bad", err: provider.ErrProviderUnavailable}
	a := setupApp(t, good, bad)

	l, r, lerr, rerr := a.CompareSources(context.Background(), "Good", "Bad")
	if lerr != nil {
		t.Fatalf("left error = %v", lerr)
	}
	if l == nil || l.Source != "Good" {
		t.Errorf("left = %+v, want record from Good", l)
	}
	if !errors.Is(rerr, provider.ErrProviderUnavailable) {
		t.Errorf("right error = %v, want ErrProviderUnavailable", rerr)
	}
	if r != nil {
		t.Errorf("right = %+v, want nil", r)
	}
}

func TestUpdateSettingsChangesCity(t *testing.T) {
	a := setupApp(t, &stubProvider{name: "Stub", rec: stubRecord()})

	s := a.Settings()
	s.DefaultCity = "Irkutsk"
	s.DarkTheme = false
	if err := a.UpdateSettings(s); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if a.City() != "Irkutsk" {
		t.Errorf("City = %q, want Irkutsk", a.City())
	}
	if a.Settings().DarkTheme {
		t.Error("DarkTheme = true, want false")
	}
}
