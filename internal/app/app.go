// Package app owns the application state the original kept in globals:
// current city, selected provider, last fetched record, theme and
// autorun flag.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bebther/bebther/internal/models"
	"github.com/bebther/bebther/internal/provider"
	"github.com/bebther/bebther/internal/settings"
	"github.com/bebther/bebther/internal/store"
)

// ErrNothingFetched means a save was requested before any successful
// fetch.
var ErrNothingFetched = errors.New("no weather data fetched yet")

// App orchestrates providers, the record store and the settings file.
// The mutex guards state because the web UI serves concurrent requests;
// store writes themselves remain single-writer.
type App struct {
	store        *store.Store
	registry     *provider.Registry
	settingsPath string
	loc          *time.Location

	mu       sync.Mutex
	prefs    settings.Settings
	city     string
	selected provider.Provider
	last     *models.WeatherRecord
}

func New(st *store.Store, registry *provider.Registry, settingsPath string, loc *time.Location) *App {
	prefs := settings.Load(settingsPath)
	return &App{
		store:        st,
		registry:     registry,
		settingsPath: settingsPath,
		loc:          loc,
		prefs:        prefs,
		city:         prefs.DefaultCity,
		selected:     registry.Default(),
	}
}

func (a *App) City() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.city
}

func (a *App) SetCity(city string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.city = city
}

func (a *App) Providers() []string {
	return a.registry.Names()
}

func (a *App) SelectedProvider() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selected == nil {
		return ""
	}
	return a.selected.Name()
}

func (a *App) SelectProvider(name string) error {
	p, err := a.registry.Get(name)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.selected = p
	a.mu.Unlock()
	return nil
}

// Last returns a copy of the last fetched record, or nil.
func (a *App) Last() *models.WeatherRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return nil
	}
	rec := *a.last
	return &rec
}

// Refresh fetches current weather for the current city via the selected
// provider and caches it as the last fetched record. On failure the
// cached record is left untouched.
func (a *App) Refresh(ctx context.Context) (*models.WeatherRecord, error) {
	a.mu.Lock()
	p := a.selected
	city := a.city
	a.mu.Unlock()

	if p == nil {
		return nil, fmt.Errorf("no provider selected")
	}

	id, err := p.ResolveCity(ctx, city)
	if err != nil {
		return nil, err
	}
	rec, err := p.FetchCurrent(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.City = city
	rec.Source = p.Name()

	a.mu.Lock()
	a.last = rec
	a.mu.Unlock()

	out := *rec
	return &out, nil
}

// SaveToday stamps the last fetched record with today's date and writes
// it to the store.
func (a *App) SaveToday() error {
	a.mu.Lock()
	last := a.last
	a.mu.Unlock()

	if last == nil {
		return ErrNothingFetched
	}
	rec := *last
	rec.Date = models.DateOnly(time.Now(), a.loc)
	return a.store.Write(rec)
}

// RecordForDate reads the stored record for a date. Past records are
// read-only history; nil means nothing was logged that day.
func (a *App) RecordForDate(date time.Time) (*models.WeatherRecord, error) {
	return a.store.Read(date)
}

// RecordForDaysAgo reads the stored record n days before today.
func (a *App) RecordForDaysAgo(n int) (*models.WeatherRecord, error) {
	return a.RecordForDate(models.DateOnly(time.Now(), a.loc).AddDate(0, 0, -n))
}

// CompareSources fetches the current city live from two providers. A
// side that fails yields a nil record and its error; the other side is
// unaffected.
func (a *App) CompareSources(ctx context.Context, left, right string) (l, r *models.WeatherRecord, lerr, rerr error) {
	l, lerr = a.fetchFrom(ctx, left)
	r, rerr = a.fetchFrom(ctx, right)
	return l, r, lerr, rerr
}

func (a *App) fetchFrom(ctx context.Context, name string) (*models.WeatherRecord, error) {
	p, err := a.registry.Get(name)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	city := a.city
	a.mu.Unlock()

	id, err := p.ResolveCity(ctx, city)
	if err != nil {
		return nil, err
	}
	rec, err := p.FetchCurrent(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.City = city
	rec.Source = p.Name()
	return rec, nil
}

func (a *App) Settings() settings.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prefs
}

// UpdateSettings applies new preferences and persists them. Changing
// the default city also updates the current city, mirroring the
// original's settings screen.
func (a *App) UpdateSettings(s settings.Settings) error {
	a.mu.Lock()
	changedCity := s.DefaultCity != a.prefs.DefaultCity
	a.prefs = s
	if changedCity {
		a.city = s.DefaultCity
	}
	path := a.settingsPath
	a.mu.Unlock()

	return settings.Save(path, s)
}
