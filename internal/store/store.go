// Package store persists one WeatherRecord per calendar day in a local
// SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bebther/bebther/internal/metrics"
	"github.com/bebther/bebther/internal/models"
)

var (
	// ErrStoreUnavailable means the backing database could not be
	// opened or created. Fatal at startup.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDuplicateDate means a record already exists for the date.
	// Records are immutable history: a second write for the same day is
	// rejected, never overwritten.
	ErrDuplicateDate = errors.New("record already exists for date")

	// ErrIncompleteRecord means the record failed validation and
	// nothing was written.
	ErrIncompleteRecord = errors.New("incomplete record")
)

const dateFormat = "2006-01-02"

// Store is the single process-wide handle to the weather database. It
// is opened once at startup and lives for the process lifetime.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// Open opens (creating if absent) the database at path and ensures the
// schema exists. Parent directories are created as needed.
func Open(path string, loc *time.Location) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrStoreUnavailable, dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &Store{db: db, loc: loc}, nil
}

// NewWithDB wraps an already-open database, running migrations. Used by
// tests with an in-memory database.
func NewWithDB(db *sql.DB, loc *time.Location) (*Store, error) {
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &Store{db: db, loc: loc}, nil
}

// Write inserts a record keyed by its date. The write is all-or-nothing:
// an incomplete record is rejected before touching the database, and a
// date that already has a record fails with ErrDuplicateDate.
func (s *Store) Write(rec models.WeatherRecord) error {
	if rec.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrIncompleteRecord)
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompleteRecord, err)
	}
	sunrise, _ := models.NormalizeClock(rec.SunriseTime)
	sunset, _ := models.NormalizeClock(rec.SunsetTime)

	res, err := s.db.Exec(`
		INSERT INTO weather (date, city, source, temperature, day_temperature, night_temperature, pressure, uv_index, sunrise_time, sunset_time, humidity, wind_speed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO NOTHING
	`, rec.Date.Format(dateFormat), rec.City, rec.Source,
		models.Round1(rec.Temperature), models.Round1(rec.DayTemperature), models.Round1(rec.NightTemperature),
		rec.Pressure, rec.UVIndex, sunrise, sunset, rec.Humidity, rec.WindSpeed)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	// DO NOTHING swallows the conflict, so detect it by row count.
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateDate, rec.Date.Format(dateFormat))
	}
	metrics.RecordsSaved.Inc()
	return nil
}

// Read fetches the record for a date. A date with no record returns
// (nil, nil): "no weather logged that day" is an expected outcome, not
// an error.
func (s *Store) Read(date time.Time) (*models.WeatherRecord, error) {
	row := s.db.QueryRow(`
		SELECT date, city, source, temperature, day_temperature, night_temperature, pressure, uv_index, sunrise_time, sunset_time, humidity, wind_speed
		FROM weather WHERE date = ?
	`, date.In(s.loc).Format(dateFormat))

	var rec models.WeatherRecord
	var day string
	err := row.Scan(&day, &rec.City, &rec.Source, &rec.Temperature, &rec.DayTemperature, &rec.NightTemperature,
		&rec.Pressure, &rec.UVIndex, &rec.SunriseTime, &rec.SunsetTime, &rec.Humidity, &rec.WindSpeed)
	if err == sql.ErrNoRows {
		metrics.RecordReads.WithLabelValues("false").Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	parsed, err := time.ParseInLocation(dateFormat, day, s.loc)
	if err != nil {
		return nil, fmt.Errorf("read record: parse date %q: %w", day, err)
	}
	rec.Date = parsed

	if rec.SunriseTime, err = models.NormalizeClock(rec.SunriseTime); err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	if rec.SunsetTime, err = models.NormalizeClock(rec.SunsetTime); err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	metrics.RecordReads.WithLabelValues("true").Inc()
	return &rec, nil
}

// Close releases the backing database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
