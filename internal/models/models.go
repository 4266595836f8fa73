package models

import (
	"fmt"
	"math"
	"time"
)

// WeatherRecord is the normalized set of weather measurements for one
// city on one day. Date stays zero until the record is persisted; the
// store stamps it with the current day at write time.
type WeatherRecord struct {
	Date             time.Time
	City             string
	Source           string
	Temperature      float64
	DayTemperature   float64
	NightTemperature float64
	Pressure         float64
	UVIndex          float64
	SunriseTime      string // HH:MM
	SunsetTime       string // HH:MM
	Humidity         float64
	WindSpeed        float64
}

// Validate reports whether the record is complete enough to persist.
// Writes are all-or-nothing: a record missing identity fields or with
// unparseable sunrise/sunset times is never stored.
func (r *WeatherRecord) Validate() error {
	if r.City == "" {
		return fmt.Errorf("missing city")
	}
	if r.Source == "" {
		return fmt.Errorf("missing source")
	}
	if _, err := NormalizeClock(r.SunriseTime); err != nil {
		return fmt.Errorf("sunrise time: %w", err)
	}
	if _, err := NormalizeClock(r.SunsetTime); err != nil {
		return fmt.Errorf("sunset time: %w", err)
	}
	return nil
}

// Round1 rounds a value to one decimal place. All temperature fields
// pass through this before display or storage.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatClock converts epoch seconds into an HH:MM wall-clock string in
// the given location.
func FormatClock(epoch int64, loc *time.Location) string {
	return time.Unix(epoch, 0).In(loc).Format("15:04")
}

// NormalizeClock accepts HH:MM or HH:MM:SS and returns the HH:MM form.
func NormalizeClock(s string) (string, error) {
	if t, err := time.Parse("15:04", s); err == nil {
		return t.Format("15:04"), nil
	}
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return "", fmt.Errorf("invalid clock value %q", s)
	}
	return t.Format("15:04"), nil
}

// DateOnly truncates a time to its calendar day in the given location.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
