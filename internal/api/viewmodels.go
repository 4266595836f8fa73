package api

import (
	"fmt"

	"github.com/bebther/bebther/internal/models"
	"github.com/bebther/bebther/internal/settings"
)

// Page carries the fields every template needs.
type Page struct {
	DarkTheme bool
}

// recordView is a WeatherRecord formatted for display: explicit plus
// signs on temperatures, units attached, the way the original UI
// rendered its labels.
type recordView struct {
	Date        string
	City        string
	Source      string
	Temperature string
	DayTemp     string
	NightTemp   string
	Humidity    string
	WindSpeed   string
	Pressure    string
	UVIndex     string
	Sunrise     string
	Sunset      string
}

func newRecordView(rec *models.WeatherRecord) *recordView {
	if rec == nil {
		return nil
	}
	v := &recordView{
		City:        rec.City,
		Source:      rec.Source,
		Temperature: signedDegrees(rec.Temperature),
		DayTemp:     signedDegrees(rec.DayTemperature),
		NightTemp:   signedDegrees(rec.NightTemperature),
		Humidity:    fmt.Sprintf("%.0f%%", rec.Humidity),
		WindSpeed:   fmt.Sprintf("%.1f m/s", rec.WindSpeed),
		Pressure:    fmt.Sprintf("%.0f", rec.Pressure),
		UVIndex:     fmt.Sprintf("%.1f", rec.UVIndex),
		Sunrise:     rec.SunriseTime,
		Sunset:      rec.SunsetTime,
	}
	if !rec.Date.IsZero() {
		v.Date = rec.Date.Format("2006-01-02")
	}
	return v
}

func signedDegrees(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.1f°", v)
	}
	return fmt.Sprintf("%.1f°", v)
}

type mainView struct {
	Page
	City      string
	Providers []string
	Selected  string
	Record    *recordView
	Notice    string
}

type compareDaysView struct {
	Page
	Today      *recordView
	Yesterday  *recordView
	TwoDaysAgo *recordView
}

type sourceColumn struct {
	Name   string
	Record *recordView
	Notice string
}

type compareSourcesView struct {
	Page
	Providers []string
	Left      sourceColumn
	Right     sourceColumn
}

type settingsView struct {
	Page
	Settings settings.Settings
	Notice   string
}
