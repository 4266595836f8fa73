package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bebther/bebther/internal/httputil"
	"github.com/bebther/bebther/internal/metrics"
	"github.com/bebther/bebther/internal/models"
)

const owmBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherMap fetches a record in three calls: current conditions by
// city name (which also resolves coordinates), one-call by coordinates
// for the detail fields, and forecast by city name for the day/night
// extremes.
type OpenWeatherMap struct {
	apiKey  string
	baseURL string
	client  *http.Client
	loc     *time.Location
}

func NewOpenWeatherMap(apiKey string, loc *time.Location) *OpenWeatherMap {
	return &OpenWeatherMap{
		apiKey:  apiKey,
		baseURL: owmBaseURL,
		client:  httputil.NewClient(),
		loc:     loc,
	}
}

func (p *OpenWeatherMap) Name() string { return "OpenWeatherMap" }

// ResolveCity is a no-op for OpenWeatherMap: its endpoints accept the
// city name directly as a free-text query.
func (p *OpenWeatherMap) ResolveCity(ctx context.Context, displayName string) (string, error) {
	return displayName, nil
}

type owmCurrentResponse struct {
	Coord *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
}

type owmOneCallResponse struct {
	Current struct {
		Temp      *float64 `json:"temp"`
		Humidity  *float64 `json:"humidity"`
		WindSpeed *float64 `json:"wind_speed"`
		Pressure  *float64 `json:"pressure"`
		UVI       *float64 `json:"uvi"`
		Sunrise   *int64   `json:"sunrise"`
		Sunset    *int64   `json:"sunset"`
	} `json:"current"`
}

type owmForecastResponse struct {
	List []struct {
		Main struct {
			TempMax *float64 `json:"temp_max"`
			TempMin *float64 `json:"temp_min"`
		} `json:"main"`
	} `json:"list"`
}

func (p *OpenWeatherMap) FetchCurrent(ctx context.Context, cityID string) (*models.WeatherRecord, error) {
	q := url.QueryEscape(cityID)

	body, err := p.get(ctx, "weather", fmt.Sprintf("%s/weather?q=%s&appid=%s&units=metric", p.baseURL, q, p.apiKey))
	if err != nil {
		return nil, err
	}
	var current owmCurrentResponse
	if err := json.Unmarshal(body, &current); err != nil {
		return nil, fmt.Errorf("%w: decode current: %v", ErrMalformedResponse, err)
	}
	if current.Coord == nil {
		return nil, fmt.Errorf("%w: current response missing coord", ErrMalformedResponse)
	}

	body, err = p.get(ctx, "onecall", fmt.Sprintf("%s/onecall?lat=%s&lon=%s&appid=%s&units=metric",
		p.baseURL,
		strconv.FormatFloat(current.Coord.Lat, 'f', -1, 64),
		strconv.FormatFloat(current.Coord.Lon, 'f', -1, 64),
		p.apiKey))
	if err != nil {
		return nil, err
	}
	var onecall owmOneCallResponse
	if err := json.Unmarshal(body, &onecall); err != nil {
		return nil, fmt.Errorf("%w: decode onecall: %v", ErrMalformedResponse, err)
	}
	c := onecall.Current
	if c.Temp == nil || c.Humidity == nil || c.WindSpeed == nil || c.Pressure == nil ||
		c.UVI == nil || c.Sunrise == nil || c.Sunset == nil {
		return nil, fmt.Errorf("%w: onecall response missing current fields", ErrMalformedResponse)
	}

	body, err = p.get(ctx, "forecast", fmt.Sprintf("%s/forecast?q=%s&appid=%s&units=metric", p.baseURL, q, p.apiKey))
	if err != nil {
		return nil, err
	}
	var forecast owmForecastResponse
	if err := json.Unmarshal(body, &forecast); err != nil {
		return nil, fmt.Errorf("%w: decode forecast: %v", ErrMalformedResponse, err)
	}
	if len(forecast.List) == 0 || forecast.List[0].Main.TempMax == nil || forecast.List[0].Main.TempMin == nil {
		return nil, fmt.Errorf("%w: forecast response has no entries", ErrMalformedResponse)
	}

	return &models.WeatherRecord{
		Temperature:      models.Round1(*c.Temp),
		DayTemperature:   models.Round1(*forecast.List[0].Main.TempMax),
		NightTemperature: models.Round1(*forecast.List[0].Main.TempMin),
		Pressure:         *c.Pressure,
		UVIndex:          *c.UVI,
		SunriseTime:      models.FormatClock(*c.Sunrise, p.loc),
		SunsetTime:       models.FormatClock(*c.Sunset, p.loc),
		Humidity:         *c.Humidity,
		WindSpeed:        *c.WindSpeed,
	}, nil
}

// get performs a GET with retry on transient upstream failures.
// Rate-limit and server-error statuses are retried with exponential
// backoff; 404 maps to ErrLocationNotFound and every other non-200 is
// permanent.
func (p *OpenWeatherMap) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	var body []byte
	operation := func() error {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
		}
		resp, err := p.client.Do(req)
		metrics.ProviderAPILatency.WithLabelValues(p.Name(), endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ProviderAPICallsTotal.WithLabelValues(p.Name(), endpoint, "error").Inc()
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
		}
		defer resp.Body.Close()

		metrics.ProviderAPICallsTotal.WithLabelValues(p.Name(), endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrLocationNotFound, url))
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: read body: %v", ErrProviderUnavailable, err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
