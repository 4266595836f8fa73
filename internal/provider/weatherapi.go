package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/bebther/bebther/internal/httputil"
	"github.com/bebther/bebther/internal/metrics"
	"github.com/bebther/bebther/internal/models"
)

const weatherAPIBaseURL = "https://api.weatherapi.com/v1"

// weatherapi.com error code for "no matching location found".
const weatherAPINoLocation = 1006

// WeatherAPI is the second data source, so the source-comparison view
// has something to compare against OpenWeatherMap. A single
// forecast.json call carries current conditions, the day's extremes and
// the sunrise/sunset times.
type WeatherAPI struct {
	apiKey  string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewWeatherAPI(apiKey string) *WeatherAPI {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weatherapi",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &WeatherAPI{
		apiKey:  apiKey,
		baseURL: weatherAPIBaseURL,
		client:  httputil.NewClient(),
		breaker: cb,
	}
}

func (p *WeatherAPI) Name() string { return "WeatherAPI" }

// ResolveCity confirms the city exists via the search endpoint and
// returns the canonical name of the best match.
func (p *WeatherAPI) ResolveCity(ctx context.Context, displayName string) (string, error) {
	body, err := p.get(ctx, "search", fmt.Sprintf("%s/search.json?key=%s&q=%s", p.baseURL, p.apiKey, url.QueryEscape(displayName)))
	if err != nil {
		return "", err
	}
	matches := gjson.GetBytes(body, "@this")
	if !matches.IsArray() {
		return "", fmt.Errorf("%w: search response is not an array", ErrMalformedResponse)
	}
	first := gjson.GetBytes(body, "0.name")
	if !first.Exists() {
		return "", fmt.Errorf("%w: %q", ErrLocationNotFound, displayName)
	}
	return first.String(), nil
}

func (p *WeatherAPI) FetchCurrent(ctx context.Context, cityID string) (*models.WeatherRecord, error) {
	body, err := p.get(ctx, "forecast", fmt.Sprintf("%s/forecast.json?key=%s&q=%s&days=1", p.baseURL, p.apiKey, url.QueryEscape(cityID)))
	if err != nil {
		return nil, err
	}

	fields := gjson.GetManyBytes(body,
		"current.temp_c",
		"current.humidity",
		"current.wind_kph",
		"current.pressure_mb",
		"current.uv",
		"forecast.forecastday.0.day.maxtemp_c",
		"forecast.forecastday.0.day.mintemp_c",
		"forecast.forecastday.0.astro.sunrise",
		"forecast.forecastday.0.astro.sunset",
	)
	for _, f := range fields {
		if !f.Exists() {
			return nil, fmt.Errorf("%w: forecast response missing fields", ErrMalformedResponse)
		}
	}

	sunrise, err := parse12Hour(fields[7].String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	sunset, err := parse12Hour(fields[8].String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &models.WeatherRecord{
		Temperature:      models.Round1(fields[0].Float()),
		DayTemperature:   models.Round1(fields[5].Float()),
		NightTemperature: models.Round1(fields[6].Float()),
		Pressure:         fields[3].Float(),
		UVIndex:          fields[4].Float(),
		SunriseTime:      sunrise,
		SunsetTime:       sunset,
		Humidity:         fields[1].Float(),
		WindSpeed:        fields[2].Float(),
	}, nil
}

// parse12Hour converts weatherapi.com's "07:19 AM" astro times into
// 24-hour HH:MM.
func parse12Hour(s string) (string, error) {
	t, err := time.Parse("03:04 PM", s)
	if err != nil {
		return "", fmt.Errorf("invalid astro time %q", s)
	}
	return t.Format("15:04"), nil
}

func (p *WeatherAPI) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		resp, err := p.client.Do(req)
		metrics.ProviderAPILatency.WithLabelValues(p.Name(), endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ProviderAPICallsTotal.WithLabelValues(p.Name(), endpoint, "error").Inc()
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		defer resp.Body.Close()

		metrics.ProviderAPICallsTotal.WithLabelValues(p.Name(), endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrProviderUnavailable, err)
		}
		if resp.StatusCode != http.StatusOK {
			if gjson.GetBytes(body, "error.code").Int() == weatherAPINoLocation {
				return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, gjson.GetBytes(body, "error.message").String())
			}
			return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
		}
		return body, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit open", ErrProviderUnavailable)
		}
		return nil, err
	}
	return result.([]byte), nil
}
