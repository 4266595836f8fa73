package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/bebther/bebther/internal/models"
)

// Fetch failures fall into three distinguishable classes. A provider
// never returns a partially filled record alongside an error.
var (
	// ErrProviderUnavailable means the upstream call failed or returned
	// a non-success status.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrLocationNotFound means the upstream could not resolve the
	// requested city.
	ErrLocationNotFound = errors.New("location not found")

	// ErrMalformedResponse means the upstream returned success but the
	// payload could not be interpreted.
	ErrMalformedResponse = errors.New("malformed response")
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap,
// WeatherAPI). Implementations are registered statically; there is no
// runtime plugin discovery.
type Provider interface {
	Name() string

	// ResolveCity translates a display name into the identifier the
	// provider's fetch endpoints expect.
	ResolveCity(ctx context.Context, displayName string) (string, error)

	// FetchCurrent returns a fully populated record for the current day,
	// with Date left zero for the caller to stamp at persistence time.
	FetchCurrent(ctx context.Context, cityID string) (*models.WeatherRecord, error)
}

// Registry is an ordered, static list of providers. The first entry is
// the default selection.
type Registry struct {
	providers []Provider
}

func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Names returns provider names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Get looks a provider up by name.
func (r *Registry) Get(name string) (Provider, error) {
	for _, p := range r.providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}

// Default returns the first registered provider, or nil if the registry
// is empty.
func (r *Registry) Default() Provider {
	if len(r.providers) == 0 {
		return nil
	}
	return r.providers[0]
}
