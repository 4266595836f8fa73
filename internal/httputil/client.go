package httputil

import (
	"net/http"
	"time"
)

// ProviderTimeout caps a single weather API call. Retries on top of it
// are the caller's concern.
const ProviderTimeout = 30 * time.Second

// NewClient returns the HTTP client used to talk to weather providers.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: ProviderTimeout,
	}
}
