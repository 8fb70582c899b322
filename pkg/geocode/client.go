// Package geocode provides reverse geocoding of coordinates to country and
// administrative-area identifications via a Nominatim-compatible HTTP API.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client resolves a coordinate to a placemark. Implementations may fail or
// time out; an empty placemark (no country code) is a valid "nothing here"
// answer, not an error.
type Client interface {
	// ReverseGeocode resolves a single coordinate.
	ReverseGeocode(ctx context.Context, lat, lon float64) (*Placemark, error)
}

// Placemark holds the usable subset of a reverse geocode response.
type Placemark struct {
	CountryCode        string // ISO 3166-1 alpha-2, upper case
	CountryName        string
	AdministrativeArea string // state/province name when the provider returns one
}

// Matched reports whether the placemark carries a usable country code.
func (p *Placemark) Matched() bool {
	return p != nil && p.CountryCode != ""
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURL points the client at a different Nominatim-compatible endpoint.
func WithBaseURL(base string) Option {
	return func(c *client) {
		c.baseURL = base
	}
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy requires
// an identifying agent.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

// NewClient creates a reverse-geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://nominatim.openstreetmap.org",
		userAgent:  "placescan/1.0",
		limiter:    rate.NewLimiter(1, 1), // Nominatim public limit: 1 req/s
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
