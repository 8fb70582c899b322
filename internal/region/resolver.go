// Package region resolves photo clusters to political regions, combining
// remote reverse geocoding with an offline boundary-polygon fallback.
package region

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/placescan/internal/boundary"
	"github.com/sells-group/placescan/internal/model"
	"github.com/sells-group/placescan/internal/resilience"
	"github.com/sells-group/placescan/pkg/geocode"
)

// DefaultPace is the minimum spacing between successive resolutions. The
// coordinator must call Pace between clusters; resolutions are never
// parallelized within a scan.
const DefaultPace = 50 * time.Millisecond

// Option configures a Resolver.
type Option func(*Resolver)

// WithPace overrides the inter-resolution spacing.
func WithPace(d time.Duration) Option {
	return func(r *Resolver) {
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithRetryConfig overrides the retry policy for the remote geocode call.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(r *Resolver) {
		r.retryCfg = cfg
	}
}

// Resolver maps a cluster's representative coordinate to a canonical region.
// Every outcome is a region or nil; network failures degrade to the boundary
// fallback, never out of Resolve.
type Resolver struct {
	geocoder geocode.Client
	index    *boundary.Index
	limiter  *rate.Limiter
	retryCfg resilience.RetryConfig
	log      *zap.Logger
}

// NewResolver creates a Resolver over the given geocoder and boundary index.
func NewResolver(gc geocode.Client, ix *boundary.Index, opts ...Option) *Resolver {
	r := &Resolver{
		geocoder: gc,
		index:    ix,
		limiter:  rate.NewLimiter(rate.Every(DefaultPace), 1),
		retryCfg: resilience.DefaultRetryConfig(),
		log:      zap.L().With(zap.String("component", "region.resolver")),
	}
	r.retryCfg.OnRetry = resilience.RetryLogger("geocode", "reverse")
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pace blocks until the provider rate budget allows the next resolution.
func (r *Resolver) Pace(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Resolve identifies the region for a cluster. It tries the remote geocoder
// first and falls back to the boundary index with a 500 m tolerance; nil
// means the cluster is unmatched and contributes only to statistics.
func (r *Resolver) Resolve(ctx context.Context, c model.PhotoCluster) *model.ResolvedRegion {
	coord := c.Representative

	var countryCode, countryName, adminName, regionCode, regionName string

	pm, err := resilience.DoVal(ctx, r.retryCfg, func(ctx context.Context) (*geocode.Placemark, error) {
		return r.geocoder.ReverseGeocode(ctx, coord.Lat, coord.Lon)
	})
	switch {
	case err == nil && pm.Matched():
		countryCode = pm.CountryCode
		countryName = pm.CountryName
		adminName = pm.AdministrativeArea
	default:
		if err != nil {
			r.log.Debug("remote geocode failed, trying boundary fallback",
				zap.String("grid_key", c.GridKey),
				zap.Error(err),
			)
		}
		m := r.index.MatchWithTolerance(coord, boundary.DefaultToleranceMeters)
		if m == nil {
			return nil
		}
		countryCode = m.CountryCode
		countryName = m.CountryName
		regionCode = m.RegionCode
		regionName = m.RegionName
	}

	resolved := &model.ResolvedRegion{
		CountryCode: countryCode,
		CountryName: countryName,
		Type:        model.RegionCountry,
	}

	if !HasSubdivisions(countryCode) {
		return resolved
	}

	switch {
	case regionCode != "":
		// Boundary match already carries a canonical subdivision code.
		resolved.Type = model.RegionState
		resolved.RegionCode = regionCode
		resolved.RegionName = regionName
	case adminName != "":
		resolved.Type = model.RegionState
		resolved.RegionCode = SubdivisionCode(countryCode, adminName)
		resolved.RegionName = adminName
	}

	return resolved
}
