// Package model holds the domain types shared across the discovery engine.
package model

import (
	"fmt"
	"math"
	"time"
)

// Coordinate is a WGS84 lat/lon pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PhotoSample is one geotagged (or untagged) photo library entry. Samples are
// ephemeral: they exist only while phase 1 of a scan is running.
type PhotoSample struct {
	AssetID    string      `json:"asset_id"`
	Coord      *Coordinate `json:"coord,omitempty"`
	CapturedAt *time.Time  `json:"captured_at,omitempty"`
}

// DefaultCellSizeDeg is the grid cell edge in degrees (~1 km), chosen to keep
// city-level granularity without exploding cluster counts.
const DefaultCellSizeDeg = 0.009

// GridKey returns the cell key for a coordinate. Cells are half-open
// intervals [n*cell, (n+1)*cell) on each axis, so the floor-division index is
// stable across resumes.
func GridKey(lat, lon, cellSizeDeg float64) string {
	return fmt.Sprintf("%d,%d",
		int64(math.Floor(lat/cellSizeDeg)),
		int64(math.Floor(lon/cellSizeDeg)),
	)
}

// PhotoCluster aggregates every sample that fell into one grid cell during a
// scan. Clusters only ever grow; they are never split once created.
type PhotoCluster struct {
	GridKey            string     `json:"grid_key"`
	Representative     Coordinate `json:"representative"`
	PhotoCount         int        `json:"photo_count"`
	EarliestCapturedAt *time.Time `json:"earliest_captured_at,omitempty"`
}

// Absorb folds one more sample into the cluster, incrementing the photo count
// and keeping the minimum capture time.
func (c *PhotoCluster) Absorb(s PhotoSample) {
	c.PhotoCount++
	if s.CapturedAt != nil {
		if c.EarliestCapturedAt == nil || s.CapturedAt.Before(*c.EarliestCapturedAt) {
			t := *s.CapturedAt
			c.EarliestCapturedAt = &t
		}
	}
}

// RegionType distinguishes country-level regions from tracked sub-national
// subdivisions.
type RegionType string

const (
	RegionCountry RegionType = "country"
	RegionState   RegionType = "state"
)

// ResolvedRegion is the canonical identification of the political region a
// cluster resolved to.
type ResolvedRegion struct {
	CountryCode string     `json:"country_code"` // ISO 3166-1 alpha-2
	CountryName string     `json:"country_name"`
	Type        RegionType `json:"type"`
	RegionCode  string     `json:"region_code,omitempty"` // ISO 3166-2, state-level only
	RegionName  string     `json:"region_name,omitempty"`
}

// Key returns the dedup key for the region. Country-level regions key on the
// country code itself.
func (r ResolvedRegion) Key() LocationKey {
	code := r.RegionCode
	if r.Type == RegionCountry || code == "" {
		code = r.CountryCode
	}
	return LocationKey{Type: r.Type, Code: code}
}

// LocationKey identifies a discovered location. Two locations are equal iff
// their keys are equal.
type LocationKey struct {
	Type RegionType `json:"type"`
	Code string     `json:"code"`
}

func (k LocationKey) String() string {
	return string(k.Type) + ":" + k.Code
}

// DiscoveredLocation is the deduplicated per-region accumulator emitted at
// the end of a scan. PhotoCount sums and EarliestDate takes the minimum over
// all contributing clusters.
type DiscoveredLocation struct {
	Key          LocationKey `json:"key"`
	CountryCode  string      `json:"country_code"`
	CountryName  string      `json:"country_name"`
	RegionName   string      `json:"region_name,omitempty"`
	PhotoCount   int         `json:"photo_count"`
	EarliestDate *time.Time  `json:"earliest_date,omitempty"`
}

// Fold merges one resolved cluster's contribution into the location.
func (d *DiscoveredLocation) Fold(photoCount int, earliest *time.Time) {
	d.PhotoCount += photoCount
	if earliest != nil {
		if d.EarliestDate == nil || earliest.Before(*d.EarliestDate) {
			t := *earliest
			d.EarliestDate = &t
		}
	}
}

// NewDiscoveredLocation seeds a location accumulator from the first cluster
// resolving to a region.
func NewDiscoveredLocation(r ResolvedRegion, c PhotoCluster) *DiscoveredLocation {
	d := &DiscoveredLocation{
		Key:         r.Key(),
		CountryCode: r.CountryCode,
		CountryName: r.CountryName,
		RegionName:  r.RegionName,
	}
	d.Fold(c.PhotoCount, c.EarliestCapturedAt)
	return d
}

// UnmatchedSampleLimit bounds the number of unmatched coordinates retained
// for diagnostics; unmatched clusters past the cap are counted but not
// sampled.
const UnmatchedSampleLimit = 50

// UnmatchedCoordinate is one diagnostic sample of a cluster that resolved to
// nothing.
type UnmatchedCoordinate struct {
	Coord      Coordinate `json:"coord"`
	PhotoCount int        `json:"photo_count"`
}

// ImportStatistics is the purely observational tally of a scan. It is derived
// data, never authoritative: clustersMatched + clustersUnmatched always
// equals clustersCreated.
type ImportStatistics struct {
	TotalPhotosScanned    int                   `json:"total_photos_scanned"`
	PhotosWithLocation    int                   `json:"photos_with_location"`
	PhotosWithoutLocation int                   `json:"photos_without_location"`
	ClustersCreated       int                   `json:"clusters_created"`
	ClustersMatched       int                   `json:"clusters_matched"`
	ClustersUnmatched     int                   `json:"clusters_unmatched"`
	UnmatchedSample       []UnmatchedCoordinate `json:"unmatched_sample,omitempty"`
	CountriesFound        map[string]int        `json:"countries_found,omitempty"`
}
