package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGridKey(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		cell     float64
		expected string
	}{
		{name: "origin", lat: 0, lon: 0, cell: 0.009, expected: "0,0"},
		{name: "positive", lat: 48.8566, lon: 2.3522, cell: 0.009, expected: "5428,261"},
		{name: "negative lat floors down", lat: -0.001, lon: 0.001, cell: 0.009, expected: "-1,0"},
		{name: "negative both", lat: -33.8688, lon: -70.6693, cell: 0.009, expected: "-3764,-7853"},
		{name: "cell lower edge inclusive", lat: 0.009, lon: 0, cell: 0.009, expected: "1,0"},
		{name: "just below cell edge", lat: 0.0089, lon: 0, cell: 0.009, expected: "0,0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GridKey(tt.lat, tt.lon, tt.cell))
		})
	}
}

func TestGridKey_NearbyPointsShareCell(t *testing.T) {
	// Two points ~100m apart near Paris land in the same ~1km cell.
	a := GridKey(48.8566, 2.3522, DefaultCellSizeDeg)
	b := GridKey(48.8570, 2.3525, DefaultCellSizeDeg)
	assert.Equal(t, a, b)

	// Points ~5km apart do not.
	c := GridKey(48.90, 2.35, DefaultCellSizeDeg)
	assert.NotEqual(t, a, c)
}

func TestPhotoClusterAbsorb(t *testing.T) {
	early := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2023, 8, 14, 0, 0, 0, 0, time.UTC)

	c := PhotoCluster{GridKey: "0,0", Representative: Coordinate{Lat: 1, Lon: 1}}
	c.Absorb(PhotoSample{AssetID: "a", CapturedAt: &late})
	c.Absorb(PhotoSample{AssetID: "b", CapturedAt: &early})
	c.Absorb(PhotoSample{AssetID: "c"}) // no capture time

	assert.Equal(t, 3, c.PhotoCount)
	assert.Equal(t, early, *c.EarliestCapturedAt)
	// Representative never moves after creation.
	assert.Equal(t, Coordinate{Lat: 1, Lon: 1}, c.Representative)
}

func TestResolvedRegionKey(t *testing.T) {
	tests := []struct {
		name     string
		region   ResolvedRegion
		expected LocationKey
	}{
		{
			name:     "state keys on region code",
			region:   ResolvedRegion{CountryCode: "US", Type: RegionState, RegionCode: "US-CA"},
			expected: LocationKey{Type: RegionState, Code: "US-CA"},
		},
		{
			name:     "country keys on country code",
			region:   ResolvedRegion{CountryCode: "FR", Type: RegionCountry},
			expected: LocationKey{Type: RegionCountry, Code: "FR"},
		},
		{
			name:     "missing region code falls back to country code",
			region:   ResolvedRegion{CountryCode: "US", Type: RegionState},
			expected: LocationKey{Type: RegionState, Code: "US"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.region.Key())
		})
	}
}

func TestLocationKeyString(t *testing.T) {
	assert.Equal(t, "state:US-CA", LocationKey{Type: RegionState, Code: "US-CA"}.String())
	assert.Equal(t, "country:JP", LocationKey{Type: RegionCountry, Code: "JP"}.String())
}

func TestDiscoveredLocationFold(t *testing.T) {
	early := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	region := ResolvedRegion{CountryCode: "FR", CountryName: "France", Type: RegionCountry}
	d := NewDiscoveredLocation(region, PhotoCluster{PhotoCount: 10, EarliestCapturedAt: &late})
	d.Fold(5, &early)
	d.Fold(3, nil)

	assert.Equal(t, 18, d.PhotoCount)
	assert.Equal(t, early, *d.EarliestDate)
	assert.Equal(t, LocationKey{Type: RegionCountry, Code: "FR"}, d.Key)
}

func TestScanProgressResumable(t *testing.T) {
	assert.True(t, (&ScanProgress{Version: CurrentProgressVersion}).Resumable())
	assert.False(t, (&ScanProgress{Version: 1}).Resumable())
	assert.False(t, (&ScanProgress{Version: CurrentProgressVersion + 1}).Resumable())
	assert.False(t, (*ScanProgress)(nil).Resumable())
}
