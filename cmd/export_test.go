package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/placescan/internal/model"
)

func sampleLocations() []model.DiscoveredLocation {
	earliest := time.Date(2019, 7, 14, 0, 0, 0, 0, time.UTC)
	return []model.DiscoveredLocation{
		{
			Key:          model.LocationKey{Type: model.RegionCountry, Code: "FR"},
			CountryCode:  "FR",
			CountryName:  "France",
			PhotoCount:   42,
			EarliestDate: &earliest,
		},
		{
			Key:         model.LocationKey{Type: model.RegionState, Code: "US-CA"},
			CountryCode: "US",
			CountryName: "United States",
			RegionName:  "California",
			PhotoCount:  7,
		},
	}
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.csv")
	require.NoError(t, exportCSV(sampleLocations(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, locationHeader, rows[0])
	assert.Equal(t, []string{"country", "FR", "FR", "France", "", "42", "2019-07-14"}, rows[1])
	assert.Equal(t, []string{"state", "US-CA", "US", "United States", "California", "7", ""}, rows[2])
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.xlsx")
	require.NoError(t, exportXLSX(sampleLocations(), path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Locations", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "type", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "FR", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "California", sheet.Rows[2].Cells[4].String())
}

func TestLocationRow(t *testing.T) {
	locs := sampleLocations()
	assert.Equal(t, []string{"country", "FR", "FR", "France", "", "42", "2019-07-14"}, locationRow(locs[0]))
	assert.Equal(t, []string{"state", "US-CA", "US", "United States", "California", "7", ""}, locationRow(locs[1]))
}
