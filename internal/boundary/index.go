// Package boundary matches coordinates against country and subdivision
// polygons loaded from local shapefiles. It is the offline fallback for the
// remote reverse geocoder and recovers coastal points via tolerance probing.
package boundary

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/placescan/internal/model"
)

// metersPerDegree is the approximate length of one degree of latitude.
// Longitude degrees shrink by cos(lat).
const metersPerDegree = 111320.0

// DefaultToleranceMeters is the probe distance used by the resolver's
// fallback path.
const DefaultToleranceMeters = 500.0

// Match is a successful boundary lookup. RegionCode/RegionName are empty
// when the country has no loaded subdivision set or no subdivision encloses
// the point.
type Match struct {
	CountryCode string
	CountryName string
	RegionCode  string
	RegionName  string
}

// Index is the loaded polygon set. The data is read-only after Load and safe
// to share across concurrent match calls. A load failure disables the index:
// every match returns nil rather than crashing the scan.
type Index struct {
	dir string

	once      sync.Once
	countries []regionPoly
	states    map[string][]regionPoly
	loadErr   error
}

// NewIndex creates an index over the shapefiles in dir. Data is loaded
// lazily on first match and cached for the process lifetime.
func NewIndex(dir string) *Index {
	return &Index{dir: dir}
}

func (ix *Index) load() {
	ix.once.Do(func() {
		ix.countries, ix.states, ix.loadErr = loadDir(ix.dir)
		if ix.loadErr != nil {
			zap.L().Error("boundary index disabled: load failed",
				zap.String("dir", ix.dir),
				zap.Error(ix.loadErr),
			)
		}
	})
}

// Ready reports whether the boundary data loaded successfully.
func (ix *Index) Ready() bool {
	ix.load()
	return ix.loadErr == nil
}

// MatchExact tests the coordinate against every country polygon in load
// order and, on a hit, against that country's subdivision set. The first
// enclosing polygon wins; there is no area-based disambiguation.
func (ix *Index) MatchExact(c model.Coordinate) *Match {
	ix.load()
	if ix.loadErr != nil {
		return nil
	}

	for _, country := range ix.countries {
		if !multiPolygonContains(country.geom, c.Lat, c.Lon) {
			continue
		}
		m := &Match{CountryCode: country.code, CountryName: country.name}
		for _, state := range ix.states[country.code] {
			if multiPolygonContains(state.geom, c.Lat, c.Lon) {
				m.RegionCode = state.code
				m.RegionName = state.name
				break
			}
		}
		return m
	}
	return nil
}

// probeOffsets is the compass order for tolerance probing. The order is
// contractual: first matching probe wins, not the nearest.
var probeOffsets = [8][2]float64{
	{1, 0},   // N
	{-1, 0},  // S
	{0, 1},   // E
	{0, -1},  // W
	{1, 1},   // NE
	{1, -1},  // NW
	{-1, 1},  // SE
	{-1, -1}, // SW
}

// MatchWithTolerance attempts an exact match, then probes 8 compass
// directions at the given distance. Returns nil when nothing matches;
// callers must not escalate the tolerance automatically.
func (ix *Index) MatchWithTolerance(c model.Coordinate, toleranceMeters float64) *Match {
	if m := ix.MatchExact(c); m != nil {
		return m
	}
	if ix.loadErr != nil {
		return nil
	}

	dLat := toleranceMeters / metersPerDegree
	cosLat := math.Cos(c.Lat * math.Pi / 180)
	if math.Abs(cosLat) < 1e-9 {
		cosLat = 1e-9
	}
	dLon := toleranceMeters / (metersPerDegree * cosLat)

	for _, off := range probeOffsets {
		probe := model.Coordinate{
			Lat: c.Lat + off[0]*dLat,
			Lon: c.Lon + off[1]*dLon,
		}
		if m := ix.MatchExact(probe); m != nil {
			return m
		}
	}
	return nil
}
