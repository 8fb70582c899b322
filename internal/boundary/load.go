package boundary

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Shapefile layout expected in the boundary data directory:
//
//	countries.shp            country polygons (ISO_A2, ADMIN attributes)
//	states_<CC>.shp          subdivision polygons for country CC
//	                         (iso_3166_2, name attributes)
//
// Subdivision sets are optional; a country without one resolves to
// country-level only.
const (
	countriesFile   = "countries.shp"
	statesPrefix    = "states_"
	countryCodeAttr = "ISO_A2"
	countryNameAttr = "ADMIN"
	stateCodeAttr   = "iso_3166_2"
	stateNameAttr   = "name"
)

// regionPoly is one loaded boundary polygon. Load order is preserved: the
// first enclosing polygon wins ties, which is contractual for
// reproducibility.
type regionPoly struct {
	code string
	name string
	geom *geom.MultiPolygon
}

// loadDir reads country and per-country subdivision shapefiles from dir.
func loadDir(dir string) ([]regionPoly, map[string][]regionPoly, error) {
	log := zap.L().With(zap.String("component", "boundary.loader"))

	countries, err := loadShapefile(filepath.Join(dir, countriesFile), countryCodeAttr, countryNameAttr)
	if err != nil {
		return nil, nil, eris.Wrap(err, "boundary: load countries")
	}

	states := make(map[string][]regionPoly)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, eris.Wrap(err, "boundary: read data dir")
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, statesPrefix) || !strings.HasSuffix(name, ".shp") {
			continue
		}
		cc := strings.ToUpper(strings.TrimSuffix(strings.TrimPrefix(name, statesPrefix), ".shp"))
		set, err := loadShapefile(filepath.Join(dir, name), stateCodeAttr, stateNameAttr)
		if err != nil {
			log.Warn("skipping unreadable subdivision shapefile",
				zap.String("file", name),
				zap.Error(err),
			)
			continue
		}
		states[cc] = set
		log.Debug("loaded subdivision set",
			zap.String("country", cc),
			zap.Int("polygons", len(set)),
		)
	}

	log.Info("boundary data loaded",
		zap.Int("countries", len(countries)),
		zap.Int("subdivision_sets", len(states)),
	)
	return countries, states, nil
}

// loadShapefile reads polygons and the two named attributes from one
// shapefile, preserving record order.
func loadShapefile(path, codeAttr, nameAttr string) ([]regionPoly, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open %s", filepath.Base(path))
	}
	defer func() { _ = reader.Close() }()

	codeIdx := fieldIndex(reader, codeAttr)
	nameIdx := fieldIndex(reader, nameAttr)
	if codeIdx < 0 || nameIdx < 0 {
		return nil, eris.Errorf("boundary: fields %s/%s not found in %s", codeAttr, nameAttr, filepath.Base(path))
	}

	var out []regionPoly
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			continue
		}
		code := strings.TrimSpace(reader.Attribute(codeIdx))
		if code == "" {
			continue
		}
		out = append(out, regionPoly{
			code: code,
			name: strings.TrimSpace(reader.Attribute(nameIdx)),
			geom: mp,
		})
	}
	return out, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if
// not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Each part becomes one single-ring polygon; hole handling is done by the
// even-odd containment test, so ring grouping does not matter here.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
