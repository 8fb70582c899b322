package boundary

import "github.com/twpayne/go-geom"

// multiPolygonContains reports whether the point is inside the multipolygon
// under the even-odd rule: a horizontal ray from the point crossing an odd
// number of ring edges, counted across every ring, is inside. Holes need no
// special casing under this rule.
func multiPolygonContains(mp *geom.MultiPolygon, lat, lon float64) bool {
	if mp == nil {
		return false
	}
	crossings := 0
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			crossings += ringCrossings(poly.LinearRing(j), lat, lon)
		}
	}
	return crossings%2 == 1
}

// ringCrossings counts edges of the ring crossed by a horizontal ray cast
// east from (lat, lon). Coordinates are stored X=lon, Y=lat.
func ringCrossings(ring *geom.LinearRing, lat, lon float64) int {
	flat := ring.FlatCoords()
	stride := ring.Stride()
	n := len(flat) / stride
	if n < 3 {
		return 0
	}

	count := 0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]

		if (yi > lat) == (yj > lat) {
			continue
		}
		// Longitude where the edge crosses the ray's latitude.
		x := xi + (lat-yi)/(yj-yi)*(xj-xi)
		if x > lon {
			count++
		}
	}
	return count
}
