// Package cluster reduces large sets of geotagged photo samples into
// per-grid-cell clusters.
package cluster

import (
	"github.com/sells-group/placescan/internal/model"
)

// Clusterer folds photo samples into clusters keyed by a fixed-size
// geographic grid cell. It is a streaming accumulator: feeding it the same
// samples in any batch partitioning yields an identical final cluster map,
// and only the running map is held in memory.
type Clusterer struct {
	cellSize float64
	clusters map[string]*model.PhotoCluster
	order    []string // grid keys in first-seen order
	dropped  int
	absorbed int
}

// New returns a Clusterer with the given cell size in degrees. Zero or
// negative sizes fall back to the default (~1 km).
func New(cellSizeDeg float64) *Clusterer {
	if cellSizeDeg <= 0 {
		cellSizeDeg = model.DefaultCellSizeDeg
	}
	return &Clusterer{
		cellSize: cellSizeDeg,
		clusters: make(map[string]*model.PhotoCluster),
	}
}

// Add folds a batch of samples into the running cluster map. Samples without
// a coordinate are dropped and only counted; they never form clusters.
func (c *Clusterer) Add(samples []model.PhotoSample) {
	for _, s := range samples {
		if s.Coord == nil {
			c.dropped++
			continue
		}
		c.absorbed++
		key := model.GridKey(s.Coord.Lat, s.Coord.Lon, c.cellSize)
		pc, ok := c.clusters[key]
		if !ok {
			pc = &model.PhotoCluster{
				GridKey:        key,
				Representative: *s.Coord,
			}
			c.clusters[key] = pc
			c.order = append(c.order, key)
		}
		pc.Absorb(s)
	}
}

// Clusters returns the accumulated clusters in first-seen grid key order.
// Phase 2 resolves clusters in exactly this order, which keeps checkpoints
// reproducible.
func (c *Clusterer) Clusters() []model.PhotoCluster {
	out := make([]model.PhotoCluster, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.clusters[key])
	}
	return out
}

// Len returns the number of distinct clusters so far.
func (c *Clusterer) Len() int { return len(c.order) }

// Dropped returns the count of samples skipped for missing coordinates.
func (c *Clusterer) Dropped() int { return c.dropped }

// Located returns the count of samples that carried a coordinate.
func (c *Clusterer) Located() int { return c.absorbed }
