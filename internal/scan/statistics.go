package scan

import "github.com/sells-group/placescan/internal/model"

// Aggregator tallies per-cluster outcomes during phase 2. It is purely
// observational; the invariant clustersMatched + clustersUnmatched ==
// clustersCreated holds once every cluster has been recorded.
type Aggregator struct {
	stats model.ImportStatistics
}

// NewAggregator seeds an aggregator, usually from the phase-1 photo counts
// or from a checkpoint's persisted statistics.
func NewAggregator(seed model.ImportStatistics) *Aggregator {
	if seed.CountriesFound == nil {
		seed.CountriesFound = make(map[string]int)
	}
	return &Aggregator{stats: seed}
}

// RecordMatched notes a cluster that resolved to a region.
func (a *Aggregator) RecordMatched(countryCode string) {
	a.stats.ClustersMatched++
	a.stats.CountriesFound[countryCode]++
}

// RecordUnmatched notes a cluster that resolved to nothing, sampling its
// coordinate up to the diagnostic cap. Clusters past the cap are counted but
// not sampled, to bound memory.
func (a *Aggregator) RecordUnmatched(c model.PhotoCluster) {
	a.stats.ClustersUnmatched++
	if len(a.stats.UnmatchedSample) < model.UnmatchedSampleLimit {
		a.stats.UnmatchedSample = append(a.stats.UnmatchedSample, model.UnmatchedCoordinate{
			Coord:      c.Representative,
			PhotoCount: c.PhotoCount,
		})
	}
}

// Snapshot returns a copy of the current statistics.
func (a *Aggregator) Snapshot() model.ImportStatistics {
	out := a.stats
	out.UnmatchedSample = append([]model.UnmatchedCoordinate(nil), a.stats.UnmatchedSample...)
	out.CountriesFound = make(map[string]int, len(a.stats.CountriesFound))
	for k, v := range a.stats.CountriesFound {
		out.CountriesFound[k] = v
	}
	return out
}
