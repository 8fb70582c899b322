package model

import "time"

// CurrentProgressVersion is the schema version written by this build.
// Version 1 records predate pending_clusters and cannot be resumed; loaders
// treat any version other than the current one as "no pending scan" so an
// old record triggers a full re-scan instead of undefined behavior.
const CurrentProgressVersion = 2

// ScanProgress is the durable snapshot of an in-flight scan. It is created
// when phase 2 starts, rewritten after every checkpoint interval and on
// cancellation, and deleted on successful completion. At most one scan is
// active at a time, so the record is single-writer.
// PartialResults is a slice rather than a map so first-seen accumulator
// order survives serialization; the completion sort is stable over it.
type ScanProgress struct {
	Version           int                  `json:"version"`
	ScanID            string               `json:"scan_id"`
	ProcessedGridKeys map[string]bool      `json:"processed_grid_keys"`
	PartialResults    []DiscoveredLocation `json:"partial_results"`
	PendingClusters   []PhotoCluster       `json:"pending_clusters"`
	TotalClusterCount int                  `json:"total_cluster_count"`
	Stats             ImportStatistics     `json:"stats"`
	AlreadyVisited    int                  `json:"already_visited"`
	StartedAt         time.Time            `json:"started_at"`
}

// Resumable reports whether the record can seed a phase-2 resume.
func (p *ScanProgress) Resumable() bool {
	return p != nil && p.Version == CurrentProgressVersion
}
