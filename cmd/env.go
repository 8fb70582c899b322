package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placescan/internal/boundary"
	"github.com/sells-group/placescan/internal/model"
	"github.com/sells-group/placescan/internal/progress"
	"github.com/sells-group/placescan/internal/region"
	"github.com/sells-group/placescan/internal/scan"
	"github.com/sells-group/placescan/pkg/geocode"
	"github.com/sells-group/placescan/pkg/photos"
)

// engine bundles the wired scan coordinator and its progress store.
type engine struct {
	Coordinator *scan.Coordinator
	Store       progress.Store
}

func (e *engine) Close() {
	_ = e.Store.Close()
}

// buildEngine wires the coordinator from configuration: manifest photo
// library, reverse-geocoding client, boundary index, resolver, and progress
// store.
func buildEngine(ctx context.Context) (*engine, error) {
	store, err := progress.Open(ctx, cfg.Progress)
	if err != nil {
		return nil, eris.Wrap(err, "open progress store")
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, eris.Wrap(err, "migrate progress store")
	}

	gc := geocode.NewClient(
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
		geocode.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second,
		}),
	)

	index := boundary.NewIndex(cfg.Boundary.DataDir)
	resolver := region.NewResolver(gc, index,
		region.WithPace(time.Duration(cfg.Scan.PaceMillis)*time.Millisecond),
	)

	library := photos.NewManifestLibrary(cfg.Library.Manifest)

	coord := scan.New(library, resolver, store,
		scan.WithCellSize(cfg.Scan.CellSizeDeg),
		scan.WithBatchSize(cfg.Scan.BatchSize),
	)

	return &engine{Coordinator: coord, Store: store}, nil
}

// loadExistingPlaces reads the caller-supplied set of already-visited
// location keys from a JSON file: an array of {type, code} objects. An empty
// path yields an empty set.
func loadExistingPlaces(path string) (map[model.LocationKey]bool, error) {
	if path == "" {
		return map[model.LocationKey]bool{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read existing places")
	}
	var keys []model.LocationKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, eris.Wrap(err, "parse existing places")
	}
	out := make(map[model.LocationKey]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out, nil
}
