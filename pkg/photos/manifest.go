package photos

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placescan/internal/model"
)

// manifestEntry is one record of a JSON photo index. Coordinates and capture
// times are optional; entries without coordinates still count toward the
// no-location statistic.
type manifestEntry struct {
	ID      string     `json:"id"`
	Lat     *float64   `json:"lat,omitempty"`
	Lon     *float64   `json:"lon,omitempty"`
	TakenAt *time.Time `json:"taken_at,omitempty"`
}

// ManifestLibrary reads photo metadata from a JSON index file: an array of
// {id, lat, lon, taken_at} records. It is the CLI's stand-in for a device
// photo library.
type ManifestLibrary struct {
	path string
}

// NewManifestLibrary creates a library over the given manifest file.
func NewManifestLibrary(path string) *ManifestLibrary {
	return &ManifestLibrary{path: path}
}

// Authorize verifies the manifest is readable.
func (l *ManifestLibrary) Authorize(_ context.Context) error {
	f, err := os.Open(l.path)
	if err != nil {
		return ErrAccessDenied
	}
	_ = f.Close()
	return nil
}

// Enumerate streams manifest entries in file order as batches of samples.
func (l *ManifestLibrary) Enumerate(ctx context.Context, since *time.Time, batchSize int, fn func(batch []model.PhotoSample) error) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return eris.Wrap(err, "photos: read manifest")
	}
	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return eris.Wrap(err, "photos: parse manifest")
	}

	batch := make([]model.PhotoSample, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		batch = make([]model.PhotoSample, 0, batchSize)
		return nil
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if since != nil && (e.TakenAt == nil || !e.TakenAt.After(*since)) {
			continue
		}

		s := model.PhotoSample{AssetID: e.ID, CapturedAt: e.TakenAt}
		if e.Lat != nil && e.Lon != nil {
			s.Coord = &model.Coordinate{Lat: *e.Lat, Lon: *e.Lon}
		}
		batch = append(batch, s)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
