package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/placescan/internal/boundary"
	"github.com/sells-group/placescan/internal/progress"
	"github.com/sells-group/placescan/internal/region"
	"github.com/sells-group/placescan/internal/scan"
	"github.com/sells-group/placescan/pkg/geocode"
	"github.com/sells-group/placescan/pkg/photos"
)

const testManifest = `[
	{"id": "p1", "lat": 48.8566, "lon": 2.3522, "taken_at": "2021-06-01T10:00:00Z"},
	{"id": "p2", "lat": 48.8570, "lon": 2.3525},
	{"id": "t1", "lat": 35.6762, "lon": 139.6503},
	{"id": "no-gps"}
]`

// newTestEngine wires a full engine against a stub Nominatim server and a
// temp-dir SQLite store.
func newTestEngine(t *testing.T) *engine {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat")[0] == '4' {
			w.Write([]byte(`{"address":{"country_code":"fr","country":"France"}}`))
			return
		}
		w.Write([]byte(`{"address":{"country_code":"jp","country":"Japan"}}`))
	}))
	t.Cleanup(srv.Close)

	manifestPath := filepath.Join(t.TempDir(), "photos.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte(testManifest), 0o644))

	store, err := progress.NewSQLite(filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	gc := geocode.NewClient(
		geocode.WithBaseURL(srv.URL),
		geocode.WithRateLimit(1000),
	)
	resolver := region.NewResolver(gc, boundary.NewIndex(t.TempDir()),
		region.WithPace(time.Millisecond),
	)
	library := photos.NewManifestLibrary(manifestPath)

	env := &engine{
		Coordinator: scan.New(library, resolver, store),
		Store:       store,
	}
	t.Cleanup(env.Close)
	return env
}

// waitForPhase polls the coordinator until it reaches a terminal phase.
func waitForPhase(t *testing.T, env *engine, want scan.Phase) scan.State {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		s := env.Coordinator.CurrentState()
		if s.Phase == want {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("coordinator never reached phase %s (last: %s)", want, env.Coordinator.CurrentState().Phase)
	return scan.State{}
}
