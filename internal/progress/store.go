// Package progress persists in-flight scan state so a killed or cancelled
// scan resumes exactly where it stopped, without redoing photo enumeration.
package progress

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placescan/internal/model"
)

// Config selects and configures the progress backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// Store is the durable backing for scan progress. Absence, corruption, and
// unknown schema versions are all reported as "no pending scan" (nil, nil
// from Load), never as a crash.
type Store interface {
	// Save writes the progress snapshot, replacing any previous one.
	Save(ctx context.Context, p *model.ScanProgress) error

	// Load returns the pending snapshot, or nil when none is resumable.
	Load(ctx context.Context) (*model.ScanProgress, error)

	// Clear removes any pending snapshot.
	Clear(ctx context.Context) error

	// SetLastScanTime records the completion time of the last full scan,
	// the watermark for incremental enumeration.
	SetLastScanTime(ctx context.Context, t time.Time) error

	// LastScanTime returns the incremental watermark, or nil if no scan has
	// completed yet.
	LastScanTime(ctx context.Context) (*time.Time, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("progress: unknown driver %q", cfg.Driver)
	}
}
