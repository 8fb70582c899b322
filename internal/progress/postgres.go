package progress

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placescan/internal/db"
	"github.com/sells-group/placescan/internal/model"
)

// PostgresStore implements Store using pgxpool, for deployments where scan
// state should live next to other service data instead of a local file.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scan_progress (
	id         TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scan_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, p *model.ScanProgress) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal progress")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scan_progress (id, version, payload, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		progressRowID, p.Version, payload, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save progress")
}

func (s *PostgresStore) Load(ctx context.Context) (*model.ScanProgress, error) {
	var version int
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT version, payload FROM scan_progress WHERE id = $1`, progressRowID,
	).Scan(&version, &payload)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load progress")
	}

	if version != model.CurrentProgressVersion {
		zap.L().Warn("stored scan progress has unsupported version, ignoring",
			zap.Int("version", version),
			zap.Int("supported", model.CurrentProgressVersion),
		)
		return nil, nil
	}

	var p model.ScanProgress
	if err := json.Unmarshal(payload, &p); err != nil {
		zap.L().Warn("stored scan progress is corrupt, ignoring", zap.Error(err))
		return nil, nil
	}
	if !p.Resumable() {
		return nil, nil
	}
	return &p, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM scan_progress WHERE id = $1`, progressRowID,
	)
	return eris.Wrap(err, "postgres: clear progress")
}

func (s *PostgresStore) SetLastScanTime(ctx context.Context, t time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scan_meta (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		lastScanKey, t.UTC().Format(time.RFC3339Nano),
	)
	return eris.Wrap(err, "postgres: set last scan time")
}

func (s *PostgresStore) LastScanTime(ctx context.Context) (*time.Time, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM scan_meta WHERE key = $1`, lastScanKey,
	).Scan(&value)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: last scan time")
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		zap.L().Warn("stored last scan time is corrupt, ignoring", zap.Error(err))
		return nil, nil
	}
	return &t, nil
}
