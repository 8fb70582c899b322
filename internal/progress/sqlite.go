package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/placescan/internal/model"
)

// progressRowID keys the single in-flight snapshot. Only one scan is ever
// active, so the table holds at most one row.
const progressRowID = "current"

const lastScanKey = "last_scan_completed"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. An empty DSN uses an on-disk default next to the working directory.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "placescan.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scan_progress (
	id         TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	payload    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scan_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, p *model.ScanProgress) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal progress")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scan_progress (id, version, payload, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET version = excluded.version, payload = excluded.payload, updated_at = excluded.updated_at`,
		progressRowID, p.Version, string(payload), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save progress")
}

func (s *SQLiteStore) Load(ctx context.Context) (*model.ScanProgress, error) {
	var version int
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT version, payload FROM scan_progress WHERE id = ?`, progressRowID,
	).Scan(&version, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load progress")
	}

	if version != model.CurrentProgressVersion {
		zap.L().Warn("stored scan progress has unsupported version, ignoring",
			zap.Int("version", version),
			zap.Int("supported", model.CurrentProgressVersion),
		)
		return nil, nil
	}

	var p model.ScanProgress
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		zap.L().Warn("stored scan progress is corrupt, ignoring", zap.Error(err))
		return nil, nil
	}
	if !p.Resumable() {
		return nil, nil
	}
	return &p, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM scan_progress WHERE id = ?`, progressRowID,
	)
	return eris.Wrap(err, "sqlite: clear progress")
}

func (s *SQLiteStore) SetLastScanTime(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_meta (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		lastScanKey, t.UTC().Format(time.RFC3339Nano),
	)
	return eris.Wrap(err, "sqlite: set last scan time")
}

func (s *SQLiteStore) LastScanTime(ctx context.Context) (*time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM scan_meta WHERE key = ?`, lastScanKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last scan time")
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		zap.L().Warn("stored last scan time is corrupt, ignoring", zap.Error(err))
		return nil, nil
	}
	return &t, nil
}
