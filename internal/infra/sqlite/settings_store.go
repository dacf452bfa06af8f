// Package sqlite persists the settings blob in a local sqlite file — the
// durable key-value store behind the settings screen. One key, one JSON
// value, rewritten in full on every mutation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/companychat/crm-backend-go/internal/domain"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const settingsKey = "crm_settings"

// SettingsStore implements port.SettingsPersistence over a kv table.
type SettingsStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (and initializes) the sqlite database at path.
func Open(path string, logger *zap.Logger) (*SettingsStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single writer: the settings store serializes its own writes.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init kv table: %w", err)
	}

	return &SettingsStore{db: db, logger: logger}, nil
}

// Load reads the settings blob. Returns (nil, nil) when nothing has been
// stored yet. A blob that fails to decode is reported as ErrCorruptSettings
// and left in place for inspection.
func (s *SettingsStore) Load(ctx context.Context) (*domain.Settings, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, settingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var settings domain.Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.logger.Error("settings: persisted blob failed to decode", zap.Error(err))
		return nil, &domain.ErrCorruptSettings{Err: err}
	}
	return &settings, nil
}

// Save rewrites the full settings blob.
func (s *SettingsStore) Save(ctx context.Context, settings *domain.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		settingsKey, string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	s.logger.Debug("settings: blob persisted", zap.Int("bytes", len(raw)))
	return nil
}

// Close releases the underlying database handle.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}
