package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mindfultouch/internal/config"
)

// configKey is the settings row holding the serialized config.
const configKey = "config"

// SettingsRepository reads and writes key/value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value for key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set inserts or replaces the value for key.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	return err
}

// Delete removes key.
func (r *SettingsRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadConfig decodes the stored config over base, so fields missing from the
// stored JSON keep base's values. With nothing stored base is returned as is.
func (r *SettingsRepository) LoadConfig(base config.Config) (config.Config, error) {
	raw, err := r.Get(configKey)
	if errors.Is(err, ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return base, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := base
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return base, fmt.Errorf("failed to decode stored config: %w", err)
	}
	return cfg, nil
}

// SaveConfig stores cfg as JSON.
func (r *SettingsRepository) SaveConfig(cfg config.Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return r.Set(configKey, string(data))
}
