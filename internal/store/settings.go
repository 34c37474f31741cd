package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hoffkamp/bureau/internal/model"
)

const (
	prefColorFullCard = "note_color_full_card"
	prefShowArchived  = "note_show_archived"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(userID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE user_id = ? AND key = ?`, userID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(userID int64, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// Preferences loads the user's note view preferences, falling back to
// defaults for unset keys.
func (s *SettingsStore) Preferences(userID int64) (model.Preferences, error) {
	prefs := model.Preferences{}

	rows, err := s.db.Query(
		`SELECT key, value FROM settings WHERE user_id = ? AND key IN (?, ?)`,
		userID, prefColorFullCard, prefShowArchived)
	if err != nil {
		return prefs, fmt.Errorf("load preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return prefs, fmt.Errorf("scan preference: %w", err)
		}
		switch key {
		case prefColorFullCard:
			prefs.DefaultColorFullCard = value == "true"
		case prefShowArchived:
			prefs.ShowArchived = value == "true"
		}
	}
	return prefs, rows.Err()
}

// SavePreferences persists the user's note view preferences.
func (s *SettingsStore) SavePreferences(userID int64, prefs model.Preferences) error {
	if err := s.Set(userID, prefColorFullCard, boolStr(prefs.DefaultColorFullCard)); err != nil {
		return err
	}
	return s.Set(userID, prefShowArchived, boolStr(prefs.ShowArchived))
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
