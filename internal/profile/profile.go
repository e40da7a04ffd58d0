// Package profile stores per-viewer state: named profiles, favourite
// channels and watch history, plus recommendations derived from that
// history. Backed by SQLite so state survives restarts without a server.
package profile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// minWatchSeconds filters out channel zapping: a view shorter than this
// never reaches history and never influences recommendations.
const minWatchSeconds = 5

// Profile is one viewer identity.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// WatchEvent is one completed viewing session.
type WatchEvent struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	Category    string    `json:"category"`
	StartedAt   time.Time `json:"started_at"`
	Duration    int64     `json:"duration_seconds"`
}

// Store persists profiles in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the profile database at path and runs
// the schema migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("profile: open db: %w", err)
	}
	// modernc.org/sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	avatar     TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS favorites (
	profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	channel_id TEXT NOT NULL,
	added_at   INTEGER NOT NULL,
	PRIMARY KEY (profile_id, channel_id)
);
CREATE TABLE IF NOT EXISTS watch_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	profile_id   TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	channel_id   TEXT NOT NULL,
	channel_name TEXT NOT NULL,
	category     TEXT NOT NULL,
	started_at   INTEGER NOT NULL,
	duration_s   INTEGER NOT NULL,
	time_of_day  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_profile ON watch_history(profile_id, started_at DESC);
`
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("profile: pragma: %w", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("profile: migrate: %w", err)
	}
	return nil
}

// CreateProfile adds a profile with a fresh id.
func (s *Store) CreateProfile(ctx context.Context, name, avatar string) (*Profile, error) {
	if name == "" {
		return nil, fmt.Errorf("profile: name required")
	}
	p := &Profile{
		ID:        uuid.NewString(),
		Name:      name,
		Avatar:    avatar,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, avatar, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Avatar, p.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("profile: create: %w", err)
	}
	return p, nil
}

// Profiles lists all profiles, oldest first.
func (s *Store) Profiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, avatar, created_at FROM profiles ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("profile: list: %w", err)
	}
	defer rows.Close()
	var out []Profile
	for rows.Next() {
		var p Profile
		var created int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Avatar, &created); err != nil {
			return nil, fmt.Errorf("profile: scan: %w", err)
		}
		p.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProfile removes a profile and, via cascade, its favourites and
// history. Deleting an unknown id is not an error.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("profile: delete: %w", err)
	}
	return nil
}

// AddFavorite marks a channel as favourite. Idempotent.
func (s *Store) AddFavorite(ctx context.Context, profileID, channelID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (profile_id, channel_id, added_at) VALUES (?, ?, ?)`,
		profileID, channelID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("profile: add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite unmarks a channel. Idempotent.
func (s *Store) RemoveFavorite(ctx context.Context, profileID, channelID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE profile_id = ? AND channel_id = ?`, profileID, channelID)
	if err != nil {
		return fmt.Errorf("profile: remove favorite: %w", err)
	}
	return nil
}

// Favorites returns the favourite channel ids, most recent first.
func (s *Store) Favorites(ctx context.Context, profileID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id FROM favorites WHERE profile_id = ? ORDER BY added_at DESC, channel_id`,
		profileID)
	if err != nil {
		return nil, fmt.Errorf("profile: favorites: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("profile: scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// RecordWatch appends a viewing session to history. Sessions shorter
// than minWatchSeconds are dropped silently.
func (s *Store) RecordWatch(ctx context.Context, profileID string, ev WatchEvent) error {
	if ev.Duration < minWatchSeconds {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watch_history (profile_id, channel_id, channel_name, category, started_at, duration_s, time_of_day)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profileID, ev.ChannelID, ev.ChannelName, ev.Category,
		ev.StartedAt.UnixMilli(), ev.Duration, TimeOfDay(ev.StartedAt))
	if err != nil {
		return fmt.Errorf("profile: record watch: %w", err)
	}
	return nil
}

// History returns up to limit sessions, most recent first.
func (s *Store) History(ctx context.Context, profileID string, limit int) ([]WatchEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id, channel_name, category, started_at, duration_s
		 FROM watch_history WHERE profile_id = ?
		 ORDER BY started_at DESC, id DESC LIMIT ?`,
		profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("profile: history: %w", err)
	}
	defer rows.Close()
	var out []WatchEvent
	for rows.Next() {
		var ev WatchEvent
		var started int64
		if err := rows.Scan(&ev.ChannelID, &ev.ChannelName, &ev.Category, &started, &ev.Duration); err != nil {
			return nil, fmt.Errorf("profile: scan: %w", err)
		}
		ev.StartedAt = time.UnixMilli(started).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

// TimeOfDay buckets a timestamp into morning / afternoon / evening /
// night in the local timezone.
func TimeOfDay(t time.Time) string {
	switch h := t.Local().Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 22:
		return "evening"
	default:
		return "night"
	}
}
