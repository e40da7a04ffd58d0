// Package store persists small JSON snapshots between sessions: the last
// loaded playlist, saved source URLs and panel credentials. Each key maps
// to one JSON document; writers replace the whole document.
package store

import (
	"encoding/json"
	"fmt"
)

// Well-known snapshot keys.
const (
	KeyPlaylist    = "playlist"
	KeyM3UURL      = "m3u_url"
	KeyEPGURL      = "epg_url"
	KeyCredentials = "xtream_credentials"
)

// Store is a key → JSON document map. Get returns found=false (not an
// error) when the key has never been written.
type Store interface {
	Get(key string) (data []byte, found bool, err error)
	Set(key string, data []byte) error
	Delete(key string) error
}

// LoadJSON reads the document at key into v. Returns false when the key
// is absent, leaving v untouched.
func LoadJSON(s Store, key string, v any) (bool, error) {
	data, found, err := s.Get(key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON marshals v and replaces the document at key.
func SaveJSON(s Store, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return s.Set(key, data)
}
