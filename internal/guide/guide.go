// Package guide orchestrates source loading: fetch a playlist or EPG
// document, parse it, match guide data to the current lineup, and
// persist the result so the next session starts warm.
package guide

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/steadystream/steadystream/internal/epg"
	"github.com/steadystream/steadystream/internal/fetch"
	"github.com/steadystream/steadystream/internal/metrics"
	"github.com/steadystream/steadystream/internal/playlist"
	"github.com/steadystream/steadystream/internal/store"
	"github.com/steadystream/steadystream/internal/xtream"
)

// PlaylistService loads channel lineups from M3U URLs or Xtream panels
// and keeps the latest playlist in the store.
type PlaylistService struct {
	Fetcher *fetch.Fetcher
	Store   store.Store
	Log     *logrus.Logger
}

// Current returns the persisted playlist, or found=false when no source
// has been loaded yet.
func (s *PlaylistService) Current() (*playlist.Playlist, bool, error) {
	var pl playlist.Playlist
	found, err := store.LoadJSON(s.Store, store.KeyPlaylist, &pl)
	if err != nil || !found {
		return nil, false, err
	}
	return &pl, true, nil
}

// LoadM3U fetches and parses an M3U playlist and replaces the stored
// lineup wholesale. Nothing is persisted when fetch or parse fails, so
// a broken reload never clobbers the previous lineup.
func (s *PlaylistService) LoadM3U(ctx context.Context, url string) (*playlist.Playlist, error) {
	log := s.logger().WithField("url", url)
	body, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.SourceLoads.WithLabelValues("m3u", "error").Inc()
		return nil, fmt.Errorf("load m3u: %w", err)
	}
	started := time.Now()
	pl, err := playlist.ParseM3U(string(body))
	metrics.ParseDuration.WithLabelValues("m3u").Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.SourceLoads.WithLabelValues("m3u", "error").Inc()
		return nil, fmt.Errorf("load m3u: %w", err)
	}
	if err := s.persist(pl, store.KeyM3UURL, url); err != nil {
		return nil, err
	}
	metrics.SourceLoads.WithLabelValues("m3u", "ok").Inc()
	metrics.GuideChannels.Set(float64(len(pl.Channels)))
	log.WithFields(logrus.Fields{
		"channels": len(pl.Channels),
		"groups":   len(pl.Groups),
	}).Info("m3u playlist loaded")
	return pl, nil
}

// LoadXtream authenticates against a panel, builds the lineup and
// replaces the stored playlist. Credentials are persisted alongside so
// the next start can reload without re-entry.
func (s *PlaylistService) LoadXtream(ctx context.Context, creds xtream.Credentials) (*playlist.Playlist, error) {
	var httpClient *http.Client
	if s.Fetcher != nil {
		httpClient = s.Fetcher.Client // carries the configured fetch timeout
	}
	client := &xtream.Client{Creds: creds, HTTP: httpClient, Log: s.Log}
	started := time.Now()
	pl, err := client.LoadPlaylist(ctx)
	metrics.ParseDuration.WithLabelValues("xtream").Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.SourceLoads.WithLabelValues("xtream", "error").Inc()
		return nil, fmt.Errorf("load xtream: %w", err)
	}
	if err := store.SaveJSON(s.Store, store.KeyCredentials, creds); err != nil {
		return nil, err
	}
	if err := store.SaveJSON(s.Store, store.KeyPlaylist, pl); err != nil {
		return nil, err
	}
	metrics.SourceLoads.WithLabelValues("xtream", "ok").Inc()
	metrics.GuideChannels.Set(float64(len(pl.Channels)))
	s.logger().WithFields(logrus.Fields{
		"url":      creds.BaseURL,
		"channels": len(pl.Channels),
		"groups":   len(pl.Groups),
	}).Info("xtream playlist loaded")
	return pl, nil
}

func (s *PlaylistService) persist(pl *playlist.Playlist, urlKey, url string) error {
	if err := store.SaveJSON(s.Store, store.KeyPlaylist, pl); err != nil {
		return err
	}
	return store.SaveJSON(s.Store, urlKey, url)
}

func (s *PlaylistService) logger() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return discardLogger
}

// EPGService loads XMLTV guides and matches them to the current lineup.
// Guide data is kept in memory only; just the source URL persists, so a
// restart re-fetches fresh listings instead of replaying stale ones.
type EPGService struct {
	Fetcher *fetch.Fetcher
	Store   store.Store
	Log     *logrus.Logger
}

// LoadEPG fetches an XMLTV document, parses it and, when a lineup is
// supplied, filters it down to channels present in it. With no lineup
// the parsed guide is returned whole — an empty key set would otherwise
// discard every channel. A failed load leaves no trace beyond the
// error.
func (s *EPGService) LoadEPG(ctx context.Context, url string, channels []playlist.Channel) (*epg.Data, error) {
	body, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.SourceLoads.WithLabelValues("xmltv", "error").Inc()
		return nil, fmt.Errorf("load epg: %w", err)
	}
	started := time.Now()
	data, err := epg.ParseXMLTVString(string(body))
	metrics.ParseDuration.WithLabelValues("xmltv").Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.SourceLoads.WithLabelValues("xmltv", "error").Inc()
		return nil, fmt.Errorf("load epg: %w", err)
	}
	matched := data
	if len(channels) > 0 {
		matched = epg.MatchChannels(data, channels)
	}
	if err := store.SaveJSON(s.Store, store.KeyEPGURL, url); err != nil {
		return nil, err
	}
	metrics.SourceLoads.WithLabelValues("xmltv", "ok").Inc()
	programs := 0
	for _, ch := range matched.Channels {
		programs += len(ch.Programs)
	}
	metrics.GuidePrograms.Set(float64(programs))
	s.logger().WithFields(logrus.Fields{
		"url":      url,
		"parsed":   len(data.Channels),
		"matched":  len(matched.Channels),
		"programs": programs,
	}).Info("epg loaded")
	return matched, nil
}

func (s *EPGService) logger() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return discardLogger
}

var discardLogger = newDiscardLogger()

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
