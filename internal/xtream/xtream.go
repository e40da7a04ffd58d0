// Package xtream loads a playlist from an Xtream-Codes provider panel.
// The panel protocol is plain HTTP GET with credentials as query parameters;
// that is the provider contract, not ours to harden.
package xtream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/steadystream/steadystream/internal/fetch"
	"github.com/steadystream/steadystream/internal/playlist"
)

// ErrAuthentication is returned when the panel rejects the credentials
// (the categories request does not come back OK).
var ErrAuthentication = errors.New("xtream: authentication failed")

// AllChannelsGroupID is the synthetic group holding every live channel.
const AllChannelsGroupID = "all"

const (
	maxRetries     = 3
	initialBackoff = 2 * time.Second
	maxBackoff     = 60 * time.Second
)

// Credentials identify one provider account.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	BaseURL  string `json:"url"`
}

// Client talks to one Xtream panel. Zero values fall back to the shared
// tuned HTTP client, a 5 req/s limiter, and a discarding logger.
type Client struct {
	Creds   Credentials
	HTTP    *http.Client
	Limiter *rate.Limiter // paces panel calls so re-imports do not hammer the provider
	Log     *logrus.Logger
}

// LoadPlaylist fetches live categories and live streams and maps them into the
// normalized playlist model. Channel IDs are the provider's stream ids
// (stable across reloads, unlike M3U imports).
func (c *Client) LoadPlaylist(ctx context.Context) (*playlist.Playlist, error) {
	base := strings.TrimRight(c.Creds.BaseURL, "/")
	if base == "" {
		return nil, errors.New("xtream: base URL required")
	}
	apiBase := base + "/player_api.php?username=" + url.QueryEscape(c.Creds.Username) +
		"&password=" + url.QueryEscape(c.Creds.Password)

	catBody, err := c.apiGet(ctx, apiBase+"&action=get_live_categories")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	var cats []struct {
		CategoryID   any    `json:"category_id"`
		CategoryName string `json:"category_name"`
	}
	if err := json.Unmarshal(catBody, &cats); err != nil {
		return nil, fmt.Errorf("%w: decode categories: %v", ErrAuthentication, err)
	}

	streamBody, err := c.apiGet(ctx, apiBase+"&action=get_live_streams")
	if err != nil {
		return nil, fmt.Errorf("xtream: fetch live streams: %w", err)
	}
	var streams []struct {
		StreamID           any    `json:"stream_id"`
		Name               string `json:"name"`
		StreamIcon         string `json:"stream_icon"`
		EPGChannelID       any    `json:"epg_channel_id"`
		CategoryID         any    `json:"category_id"`
		ContainerExtension string `json:"container_extension"`
	}
	if err := json.Unmarshal(streamBody, &streams); err != nil {
		return nil, fmt.Errorf("xtream: decode live streams: %w", err)
	}

	groupIdx := map[string]int{AllChannelsGroupID: 0}
	groups := []playlist.Group{{ID: AllChannelsGroupID, Name: "All Channels"}}
	for _, cat := range cats {
		id := idString(cat.CategoryID, 0)
		if id == "" {
			continue
		}
		if _, ok := groupIdx[id]; ok {
			continue
		}
		groupIdx[id] = len(groups)
		groups = append(groups, playlist.Group{ID: id, Name: cat.CategoryName})
	}

	channels := make([]playlist.Channel, 0, len(streams))
	for i, s := range streams {
		sid := idString(s.StreamID, i+1)
		if sid == "" {
			continue
		}
		name := strings.TrimSpace(s.Name)
		if name == "" {
			name = "Channel " + sid
		}
		ext := s.ContainerExtension
		if ext == "" {
			ext = "ts"
		}
		catID := idString(s.CategoryID, 0)
		groupName := ""
		if gi, ok := groupIdx[catID]; ok && catID != "" {
			groupName = groups[gi].Name
		}
		ch := playlist.Channel{
			ID:           sid,
			Name:         name,
			LogoURL:      s.StreamIcon,
			GroupName:    groupName,
			StreamURL:    fmt.Sprintf("%s/live/%s/%s/%s.%s", base, url.PathEscape(c.Creds.Username), url.PathEscape(c.Creds.Password), url.PathEscape(sid), ext),
			EPGChannelID: idString(s.EPGChannelID, 0),
		}
		channels = append(channels, ch)
		// Every channel lands in the "All Channels" group; its category group
		// only when the panel declared that category.
		groups[0].Channels = append(groups[0].Channels, ch)
		if gi, ok := groupIdx[catID]; ok && catID != "" && gi != 0 {
			groups[gi].Channels = append(groups[gi].Channels, ch)
		}
	}

	if c.Log != nil {
		c.Log.WithFields(logrus.Fields{
			"channels": len(channels),
			"groups":   len(groups),
		}).Info("xtream playlist loaded")
	}
	return &playlist.Playlist{
		Name:        "Xtream Playlist",
		Groups:      groups,
		Channels:    channels,
		LastUpdated: time.Now(),
	}, nil
}

// apiGet performs a paced GET with retries on 408/423/429/5xx, respecting
// Retry-After and falling back to exponential backoff.
func (c *Client) apiGet(ctx context.Context, reqURL string) ([]byte, error) {
	client := c.HTTP
	if client == nil {
		client = fetch.DefaultClient()
	}
	limiter := c.Limiter
	if limiter == nil {
		limiter = defaultLimiter
	}
	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "SteadyStream/1.0")
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				if err := sleepCtx(ctx, backoff); err != nil {
					return nil, err
				}
				backoff = nextBackoff(backoff)
			}
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if attempt < maxRetries {
				if err := sleepCtx(ctx, backoff); err != nil {
					return nil, err
				}
				backoff = nextBackoff(backoff)
			}
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return body, nil
		}
		lastErr = &fetch.StatusError{URL: reqURL, StatusCode: resp.StatusCode}
		if !retryableStatus(resp.StatusCode) || attempt == maxRetries {
			return nil, lastErr
		}
		wait := parseRetryAfter(resp)
		if wait == 0 {
			wait = backoff
			backoff = nextBackoff(backoff)
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("get %s: %w", reqURL, lastErr)
}

var defaultLimiter = rate.NewLimiter(rate.Every(200*time.Millisecond), 1)

func retryableStatus(code int) bool {
	if code == 429 || code == 423 || code == 408 {
		return true
	}
	return code >= 500 && code < 600
}

// parseRetryAfter parses Retry-After (seconds or HTTP-date); 0 if missing or invalid.
func parseRetryAfter(resp *http.Response) time.Duration {
	s := resp.Header.Get("Retry-After")
	if s == "" {
		return 0
	}
	if sec, err := strconv.Atoi(s); err == nil && sec > 0 {
		d := time.Duration(sec) * time.Second
		if d > maxBackoff {
			return maxBackoff
		}
		return d
	}
	if t, err := http.ParseTime(s); err == nil {
		d := time.Until(t)
		if d < 0 {
			return initialBackoff
		}
		if d > maxBackoff {
			return maxBackoff
		}
		return d
	}
	return 0
}

func nextBackoff(d time.Duration) time.Duration {
	if d < maxBackoff {
		return d * 2
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// idString coerces the panel's number-or-string ids to a string. Panels
// disagree about whether stream_id / category_id are JSON numbers or strings.
func idString(v any, fallback int) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatInt(int64(x), 10)
	case string:
		return strings.TrimSpace(x)
	}
	if fallback > 0 {
		return strconv.Itoa(fallback)
	}
	return ""
}
