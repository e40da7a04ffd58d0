// Package playlist holds the normalized channel/group/playlist model and the
// M3U parser that produces it. A Playlist is always built wholesale by one
// successful parse and replaces the previous snapshot; it is never merged.
package playlist

import "time"

// UncategorizedGroup is the catch-all group for channels without a group-title.
const UncategorizedGroup = "Uncategorized"

// Channel is a single live channel from a playlist source.
// ID is unique within one playlist. M3U parses mint a fresh UUID per channel,
// so the same file parsed twice yields different IDs; Xtream imports use the
// provider's stream id, which is stable across reloads.
type Channel struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	LogoURL      string `json:"logo_url,omitempty"`
	GroupName    string `json:"group_name,omitempty"`
	StreamURL    string `json:"stream_url"`
	EPGChannelID string `json:"epg_channel_id,omitempty"` // tvg-id / provider epg id for guide matching
}

// Group is a named bucket of channels. Groups are derived from the channels on
// every parse, never authored independently.
type Group struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Channels []Channel `json:"channels"`
}

// Playlist is the full channel list of one source plus its derived groups.
// Invariant: every channel in Channels appears in exactly one group (or the
// catch-all group for its source).
type Playlist struct {
	Name        string    `json:"name,omitempty"`
	Groups      []Group   `json:"groups"`
	Channels    []Channel `json:"channels"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// BuildGroups rebuilds Groups from Channels: bucket by group name in channel
// order, group order is first-seen order. Channels without a group name land in
// fallbackGroup.
func BuildGroups(channels []Channel, fallbackGroup string) []Group {
	idx := make(map[string]int)
	var groups []Group
	for _, ch := range channels {
		name := ch.GroupName
		if name == "" {
			name = fallbackGroup
		}
		i, ok := idx[name]
		if !ok {
			i = len(groups)
			idx[name] = i
			groups = append(groups, Group{ID: name, Name: name})
		}
		groups[i].Channels = append(groups[i].Channels, ch)
	}
	return groups
}
