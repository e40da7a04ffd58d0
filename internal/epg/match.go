package epg

import (
	"strings"
	"unicode"

	"github.com/steadystream/steadystream/internal/playlist"
)

// MatchChannels filters guide data down to the channels present in the
// playlist. The input is never mutated; a narrowed copy is returned.
//
// The lookup is keyed three ways per playlist channel: its epg channel id
// (when set), its own id, and its normalized name. A guide channel is kept
// iff its raw id or its normalized name hits one of those keys. First match
// wins — there is no scoring, and playlist channels that normalize to the
// same name collapse onto one slot, last write winning (see DESIGN.md).
func MatchChannels(data *Data, channels []playlist.Channel) *Data {
	keys := make(map[string]struct{}, len(channels)*3)
	for _, ch := range channels {
		if ch.EPGChannelID != "" {
			keys[ch.EPGChannelID] = struct{}{}
		}
		keys[ch.ID] = struct{}{}
		if nk := NormalizeName(ch.Name); nk != "" {
			keys[nk] = struct{}{}
		}
	}

	matched := make([]Channel, 0, len(data.Channels))
	for _, gc := range data.Channels {
		if _, ok := keys[gc.ID]; ok {
			matched = append(matched, gc)
			continue
		}
		if _, ok := keys[NormalizeName(gc.Name)]; ok {
			matched = append(matched, gc)
		}
	}

	return &Data{
		Channels:  matched,
		StartTime: data.StartTime,
		EndTime:   data.EndTime,
	}
}

// NormalizeName lowercases a channel name and strips all whitespace, the
// minimal form two feeds are likely to agree on.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
