// Package epg parses XMLTV guide feeds into a normalized channel/programme
// model and matches guide channels against a playlist's channel list.
package epg

// Program is one guide entry. Start/Stop are epoch milliseconds. The ID is
// derived from channel id + timestamps, so it is only as stable as the source
// feed.
type Program struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Start       int64  `json:"start"`
	Stop        int64  `json:"stop"`
	ChannelID   string `json:"channel_id"`
	Category    string `json:"category,omitempty"`
	Rating      string `json:"rating,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
}

// Channel is a guide channel with its programmes sorted ascending by start.
type Channel struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	IconURL  string    `json:"icon_url,omitempty"`
	Programs []Program `json:"programs"`
}

// Data is one parsed guide. StartTime/EndTime span all programmes; an empty
// feed gets a synthetic 24-hour window starting at parse time. Rebuilt on
// every fetch, never persisted.
type Data struct {
	Channels  []Channel `json:"channels"`
	StartTime int64     `json:"start_time"`
	EndTime   int64     `json:"end_time"`
}
