package profile

import (
	"context"
	"sort"
	"time"

	"github.com/steadystream/steadystream/internal/playlist"
)

// recommendLimit is how many channels a recommendation row holds.
const recommendLimit = 8

// Scoring weights. A channel the viewer already watches dominates, its
// category comes second, and the three most recent channels are demoted
// so the row doesn't just mirror the last session.
const (
	weightChannel   = 5
	weightCategory  = 2
	weightTimeOfDay = 1
	penaltyRecent   = 2
)

// Recommendation is a scored channel suggestion.
type Recommendation struct {
	Channel playlist.Channel `json:"channel"`
	Score   int              `json:"score"`
}

// Recommend ranks channels for a profile from its watch history: repeat
// channels and familiar categories score up, with a bonus when the
// channel's category is one the viewer watches at this time of day. The
// three most recently watched channels are demoted. Short of
// recommendLimit scored channels, the row is padded with the lineup's
// most-watched channels overall, then playlist order.
func (s *Store) Recommend(ctx context.Context, profileID string, channels []playlist.Channel, now time.Time) ([]Recommendation, error) {
	history, err := s.History(ctx, profileID, 200)
	if err != nil {
		return nil, err
	}
	return rank(history, channels, now), nil
}

func rank(history []WatchEvent, channels []playlist.Channel, now time.Time) []Recommendation {
	channelViews := make(map[string]int)
	categoryViews := make(map[string]int)
	categoryAtBucket := make(map[string]bool) // category watched in current bucket
	recent := make(map[string]bool)
	bucket := TimeOfDay(now)
	for i, ev := range history {
		channelViews[ev.ChannelID]++
		categoryViews[ev.Category]++
		if TimeOfDay(ev.StartedAt) == bucket {
			categoryAtBucket[ev.Category] = true
		}
		if i < 3 {
			recent[ev.ChannelID] = true
		}
	}

	scored := make([]Recommendation, 0, len(channels))
	for _, ch := range channels {
		score := channelViews[ch.ID]*weightChannel + categoryViews[ch.GroupName]*weightCategory
		if categoryAtBucket[ch.GroupName] {
			score += weightTimeOfDay
		}
		if recent[ch.ID] {
			score -= penaltyRecent
		}
		if score > 0 {
			scored = append(scored, Recommendation{Channel: ch, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > recommendLimit {
		scored = scored[:recommendLimit]
	}

	if len(scored) < recommendLimit {
		taken := make(map[string]bool, len(scored))
		for _, r := range scored {
			taken[r.Channel.ID] = true
		}
		// Pad with globally popular channels, then lineup order.
		pad := make([]playlist.Channel, 0, len(channels))
		for _, ch := range channels {
			if !taken[ch.ID] {
				pad = append(pad, ch)
			}
		}
		sort.SliceStable(pad, func(i, j int) bool {
			return channelViews[pad[i].ID] > channelViews[pad[j].ID]
		})
		for _, ch := range pad {
			if len(scored) == recommendLimit {
				break
			}
			scored = append(scored, Recommendation{Channel: ch})
		}
	}
	return scored
}
