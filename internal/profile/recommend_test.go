package profile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/steadystream/steadystream/internal/playlist"
)

func lineup(n int) []playlist.Channel {
	out := make([]playlist.Channel, n)
	for i := range out {
		out[i] = playlist.Channel{
			ID:        fmt.Sprintf("ch-%d", i),
			Name:      fmt.Sprintf("Channel %d", i),
			GroupName: "General",
		}
	}
	return out
}

func TestRank_channelWeightDominates(t *testing.T) {
	now := time.Date(2025, 3, 1, 20, 0, 0, 0, time.Local)
	channels := []playlist.Channel{
		{ID: "bbc", Name: "BBC", GroupName: "News"},
		{ID: "cnn", Name: "CNN", GroupName: "News"},
		{ID: "sky", Name: "Sky Sports", GroupName: "Sports"},
	}
	// Viewer watched BBC twice a while ago. Filler sessions occupy the
	// recent-three window so BBC escapes the recency penalty.
	history := []WatchEvent{
		{ChannelID: "f1", Category: "Docs", StartedAt: now.Add(-time.Hour)},
		{ChannelID: "f2", Category: "Docs", StartedAt: now.Add(-2 * time.Hour)},
		{ChannelID: "f3", Category: "Docs", StartedAt: now.Add(-3 * time.Hour)},
		{ChannelID: "bbc", Category: "News", StartedAt: now.Add(-4 * time.Hour)},
		{ChannelID: "bbc", Category: "News", StartedAt: now.Add(-26 * time.Hour)},
	}
	recs := rank(history, channels, now)
	if len(recs) != 3 {
		t.Fatalf("recs = %+v", recs)
	}
	if recs[0].Channel.ID != "bbc" {
		t.Errorf("top = %s", recs[0].Channel.ID)
	}
	// CNN shares the News category so it outranks Sky.
	if recs[1].Channel.ID != "cnn" {
		t.Errorf("second = %s", recs[1].Channel.ID)
	}
	if recs[0].Score <= recs[1].Score {
		t.Errorf("scores = %d, %d", recs[0].Score, recs[1].Score)
	}
}

func TestRank_recentChannelsDemoted(t *testing.T) {
	now := time.Date(2025, 3, 1, 20, 0, 0, 0, time.Local)
	channels := []playlist.Channel{
		{ID: "a", GroupName: "News"},
		{ID: "b", GroupName: "News"},
	}
	// Both watched once; "a" is the most recent session.
	history := []WatchEvent{
		{ChannelID: "a", Category: "News", StartedAt: now.Add(-time.Hour)},
		{ChannelID: "b", Category: "News", StartedAt: now.Add(-30 * time.Hour)},
	}
	recs := rank(history, channels, now)
	if len(recs) != 2 || recs[0].Channel.ID != "b" {
		t.Fatalf("recs = %+v", recs)
	}
	if recs[0].Score-recs[1].Score != penaltyRecent {
		t.Errorf("scores = %+v", recs)
	}
}

func TestRank_timeOfDayBonus(t *testing.T) {
	now := time.Date(2025, 3, 1, 20, 0, 0, 0, time.Local) // evening
	channels := []playlist.Channel{
		{ID: "x", GroupName: "Sports"},
		{ID: "y", GroupName: "Movies"},
	}
	history := []WatchEvent{
		// Sports watched in the evening, movies in the morning. Pad the
		// recent-three window with unrelated sessions first.
		{ChannelID: "f1", Category: "Docs", StartedAt: now.Add(-time.Hour)},
		{ChannelID: "f2", Category: "Docs", StartedAt: now.Add(-2 * time.Hour)},
		{ChannelID: "f3", Category: "Docs", StartedAt: now.Add(-3 * time.Hour)},
		{ChannelID: "s1", Category: "Sports", StartedAt: time.Date(2025, 2, 28, 19, 0, 0, 0, time.Local)},
		{ChannelID: "m1", Category: "Movies", StartedAt: time.Date(2025, 2, 28, 9, 0, 0, 0, time.Local)},
	}
	recs := rank(history, channels, now)
	if len(recs) != 2 || recs[0].Channel.ID != "x" {
		t.Fatalf("recs = %+v", recs)
	}
	if recs[0].Score-recs[1].Score != weightTimeOfDay {
		t.Errorf("scores = %+v", recs)
	}
}

func TestRank_padsWithPopularAndCapsAtLimit(t *testing.T) {
	now := time.Date(2025, 3, 1, 20, 0, 0, 0, time.Local)
	channels := lineup(12)
	// Only ch-9 has history, so the rest of the row is padding. ch-9's
	// "General" category score also lifts every channel, so all twelve
	// score; the cap still holds.
	history := []WatchEvent{
		{ChannelID: "ch-9", Category: "General", StartedAt: now.Add(-30 * time.Hour)},
	}
	recs := rank(history, channels, now)
	if len(recs) != recommendLimit {
		t.Fatalf("len = %d; want %d", len(recs), recommendLimit)
	}
	if recs[0].Channel.ID != "ch-9" {
		t.Errorf("top = %s", recs[0].Channel.ID)
	}
	seen := map[string]bool{}
	for _, r := range recs {
		if seen[r.Channel.ID] {
			t.Errorf("duplicate %s", r.Channel.ID)
		}
		seen[r.Channel.ID] = true
	}
}

func TestRank_emptyHistoryFallsBackToLineupOrder(t *testing.T) {
	now := time.Now()
	channels := lineup(5)
	recs := rank(nil, channels, now)
	if len(recs) != 5 {
		t.Fatalf("recs = %+v", recs)
	}
	for i, r := range recs {
		if r.Channel.ID != fmt.Sprintf("ch-%d", i) {
			t.Errorf("slot %d = %s", i, r.Channel.ID)
		}
		if r.Score != 0 {
			t.Errorf("padding should carry no score: %+v", r)
		}
	}
}

func TestRecommend_throughStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProfile(ctx, "Alice", "")
	if err != nil {
		t.Fatal(err)
	}
	channels := []playlist.Channel{
		{ID: "bbc", Name: "BBC", GroupName: "News"},
		{ID: "sky", Name: "Sky", GroupName: "Sports"},
	}
	ev := WatchEvent{
		ChannelID: "bbc", ChannelName: "BBC", Category: "News",
		StartedAt: time.Now().Add(-30 * time.Hour), Duration: 900,
	}
	if err := s.RecordWatch(ctx, p.ID, ev); err != nil {
		t.Fatal(err)
	}
	recs, err := s.Recommend(ctx, p.ID, channels, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Channel.ID != "bbc" {
		t.Fatalf("recs = %+v", recs)
	}
}
