package profile

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "profiles.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProfileLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateProfile(ctx, "", ""); err == nil {
		t.Fatal("empty name should be rejected")
	}
	p1, err := s.CreateProfile(ctx, "Alice", "cat.png")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := s.CreateProfile(ctx, "Bob", "")
	if err != nil {
		t.Fatal(err)
	}
	if p1.ID == p2.ID || p1.ID == "" {
		t.Fatalf("ids not unique: %q %q", p1.ID, p2.ID)
	}

	all, err := s.Profiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("profiles = %+v", all)
	}

	if err := s.DeleteProfile(ctx, p1.ID); err != nil {
		t.Fatal(err)
	}
	all, _ = s.Profiles(ctx)
	if len(all) != 1 || all[0].Name != "Bob" {
		t.Errorf("after delete: %+v", all)
	}
	// Unknown id is a no-op.
	if err := s.DeleteProfile(ctx, "nope"); err != nil {
		t.Errorf("delete unknown: %v", err)
	}
}

func TestFavorites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProfile(ctx, "Alice", "")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ { // idempotent
		if err := s.AddFavorite(ctx, p.ID, "bbc-one"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AddFavorite(ctx, p.ID, "cnn"); err != nil {
		t.Fatal(err)
	}
	favs, err := s.Favorites(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(favs) != 2 {
		t.Fatalf("favorites = %v", favs)
	}

	if err := s.RemoveFavorite(ctx, p.ID, "bbc-one"); err != nil {
		t.Fatal(err)
	}
	favs, _ = s.Favorites(ctx, p.ID)
	if len(favs) != 1 || favs[0] != "cnn" {
		t.Errorf("after remove: %v", favs)
	}

	// Cascade: deleting the profile clears its favourites.
	if err := s.DeleteProfile(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	favs, _ = s.Favorites(ctx, p.ID)
	if len(favs) != 0 {
		t.Errorf("favorites survived profile delete: %v", favs)
	}
}

func TestRecordWatch_dropsShortViews(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p, err := s.CreateProfile(ctx, "Alice", "")
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	events := []WatchEvent{
		{ChannelID: "zap", ChannelName: "Zap", Category: "News", StartedAt: base, Duration: 3},
		{ChannelID: "bbc", ChannelName: "BBC", Category: "News", StartedAt: base.Add(time.Minute), Duration: 600},
		{ChannelID: "cnn", ChannelName: "CNN", Category: "News", StartedAt: base.Add(2 * time.Minute), Duration: 120},
	}
	for _, ev := range events {
		if err := s.RecordWatch(ctx, p.ID, ev); err != nil {
			t.Fatal(err)
		}
	}

	hist, err := s.History(ctx, p.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("history = %+v", hist)
	}
	// Most recent first; the 3-second zap never lands.
	if hist[0].ChannelID != "cnn" || hist[1].ChannelID != "bbc" {
		t.Errorf("order = %s, %s", hist[0].ChannelID, hist[1].ChannelID)
	}
	if hist[1].Duration != 600 {
		t.Errorf("duration = %d", hist[1].Duration)
	}
}

func TestTimeOfDay(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{5, "morning"}, {11, "morning"},
		{12, "afternoon"}, {16, "afternoon"},
		{17, "evening"}, {21, "evening"},
		{22, "night"}, {2, "night"}, {4, "night"},
	}
	for _, tc := range cases {
		ts := time.Date(2025, 3, 1, tc.hour, 30, 0, 0, time.Local)
		if got := TimeOfDay(ts); got != tc.want {
			t.Errorf("TimeOfDay(%02d:30) = %q; want %q", tc.hour, got, tc.want)
		}
	}
}
