package epg

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

const sampleXMLTV = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="bbc1">
    <display-name>BBC One</display-name>
    <icon src="http://x/bbc1.png"/>
  </channel>
  <channel id="cnn"><display-name>CNN</display-name></channel>
  <programme channel="bbc1" start="20250101180000" stop="20250101190000">
    <title>News at 6</title>
    <desc>Evening news.</desc>
    <category>News</category>
    <rating><value>PG</value></rating>
  </programme>
  <programme channel="bbc1" start="20250101170000" stop="20250101180000">
    <title>Earlier Show</title>
  </programme>
  <programme channel="cnn" start="20250101180000" stop="20250101183000">
    <title>World Report</title>
  </programme>
</tv>`

func TestParseXMLTV_channelsAndPrograms(t *testing.T) {
	data, err := ParseXMLTVString(sampleXMLTV)
	if err != nil {
		t.Fatalf("ParseXMLTV: %v", err)
	}
	if len(data.Channels) != 2 {
		t.Fatalf("channels = %+v", data.Channels)
	}
	bbc := data.Channels[0]
	if bbc.ID != "bbc1" || bbc.Name != "BBC One" || bbc.IconURL != "http://x/bbc1.png" {
		t.Errorf("bbc = %+v", bbc)
	}
	if len(bbc.Programs) != 2 {
		t.Fatalf("bbc programs = %+v", bbc.Programs)
	}
	// Sorted ascending by start even though the feed is out of order.
	if bbc.Programs[0].Title != "Earlier Show" || bbc.Programs[1].Title != "News at 6" {
		t.Errorf("program order: %q, %q", bbc.Programs[0].Title, bbc.Programs[1].Title)
	}
	p := bbc.Programs[1]
	if p.Description != "Evening news." || p.Category != "News" || p.Rating != "PG" {
		t.Errorf("program = %+v", p)
	}
	if p.Stop <= p.Start {
		t.Errorf("stop %d not after start %d", p.Stop, p.Start)
	}
	wantID := "bbc1-" + strconv.FormatInt(p.Start, 10) + "-" + strconv.FormatInt(p.Stop, 10)
	if p.ID != wantID {
		t.Errorf("id = %q; want %q", p.ID, wantID)
	}
	for _, ch := range data.Channels {
		for _, p := range ch.Programs {
			if p.ChannelID != ch.ID {
				t.Errorf("program %q attached to wrong channel %q", p.ID, ch.ID)
			}
		}
	}
}

func TestParseXMLTV_windowSpansAllPrograms(t *testing.T) {
	data, err := ParseXMLTVString(sampleXMLTV)
	if err != nil {
		t.Fatal(err)
	}
	if data.StartTime > data.EndTime {
		t.Errorf("start %d > end %d", data.StartTime, data.EndTime)
	}
	for _, ch := range data.Channels {
		for _, p := range ch.Programs {
			if p.Start < data.StartTime || p.Stop > data.EndTime {
				t.Errorf("program %q outside window", p.ID)
			}
		}
	}
}

func TestParseXMLTV_emptyFeedDefaultWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	data, err := parseXMLTV(strings.NewReader(`<tv></tv>`), now)
	if err != nil {
		t.Fatal(err)
	}
	if data.StartTime != now.UnixMilli() {
		t.Errorf("start = %d; want %d", data.StartTime, now.UnixMilli())
	}
	if data.EndTime != data.StartTime+24*time.Hour.Milliseconds() {
		t.Errorf("end = %d", data.EndTime)
	}
}

func TestParseXMLTV_undeclaredChannelProgrammeDropped(t *testing.T) {
	xml := `<tv>
  <programme channel="bbc1" start="20250101180000" stop="20250101190000"><title>News at 6</title></programme>
</tv>`
	data, err := ParseXMLTVString(xml)
	if err != nil {
		t.Fatalf("expected drop, not error: %v", err)
	}
	if len(data.Channels) != 0 {
		t.Errorf("channels = %+v", data.Channels)
	}
	// The orphan programme still bounds the window.
	if data.StartTime >= data.EndTime {
		t.Errorf("window [%d, %d]", data.StartTime, data.EndTime)
	}
}

func TestParseXMLTV_missingTitleAndBadDate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	xml := `<tv>
  <channel id="c1"><display-name>C1</display-name></channel>
  <programme channel="c1" start="garbage" stop="alsogarbage"></programme>
</tv>`
	data, err := parseXMLTV(strings.NewReader(xml), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Channels) != 1 || len(data.Channels[0].Programs) != 1 {
		t.Fatalf("data = %+v", data)
	}
	p := data.Channels[0].Programs[0]
	if p.Title != "Unknown Program" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Start != now.UnixMilli() || p.Stop != now.UnixMilli() {
		t.Errorf("bad dates should fall back to now; got start=%d stop=%d", p.Start, p.Stop)
	}
}

func TestParseXMLTV_channelNameFallsBackToID(t *testing.T) {
	data, err := ParseXMLTVString(`<tv><channel id="raw.id"></channel></tv>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Channels) != 1 || data.Channels[0].Name != "raw.id" {
		t.Errorf("channels = %+v", data.Channels)
	}
}

func TestParseXMLTV_malformedXMLErrors(t *testing.T) {
	if _, err := ParseXMLTVString(`<tv><channel id="x">`); err == nil {
		t.Error("expected error for truncated XML")
	}
}

func TestParseXMLTVTime_timezoneTokenIgnored(t *testing.T) {
	now := time.Now()
	withTZ := parseXMLTVTime("20250101180000 +0500", now)
	without := parseXMLTVTime("20250101180000", now)
	if withTZ != without {
		t.Errorf("timezone token should be ignored: %d vs %d", withTZ, without)
	}
	want := time.Date(2025, 1, 1, 18, 0, 0, 0, time.Local).UnixMilli()
	if without != want {
		t.Errorf("parsed %d; want %d", without, want)
	}
}

func TestParseXMLTVTime_fallbackLayouts(t *testing.T) {
	now := time.Now()
	got := parseXMLTVTime("2025-01-01T18:00:00Z", now)
	want := time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC).UnixMilli()
	if got != want {
		t.Errorf("RFC3339 fallback: %d; want %d", got, want)
	}
}
