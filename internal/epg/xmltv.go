package epg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// unknownTitle is substituted for programmes without a <title>.
const unknownTitle = "Unknown Program"

// ParseXMLTV decodes an XMLTV document into guide Data.
//
// Structural failure (broken XML) aborts with an error; per-record anomalies
// do not: programmes referencing undeclared channels are dropped, and
// unparseable timestamps fall back to the parse time. Third-party feeds are
// expected to be imperfect, so a degraded result beats an all-or-nothing
// failure.
func ParseXMLTV(r io.Reader) (*Data, error) {
	return parseXMLTV(r, time.Now())
}

// ParseXMLTVString is a convenience wrapper for in-memory documents.
func ParseXMLTVString(xmlContent string) (*Data, error) {
	return ParseXMLTV(strings.NewReader(xmlContent))
}

func parseXMLTV(r io.Reader, now time.Time) (*Data, error) {
	dec := xml.NewDecoder(r)
	// Provider feeds are not reliably UTF-8.
	dec.CharsetReader = charset.NewReaderLabel

	var channels []Channel
	chanIdx := make(map[string]int)
	var programs []Program
	minStart := int64(0)
	maxStop := int64(0)
	haveProgram := false

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse xmltv: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "channel":
			var node xmltvChannel
			if err := dec.DecodeElement(&node, &se); err != nil {
				return nil, fmt.Errorf("parse xmltv channel: %w", err)
			}
			id := strings.TrimSpace(node.ID)
			if id == "" {
				continue
			}
			name := id
			if len(node.DisplayNames) > 0 && strings.TrimSpace(node.DisplayNames[0]) != "" {
				name = strings.TrimSpace(node.DisplayNames[0])
			}
			icon := ""
			if len(node.Icons) > 0 {
				icon = node.Icons[0].Src
			}
			if _, dup := chanIdx[id]; dup {
				continue
			}
			chanIdx[id] = len(channels)
			channels = append(channels, Channel{ID: id, Name: name, IconURL: icon})
		case "programme":
			var node xmltvProgramme
			if err := dec.DecodeElement(&node, &se); err != nil {
				return nil, fmt.Errorf("parse xmltv programme: %w", err)
			}
			start := parseXMLTVTime(node.Start, now)
			stop := parseXMLTVTime(node.Stop, now)
			if !haveProgram || start < minStart {
				minStart = start
			}
			if !haveProgram || stop > maxStop {
				maxStop = stop
			}
			haveProgram = true
			title := first(node.Titles)
			if title == "" {
				title = unknownTitle
			}
			icon := ""
			if len(node.Icons) > 0 {
				icon = node.Icons[0].Src
			}
			rating := ""
			if len(node.Ratings) > 0 {
				rating = strings.TrimSpace(node.Ratings[0].Value)
			}
			programs = append(programs, Program{
				ID:          fmt.Sprintf("%s-%d-%d", node.Channel, start, stop),
				Title:       title,
				Description: first(node.Descs),
				Start:       start,
				Stop:        stop,
				ChannelID:   node.Channel,
				Category:    first(node.Categories),
				Rating:      rating,
				IconURL:     icon,
			})
		}
	}

	if !haveProgram {
		minStart = now.UnixMilli()
		maxStop = minStart + 24*time.Hour.Milliseconds()
	}

	// Programmes whose channel attribute matches no declared <channel> are
	// dropped here; they still contribute to the window bounds above, matching
	// the min/max pass running over every programme.
	for _, p := range programs {
		if i, ok := chanIdx[p.ChannelID]; ok {
			channels[i].Programs = append(channels[i].Programs, p)
		}
	}
	for i := range channels {
		progs := channels[i].Programs
		sort.SliceStable(progs, func(a, b int) bool { return progs[a].Start < progs[b].Start })
	}

	return &Data{Channels: channels, StartTime: minStart, EndTime: maxStop}, nil
}

// xmltvTimeLayout is the XMLTV timestamp grammar YYYYMMDDHHMMSS. An optional
// trailing timezone token is accepted but ignored; timestamps are read as
// naive local time. See DESIGN.md for why this stays as-is.
const xmltvTimeLayout = "20060102150405"

var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseXMLTVTime returns epoch milliseconds for an XMLTV date attribute.
// Fails over to generic layouts, then to now — lossy by design, never an error.
func parseXMLTVTime(s string, now time.Time) int64 {
	s = strings.TrimSpace(s)
	if len(s) >= len(xmltvTimeLayout) {
		if t, err := time.ParseInLocation(xmltvTimeLayout, s[:len(xmltvTimeLayout)], time.Local); err == nil {
			return t.UnixMilli()
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return now.UnixMilli()
}

type xmltvChannel struct {
	ID           string      `xml:"id,attr"`
	DisplayNames []string    `xml:"display-name"`
	Icons        []xmltvIcon `xml:"icon"`
}

type xmltvIcon struct {
	Src string `xml:"src,attr"`
}

type xmltvProgramme struct {
	Start      string      `xml:"start,attr"`
	Stop       string      `xml:"stop,attr"`
	Channel    string      `xml:"channel,attr"`
	Titles     []string    `xml:"title"`
	Descs      []string    `xml:"desc"`
	Categories []string    `xml:"category"`
	Icons      []xmltvIcon `xml:"icon"`
	Ratings    []struct {
		Value string `xml:"value"`
	} `xml:"rating"`
}

// first returns the first entry of a repeated child element, trimmed.
func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return strings.TrimSpace(ss[0])
}
