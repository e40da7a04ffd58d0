package playlist

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidFormat is returned when the input is not an extended M3U document.
var ErrInvalidFormat = errors.New("invalid M3U playlist format")

const maxLineSize = 1 << 20 // 1 MiB per line

// ParseM3U parses extended M3U text into a Playlist.
// The first non-empty line must carry the #EXTM3U header. Each #EXTINF line
// holds metadata for the next non-comment, non-empty line, which is taken
// verbatim as the stream URL. An EXTINF with no following URL is dropped.
func ParseM3U(content string) (*Playlist, error) {
	return ParseM3UReader(strings.NewReader(content))
}

// ParseM3UReader is the streaming form of ParseM3U.
func ParseM3UReader(r io.Reader) (*Playlist, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)

	// Header check: the document must open with #EXTM3U.
	var sawHeader bool
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#EXTM3U") {
			return nil, ErrInvalidFormat
		}
		sawHeader = true
		break
	}
	if !sawHeader {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, ErrInvalidFormat
	}

	var channels []Channel
	var meta *extinfMeta
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXTINF:") {
			// A new EXTINF before a URL drops the previous dangling one.
			m := parseEXTINF(line)
			meta = &m
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if meta == nil {
			continue
		}
		channels = append(channels, Channel{
			ID:           uuid.NewString(),
			Name:         meta.name,
			LogoURL:      meta.logo,
			GroupName:    meta.group,
			StreamURL:    line,
			EPGChannelID: meta.tvgID,
		})
		meta = nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return &Playlist{
		Groups:      BuildGroups(channels, UncategorizedGroup),
		Channels:    channels,
		LastUpdated: time.Now(),
	}, nil
}

type extinfMeta struct {
	name  string
	tvgID string
	logo  string
	group string
}

// parseEXTINF extracts the display name (text after the final comma) and the
// tvg-id / tvg-logo / group-title attributes, which may appear anywhere on the
// line in any order. Missing group-title maps to the catch-all group.
func parseEXTINF(line string) extinfMeta {
	m := extinfMeta{
		tvgID: attrValue(line, `tvg-id="`),
		logo:  attrValue(line, `tvg-logo="`),
		group: attrValue(line, `group-title="`),
	}
	if m.group == "" {
		m.group = UncategorizedGroup
	}
	if i := strings.LastIndex(line, ","); i >= 0 {
		m.name = strings.TrimSpace(line[i+1:])
	}
	return m
}

func attrValue(line, prefix string) string {
	i := strings.Index(line, prefix)
	if i < 0 {
		return ""
	}
	rest := line[i+len(prefix):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		return ""
	}
	return rest[:j]
}
