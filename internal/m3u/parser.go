// Package m3u parses M3U playlist text into channel groups. Parsing is
// pure: no I/O, no state, deterministic for a given input.
package m3u

import (
	"regexp"
	"strings"

	"github.com/canalize/canalize/internal/models"
)

// Channel is one parsed playlist entry. It is never persisted directly;
// the importer turns it into a channel row.
type Channel struct {
	Name  string
	Logo  string
	URL   string
	Group string
}

// Group is a named sequence of channels in first-seen order.
type Group struct {
	Name     string
	Channels []Channel
}

// Playlist is the parse result. Groups preserves the order in which
// group titles were first seen; InvalidCount is the number of EXTINF
// headers with no usable URL line; TotalEntries counts parsed entries
// before any database-level dedup.
type Playlist struct {
	Groups       []Group
	InvalidCount int
	TotalEntries int
}

// Attribute extraction is case-insensitive on the key and takes the
// first, shortest quoted value.
var (
	reGroupTitle = regexp.MustCompile(`(?i)group-title="(.*?)"`)
	reTvgLogo    = regexp.MustCompile(`(?i)tvg-logo="(.*?)"`)
	reTvgName    = regexp.MustCompile(`(?i)tvg-name="(.*?)"`)
)

// Parse transforms playlist text into grouped channels. Malformed
// entries (an #EXTINF header with no following URL line) are counted,
// not errors: real-world playlists routinely contain them.
func Parse(content string) *Playlist {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")

	playlist := &Playlist{}
	groupIndex := make(map[string]int)

	for i := 0; i < len(lines); i++ {
		info := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(info, "#EXTINF") {
			continue
		}

		urlLine, ok := findNextURL(lines, i+1)
		if !ok {
			playlist.InvalidCount++
			continue
		}
		url := strings.TrimSpace(urlLine)
		if url == "" {
			playlist.InvalidCount++
			continue
		}

		group := strings.TrimSpace(extractAttribute(reGroupTitle, info))
		if group == "" {
			group = models.DefaultGroupName
		}
		logo := strings.TrimSpace(extractAttribute(reTvgLogo, info))
		name := strings.TrimSpace(extractName(info))
		if name == "" {
			name = strings.TrimSpace(extractAttribute(reTvgName, info))
		}
		if name == "" {
			name = models.DefaultChannelName
		}

		entry := Channel{Name: name, Logo: logo, URL: url, Group: group}
		playlist.TotalEntries++

		idx, seen := groupIndex[group]
		if !seen {
			idx = len(playlist.Groups)
			groupIndex[group] = idx
			playlist.Groups = append(playlist.Groups, Group{Name: group})
		}
		playlist.Groups[idx].Channels = append(playlist.Groups[idx].Channels, entry)
	}

	return playlist
}

func extractAttribute(re *regexp.Regexp, info string) string {
	m := re.FindStringSubmatch(info)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// extractName returns everything after the first comma of the header,
// so display names containing commas survive intact.
func extractName(info string) string {
	parts := strings.Split(info, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], ",")
}

// findNextURL scans forward for the first non-blank line that is not a
// comment. M3U does not guarantee the URL sits on the very next line,
// so this is a cursor scan, not strict line pairing.
func findNextURL(lines []string, start int) (string, bool) {
	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, true
	}
	return "", false
}
