// Package playlist reads and writes IPTV playlist files. It parses M3U and
// the simpler "name,url" TXT format into a common entry list and renders the
// published playlist with EPG and logo attributes.
package playlist

import (
	"net/url"
	"regexp"
	"strings"
)

// Entry is a single channel line from a source playlist. Name is the raw
// display name as published by the source; grouping and canonical naming are
// derived later.
type Entry struct {
	Name string
	URL  string
}

// Format identifies the on-disk layout of a playlist document.
type Format string

const (
	FormatM3U Format = "m3u"
	FormatTXT Format = "txt"
)

const header = "#EXTM3U"

// Detect inspects the head of a document and reports its playlist format.
// Anything without both the M3U header and an EXTINF tag near the top is
// treated as TXT.
func Detect(content string) Format {
	head := strings.ToUpper(strings.TrimSpace(content))
	if len(head) > 200 {
		head = head[:200]
	}
	if strings.Contains(head, header) && strings.Contains(head, "#EXTINF") {
		return FormatM3U
	}
	return FormatTXT
}

// Parse converts a playlist document of either format into entries. Lines
// that do not form a name/URL pair are skipped.
func Parse(content string) []Entry {
	if Detect(content) == FormatM3U {
		return parseM3U(content)
	}
	return parseTXT(content)
}

func parseM3U(content string) []Entry {
	var entries []Entry
	lines := make([]string, 0, 64)
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(strings.ToUpper(lines[i]), "#EXTINF:") {
			continue
		}
		name := "Unknown"
		if idx := strings.Index(lines[i], ","); idx >= 0 {
			name = lines[i][idx+1:]
		}
		if i+1 >= len(lines) || strings.HasPrefix(lines[i+1], "#") {
			continue
		}
		cleaned := cleanURL(lines[i+1])
		if validStreamURL(cleaned) {
			entries = append(entries, Entry{Name: name, URL: cleaned})
		}
		i++
	}
	return entries
}

// parseTXT reads the "group,#genre#" sectioned format. Section headers only
// organize the file; grouping for output is re-derived from channel names, so
// they are consumed and dropped here.
func parseTXT(content string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, ",#genre#") {
			continue
		}
		if strings.Count(line, ",") != 1 {
			continue
		}
		name, rawURL, _ := strings.Cut(line, ",")
		name = strings.TrimSpace(name)
		rawURL = strings.TrimSpace(rawURL)
		if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
			continue
		}
		cleaned := cleanURL(rawURL)
		if validStreamURL(cleaned) {
			entries = append(entries, Entry{Name: name, URL: cleaned})
		}
	}
	return entries
}

var urlTailPattern = regexp.MustCompile(`[\$•].*|\s+.*`)

// cleanURL drops provider decorations: anything after a '$' or '•' marker or
// the first whitespace, plus trailing separator characters.
func cleanURL(raw string) string {
	cleaned := urlTailPattern.ReplaceAllString(strings.TrimSpace(raw), "")
	return strings.TrimRight(cleaned, "/?&")
}

func validStreamURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
