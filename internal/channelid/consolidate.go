package channelid

import "aerial/internal/playlist"

// Candidate is one stream URL that claims to carry a channel, keeping the
// display name the source published it under.
type Candidate struct {
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
}

// Channel gathers every candidate URL for one canonical channel name.
type Channel struct {
	Name       string      `json:"name"`
	Candidates []Candidate `json:"candidates"`
}

// Consolidate groups playlist entries by canonical channel name. URLs are
// deduplicated across the whole input, so a URL listed under two labels only
// counts for the first one seen. Channel order follows first appearance.
func Consolidate(entries []playlist.Entry) []Channel {
	var channels []Channel
	index := make(map[string]int)
	seenURLs := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		if _, dup := seenURLs[entry.URL]; dup {
			continue
		}
		seenURLs[entry.URL] = struct{}{}

		name := Normalize(entry.Name)
		pos, ok := index[name]
		if !ok {
			pos = len(channels)
			index[name] = pos
			channels = append(channels, Channel{Name: name})
		}
		channels[pos].Candidates = append(channels[pos].Candidates, Candidate{
			DisplayName: entry.Name,
			URL:         entry.URL,
		})
	}
	return channels
}
