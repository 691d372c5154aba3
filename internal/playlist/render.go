package playlist

import (
	"fmt"
	"strings"
	"unicode"
)

// Channel is one published playlist row. Callers supply rows in the order
// they should appear; Render does not reorder them.
type Channel struct {
	Name  string
	Group string
	Logo  string
	URL   string
}

// Render produces the published M3U document.
func Render(epgURL string, channels []Channel) string {
	var b strings.Builder
	if epgURL != "" {
		fmt.Fprintf(&b, "#EXTM3U x-tvg-url=%q\n", epgURL)
	} else {
		b.WriteString(header + "\n")
	}
	for _, ch := range channels {
		fmt.Fprintf(&b, "#EXTINF:-1 tvg-id=%q tvg-name=%q tvg-logo=%q group-title=%q,%s\n",
			ch.Name, ch.Name, ch.Logo, ch.Group, ch.Name)
		b.WriteString(ch.URL + "\n")
	}
	return b.String()
}

// LogoURL expands a logo template for a channel name. The name is folded to
// word characters only so it forms a stable file name.
func LogoURL(template, name string) string {
	if template == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.ReplaceAll(template, "{name}", b.String())
}
