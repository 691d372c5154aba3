// Package endpoint resolves stream URLs to the host:port they are served
// from. Host keys group endpoints that share infrastructure so liveness
// results can be reused across every stream behind the same server.
package endpoint

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Host identifies a stream server by hostname and port.
type Host struct {
	Name string
	Port int
}

// Key returns the canonical "host:port" form used for grouping.
func (h Host) Key() string {
	return h.Name + ":" + strconv.Itoa(h.Port)
}

// MarshalText encodes the host as its key so maps keyed by Host serialize
// cleanly into run artifacts.
func (h Host) MarshalText() ([]byte, error) {
	return []byte(h.Key()), nil
}

// UnmarshalText parses the "host:port" key form. The split is on the last
// colon because bare IPv6 names carry their own.
func (h *Host) UnmarshalText(text []byte) error {
	key := string(text)
	idx := strings.LastIndexByte(key, ':')
	if idx <= 0 || idx == len(key)-1 {
		return fmt.Errorf("malformed host key %q", key)
	}
	port, err := strconv.Atoi(key[idx+1:])
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("malformed host key %q", key)
	}
	h.Name = key[:idx]
	h.Port = port
	return nil
}

// FromURL resolves a stream URL to its serving host. The port defaults to 443
// for https and 80 for everything else when the URL does not carry one.
func FromURL(raw string) (Host, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Host{}, fmt.Errorf("parse url %q: %w", raw, err)
	}
	name := strings.ToLower(parsed.Hostname())
	if name == "" {
		return Host{}, fmt.Errorf("url %q has no host", raw)
	}
	port := 0
	if portText := parsed.Port(); portText != "" {
		port, err = strconv.Atoi(portText)
		if err != nil || port <= 0 || port > 65535 {
			return Host{}, fmt.Errorf("url %q has invalid port %q", raw, portText)
		}
	}
	if port == 0 {
		if strings.EqualFold(parsed.Scheme, "https") {
			port = 443
		} else {
			port = 80
		}
	}
	return Host{Name: name, Port: port}, nil
}

// IsManifest reports whether the URL path points at an HLS playlist file.
// Direct stream URLs without a manifest extension get deeper validation
// because a readable prefix alone does not prove they play.
func IsManifest(raw string) bool {
	path := raw
	if parsed, err := url.Parse(strings.TrimSpace(raw)); err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".m3u8") || strings.HasSuffix(lower, ".m3u")
}
