package endpoint_test

import (
	"encoding/json"
	"testing"

	"aerial/internal/endpoint"
)

func TestFromURLDefaultsPorts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want endpoint.Host
	}{
		{"http default", "http://example.com/live.m3u8", endpoint.Host{Name: "example.com", Port: 80}},
		{"https default", "https://example.com/live.m3u8", endpoint.Host{Name: "example.com", Port: 443}},
		{"explicit port", "http://example.com:8080/live.m3u8", endpoint.Host{Name: "example.com", Port: 8080}},
		{"host lowercased", "http://CDN.Example.COM/live.m3u8", endpoint.Host{Name: "cdn.example.com", Port: 80}},
		{"ip host", "http://10.0.0.1:9000/stream", endpoint.Host{Name: "10.0.0.1", Port: 9000}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := endpoint.FromURL(tc.raw)
			if err != nil {
				t.Fatalf("FromURL(%q) returned error: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("FromURL(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestFromURLRejectsHostlessURLs(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative/path.m3u8", "http://"} {
		if _, err := endpoint.FromURL(raw); err == nil {
			t.Fatalf("FromURL(%q) expected error", raw)
		}
	}
}

func TestKeyFormat(t *testing.T) {
	host := endpoint.Host{Name: "example.com", Port: 8080}
	if got := host.Key(); got != "example.com:8080" {
		t.Fatalf("Key() = %q, want example.com:8080", got)
	}
}

func TestHostTextRoundTrip(t *testing.T) {
	payload, err := json.Marshal(map[endpoint.Host]int{
		{Name: "cdn.example.com", Port: 8080}: 1,
		{Name: "::1", Port: 80}:               2,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[endpoint.Host]int
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded[endpoint.Host{Name: "cdn.example.com", Port: 8080}] != 1 {
		t.Fatalf("lost host entry in %s", payload)
	}
	if decoded[endpoint.Host{Name: "::1", Port: 80}] != 2 {
		t.Fatalf("lost IPv6 host entry in %s", payload)
	}

	var host endpoint.Host
	for _, bad := range []string{"", "nohost", ":80", "host:", "host:0", "host:notaport"} {
		if err := host.UnmarshalText([]byte(bad)); err == nil {
			t.Fatalf("UnmarshalText(%q) expected error", bad)
		}
	}
}

func TestIsManifest(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"http://example.com/live.m3u8", true},
		{"http://example.com/live.M3U8", true},
		{"http://example.com/list.m3u", true},
		{"http://example.com/live.m3u8?token=abc", true},
		{"http://example.com/stream/1234", false},
		{"http://example.com/video.ts", false},
		{"http://example.com/live.m3u8.bak", false},
	}
	for _, tc := range tests {
		if got := endpoint.IsManifest(tc.raw); got != tc.want {
			t.Fatalf("IsManifest(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
