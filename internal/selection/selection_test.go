package selection_test

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"aerial/internal/channelid"
	"aerial/internal/endpoint"
	"aerial/internal/hostcheck"
	"aerial/internal/logging"
	"aerial/internal/selection"
)

type fakeConfirmer struct {
	mu    sync.Mutex
	calls []string
	pass  map[string]bool
}

func (f *fakeConfirmer) Confirm(_ context.Context, url string) bool {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	return f.pass[url]
}

func aliveHost(name string, latency time.Duration) (endpoint.Host, hostcheck.Quality) {
	return endpoint.Host{Name: name, Port: 80}, hostcheck.Quality{Alive: true, Latency: latency, Trials: 1}
}

func deadHost(name string) (endpoint.Host, hostcheck.Quality) {
	return endpoint.Host{Name: name, Port: 80}, hostcheck.Quality{Reason: "HEAD 404", Trials: 1}
}

func TestResolvePrefersLowestLatencyThatConfirms(t *testing.T) {
	quality := map[endpoint.Host]hostcheck.Quality{}
	for _, spec := range []struct {
		name    string
		latency time.Duration
		alive   bool
	}{
		{"slow.test", 400 * time.Millisecond, false},
		{"fast.test", 100 * time.Millisecond, true},
		{"mid.test", 250 * time.Millisecond, true},
	} {
		if spec.alive {
			host, record := aliveHost(spec.name, spec.latency)
			quality[host] = record
		} else {
			host, record := deadHost(spec.name)
			quality[host] = record
		}
	}

	channels := []channelid.Channel{{
		Name: "CCTV1",
		Candidates: []channelid.Candidate{
			{DisplayName: "CCTV-1", URL: "http://slow.test/one.m3u8"},
			{DisplayName: "CCTV-1高清", URL: "http://fast.test/one.m3u8"},
			{DisplayName: "CCTV-1综合", URL: "http://mid.test/one.m3u8"},
		},
	}}

	confirmer := &fakeConfirmer{pass: map[string]bool{
		"http://mid.test/one.m3u8": true,
	}}
	picks, unresolved := selection.NewResolver(confirmer, logging.NewNop()).Resolve(context.Background(), channels, quality)

	if len(unresolved) != 0 {
		t.Fatalf("unexpected unresolved channels: %+v", unresolved)
	}
	if len(picks) != 1 {
		t.Fatalf("expected one pick, got %+v", picks)
	}
	pick := picks[0]
	if pick.URL != "http://mid.test/one.m3u8" || pick.Latency != 250*time.Millisecond {
		t.Fatalf("unexpected pick: %+v", pick)
	}
	if pick.DisplayName != "CCTV-1综合" {
		t.Fatalf("pick should carry the winning candidate's title, got %q", pick.DisplayName)
	}

	want := []string{"http://fast.test/one.m3u8", "http://mid.test/one.m3u8"}
	if !reflect.DeepEqual(confirmer.calls, want) {
		t.Fatalf("confirm order %v, want %v", confirmer.calls, want)
	}
}

func TestResolveSkipsDeadEndpointsEntirely(t *testing.T) {
	host, record := deadHost("gone.test")
	quality := map[endpoint.Host]hostcheck.Quality{host: record}

	channels := []channelid.Channel{{
		Name: "CCTV2",
		Candidates: []channelid.Candidate{
			{DisplayName: "CCTV-2", URL: "http://gone.test/a.m3u8"},
			{DisplayName: "CCTV-2", URL: "http://gone.test/b.m3u8"},
		},
	}}

	confirmer := &fakeConfirmer{}
	picks, unresolved := selection.NewResolver(confirmer, logging.NewNop()).Resolve(context.Background(), channels, quality)

	if len(picks) != 0 {
		t.Fatalf("dead endpoints must never be selected: %+v", picks)
	}
	if len(unresolved) != 1 || unresolved[0].Channel != "CCTV2" || unresolved[0].Reason != selection.ReasonNoValidSource {
		t.Fatalf("unexpected unresolved list: %+v", unresolved)
	}
	if len(confirmer.calls) != 0 {
		t.Fatalf("no confirmation should run for dead endpoints: %v", confirmer.calls)
	}
}

func TestResolveEqualLatenciesKeepDiscoveryOrder(t *testing.T) {
	hostA, recordA := aliveHost("a.test", 120*time.Millisecond)
	hostB, recordB := aliveHost("b.test", 120*time.Millisecond)
	quality := map[endpoint.Host]hostcheck.Quality{hostA: recordA, hostB: recordB}

	channels := []channelid.Channel{{
		Name: "湖南卫视",
		Candidates: []channelid.Candidate{
			{DisplayName: "湖南卫视", URL: "http://b.test/hn.m3u8"},
			{DisplayName: "湖南卫视HD", URL: "http://a.test/hn.m3u8"},
		},
	}}

	confirmer := &fakeConfirmer{pass: map[string]bool{
		"http://b.test/hn.m3u8": true,
		"http://a.test/hn.m3u8": true,
	}}
	picks, _ := selection.NewResolver(confirmer, logging.NewNop()).Resolve(context.Background(), channels, quality)

	if len(picks) != 1 || picks[0].URL != "http://b.test/hn.m3u8" {
		t.Fatalf("tie should fall to the first discovered candidate: %+v", picks)
	}
	if len(confirmer.calls) != 1 {
		t.Fatalf("no candidate may be probed after a success: %v", confirmer.calls)
	}
}

func TestResolveKeepsInputChannelOrder(t *testing.T) {
	hostA, recordA := aliveHost("one.test", 50*time.Millisecond)
	hostB, recordB := aliveHost("two.test", 60*time.Millisecond)
	quality := map[endpoint.Host]hostcheck.Quality{hostA: recordA, hostB: recordB}

	channels := []channelid.Channel{
		{Name: "CCTV1", Candidates: []channelid.Candidate{{DisplayName: "CCTV-1", URL: "http://one.test/1.m3u8"}}},
		{Name: "CCTV13", Candidates: []channelid.Candidate{{DisplayName: "CCTV-13", URL: "http://two.test/13.m3u8"}}},
		{Name: "CCTV5", Candidates: []channelid.Candidate{{DisplayName: "CCTV-5", URL: "http://one.test/5.m3u8"}}},
	}

	confirmer := &fakeConfirmer{pass: map[string]bool{
		"http://one.test/1.m3u8":  true,
		"http://two.test/13.m3u8": true,
		"http://one.test/5.m3u8":  true,
	}}
	picks, unresolved := selection.NewResolver(confirmer, logging.NewNop()).Resolve(context.Background(), channels, quality)

	if len(unresolved) != 0 {
		t.Fatalf("unexpected unresolved channels: %+v", unresolved)
	}
	got := []string{picks[0].Channel, picks[1].Channel, picks[2].Channel}
	want := []string{"CCTV1", "CCTV13", "CCTV5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("selection order %v, want input order %v", got, want)
	}
}

func TestResolveCancelledContextLeavesChannelsUnresolved(t *testing.T) {
	host, record := aliveHost("live.test", 80*time.Millisecond)
	quality := map[endpoint.Host]hostcheck.Quality{host: record}

	channels := []channelid.Channel{{
		Name:       "CCTV4",
		Candidates: []channelid.Candidate{{DisplayName: "CCTV-4", URL: "http://live.test/4.m3u8"}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	confirmer := &fakeConfirmer{pass: map[string]bool{"http://live.test/4.m3u8": true}}
	picks, unresolved := selection.NewResolver(confirmer, logging.NewNop()).Resolve(ctx, channels, quality)

	if len(picks) != 0 || len(unresolved) != 1 {
		t.Fatalf("cancelled run should resolve nothing: picks=%+v unresolved=%+v", picks, unresolved)
	}
	if len(confirmer.calls) != 0 {
		t.Fatalf("cancelled run must skip queued probes: %v", confirmer.calls)
	}
}
