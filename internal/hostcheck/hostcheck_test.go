package hostcheck_test

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"aerial/internal/channelid"
	"aerial/internal/config"
	"aerial/internal/deepcheck"
	"aerial/internal/endpoint"
	"aerial/internal/hostcheck"
	"aerial/internal/logging"
	"aerial/internal/probe"
)

type fakeProber struct {
	mu       sync.Mutex
	calls    []string
	verdicts map[string]probe.Verdict
}

func (f *fakeProber) Probe(_ context.Context, url string) probe.Verdict {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if v, ok := f.verdicts[url]; ok {
		return v
	}
	return probe.Verdict{Kind: probe.KindDead, Reason: "connection refused"}
}

func (f *fakeProber) indexOf(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, call := range f.calls {
		if call == url {
			return i
		}
	}
	return -1
}

func alive(latency time.Duration) probe.Verdict {
	return probe.Verdict{Alive: true, Latency: latency, Kind: probe.KindMedia, Reason: "OK"}
}

func dead(reason string) probe.Verdict {
	return probe.Verdict{Kind: probe.KindDead, Reason: reason}
}

func newTester(f *fakeProber) *hostcheck.Tester {
	cfg := config.Default()
	return hostcheck.NewTester(&cfg, f, logging.NewNop())
}

func host(name string) endpoint.Host {
	return endpoint.Host{Name: name, Port: 80}
}

func TestRunRecordsAliveRepresentativeImmediately(t *testing.T) {
	f := &fakeProber{verdicts: map[string]probe.Verdict{
		"http://a.test/x.m3u8": alive(50 * time.Millisecond),
	}}
	endpoints := map[endpoint.Host][]string{
		host("a.test"): {"http://a.test/raw/stream", "http://a.test/x.m3u8"},
	}

	quality := newTester(f).Run(context.Background(), endpoints)

	record := quality[host("a.test")]
	if !record.Alive || record.Trials != 1 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Latency != 50*time.Millisecond {
		t.Fatalf("latency %v, want 50ms", record.Latency)
	}
	if record.URL != "http://a.test/x.m3u8" {
		t.Fatalf("representative should prefer the manifest URL, got %q", record.URL)
	}
	if len(f.calls) != 1 {
		t.Fatalf("alive representative needs exactly one probe, saw %v", f.calls)
	}
}

func TestRunFallbackStopsAtFirstAliveAlternate(t *testing.T) {
	f := &fakeProber{verdicts: map[string]probe.Verdict{
		"http://b.test/rep.m3u8": {Kind: probe.KindError, Reason: "context deadline exceeded"},
		"http://b.test/alt1":     dead("GET 404"),
		"http://b.test/alt2":     alive(300 * time.Millisecond),
	}}
	endpoints := map[endpoint.Host][]string{
		host("b.test"): {
			"http://b.test/rep.m3u8",
			"http://b.test/alt1",
			"http://b.test/alt2",
			"http://b.test/alt3",
		},
	}

	quality := newTester(f).Run(context.Background(), endpoints)

	record := quality[host("b.test")]
	if !record.Alive || record.Trials != 3 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Latency != 300*time.Millisecond {
		t.Fatalf("latency %v, want 300ms", record.Latency)
	}
	if record.URL != "http://b.test/alt2" {
		t.Fatalf("record should carry the winning alternate, got %q", record.URL)
	}
	if f.indexOf("http://b.test/alt3") != -1 {
		t.Fatalf("no alternate may be probed after a success: %v", f.calls)
	}
	if f.indexOf("http://b.test/rep.m3u8") > f.indexOf("http://b.test/alt1") ||
		f.indexOf("http://b.test/alt1") > f.indexOf("http://b.test/alt2") {
		t.Fatalf("fallback chain ran out of order: %v", f.calls)
	}
}

func TestRunMarksSingleURLHostsNoFallback(t *testing.T) {
	f := &fakeProber{verdicts: map[string]probe.Verdict{
		"http://solo.test/only.m3u8": dead("HEAD 404"),
	}}
	endpoints := map[endpoint.Host][]string{
		host("solo.test"): {"http://solo.test/only.m3u8"},
	}

	quality := newTester(f).Run(context.Background(), endpoints)

	record := quality[host("solo.test")]
	if record.Alive || record.Reason != "no_fallback" || record.Trials != 1 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Kind != probe.KindDead {
		t.Fatalf("screening verdict kind should survive, got %q", record.Kind)
	}
	if len(f.calls) != 1 {
		t.Fatalf("single-URL host allows exactly one probe, saw %v", f.calls)
	}
}

func TestRunKeepsLastVerdictWhenAllAlternatesFail(t *testing.T) {
	f := &fakeProber{verdicts: map[string]probe.Verdict{
		"http://c.test/rep.m3u8": dead("HEAD 403"),
		"http://c.test/alt1":     dead("GET 404"),
		"http://c.test/alt2":     {Kind: probe.KindNotStream, Reason: "Not valid M3U8", Latency: 80 * time.Millisecond},
	}}
	endpoints := map[endpoint.Host][]string{
		host("c.test"): {"http://c.test/rep.m3u8", "http://c.test/alt1", "http://c.test/alt2"},
	}

	quality := newTester(f).Run(context.Background(), endpoints)

	record := quality[host("c.test")]
	if record.Alive || record.Trials != 3 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Kind != probe.KindNotStream || record.Reason != "Not valid M3U8" {
		t.Fatalf("record should keep the last trial's verdict: %+v", record)
	}
	if record.URL != "http://c.test/rep.m3u8" {
		t.Fatalf("representative must stay in place after total failure, got %q", record.URL)
	}
	if len(f.calls) != 3 {
		t.Fatalf("chain must not re-probe after exhaustion: %v", f.calls)
	}
}

func TestRunProbesAtMostThreeAlternates(t *testing.T) {
	f := &fakeProber{}
	endpoints := map[endpoint.Host][]string{
		host("d.test"): {
			"http://d.test/rep.m3u8",
			"http://d.test/a",
			"http://d.test/b",
			"http://d.test/c",
			"http://d.test/d",
			"http://d.test/e",
		},
	}

	quality := newTester(f).Run(context.Background(), endpoints)

	record := quality[host("d.test")]
	if record.Trials != 4 {
		t.Fatalf("trials %d, want 1 screening + 3 alternates", record.Trials)
	}
	if len(f.calls) != 4 {
		t.Fatalf("expected 4 probes, saw %v", f.calls)
	}
	if f.indexOf("http://d.test/d") != -1 || f.indexOf("http://d.test/e") != -1 {
		t.Fatalf("alternates past the limit were probed: %v", f.calls)
	}
}

func TestRunYieldsOneRecordPerEndpointAndDrainsPhases(t *testing.T) {
	f := &fakeProber{verdicts: map[string]probe.Verdict{
		"http://e1.test/x.m3u8": alive(20 * time.Millisecond),
		"http://e2.test/x.m3u8": dead("GET 500"),
		"http://e3.test/x.m3u8": dead("GET 502"),
		"http://e3.test/alt":    alive(90 * time.Millisecond),
	}}
	endpoints := map[endpoint.Host][]string{
		host("e1.test"): {"http://e1.test/x.m3u8"},
		host("e2.test"): {"http://e2.test/x.m3u8"},
		host("e3.test"): {"http://e3.test/x.m3u8", "http://e3.test/alt"},
	}

	quality := newTester(f).Run(context.Background(), endpoints)

	if len(quality) != len(endpoints) {
		t.Fatalf("expected one record per endpoint, got %d for %d", len(quality), len(endpoints))
	}
	for h, record := range quality {
		if record.Trials < 1 {
			t.Fatalf("%s has trials %d", h.Key(), record.Trials)
		}
	}
	if record := quality[host("e2.test")]; record.Alive || record.Reason != "no_fallback" {
		t.Fatalf("unexpected e2 record: %+v", record)
	}
	if record := quality[host("e3.test")]; !record.Alive || record.Trials != 2 {
		t.Fatalf("unexpected e3 record: %+v", record)
	}

	// The fallback pass may only start once every representative is done.
	altIdx := f.indexOf("http://e3.test/alt")
	for _, rep := range []string{"http://e1.test/x.m3u8", "http://e2.test/x.m3u8", "http://e3.test/x.m3u8"} {
		if f.indexOf(rep) > altIdx {
			t.Fatalf("fallback ran before screening drained: %v", f.calls)
		}
	}
}

func TestRunIsIdempotentAgainstAStableBackend(t *testing.T) {
	verdicts := map[string]probe.Verdict{
		"http://f1.test/x.m3u8": alive(40 * time.Millisecond),
		"http://f2.test/x.m3u8": dead("GET 500"),
		"http://f2.test/alt":    alive(70 * time.Millisecond),
		"http://f3.test/x.m3u8": dead("HEAD 404"),
	}
	endpoints := map[endpoint.Host][]string{
		host("f1.test"): {"http://f1.test/x.m3u8"},
		host("f2.test"): {"http://f2.test/x.m3u8", "http://f2.test/alt"},
		host("f3.test"): {"http://f3.test/x.m3u8"},
	}

	first := newTester(&fakeProber{verdicts: verdicts}).Run(context.Background(), endpoints)
	second := newTester(&fakeProber{verdicts: verdicts}).Run(context.Background(), endpoints)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("records drifted between runs:\n%+v\n%+v", first, second)
	}
}

func TestGroupByHostMergesDefaultPorts(t *testing.T) {
	channels := []channelid.Channel{
		{Name: "CCTV1", Candidates: []channelid.Candidate{
			{DisplayName: "CCTV-1", URL: "http://cdn.test/one.m3u8"},
			{DisplayName: "CCTV-1高清", URL: "http://cdn.test:80/two.m3u8"},
			{DisplayName: "CCTV-1", URL: "not a url"},
		}},
		{Name: "CCTV2", Candidates: []channelid.Candidate{
			{DisplayName: "CCTV-2", URL: "https://cdn.test/three.m3u8"},
		}},
	}

	grouped := hostcheck.GroupByHost(channels)

	if len(grouped) != 2 {
		t.Fatalf("expected plaintext and encrypted buckets, got %v", grouped)
	}
	want := []string{"http://cdn.test/one.m3u8", "http://cdn.test:80/two.m3u8"}
	if !reflect.DeepEqual(grouped[host("cdn.test")], want) {
		t.Fatalf("port-80 bucket = %v, want %v", grouped[host("cdn.test")], want)
	}
	if got := grouped[endpoint.Host{Name: "cdn.test", Port: 443}]; len(got) != 1 {
		t.Fatalf("port-443 bucket = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	quality := map[endpoint.Host]hostcheck.Quality{
		host("a"): {Alive: true},
		host("b"): {},
		host("c"): {Alive: true},
		host("d"): {},
	}
	stats := hostcheck.Summarize(quality)
	if stats.Total != 4 || stats.Alive != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if rate := stats.SurvivalRate(); rate != 0.5 {
		t.Fatalf("survival rate %v, want 0.5", rate)
	}
	if (hostcheck.Stats{}).SurvivalRate() != 0 {
		t.Fatal("empty run must report zero survival")
	}
}

func TestProbeStageHealthDegradedWithoutValidators(t *testing.T) {
	cfg := config.Default()
	cfg.Validators.StructuralEnabled = false
	cfg.Validators.VisualEnabled = false
	checks := deepcheck.NewSuite(&cfg, logging.NewNop())
	prober := probe.New(&cfg, checks, logging.NewNop())

	stg := hostcheck.NewProbeStage(&cfg, nil, prober, checks, logging.NewNop())
	health := stg.HealthCheck(context.Background())
	if !health.Ready {
		t.Fatalf("stage should stay ready without validators, got %#v", health)
	}
	if health.Detail != "deep validation disabled" {
		t.Fatalf("detail = %q", health.Detail)
	}
}

func TestProbeStageHealthRejectsMissingProber(t *testing.T) {
	cfg := config.Default()
	stg := hostcheck.NewProbeStage(&cfg, nil, nil, nil, logging.NewNop())

	health := stg.HealthCheck(context.Background())
	if health.Ready {
		t.Fatalf("expected not ready without a prober, got %#v", health)
	}
	if health.Detail != "worker pool not configured" {
		t.Fatalf("detail = %q", health.Detail)
	}
}
