// Package hostcheck screens stream hosts in two phases: a concurrent first
// pass over one representative URL per endpoint, then ordered fallback trials
// for the endpoints the first pass left dead. Liveness is tested once per
// endpoint rather than once per URL, which amortizes network cost across
// colocated candidates.
package hostcheck

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aerial/internal/channelid"
	"aerial/internal/config"
	"aerial/internal/endpoint"
	"aerial/internal/logging"
	"aerial/internal/probe"
)

// Prober verifies a single URL. Both phases draw from the prober's shared
// worker gate, so screening and fallback trials share one concurrency budget.
type Prober interface {
	Probe(ctx context.Context, url string) probe.Verdict
}

// Quality is the terminal screening record for one endpoint. Exactly one
// record exists per endpoint per run.
type Quality struct {
	Alive   bool          `json:"alive"`
	Latency time.Duration `json:"latency"`
	Kind    probe.Kind    `json:"kind"`
	Reason  string        `json:"reason"`
	URL     string        `json:"url"`
	Trials  int           `json:"trials"`
}

// Stats summarizes a completed screening run.
type Stats struct {
	Total int `json:"total"`
	Alive int `json:"alive"`
}

// SurvivalRate is alive over total, zero for an empty run.
func (s Stats) SurvivalRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Alive) / float64(s.Total)
}

// Summarize counts terminal records.
func Summarize(quality map[endpoint.Host]Quality) Stats {
	stats := Stats{Total: len(quality)}
	for _, record := range quality {
		if record.Alive {
			stats.Alive++
		}
	}
	return stats
}

// GroupByHost buckets every candidate URL by its owning endpoint, preserving
// discovery order within each bucket. URLs without a parseable host are
// dropped; ingestion filters those out before they reach this point.
func GroupByHost(channels []channelid.Channel) map[endpoint.Host][]string {
	grouped := make(map[endpoint.Host][]string)
	for _, channel := range channels {
		for _, candidate := range channel.Candidates {
			host, err := endpoint.FromURL(candidate.URL)
			if err != nil {
				continue
			}
			grouped[host] = append(grouped[host], candidate.URL)
		}
	}
	return grouped
}

// Tester runs the two-phase screening protocol.
type Tester struct {
	prober        Prober
	logger        *slog.Logger
	fallbackLimit int
}

// NewTester wires a tester over the shared prober.
func NewTester(cfg *config.Config, prober Prober, logger *slog.Logger) *Tester {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tester{
		prober:        prober,
		logger:        logger.With(logging.String(logging.FieldComponent, "hostcheck")),
		fallbackLimit: cfg.Probe.FallbackLimit,
	}
}

type outcome struct {
	host   endpoint.Host
	record Quality
}

// Run screens every endpoint and returns exactly one Quality record per
// input key. Individual probe failures never abort the run; cancellation
// surfaces as error verdicts on the records still outstanding, leaving the
// map complete and reportable.
func (t *Tester) Run(ctx context.Context, endpoints map[endpoint.Host][]string) map[endpoint.Host]Quality {
	quality := make(map[endpoint.Host]Quality, len(endpoints))
	if len(endpoints) == 0 {
		return quality
	}

	t.logger.Info("screening hosts", logging.Int("endpoints", len(endpoints)))
	t.screen(ctx, endpoints, quality)

	retry := make([]endpoint.Host, 0)
	for host, record := range quality {
		if !record.Alive {
			retry = append(retry, host)
		}
	}
	t.logger.Info("screening pass complete",
		logging.Int("alive", len(endpoints)-len(retry)),
		logging.Int("retrying", len(retry)))

	// The fallback pass starts only after screening has fully drained,
	// because its input set is the endpoints screening left dead.
	t.retry(ctx, endpoints, quality, retry)

	stats := Summarize(quality)
	t.logger.Info("host screening finished",
		logging.Int("endpoints", stats.Total),
		logging.Int("alive", stats.Alive),
		logging.String("survival", fmt.Sprintf("%.1f%%", stats.SurvivalRate()*100)))
	return quality
}

// screen probes one representative per endpoint concurrently and records a
// first-trial Quality for every host. Results flow through a channel so this
// goroutine is the only writer of the map.
func (t *Tester) screen(ctx context.Context, endpoints map[endpoint.Host][]string, quality map[endpoint.Host]Quality) {
	results := make(chan outcome)
	var wg sync.WaitGroup
	for host, urls := range endpoints {
		rep := representative(urls)
		wg.Add(1)
		go func() {
			defer wg.Done()
			verdict := t.prober.Probe(ctx, rep)
			results <- outcome{host: host, record: Quality{
				Alive:   verdict.Alive,
				Latency: verdict.Latency,
				Kind:    verdict.Kind,
				Reason:  verdict.Reason,
				URL:     rep,
				Trials:  1,
			}}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	for out := range results {
		quality[out.host] = out.record
	}
}

// retry walks each dead endpoint's alternates. Chains for different hosts run
// concurrently against the shared gate; within one host the alternates run
// strictly in order so a success stops the chain before the next trial.
func (t *Tester) retry(ctx context.Context, endpoints map[endpoint.Host][]string, quality map[endpoint.Host]Quality, hosts []endpoint.Host) {
	results := make(chan outcome)
	var wg sync.WaitGroup
	for _, host := range hosts {
		seed := quality[host]
		alternates := alternatesFor(endpoints[host], seed.URL, t.fallbackLimit)
		if len(alternates) == 0 {
			seed.Reason = "no_fallback"
			quality[host] = seed
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- outcome{host: host, record: t.fallbackChain(ctx, seed, alternates)}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	for out := range results {
		if out.record.Alive {
			t.logger.Debug("fallback resurrected endpoint",
				logging.String(logging.FieldEndpoint, out.host.Key()),
				logging.String("url", out.record.URL),
				logging.Int("trials", out.record.Trials))
		}
		quality[out.host] = out.record
	}
}

// fallbackChain probes alternates in order, stopping at the first alive
// verdict. On success the record carries the winning URL. On total failure
// the verdict of the last alternate tried is kept and the representative
// URL stays in place.
func (t *Tester) fallbackChain(ctx context.Context, seed Quality, alternates []string) Quality {
	record := seed
	for i, url := range alternates {
		verdict := t.prober.Probe(ctx, url)
		record = Quality{
			Alive:   verdict.Alive,
			Latency: verdict.Latency,
			Kind:    verdict.Kind,
			Reason:  verdict.Reason,
			URL:     url,
			Trials:  seed.Trials + i + 1,
		}
		if verdict.Alive {
			return record
		}
	}
	record.URL = seed.URL
	return record
}

// representative picks the URL screened first for a host: the first
// manifest-style URL if any, otherwise the first URL discovered.
func representative(urls []string) string {
	for _, url := range urls {
		if endpoint.IsManifest(url) {
			return url
		}
	}
	return urls[0]
}

// alternatesFor lists up to limit candidate URLs excluding the
// representative, preserving discovery order.
func alternatesFor(urls []string, rep string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	out := make([]string, 0, limit)
	for _, url := range urls {
		if url == rep {
			continue
		}
		out = append(out, url)
		if len(out) == limit {
			break
		}
	}
	return out
}
