// Package probe establishes whether stream URLs are alive. The Prober owns
// the shared worker gate: every full probe and every confirmatory recheck
// acquires the same semaphore, so screening, fallback trials, and candidate
// confirmation all run under one concurrency budget.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"aerial/internal/config"
	"aerial/internal/deepcheck"
	"aerial/internal/endpoint"
	"aerial/internal/logging"
)

// Validator runs deep checks on direct stream URLs. Checks with Applied
// false are treated as pass-throughs.
type Validator interface {
	Structural(ctx context.Context, url string) deepcheck.Check
	Visual(ctx context.Context, url string) deepcheck.Check
}

// Prober verifies endpoint liveness over HTTP.
type Prober struct {
	client     *http.Client
	validators Validator
	logger     *slog.Logger

	userAgent   string
	timeout     time.Duration
	headTimeout time.Duration
	prefixBytes int

	sem     chan struct{}
	limiter *rate.Limiter
}

// New builds a Prober from configuration. The HTTP transport reuses
// connections per host because fallback trials revisit the same servers.
func New(cfg *config.Config, validators Validator, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Probe.Workers
	var limiter *rate.Limiter
	if cfg.Probe.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Probe.RatePerSecond), cfg.Probe.RatePerSecond)
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        workers * 2,
		MaxIdleConnsPerHost: workers,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: time.Duration(cfg.Probe.Timeout) * time.Second,
	}
	return &Prober{
		client:      &http.Client{Transport: transport},
		validators:  validators,
		logger:      logger.With(logging.String(logging.FieldComponent, "prober")),
		userAgent:   cfg.Probe.UserAgent,
		timeout:     time.Duration(cfg.Probe.Timeout) * time.Second,
		headTimeout: time.Duration(cfg.Probe.HeadTimeout) * time.Second,
		prefixBytes: cfg.Probe.PrefixBytes,
		sem:         make(chan struct{}, workers),
	}
}

// Workers returns the size of the shared worker budget.
func (p *Prober) Workers() int {
	return cap(p.sem)
}

// acquire claims a worker slot and a rate token. The latency clock starts
// after acquisition so queue wait does not count against endpoints.
func (p *Prober) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			<-p.sem
			return err
		}
	}
	return nil
}

func (p *Prober) release() {
	<-p.sem
}

// Probe runs the full verification sequence against one URL: an advisory
// HEAD, a prefix GET, playlist classification, and structural validation for
// direct streams.
func (p *Prober) Probe(ctx context.Context, url string) Verdict {
	if err := p.acquire(ctx); err != nil {
		return Verdict{Kind: KindError, Reason: err.Error()}
	}
	defer p.release()

	start := time.Now()

	// HEAD is advisory: a completed response with a bad status kills the
	// endpoint early, but transport failures prove nothing and fall through
	// to GET, which many stream servers handle better.
	if status, ok := p.head(ctx, url); ok {
		switch status {
		case http.StatusOK, http.StatusPartialContent, http.StatusMovedPermanently, http.StatusFound:
		default:
			return Verdict{
				Latency: time.Since(start),
				Kind:    KindDead,
				Reason:  fmt.Sprintf("HEAD %d", status),
			}
		}
	}

	getCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(getCtx, http.MethodGet, url, nil)
	if err != nil {
		return Verdict{Latency: time.Since(start), Kind: KindError, Reason: err.Error()}
	}
	p.decorate(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return Verdict{Latency: time.Since(start), Kind: KindError, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return Verdict{
			Latency: time.Since(start),
			Kind:    KindDead,
			Reason:  fmt.Sprintf("GET %d", resp.StatusCode),
		}
	}

	prefix, err := p.readPrefix(resp)
	if err != nil {
		return Verdict{Latency: time.Since(start), Kind: KindError, Reason: err.Error()}
	}
	latency := time.Since(start)

	if !validPlaylistContent(prefix) {
		return Verdict{Latency: latency, Kind: KindNotStream, Reason: "Not valid M3U8"}
	}

	verdict := Verdict{
		Alive:   true,
		Latency: latency,
		Kind:    classify(prefix),
		Reason:  "OK",
	}

	if !endpoint.IsManifest(url) && p.validators != nil {
		if check := p.validators.Structural(ctx, url); check.Applied && !check.Passed {
			verdict.Alive = false
			verdict.Kind = KindDead
			verdict.Reason = "structural validation failed: " + check.Detail
		}
	}
	return verdict
}

// Confirm is the lighter recheck run on selected candidates: a prefix GET
// plus content classification, with visual inspection for direct streams.
func (p *Prober) Confirm(ctx context.Context, url string) bool {
	if err := p.acquire(ctx); err != nil {
		return false
	}
	defer p.release()

	getCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(getCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	p.decorate(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return false
	}
	prefix, err := p.readPrefix(resp)
	if err != nil {
		return false
	}
	if !validPlaylistContent(prefix) {
		return false
	}

	if !endpoint.IsManifest(url) && p.validators != nil {
		if check := p.validators.Visual(ctx, url); check.Applied && !check.Passed {
			p.logger.Debug("confirmation vetoed",
				logging.String("url", url),
				logging.String("detail", check.Detail))
			return false
		}
	}
	return true
}

func (p *Prober) head(ctx context.Context, url string) (int, bool) {
	headCtx, cancel := context.WithTimeout(ctx, p.headTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(headCtx, http.MethodHead, url, nil)
	if err != nil {
		return 0, false
	}
	p.decorate(req)
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, false
	}
	resp.Body.Close()
	return resp.StatusCode, true
}

func (p *Prober) decorate(req *http.Request) {
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "*/*")
}

// readPrefix pulls the response body in small chunks until just past the
// configured prefix size. Latency includes this read: a playlist that takes
// seconds to produce its first bytes is as slow as one that connects slowly.
func (p *Prober) readPrefix(resp *http.Response) (string, error) {
	var content []byte
	chunk := make([]byte, 512)
	for len(content) <= p.prefixBytes {
		n, err := resp.Body.Read(chunk)
		content = append(content, chunk[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return string(content), nil
}

func validPlaylistContent(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "#EXTM3U") {
		return false
	}
	return strings.Contains(trimmed, "#EXTINF") || strings.Contains(trimmed, "#EXT-X-STREAM-INF")
}

func classify(text string) Kind {
	if strings.Contains(text, "#EXT-X-STREAM-INF") {
		return KindMaster
	}
	if strings.Contains(strings.ToLower(text), ".ts") {
		return KindMedia
	}
	return KindHLS
}
