// Package sources fetches and merges playlist documents from remote URLs and
// a local directory. Individual source failures are recorded per source and
// never abort a run; only an entirely empty merge is an error.
package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"aerial/internal/config"
	"aerial/internal/logging"
	"aerial/internal/playlist"
)

// Detail records the outcome of loading one source for reporting.
type Detail struct {
	Type       string `json:"type"`
	Location   string `json:"location"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	EntryCount int    `json:"entry_count"`
}

// Result carries the merged entries plus per-source load details.
type Result struct {
	Entries []playlist.Entry
	Details []Detail
}

// Loader fetches every configured source.
type Loader struct {
	cfg    *config.Config
	client *http.Client
	logger *slog.Logger
}

// NewLoader builds a Loader with a client sized to the configured fetch
// timeout.
func NewLoader(cfg *config.Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loader{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.Sources.FetchTimeout) * time.Second,
		},
		logger: logger.With(logging.String(logging.FieldComponent, "sources")),
	}
}

// Load fetches remote sources concurrently, reads local playlists, and
// parses everything into one entry list. Remote results keep configuration
// order regardless of completion order so merges are reproducible.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	remotes := l.cfg.Sources.Remote
	remoteEntries := make([][]playlist.Entry, len(remotes))
	remoteDetails := make([]Detail, len(remotes))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(l.cfg.Sources.FetchLimit)
	for i, rawURL := range remotes {
		group.Go(func() error {
			entries, detail := l.fetchRemote(groupCtx, rawURL)
			remoteEntries[i] = entries
			remoteDetails[i] = detail
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{}
	for i := range remotes {
		result.Entries = append(result.Entries, remoteEntries[i]...)
		result.Details = append(result.Details, remoteDetails[i])
	}

	localEntries, localDetails := l.loadLocal()
	result.Entries = append(result.Entries, localEntries...)
	result.Details = append(result.Details, localDetails...)

	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("no playlist entries loaded from %d sources", len(result.Details))
	}
	return result, nil
}

func (l *Loader) fetchRemote(ctx context.Context, rawURL string) ([]playlist.Entry, Detail) {
	detail := Detail{Type: "remote", Location: rawURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		detail.Error = err.Error()
		return nil, detail
	}
	req.Header.Set("User-Agent", l.cfg.Probe.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := l.client.Do(req)
	if err != nil {
		detail.Error = err.Error()
		l.logger.Warn("remote source failed", logging.String("url", rawURL), logging.Error(err))
		return nil, detail
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		l.logger.Warn("remote source rejected", logging.String("url", rawURL), logging.Int("status", resp.StatusCode))
		return nil, detail
	}

	limit := int64(l.cfg.Sources.MaxResponseMiB) << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		detail.Error = err.Error()
		return nil, detail
	}
	if int64(len(body)) > limit {
		detail.Error = fmt.Sprintf("response exceeds %d MiB", l.cfg.Sources.MaxResponseMiB)
		l.logger.Warn("remote source oversized", logging.String("url", rawURL))
		return nil, detail
	}

	entries := playlist.Parse(string(body))
	if len(entries) == 0 {
		detail.Error = "no parsable entries"
		return nil, detail
	}
	detail.Success = true
	detail.EntryCount = len(entries)
	l.logger.Debug("remote source loaded", logging.String("url", rawURL), logging.Int("entries", len(entries)))
	return entries, detail
}

// loadLocal reads *.m3u and *.txt playlists from the configured directory.
// The scan is not recursive. A missing directory just skips local loading.
func (l *Loader) loadLocal() ([]playlist.Entry, []Detail) {
	dir := l.cfg.Sources.LocalDir
	if dir == "" {
		return nil, nil
	}
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		l.logger.Debug("local source directory unavailable", logging.String("dir", dir), logging.Error(err))
		return nil, nil
	}

	var entries []playlist.Entry
	var details []Detail
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}
		name := strings.ToLower(dirEntry.Name())
		if !strings.HasSuffix(name, ".txt") && !strings.HasSuffix(name, ".m3u") {
			continue
		}
		path := filepath.Join(dir, dirEntry.Name())
		detail := Detail{Type: "local", Location: path}

		data, err := os.ReadFile(path)
		if err != nil {
			detail.Error = err.Error()
			details = append(details, detail)
			l.logger.Warn("local source failed", logging.String("path", path), logging.Error(err))
			continue
		}
		parsed := playlist.Parse(string(data))
		if len(parsed) == 0 {
			detail.Error = "no parsable entries"
			details = append(details, detail)
			continue
		}
		detail.Success = true
		detail.EntryCount = len(parsed)
		entries = append(entries, parsed...)
		details = append(details, detail)
		l.logger.Debug("local source loaded", logging.String("path", path), logging.Int("entries", len(parsed)))
	}
	return entries, details
}
