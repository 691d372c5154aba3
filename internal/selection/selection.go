// Package selection resolves each channel to one confirmed-working URL.
// Endpoint screening proves a host is reachable through one representative;
// selection re-verifies the specific URL that will be published, because
// paths under the same host can differ in validity.
package selection

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"aerial/internal/channelid"
	"aerial/internal/endpoint"
	"aerial/internal/hostcheck"
	"aerial/internal/logging"
)

// Confirmer runs the lighter confirmatory probe. The shared prober gate
// bounds these calls alongside all other probing work.
type Confirmer interface {
	Confirm(ctx context.Context, url string) bool
}

// Pick is the final selection for one channel. DisplayName is the winning
// candidate's published title, which drives output grouping.
type Pick struct {
	Channel     string        `json:"channel"`
	DisplayName string        `json:"display_name"`
	URL         string        `json:"url"`
	Latency     time.Duration `json:"latency"`
}

// Unresolved names a channel that kept no working candidate.
type Unresolved struct {
	Channel string `json:"channel"`
	Reason  string `json:"reason"`
}

// ReasonNoValidSource marks channels whose candidates all failed.
const ReasonNoValidSource = "no valid source"

// Resolver confirms one working URL per channel.
type Resolver struct {
	confirmer Confirmer
	logger    *slog.Logger
}

// NewResolver wires a resolver over the shared prober.
func NewResolver(confirmer Confirmer, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		confirmer: confirmer,
		logger:    logger.With(logging.String(logging.FieldComponent, "selection")),
	}
}

// Resolve walks every channel concurrently and picks its first
// confirmed-working candidate. Selections come back in input channel order;
// channels that keep nothing land in the unresolved list instead, which is a
// reported outcome rather than an error.
func (r *Resolver) Resolve(ctx context.Context, channels []channelid.Channel, quality map[endpoint.Host]hostcheck.Quality) ([]Pick, []Unresolved) {
	picks := make([]*Pick, len(channels))
	var wg sync.WaitGroup
	for i, channel := range channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			picks[i] = r.resolveChannel(ctx, channel, quality)
		}()
	}
	wg.Wait()

	selected := make([]Pick, 0, len(channels))
	unresolved := make([]Unresolved, 0)
	for i, pick := range picks {
		if pick == nil {
			unresolved = append(unresolved, Unresolved{Channel: channels[i].Name, Reason: ReasonNoValidSource})
			continue
		}
		selected = append(selected, *pick)
	}
	r.logger.Info("channel selection finished",
		logging.Int("selected", len(selected)),
		logging.Int("unresolved", len(unresolved)))
	return selected, unresolved
}

type ranked struct {
	candidate channelid.Candidate
	latency   time.Duration
}

// resolveChannel orders the channel's live candidates by endpoint latency and
// confirms them one at a time, stopping at the first pass. The sort is
// stable, so equal latencies keep discovery order.
func (r *Resolver) resolveChannel(ctx context.Context, channel channelid.Channel, quality map[endpoint.Host]hostcheck.Quality) *Pick {
	candidates := make([]ranked, 0, len(channel.Candidates))
	for _, candidate := range channel.Candidates {
		host, err := endpoint.FromURL(candidate.URL)
		if err != nil {
			continue
		}
		record, ok := quality[host]
		if !ok || !record.Alive {
			continue
		}
		candidates = append(candidates, ranked{candidate: candidate, latency: record.Latency})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].latency < candidates[b].latency
	})

	for _, entry := range candidates {
		if ctx.Err() != nil {
			return nil
		}
		if r.confirmer.Confirm(ctx, entry.candidate.URL) {
			return &Pick{
				Channel:     channel.Name,
				DisplayName: entry.candidate.DisplayName,
				URL:         entry.candidate.URL,
				Latency:     entry.latency,
			}
		}
	}
	if len(candidates) > 0 {
		r.logger.Warn("channel kept no working candidate",
			logging.String(logging.FieldChannel, channel.Name),
			logging.Int("candidates", len(candidates)))
	}
	return nil
}
