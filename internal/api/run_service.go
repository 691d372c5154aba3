package api

import (
	"context"

	"aerial/internal/queue"
)

// RunReader abstracts run persistence interactions needed for API queries.
type RunReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Run, error)
	Stats(ctx context.Context) (*queue.HealthSummary, error)
	GetByID(ctx context.Context, id int64) (*queue.Run, error)
}

// RunService exposes read-only run queries returning API DTOs.
type RunService struct {
	store RunReader
}

// NewRunService constructs a RunService around the provided reader.
func NewRunService(store RunReader) *RunService {
	if store == nil {
		return nil
	}
	return &RunService{store: store}
}

// List returns runs filtered by status.
func (s *RunService) List(ctx context.Context, statuses ...queue.Status) ([]Run, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	runs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRuns(runs), nil
}

// Stats returns run summary counts.
func (s *RunService) Stats(ctx context.Context) (RunStats, error) {
	if s == nil || s.store == nil {
		return RunStats{}, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return RunStats{}, err
	}
	return FromHealthSummary(stats), nil
}

// Describe fetches a single run.
func (s *RunService) Describe(ctx context.Context, id int64) (*Run, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	run, err := s.store.GetByID(ctx, id)
	if err != nil || run == nil {
		return nil, err
	}
	dto := FromRun(run)
	return &dto, nil
}
