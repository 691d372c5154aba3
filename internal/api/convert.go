package api

import (
	"slices"
	"time"

	"aerial/internal/deps"
	"aerial/internal/queue"
	"aerial/internal/stage"
	"aerial/internal/workflow"
)

// FromRun converts a run record to its API representation.
func FromRun(run *queue.Run) Run {
	if run == nil {
		return Run{}
	}

	dto := Run{
		ID:     run.ID,
		Origin: run.Origin,
		Status: string(run.Status),
		Progress: RunProgress{
			Stage:   run.ProgressStage,
			Percent: run.ProgressPercent,
			Message: run.ProgressMessage,
		},
		ErrorMessage:     run.ErrorMessage,
		SourcesLoaded:    run.SourcesLoaded,
		RawEntries:       run.RawEntries,
		Channels:         run.Channels,
		Endpoints:        run.Endpoints,
		AliveEndpoints:   run.AliveEndpoints,
		SelectedChannels: run.SelectedChannels,
		PlaylistPath:     run.PlaylistPath,
		ReportPath:       run.ReportPath,
	}
	if !run.CreatedAt.IsZero() {
		dto.CreatedAt = run.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !run.UpdatedAt.IsZero() {
		dto.UpdatedAt = run.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromRuns converts a slice of run records into API DTOs.
func FromRuns(runs []*queue.Run) []Run {
	if len(runs) == 0 {
		return nil
	}
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		out = append(out, FromRun(run))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to its API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		RunStats:    FromHealthSummary(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastRun != nil {
		last := FromRun(summary.LastRun)
		wf.LastRun = &last
	}
	return wf
}

// FromHealthSummary converts run-count stats into the API stats payload.
func FromHealthSummary(stats *queue.HealthSummary) RunStats {
	if stats == nil {
		return RunStats{}
	}
	return RunStats{
		Total:      stats.Total,
		Pending:    stats.Pending,
		Processing: stats.Processing,
		Failed:     stats.Failed,
		Review:     stats.Review,
		Completed:  stats.Completed,
	}
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromDependencyStatuses converts binary availability checks into API payloads.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
