package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a scan run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusIngesting  Status = "ingesting"
	StatusIngested   Status = "ingested"
	StatusProbing    Status = "probing"
	StatusProbed     Status = "probed"
	StatusSelecting  Status = "selecting"
	StatusSelected   Status = "selected"
	StatusPublishing Status = "publishing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusReview     Status = "review"
)

// DaemonStopReason is the error message set when runs are failed due to
// daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusIngesting,
	StatusIngested,
	StatusProbing,
	StatusProbed,
	StatusSelecting,
	StatusSelected,
	StatusPublishing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// processingOrder lists the in-flight statuses in pipeline order. SQL built
// from this list stays deterministic.
var processingOrder = []Status{
	StatusIngesting,
	StatusProbing,
	StatusSelecting,
	StatusPublishing,
}

var processingStatuses = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(processingOrder))
	for _, status := range processingOrder {
		set[status] = struct{}{}
	}
	return set
}()

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions map each in-flight status back to the start of
// its stage, used when reclaiming runs whose worker died.
var stageRollbackTransitions = []statusTransition{
	{from: StatusIngesting, to: StatusPending},
	{from: StatusProbing, to: StatusIngested},
	{from: StatusSelecting, to: StatusProbed},
	{from: StatusPublishing, to: StatusSelected},
}

// DatabaseHealth captures diagnostic information about the run database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalRuns        int
	Error            string
}

// HealthSummary describes aggregated run counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}

// Run represents one scan pipeline pass persisted in SQLite. The JSON
// columns carry stage artifacts: the ingested channel snapshot, the endpoint
// quality map, and the final selection.
type Run struct {
	ID               int64
	Origin           string
	Status           Status
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ProgressStage    string
	ProgressPercent  float64
	ProgressMessage  string
	SnapshotJSON     string
	QualityJSON      string
	SelectionJSON    string
	SourcesLoaded    int
	RawEntries       int
	Channels         int
	Endpoints        int
	AliveEndpoints   int
	SelectedChannels int
	PlaylistPath     string
	ReportPath       string
	LastHeartbeat    *time.Time
}

// Run origins recorded when a scan is enqueued.
const (
	OriginCLI       = "cli"
	OriginScheduler = "scheduler"
	OriginAPI       = "api"
)

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ActiveStatuses returns the statuses that occupy the single scan lane:
// every lifecycle state that is not terminal.
func ActiveStatuses() []Status {
	active := make([]Status, 0, len(allStatuses))
	for _, status := range allStatuses {
		if !status.IsTerminal() {
			active = append(active, status)
		}
	}
	return active
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (r Run) IsProcessing() bool {
	_, ok := processingStatuses[r.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the run has reached a resting state that the
// workflow will not advance further without operator action.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusReview:
		return true
	default:
		return false
	}
}

// InitProgress resets progress fields for a new stage. If ProgressStage is
// currently empty it is set to the provided stage value; otherwise the
// existing stage is preserved to support resume scenarios. ProgressMessage is
// set to message, ProgressPercent is reset to 0, and ErrorMessage is cleared.
func (r *Run) InitProgress(stage, message string) {
	if r.ProgressStage == "" {
		r.ProgressStage = stage
	}
	r.ProgressMessage = message
	r.ProgressPercent = 0
	r.ErrorMessage = ""
}

// SetProgress updates all three progress fields together. Use this instead
// of setting ProgressStage, ProgressPercent, and ProgressMessage one by one.
func (r *Run) SetProgress(stage, message string, percent float64) {
	r.ProgressStage = stage
	r.ProgressMessage = message
	r.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (r *Run) SetProgressComplete(stage, message string) {
	r.SetProgress(stage, message, 100)
}

// SetFailed marks the run as failed with the given error message. Clears the
// heartbeat and sets progress fields appropriately.
func (r *Run) SetFailed(message string) {
	r.Status = StatusFailed
	r.ErrorMessage = message
	r.ProgressPercent = 0
	r.ProgressMessage = message
	r.LastHeartbeat = nil
	r.ProgressStage = "Failed"
}
