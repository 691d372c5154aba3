package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Run describes a scan run in a transport-friendly format.
type Run struct {
	ID               int64       `json:"id"`
	Origin           string      `json:"origin"`
	Status           string      `json:"status"`
	Progress         RunProgress `json:"progress"`
	ErrorMessage     string      `json:"errorMessage,omitempty"`
	CreatedAt        string      `json:"createdAt,omitempty"`
	UpdatedAt        string      `json:"updatedAt,omitempty"`
	SourcesLoaded    int         `json:"sourcesLoaded"`
	RawEntries       int         `json:"rawEntries"`
	Channels         int         `json:"channels"`
	Endpoints        int         `json:"endpoints"`
	AliveEndpoints   int         `json:"aliveEndpoints"`
	SelectedChannels int         `json:"selectedChannels"`
	PlaylistPath     string      `json:"playlistPath,omitempty"`
	ReportPath       string      `json:"reportPath,omitempty"`
}

// RunProgress captures stage progress information for a run.
type RunProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// RunStats summarizes run counts by lifecycle bucket.
type RunStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Review     int `json:"review"`
	Completed  int `json:"completed"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool          `json:"running"`
	RunStats    RunStats      `json:"runStats"`
	LastError   string        `json:"lastError,omitempty"`
	LastRun     *Run          `json:"lastRun,omitempty"`
	StageHealth []StageHealth `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	PlaylistPath string             `json:"playlistPath,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// RunListResponse wraps a collection of runs for API responses.
type RunListResponse struct {
	Runs []Run `json:"runs"`
}

// RunResponse wraps a single run.
type RunResponse struct {
	Run Run `json:"run"`
}

// ScanResponse reports the outcome of a scan trigger. Created is false when
// an active run already occupied the lane and was returned instead.
type ScanResponse struct {
	Run     Run  `json:"run"`
	Created bool `json:"created"`
}

// ActionResponse reports how many runs a maintenance action touched.
type ActionResponse struct {
	Updated int64 `json:"updated"`
}

// NotifyTestResponse reports the outcome of a test notification attempt.
type NotifyTestResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message,omitempty"`
}

// LogTailResponse carries daemon log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
