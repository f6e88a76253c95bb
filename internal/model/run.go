package model

import "time"

// RunStatus represents the current state of a reconcile run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusGrouping  RunStatus = "grouping"
	RunStatusMerging   RunStatus = "merging"
	RunStatusAligning  RunStatus = "aligning"
	RunStatusComparing RunStatus = "comparing"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// RunInput describes what a run was started with.
type RunInput struct {
	Source             string `json:"source"`
	RawRecords         int    `json:"raw_records"`
	AuthoritativeCount int    `json:"authoritative_count"`
}

// Run represents a single reconcile run.
type Run struct {
	ID        string     `json:"id"`
	Input     RunInput   `json:"input"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Stats  RunStats      `json:"stats"`
	Phases []PhaseResult `json:"phases"`
	Error  string        `json:"error,omitempty"`
}

// RunStats aggregates the counters of a run.
type RunStats struct {
	RawRecords     int `json:"raw_records"`
	Groups         int `json:"groups"`
	MergedGroups   int `json:"merged_groups"`
	FuzzyGroups    int `json:"fuzzy_groups"`
	MergedRecords  int `json:"merged_records"`
	YearsBefore    int `json:"years_before"`
	YearsAfter     int `json:"years_after"`
	Matched        int `json:"matched"`
	Extra          int `json:"extra"`
	Missing        int `json:"missing"`
	ReviewQueue    int `json:"review_queue"`
	PerfectMatches int `json:"perfect_matches"`
	YearMismatches int `json:"year_mismatches"`
	MatchPercent   int `json:"match_percent"`
}

// RunPhase represents a phase within a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of a pipeline phase.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
