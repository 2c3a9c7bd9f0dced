package domain

import (
	"time"
)

// WorstLocation is one entry of the severity-weighted worst-locations ranking.
type WorstLocation struct {
	Location   Location `json:"location"`
	Score      float64  `json:"score"` // sum of severity weights of issues at this spot
	IssueCount int      `json:"issue_count"`
}

// RFStats summarizes the radio environment of a whole dataset.
type RFStats struct {
	AvgRSRP         *float64 `json:"avg_rsrp,omitempty"`
	AvgRSRQ         *float64 `json:"avg_rsrq,omitempty"`
	AvgSINR         *float64 `json:"avg_sinr,omitempty"`
	AvgThroughputDL *float64 `json:"avg_throughput_dl,omitempty"`
	AvgThroughputUL *float64 `json:"avg_throughput_ul,omitempty"`

	// GoodRFPercent is the share of measured samples whose RSRP and SINR sit
	// at or above the configured floors.
	GoodRFPercent float64 `json:"good_rf_percent"`
}

// ReportSummary carries the session-level statistics of an AnalysisReport.
type ReportSummary struct {
	TotalIssues      int                   `json:"total_issues"`
	IssuesByCategory map[IssueCategory]int `json:"issues_by_category"`
	IssuesBySeverity map[string]int        `json:"issues_by_severity"`

	// FlaggedRecordPercent is the percentage of dataset records referenced by
	// at least one issue.
	FlaggedRecordPercent float64 `json:"flagged_record_percent"`

	WorstLocations []WorstLocation `json:"worst_locations,omitempty"`
	RF             RFStats         `json:"rf"`
	ClusterCount   int             `json:"cluster_count"`
}

// AnalysisReport is the complete, immutable output of one pipeline run: every
// issue produced for one dataset plus the session-level summary. The core
// hands it off whole to external consumers and never mutates it afterwards.
type AnalysisReport struct {
	SessionID   string        `json:"session_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Issues      []Issue       `json:"issues"`
	Summary     ReportSummary `json:"summary"`
}

// DriveTestSession is the metadata of one uploaded file, handed to the
// optional persistence layer alongside the report.
type DriveTestSession struct {
	ID          string    `json:"id"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Filename    string    `json:"filename"`
	Format      FormatTag `json:"format"`
	RecordCount int       `json:"record_count"`
	StartTime   time.Time `json:"start_time,omitempty"`
	EndTime     time.Time `json:"end_time,omitempty"`
}
