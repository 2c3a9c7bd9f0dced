package domain

// IssueCategory names one of the eight analysis models.
type IssueCategory string

const (
	CategoryCoverage          IssueCategory = "coverage"
	CategoryInterference      IssueCategory = "interference"
	CategoryHandover          IssueCategory = "handover"
	CategoryThroughput        IssueCategory = "throughput"
	CategoryCallDrop          IssueCategory = "call_drop"
	CategoryCellOverload      IssueCategory = "cell_overload"
	CategoryParameterMismatch IssueCategory = "parameter_mismatch"
	CategoryQoS               IssueCategory = "qos"
)

// Categories lists every analysis category in a stable order.
func Categories() []IssueCategory {
	return []IssueCategory{
		CategoryCoverage,
		CategoryInterference,
		CategoryHandover,
		CategoryThroughput,
		CategoryCallDrop,
		CategoryCellOverload,
		CategoryParameterMismatch,
		CategoryQoS,
	}
}

// Severity is an ordered scale; higher values are worse.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase name of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Weight returns the severity weight used for ranking worst locations.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 4
	case SeverityCritical:
		return 8
	default:
		return 0
	}
}

// Location is the representative point of an issue plus an optional bounding
// region derived from the contributing records' coordinates.
type Location struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	MinLat    *float64 `json:"min_lat,omitempty"`
	MaxLat    *float64 `json:"max_lat,omitempty"`
	MinLon    *float64 `json:"min_lon,omitempty"`
	MaxLon    *float64 `json:"max_lon,omitempty"`
}

// Issue is one detected problem instance. Issues are created only by an
// analysis model and are immutable afterwards, with the single exception of
// ClusterID which the aggregator assigns when grouping overlapping claims
// from different categories.
type Issue struct {
	Category IssueCategory `json:"category"`
	Severity Severity      `json:"severity"`

	// RootCause is a classification tag from the fixed vocabulary of the
	// owning category, e.g. "external_interference" vs "coverage_hole".
	RootCause string `json:"root_cause"`

	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation,omitempty"`
	Location       *Location `json:"location,omitempty"`

	// SupportingRecords references contributing records by their SourceRow;
	// it is never empty and never used to mutate the records it references.
	SupportingRecords []int `json:"supporting_records"`

	// Metrics holds the statistics that justify the classification, and
	// Thresholds the configuration values that triggered detection.
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Thresholds map[string]float64 `json:"thresholds,omitempty"`

	// ClusterID links issues from different categories whose locations and
	// supporting records substantially overlap. Zero means unclustered.
	ClusterID int `json:"cluster_id,omitempty"`
}
