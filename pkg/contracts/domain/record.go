// Package domain holds the shared data contracts of the drive-test pipeline:
// raw and canonical measurement records, datasets, issues and analysis
// reports. Types here are plain data; behavior lives in the internal packages.
package domain

import (
	"time"
)

// EventType classifies the signalling event carried by a measurement sample.
type EventType string

const (
	EventNone            EventType = "none"
	EventHandoverAttempt EventType = "handover_attempt"
	EventHandoverSuccess EventType = "handover_success"
	EventHandoverFailure EventType = "handover_failure"
	EventCallAttempt     EventType = "call_attempt"
	EventCallEnd         EventType = "call_end"
	EventCallDrop        EventType = "call_drop"
)

// IsHandover reports whether the event belongs to the handover state machine.
func (e EventType) IsHandover() bool {
	return e == EventHandoverAttempt || e == EventHandoverSuccess || e == EventHandoverFailure
}

// RawRecord is one measurement sample exactly as a parser adapter produced it:
// source-specific field names mapped to their raw text values. Row is the
// zero-based position of the sample in the source file. RawRecords are never
// mutated after the adapter returns them.
type RawRecord struct {
	Row    int               `json:"row"`
	Fields map[string]string `json:"fields"`
}

// CanonicalRecord is a measurement sample normalized onto the canonical schema.
// Signal metrics and coordinates are pointers because absence is meaningful:
// zero is a valid value for several of these fields, so missing data is nil,
// never a silent default.
type CanonicalRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	RSRP            *float64  `json:"rsrp,omitempty"`          // dBm
	RSRQ            *float64  `json:"rsrq,omitempty"`          // dB
	SINR            *float64  `json:"sinr,omitempty"`          // dB
	ServingCellID   string    `json:"serving_cell_id,omitempty"`
	NeighborCellIDs []string  `json:"neighbor_cell_ids,omitempty"`
	ThroughputDL    *float64  `json:"throughput_dl,omitempty"` // kbps
	ThroughputUL    *float64  `json:"throughput_ul,omitempty"` // kbps
	EventType       EventType `json:"event_type"`

	// SourceRow points back to the originating RawRecord for traceability.
	// It is never used to mutate the source.
	SourceRow int `json:"source_row"`
}

// HasLocation reports whether the sample carries a usable coordinate pair.
func (r *CanonicalRecord) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// HasSignal reports whether at least one radio signal metric is present.
func (r *CanonicalRecord) HasSignal() bool {
	return r.RSRP != nil || r.RSRQ != nil || r.SINR != nil
}

// Float64 returns a pointer to v. Convenience for building nullable fields.
func Float64(v float64) *float64 {
	return &v
}
