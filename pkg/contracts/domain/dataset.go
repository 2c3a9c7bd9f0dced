package domain

import (
	"time"
)

// FormatTag identifies the detected source format of an uploaded file.
type FormatTag string

const (
	FormatCSV   FormatTag = "csv"
	FormatExcel FormatTag = "excel"
	FormatXML   FormatTag = "xml"
	FormatTRP   FormatTag = "trp"
	FormatText  FormatTag = "text"
)

// ValidationSummary records what happened to every row on the way into a
// Dataset. The conservation invariant Accepted+Rejected == RowsStandardized
// holds for every summary the standardizer produces.
type ValidationSummary struct {
	RowsParsed       int            `json:"rows_parsed"`        // rows the adapter emitted
	RowsSkippedParse int            `json:"rows_skipped_parse"` // malformed rows dropped by the adapter
	Accepted         int            `json:"accepted"`
	Rejected         int            `json:"rejected"`
	FieldReasons     map[string]int `json:"field_reasons,omitempty"` // reason -> count of nulled fields
	RejectReasons    map[string]int `json:"reject_reasons,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
}

// Dataset is the ordered, immutable sequence of canonical records built from
// one uploaded file. It is constructed exactly once by the standardizer and is
// read-only for the rest of its lifetime; analysis models may share it across
// goroutines without locking.
type Dataset struct {
	Format     FormatTag         `json:"format"`
	Records    []CanonicalRecord `json:"records"`
	Validation ValidationSummary `json:"validation"`
}

// Len returns the number of accepted records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// TimeRange returns the first and last sample timestamps, or zero values for
// an empty dataset.
func (d *Dataset) TimeRange() (start, end time.Time) {
	if len(d.Records) == 0 {
		return time.Time{}, time.Time{}
	}
	return d.Records[0].Timestamp, d.Records[len(d.Records)-1].Timestamp
}
