// Package standardize maps vendor-specific parser output onto the canonical
// measurement schema. It owns the alias table, the event-code lookup, derived
// metrics and physical-range validation, and is the only component allowed to
// construct CanonicalRecords.
package standardize

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"drivetest/pkg/contracts/domain"
)

// ParseInfo carries the adapter-level row accounting into the dataset
// validation summary.
type ParseInfo struct {
	Rows    int
	Skipped int
	Reasons map[string]int
}

// physicalRange bounds a numeric field to physically plausible values.
// Values outside the range are nulled with a recorded reason, never silently
// kept: zero is a valid signal value, but -999 is a sentinel, not a reading.
type physicalRange struct {
	min, max float64
}

var fieldRanges = map[string]physicalRange{
	FieldRSRP:         {-140, -40}, // dBm
	FieldRSRQ:         {-30, 0},    // dB
	FieldSINR:         {-20, 40},   // dB
	FieldLatitude:     {-90, 90},
	FieldLongitude:    {-180, 180},
	FieldThroughputDL: {0, 2_000_000}, // kbps
	FieldThroughputUL: {0, 2_000_000},
}

// Standardizer builds immutable Datasets out of raw parser output.
type Standardizer struct {
	logger  *slog.Logger
	aliases aliasTable
}

// NewStandardizer creates a Standardizer. The alias table is resolved once
// and reused for every dataset build.
func NewStandardizer(logger *slog.Logger) *Standardizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Standardizer{
		logger:  logger,
		aliases: buildAliasTable(),
	}
}

// Standardize converts raw records into a complete Dataset. It is atomic from
// the caller's perspective: either a fully validated Dataset is returned or
// an error, never a partial one. Empty input yields an empty Dataset with a
// warning rather than a failure; downstream models handle empty datasets.
func (s *Standardizer) Standardize(ctx context.Context, format domain.FormatTag, records []domain.RawRecord, parse ParseInfo) (*domain.Dataset, error) {
	summary := domain.ValidationSummary{
		RowsParsed:       parse.Rows,
		RowsSkippedParse: parse.Skipped,
		FieldReasons:     make(map[string]int),
		RejectReasons:    make(map[string]int),
	}
	for reason, n := range parse.Reasons {
		summary.FieldReasons["parse_"+reason] = n
	}

	if len(records) == 0 {
		summary.Warnings = append(summary.Warnings, "no records parsed from input")
		s.logger.Warn("standardizing empty input", slog.String("format", string(format)))
		return &domain.Dataset{Format: format, Validation: summary}, nil
	}

	out := make([]domain.CanonicalRecord, 0, len(records))
	for i := range records {
		if i%256 == 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("standardization cancelled: %w", ctx.Err())
			default:
			}
		}
		rec, ok := s.standardizeRow(&records[i], &summary)
		if !ok {
			summary.Rejected++
			continue
		}
		summary.Accepted++
		out = append(out, rec)
	}

	s.logger.Info("dataset standardized",
		slog.String("format", string(format)),
		slog.Int("accepted", summary.Accepted),
		slog.Int("rejected", summary.Rejected),
		slog.Int("parse_skipped", summary.RowsSkippedParse))

	return &domain.Dataset{Format: format, Records: out, Validation: summary}, nil
}

// standardizeRow maps one raw record onto the canonical schema. The second
// return value is false when the row is rejected: no valid signal metric, no
// event and no throughput leaves nothing for any model to analyze.
func (s *Standardizer) standardizeRow(raw *domain.RawRecord, summary *domain.ValidationSummary) (domain.CanonicalRecord, bool) {
	fields := make(map[string]string, len(raw.Fields))
	for name, value := range raw.Fields {
		canonical := s.aliases.resolve(name)
		if canonical == "" {
			continue // unmapped vendor extras are dropped
		}
		if _, exists := fields[canonical]; !exists {
			fields[canonical] = value
		}
	}

	rec := domain.CanonicalRecord{
		EventType: domain.EventNone,
		SourceRow: raw.Row,
	}

	if ts, ok := fields[FieldTimestamp]; ok {
		t, err := parseTimestamp(ts)
		if err != nil {
			summary.FieldReasons["bad_timestamp"]++
		} else {
			rec.Timestamp = t
		}
	}

	rec.Latitude = s.numericField(fields, FieldLatitude, summary)
	rec.Longitude = s.numericField(fields, FieldLongitude, summary)
	if rec.Latitude == nil || rec.Longitude == nil {
		// A coordinate without its pair is useless for geolocation.
		rec.Latitude, rec.Longitude = nil, nil
	}

	rec.RSRP = s.numericField(fields, FieldRSRP, summary)
	rec.RSRQ = s.numericField(fields, FieldRSRQ, summary)
	rec.SINR = s.numericField(fields, FieldSINR, summary)
	rec.ThroughputDL = s.numericField(fields, FieldThroughputDL, summary)
	rec.ThroughputUL = s.numericField(fields, FieldThroughputUL, summary)

	rec.ServingCellID = strings.TrimSpace(fields[FieldServingCell])
	rec.NeighborCellIDs = splitNeighbors(fields[FieldNeighbors])

	if ev, ok := fields[FieldEvent]; ok {
		event, known := classifyEvent(ev)
		if !known {
			summary.FieldReasons["unknown_event_code"]++
		}
		rec.EventType = event
	}

	s.deriveThroughput(&rec, fields, summary)

	if !rec.HasSignal() && rec.EventType == domain.EventNone &&
		rec.ThroughputDL == nil && rec.ThroughputUL == nil {
		summary.RejectReasons["no_valid_measurements"]++
		return domain.CanonicalRecord{}, false
	}

	return rec, true
}

// numericField parses and range-validates one canonical numeric field.
// Unparsable or implausible values become nil with a recorded reason.
func (s *Standardizer) numericField(fields map[string]string, name string, summary *domain.ValidationSummary) *float64 {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	v, err := parseNumber(raw)
	if err != nil {
		summary.FieldReasons[name+"_not_numeric"]++
		return nil
	}
	if r, bounded := fieldRanges[name]; bounded && (v < r.min || v > r.max) {
		summary.FieldReasons[name+"_out_of_range"]++
		return nil
	}
	return &v
}

// deriveThroughput computes throughput from byte-count/interval pairs when no
// direct throughput column was present. kbps == bytes*8 / interval_ms.
func (s *Standardizer) deriveThroughput(rec *domain.CanonicalRecord, fields map[string]string, summary *domain.ValidationSummary) {
	interval, err := parseNumber(fields[fieldIntervalMS])
	if err != nil || interval <= 0 {
		return
	}
	if rec.ThroughputDL == nil {
		if bytes, err := parseNumber(fields[fieldBytesDL]); err == nil && bytes >= 0 {
			rec.ThroughputDL = domain.Float64(bytes * 8 / interval)
		}
	}
	if rec.ThroughputUL == nil {
		if bytes, err := parseNumber(fields[fieldBytesUL]); err == nil && bytes >= 0 {
			rec.ThroughputUL = domain.Float64(bytes * 8 / interval)
		}
	}
}

// timestampFormats are tried in order. Vendor exports disagree on date
// layout, so both ISO and slash forms are accepted.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	"02-01-2006 15:04:05",
	"15:04:05.000",
	"15:04:05",
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	// Epoch milliseconds or seconds.
	if isAllDigits(raw) {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			if len(raw) >= 13 {
				return time.UnixMilli(n).UTC(), nil
			}
			if len(raw) >= 10 {
				return time.Unix(n, 0).UTC(), nil
			}
		}
	}

	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", raw)
}

// parseNumber parses a float, tolerating thousand separators and trailing
// unit suffixes like "-105 dBm".
func parseNumber(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty value")
	}
	if fields := strings.Fields(raw); len(fields) > 1 {
		raw = fields[0]
	}
	raw = strings.ReplaceAll(raw, ",", "")
	return strconv.ParseFloat(raw, 64)
}

func splitNeighbors(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	split := func(r rune) bool { return r == ';' || r == '|' || r == ',' }
	var out []string
	for _, part := range strings.FieldsFunc(raw, split) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
