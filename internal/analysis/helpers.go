package analysis

import (
	"math"

	"drivetest/pkg/contracts/domain"
)

// run is a stretch of consecutive record indices that satisfy a predicate.
type run struct {
	start, end int // inclusive indices into ds.Records
}

func (r run) length() int { return r.end - r.start + 1 }

func (r run) indices() []int {
	out := make([]int, 0, r.length())
	for i := r.start; i <= r.end; i++ {
		out = append(out, i)
	}
	return out
}

// findRuns walks the dataset once and collects consecutive stretches where
// pred holds, merging stretches separated by at most mergeGap records, and
// keeps only runs of at least minLen records.
func findRuns(ds *domain.Dataset, minLen, mergeGap int, pred func(*domain.CanonicalRecord) bool) []run {
	var raw []run
	start := -1
	for i := range ds.Records {
		if pred(&ds.Records[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			raw = append(raw, run{start: start, end: i - 1})
			start = -1
		}
	}
	if start >= 0 {
		raw = append(raw, run{start: start, end: len(ds.Records) - 1})
	}

	var merged []run
	for _, r := range raw {
		if n := len(merged); n > 0 && r.start-merged[n-1].end-1 <= mergeGap {
			merged[n-1].end = r.end
			continue
		}
		merged = append(merged, r)
	}

	out := merged[:0]
	for _, r := range merged {
		if r.length() >= minLen {
			out = append(out, r)
		}
	}
	return out
}

// supportingRows maps run indices onto the source-row references carried by
// the records.
func supportingRows(ds *domain.Dataset, indices []int) []int {
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		out = append(out, ds.Records[i].SourceRow)
	}
	return out
}

// locationOf builds the representative point and bounding box of the located
// records among the given indices. Returns nil when none carry coordinates.
func locationOf(ds *domain.Dataset, indices []int) *domain.Location {
	var sumLat, sumLon float64
	var minLat, maxLat, minLon, maxLon float64
	n := 0
	for _, i := range indices {
		rec := &ds.Records[i]
		if !rec.HasLocation() {
			continue
		}
		lat, lon := *rec.Latitude, *rec.Longitude
		if n == 0 {
			minLat, maxLat, minLon, maxLon = lat, lat, lon, lon
		} else {
			minLat = math.Min(minLat, lat)
			maxLat = math.Max(maxLat, lat)
			minLon = math.Min(minLon, lon)
			maxLon = math.Max(maxLon, lon)
		}
		sumLat += lat
		sumLon += lon
		n++
	}
	if n == 0 {
		return nil
	}
	return &domain.Location{
		Latitude:  sumLat / float64(n),
		Longitude: sumLon / float64(n),
		MinLat:    domain.Float64(minLat),
		MaxLat:    domain.Float64(maxLat),
		MinLon:    domain.Float64(minLon),
		MaxLon:    domain.Float64(maxLon),
	}
}

// severityForShare maps the fraction of dataset records involved in a
// finding onto the ordered severity scale.
func severityForShare(share float64) domain.Severity {
	switch {
	case share > 0.50:
		return domain.SeverityCritical
	case share > 0.25:
		return domain.SeverityHigh
	case share > 0.10:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// severityForDeviation grades by how far a measured value sits past its
// threshold, in units of "one band per step". Monotonic in the deviation.
func severityForDeviation(deviation, step float64) domain.Severity {
	switch {
	case deviation > 3*step:
		return domain.SeverityCritical
	case deviation > 2*step:
		return domain.SeverityHigh
	case deviation > step:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func maxSeverity(a, b domain.Severity) domain.Severity {
	if a > b {
		return a
	}
	return b
}

// meanOf averages the non-nil values selected from the given indices.
func meanOf(ds *domain.Dataset, indices []int, sel func(*domain.CanonicalRecord) *float64) (float64, int) {
	var sum float64
	n := 0
	for _, i := range indices {
		if v := sel(&ds.Records[i]); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

func minOf(ds *domain.Dataset, indices []int, sel func(*domain.CanonicalRecord) *float64) (float64, bool) {
	min, found := 0.0, false
	for _, i := range indices {
		if v := sel(&ds.Records[i]); v != nil {
			if !found || *v < min {
				min, found = *v, true
			}
		}
	}
	return min, found
}

// meanStddev computes mean and population standard deviation of a sample.
func meanStddev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		d := v - mean
		stddev += d * d
	}
	stddev = math.Sqrt(stddev / float64(len(values)))
	return mean, stddev
}

func selRSRP(r *domain.CanonicalRecord) *float64 { return r.RSRP }
func selRSRQ(r *domain.CanonicalRecord) *float64 { return r.RSRQ }
func selSINR(r *domain.CanonicalRecord) *float64 { return r.SINR }
func selDL(r *domain.CanonicalRecord) *float64   { return r.ThroughputDL }
func selUL(r *domain.CanonicalRecord) *float64   { return r.ThroughputUL }
