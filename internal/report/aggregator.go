// Package report joins the per-model issue lists into one AnalysisReport.
// Issues are never merged away: overlapping findings from different models
// are grouped under a shared cluster id so the reader can see that one
// stretch of road has, say, a coverage and a throughput problem at once.
package report

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "drivetest/internal/errors"
	"drivetest/pkg/contracts/domain"
)

// Config tunes the cross-category clustering and summary ranking.
type Config struct {
	// ClusterRadiusM groups issues whose representative points lie within
	// this many meters of each other.
	ClusterRadiusM float64 `yaml:"cluster_radius_m" validate:"gt=0"`
	// ClusterOverlap groups issues whose supporting-record sets have at
	// least this Jaccard similarity.
	ClusterOverlap float64 `yaml:"cluster_overlap" validate:"gt=0,lte=1"`
	// TopLocations is how many worst locations the summary ranks.
	TopLocations int `yaml:"top_locations" validate:"gt=0"`
	// GoodRSRP and GoodSINR define the good-RF sample for the summary KPI.
	GoodRSRP float64 `yaml:"good_rsrp" validate:"lt=0,gte=-140"`
	GoodSINR float64 `yaml:"good_sinr" validate:"gte=-20,lte=40"`
}

// DefaultConfig returns the documented clustering defaults.
func DefaultConfig() Config {
	return Config{
		ClusterRadiusM: 250,
		ClusterOverlap: 0.5,
		TopLocations:   5,
		GoodRSRP:       -95,
		GoodSINR:       5,
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewConfigError("invalid report configuration", err)
	}
	return nil
}

// Aggregator builds AnalysisReports out of model output.
type Aggregator struct {
	cfg    Config
	logger *slog.Logger
}

func NewAggregator(cfg Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{cfg: cfg, logger: logger}
}

// Aggregate joins the per-category issue lists for one dataset into a
// report. The input order of categories does not affect the result beyond
// issue ordering, which follows the canonical category order.
func (a *Aggregator) Aggregate(sessionID string, ds *domain.Dataset, byCategory map[domain.IssueCategory][]domain.Issue) *domain.AnalysisReport {
	var issues []domain.Issue
	for _, cat := range domain.Categories() {
		issues = append(issues, byCategory[cat]...)
	}

	clusters := a.cluster(issues)
	for i := range issues {
		issues[i].ClusterID = clusters[i]
	}

	report := &domain.AnalysisReport{
		SessionID:   sessionID,
		GeneratedAt: time.Now().UTC(),
		Issues:      issues,
		Summary:     a.summarize(ds, issues, clusterCount(clusters)),
	}

	a.logger.Info("analysis report built",
		slog.String("session_id", sessionID),
		slog.Int("issues", len(issues)),
		slog.Int("clusters", report.Summary.ClusterCount))
	return report
}

// cluster assigns a cluster id to every issue. Two issues join the same
// cluster when they belong to different categories and either their
// representative points are within ClusterRadiusM or their supporting-record
// sets overlap by at least ClusterOverlap. Assignment is transitive via
// union-find.
func (a *Aggregator) cluster(issues []domain.Issue) []int {
	parent := make([]int, len(issues))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) { parent[find(i)] = find(j) }

	for i := 0; i < len(issues); i++ {
		for j := i + 1; j < len(issues); j++ {
			if issues[i].Category == issues[j].Category {
				continue
			}
			if a.related(&issues[i], &issues[j]) {
				union(i, j)
			}
		}
	}

	// Compact roots into small sequential ids.
	ids := make([]int, len(issues))
	next := 1
	byRoot := map[int]int{}
	for i := range issues {
		root := find(i)
		id, ok := byRoot[root]
		if !ok {
			id = next
			next++
			byRoot[root] = id
		}
		ids[i] = id
	}
	return ids
}

func (a *Aggregator) related(x, y *domain.Issue) bool {
	if x.Location != nil && y.Location != nil {
		d := haversineM(x.Location.Latitude, x.Location.Longitude,
			y.Location.Latitude, y.Location.Longitude)
		if d <= a.cfg.ClusterRadiusM {
			return true
		}
	}
	return jaccard(x.SupportingRecords, y.SupportingRecords) >= a.cfg.ClusterOverlap
}

func (a *Aggregator) summarize(ds *domain.Dataset, issues []domain.Issue, clusters int) domain.ReportSummary {
	summary := domain.ReportSummary{
		TotalIssues:      len(issues),
		IssuesByCategory: map[domain.IssueCategory]int{},
		IssuesBySeverity: map[string]int{},
		ClusterCount:     clusters,
		RF:               a.rfStats(ds),
	}

	flagged := map[int]struct{}{}
	for _, issue := range issues {
		summary.IssuesByCategory[issue.Category]++
		summary.IssuesBySeverity[issue.Severity.String()]++
		for _, row := range issue.SupportingRecords {
			flagged[row] = struct{}{}
		}
	}
	if ds.Len() > 0 {
		summary.FlaggedRecordPercent = 100 * float64(len(flagged)) / float64(ds.Len())
	}

	summary.WorstLocations = a.worstLocations(issues)
	return summary
}

// worstLocations ranks located issues by severity-weighted supporting-record
// count and keeps the top N.
func (a *Aggregator) worstLocations(issues []domain.Issue) []domain.WorstLocation {
	var out []domain.WorstLocation
	for _, issue := range issues {
		if issue.Location == nil {
			continue
		}
		score := float64(issue.Severity.Weight()) * float64(len(issue.SupportingRecords))
		out = append(out, domain.WorstLocation{
			Location:   *issue.Location,
			Score:      score,
			IssueCount: 1,
		})
	}

	// Merge locations that fall within the cluster radius of each other.
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	var merged []domain.WorstLocation
	for _, wl := range out {
		found := false
		for i := range merged {
			d := haversineM(merged[i].Location.Latitude, merged[i].Location.Longitude,
				wl.Location.Latitude, wl.Location.Longitude)
			if d <= a.cfg.ClusterRadiusM {
				merged[i].Score += wl.Score
				merged[i].IssueCount += wl.IssueCount
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, wl)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > a.cfg.TopLocations {
		merged = merged[:a.cfg.TopLocations]
	}
	return merged
}

// rfStats computes the dataset-wide RF KPIs for the summary.
func (a *Aggregator) rfStats(ds *domain.Dataset) domain.RFStats {
	var stats domain.RFStats
	if ds == nil || ds.Len() == 0 {
		return stats
	}

	mean := func(sel func(*domain.CanonicalRecord) *float64) *float64 {
		var sum float64
		n := 0
		for i := range ds.Records {
			if v := sel(&ds.Records[i]); v != nil {
				sum += *v
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return domain.Float64(sum / float64(n))
	}

	stats.AvgRSRP = mean(func(r *domain.CanonicalRecord) *float64 { return r.RSRP })
	stats.AvgRSRQ = mean(func(r *domain.CanonicalRecord) *float64 { return r.RSRQ })
	stats.AvgSINR = mean(func(r *domain.CanonicalRecord) *float64 { return r.SINR })
	stats.AvgThroughputDL = mean(func(r *domain.CanonicalRecord) *float64 { return r.ThroughputDL })
	stats.AvgThroughputUL = mean(func(r *domain.CanonicalRecord) *float64 { return r.ThroughputUL })

	good, measured := 0, 0
	for i := range ds.Records {
		rec := &ds.Records[i]
		if rec.RSRP == nil && rec.SINR == nil {
			continue
		}
		measured++
		rsrpGood := rec.RSRP == nil || *rec.RSRP >= a.cfg.GoodRSRP
		sinrGood := rec.SINR == nil || *rec.SINR >= a.cfg.GoodSINR
		if rsrpGood && sinrGood {
			good++
		}
	}
	if measured > 0 {
		stats.GoodRFPercent = 100 * float64(good) / float64(measured)
	}
	return stats
}

func clusterCount(ids []int) int {
	seen := map[int]struct{}{}
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// jaccard is |A∩B| / |A∪B| over two record-reference sets.
func jaccard(a, b []int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[int]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	inter := 0
	setB := make(map[int]struct{}, len(b))
	for _, v := range b {
		if _, dup := setB[v]; dup {
			continue
		}
		setB[v] = struct{}{}
		if _, ok := setA[v]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

const earthRadiusM = 6371000

// haversineM is the great-circle distance in meters.
func haversineM(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}
