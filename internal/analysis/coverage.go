package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"drivetest/pkg/contracts/domain"
)

// CoverageAnalyzer flags contiguous stretches of weak serving signal. A run
// below the RSRP or RSRQ threshold of at least MinRunLength records becomes
// one issue; runs separated by at most MergeGap records are merged first.
type CoverageAnalyzer struct {
	cfg    CoverageConfig
	logger *slog.Logger
}

func NewCoverageAnalyzer(cfg CoverageConfig, logger *slog.Logger) *CoverageAnalyzer {
	return &CoverageAnalyzer{cfg: cfg, logger: logger}
}

func (a *CoverageAnalyzer) Category() domain.IssueCategory { return domain.CategoryCoverage }

func (a *CoverageAnalyzer) Analyze(ctx context.Context, ds *domain.Dataset) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, nil
	}

	weak := func(r *domain.CanonicalRecord) bool {
		if r.RSRP != nil && *r.RSRP < a.cfg.RSRPThreshold {
			return true
		}
		return r.RSRQ != nil && *r.RSRQ < a.cfg.RSRQThreshold
	}

	runs := findRuns(ds, a.cfg.MinRunLength, a.cfg.MergeGap, weak)
	issues := make([]domain.Issue, 0, len(runs))
	for _, r := range runs {
		idx := r.indices()
		meanRSRP, nRSRP := meanOf(ds, idx, selRSRP)
		minRSRP, _ := minOf(ds, idx, selRSRP)
		meanRSRQ, _ := meanOf(ds, idx, selRSRQ)

		depth := 0.0
		if nRSRP > 0 {
			depth = a.cfg.RSRPThreshold - meanRSRP
		}

		rootCause := "weak_coverage"
		desc := fmt.Sprintf("weak serving signal over %d consecutive samples (mean RSRP %.1f dBm)",
			r.length(), meanRSRP)
		rec := "check antenna tilt and azimuth of serving cells; consider a new site or repeater if the area is at cell edge"
		if depth >= a.cfg.HoleDepth {
			rootCause = "coverage_hole"
			desc = fmt.Sprintf("coverage hole over %d consecutive samples (mean RSRP %.1f dBm, min %.1f dBm)",
				r.length(), meanRSRP, minRSRP)
			rec = "no usable serving signal in this area; plan new coverage (site, repeater or small cell)"
		}

		share := float64(r.length()) / float64(ds.Len())
		severity := maxSeverity(severityForShare(share), severityForDeviation(depth, 5))

		issues = append(issues, domain.Issue{
			Category:          domain.CategoryCoverage,
			Severity:          severity,
			RootCause:         rootCause,
			Description:       desc,
			Recommendation:    rec,
			Location:          locationOf(ds, idx),
			SupportingRecords: supportingRows(ds, idx),
			Metrics: map[string]float64{
				"mean_rsrp":  meanRSRP,
				"min_rsrp":   minRSRP,
				"mean_rsrq":  meanRSRQ,
				"run_length": float64(r.length()),
			},
			Thresholds: map[string]float64{
				"rsrp_threshold": a.cfg.RSRPThreshold,
				"rsrq_threshold": a.cfg.RSRQThreshold,
				"min_run_length": float64(a.cfg.MinRunLength),
			},
		})
	}

	a.logger.DebugContext(ctx, "coverage analysis complete",
		slog.Int("runs", len(issues)),
		slog.Int("records", ds.Len()))
	return issues, nil
}
