package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"drivetest/pkg/contracts/domain"
)

// ThroughputAnalyzer flags sustained low-throughput runs. Throughput alone
// is not a finding; the joint condition with radio quality decides whether
// the bottleneck is the radio link or something behind it.
type ThroughputAnalyzer struct {
	cfg    ThroughputConfig
	logger *slog.Logger
}

func NewThroughputAnalyzer(cfg ThroughputConfig, logger *slog.Logger) *ThroughputAnalyzer {
	return &ThroughputAnalyzer{cfg: cfg, logger: logger}
}

func (a *ThroughputAnalyzer) Category() domain.IssueCategory { return domain.CategoryThroughput }

func (a *ThroughputAnalyzer) Analyze(ctx context.Context, ds *domain.Dataset) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, nil
	}

	slow := func(r *domain.CanonicalRecord) bool {
		if r.ThroughputDL != nil && *r.ThroughputDL < a.cfg.DLFloorKbps {
			return true
		}
		return r.ThroughputUL != nil && *r.ThroughputUL < a.cfg.ULFloorKbps
	}

	runs := findRuns(ds, a.cfg.MinRunLength, 0, slow)
	issues := make([]domain.Issue, 0, len(runs))
	for _, r := range runs {
		idx := r.indices()
		meanDL, nDL := meanOf(ds, idx, selDL)
		meanUL, _ := meanOf(ds, idx, selUL)
		meanRSRP, nRSRP := meanOf(ds, idx, selRSRP)
		meanSINR, nSINR := meanOf(ds, idx, selSINR)

		radioAdequate := nRSRP > 0 && meanRSRP >= a.cfg.RSRPAdequate &&
			nSINR > 0 && meanSINR >= a.cfg.SINRAdequate

		rootCause := "poor_radio_conditions"
		desc := fmt.Sprintf("throughput dropped to %.0f kbps DL over %d samples under degraded radio (RSRP %.1f dBm, SINR %.1f dB)",
			meanDL, r.length(), meanRSRP, meanSINR)
		rec := "radio-limited throughput; address the underlying coverage or interference problem in this area"
		if radioAdequate {
			rootCause = "backhaul_or_scheduling"
			desc = fmt.Sprintf("throughput dropped to %.0f kbps DL over %d samples although radio was healthy (RSRP %.1f dBm, SINR %.1f dB)",
				meanDL, r.length(), meanRSRP, meanSINR)
			rec = "radio link is healthy; check cell backhaul capacity, scheduler load and transport for this site"
		}

		deficit := 0.0
		if nDL > 0 && a.cfg.DLFloorKbps > 0 {
			deficit = (a.cfg.DLFloorKbps - meanDL) / a.cfg.DLFloorKbps
		}

		issues = append(issues, domain.Issue{
			Category:          domain.CategoryThroughput,
			Severity:          severityForDeviation(deficit, 0.25),
			RootCause:         rootCause,
			Description:       desc,
			Recommendation:    rec,
			Location:          locationOf(ds, idx),
			SupportingRecords: supportingRows(ds, idx),
			Metrics: map[string]float64{
				"mean_dl_kbps": meanDL,
				"mean_ul_kbps": meanUL,
				"mean_rsrp":    meanRSRP,
				"mean_sinr":    meanSINR,
				"run_length":   float64(r.length()),
			},
			Thresholds: map[string]float64{
				"dl_floor_kbps": a.cfg.DLFloorKbps,
				"ul_floor_kbps": a.cfg.ULFloorKbps,
			},
		})
	}

	a.logger.DebugContext(ctx, "throughput analysis complete", slog.Int("runs", len(issues)))
	return issues, nil
}
