package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"drivetest/pkg/contracts/domain"
)

// InterferenceAnalyzer flags stretches where SINR is poor although the
// serving RSRP is adequate. The RSRP floor is the discriminator that
// separates interference from plain coverage loss.
type InterferenceAnalyzer struct {
	cfg    InterferenceConfig
	logger *slog.Logger
}

func NewInterferenceAnalyzer(cfg InterferenceConfig, logger *slog.Logger) *InterferenceAnalyzer {
	return &InterferenceAnalyzer{cfg: cfg, logger: logger}
}

func (a *InterferenceAnalyzer) Category() domain.IssueCategory { return domain.CategoryInterference }

func (a *InterferenceAnalyzer) Analyze(ctx context.Context, ds *domain.Dataset) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, nil
	}

	interfered := func(r *domain.CanonicalRecord) bool {
		if r.SINR == nil || r.RSRP == nil {
			return false
		}
		return *r.SINR < a.cfg.SINRThreshold && *r.RSRP >= a.cfg.RSRPAdequate
	}

	runs := findRuns(ds, a.cfg.MinRunLength, 0, interfered)
	issues := make([]domain.Issue, 0, len(runs))
	for _, r := range runs {
		idx := r.indices()
		meanSINR, _ := meanOf(ds, idx, selSINR)
		meanRSRP, _ := meanOf(ds, idx, selRSRP)

		// A crowded neighbor list at good RSRP points at pilot pollution
		// rather than an external source.
		avgNeighbors := 0.0
		for _, i := range idx {
			avgNeighbors += float64(len(ds.Records[i].NeighborCellIDs))
		}
		avgNeighbors /= float64(len(idx))

		rootCause := "external_interference"
		desc := fmt.Sprintf("SINR degraded to %.1f dB while RSRP stayed at %.1f dBm over %d samples",
			meanSINR, meanRSRP, r.length())
		rec := "scan for external interference sources in this area; verify no repeater oscillation or uplink jammer"
		if avgNeighbors >= float64(a.cfg.PilotNeighborMin) {
			rootCause = "pilot_pollution"
			desc = fmt.Sprintf("SINR degraded to %.1f dB with %.0f overlapping neighbors on average over %d samples",
				meanSINR, avgNeighbors, r.length())
			rec = "too many overlapping cells; downtilt or reduce power of the weakest servers to establish a dominant cell"
		}

		deviation := a.cfg.SINRThreshold - meanSINR
		issues = append(issues, domain.Issue{
			Category:          domain.CategoryInterference,
			Severity:          severityForDeviation(deviation, 3),
			RootCause:         rootCause,
			Description:       desc,
			Recommendation:    rec,
			Location:          locationOf(ds, idx),
			SupportingRecords: supportingRows(ds, idx),
			Metrics: map[string]float64{
				"mean_sinr":      meanSINR,
				"mean_rsrp":      meanRSRP,
				"mean_neighbors": avgNeighbors,
				"run_length":     float64(r.length()),
			},
			Thresholds: map[string]float64{
				"sinr_threshold": a.cfg.SINRThreshold,
				"rsrp_adequate":  a.cfg.RSRPAdequate,
			},
		})
	}

	a.logger.DebugContext(ctx, "interference analysis complete", slog.Int("runs", len(issues)))
	return issues, nil
}
