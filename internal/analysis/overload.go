package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"drivetest/pkg/contracts/domain"
)

// OverloadAnalyzer looks for congested cells: a cell carrying a large share
// of the samples whose users see degraded throughput although the radio link
// to that cell is healthy.
type OverloadAnalyzer struct {
	cfg    OverloadConfig
	logger *slog.Logger
}

func NewOverloadAnalyzer(cfg OverloadConfig, logger *slog.Logger) *OverloadAnalyzer {
	return &OverloadAnalyzer{cfg: cfg, logger: logger}
}

func (a *OverloadAnalyzer) Category() domain.IssueCategory { return domain.CategoryCellOverload }

func (a *OverloadAnalyzer) Analyze(ctx context.Context, ds *domain.Dataset) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, nil
	}

	byCell := map[string][]int{}
	for i := range ds.Records {
		if id := ds.Records[i].ServingCellID; id != "" {
			byCell[id] = append(byCell[id], i)
		}
	}

	cells := make([]string, 0, len(byCell))
	for id := range byCell {
		cells = append(cells, id)
	}
	sort.Strings(cells)

	var issues []domain.Issue
	for _, id := range cells {
		idx := byCell[id]
		if len(idx) < a.cfg.MinSamples {
			continue
		}
		share := float64(len(idx)) / float64(ds.Len())
		if share < a.cfg.MinShare {
			continue
		}

		meanDL, nDL := meanOf(ds, idx, selDL)
		meanRSRP, nRSRP := meanOf(ds, idx, selRSRP)
		meanSINR, nSINR := meanOf(ds, idx, selSINR)
		if nDL == 0 || meanDL >= a.cfg.DLFloorKbps {
			continue
		}
		radioAdequate := nRSRP > 0 && meanRSRP >= a.cfg.RSRPAdequate &&
			nSINR > 0 && meanSINR >= a.cfg.SINRAdequate
		if !radioAdequate {
			continue // degraded radio belongs to coverage or interference
		}

		deficit := (a.cfg.DLFloorKbps - meanDL) / a.cfg.DLFloorKbps
		issues = append(issues, domain.Issue{
			Category:  domain.CategoryCellOverload,
			Severity:  severityForDeviation(deficit, 0.25),
			RootCause: "cell_congestion",
			Description: fmt.Sprintf("cell %s serves %.0f%% of samples at %.0f kbps mean DL despite healthy radio",
				id, share*100, meanDL),
			Recommendation:    "cell appears congested; add capacity (carrier, sector split) or rebalance traffic to neighbor cells",
			Location:          locationOf(ds, idx),
			SupportingRecords: supportingRows(ds, idx),
			Metrics: map[string]float64{
				"sample_share": share,
				"mean_dl_kbps": meanDL,
				"mean_rsrp":    meanRSRP,
				"mean_sinr":    meanSINR,
			},
			Thresholds: map[string]float64{
				"min_share":     a.cfg.MinShare,
				"dl_floor_kbps": a.cfg.DLFloorKbps,
			},
		})
	}

	a.logger.DebugContext(ctx, "overload analysis complete",
		slog.Int("cells", len(byCell)),
		slog.Int("flagged", len(issues)))
	return issues, nil
}
