package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"drivetest/pkg/contracts/domain"
)

// CallDropAnalyzer computes the drop rate over established calls and, when
// it exceeds the configured bound, attributes each drop from the radio
// context at the moment it happened.
type CallDropAnalyzer struct {
	cfg    CallDropConfig
	logger *slog.Logger
}

func NewCallDropAnalyzer(cfg CallDropConfig, logger *slog.Logger) *CallDropAnalyzer {
	return &CallDropAnalyzer{cfg: cfg, logger: logger}
}

func (a *CallDropAnalyzer) Category() domain.IssueCategory { return domain.CategoryCallDrop }

func (a *CallDropAnalyzer) Analyze(ctx context.Context, ds *domain.Dataset) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	calls := 0
	dropsByCause := map[string][]int{} // root cause -> dataset indices
	for i := range ds.Records {
		rec := &ds.Records[i]
		switch rec.EventType {
		case domain.EventCallAttempt:
			calls++
		case domain.EventCallDrop:
			cause := a.classifyDrop(rec)
			dropsByCause[cause] = append(dropsByCause[cause], i)
		}
	}

	drops := 0
	for _, idx := range dropsByCause {
		drops += len(idx)
	}
	if calls < a.cfg.MinCalls || drops == 0 {
		return nil, nil
	}
	rate := float64(drops) / float64(calls)
	if rate <= a.cfg.DropRate {
		return nil, nil
	}

	severity := domain.SeverityMedium
	if rate > a.cfg.SevereDropRate {
		severity = domain.SeverityHigh
	}
	if rate > 2*a.cfg.SevereDropRate {
		severity = domain.SeverityCritical
	}

	recommendations := map[string]string{
		"coverage_drop":     "drops happen at cell edge; improve coverage along the affected stretch before tuning anything else",
		"interference_drop": "drops happen under interference with good signal strength; locate and remove the interference source",
		"quality_drop":      "drops without an obvious radio cause; check core and transport alarms and RRC re-establishment settings",
	}

	var issues []domain.Issue
	for _, cause := range []string{"coverage_drop", "interference_drop", "quality_drop"} {
		idx := dropsByCause[cause]
		if len(idx) == 0 {
			continue
		}
		issues = append(issues, domain.Issue{
			Category:  domain.CategoryCallDrop,
			Severity:  severity,
			RootCause: cause,
			Description: fmt.Sprintf("%d of %d calls dropped (%.1f%% overall), %d attributed to %s",
				drops, calls, rate*100, len(idx), cause),
			Recommendation:    recommendations[cause],
			Location:          locationOf(ds, idx),
			SupportingRecords: supportingRows(ds, idx),
			Metrics: map[string]float64{
				"calls":       float64(calls),
				"drops":       float64(drops),
				"drop_rate":   rate,
				"cause_drops": float64(len(idx)),
			},
			Thresholds: map[string]float64{
				"drop_rate": a.cfg.DropRate,
				"min_calls": float64(a.cfg.MinCalls),
			},
		})
	}

	a.logger.DebugContext(ctx, "call drop analysis complete",
		slog.Int("calls", calls),
		slog.Int("drops", drops))
	return issues, nil
}

// classifyDrop reads the radio context of the drop record itself. Weak RSRP
// wins over low SINR: a drop at cell edge is a coverage drop even when SINR
// collapsed too.
func (a *CallDropAnalyzer) classifyDrop(rec *domain.CanonicalRecord) string {
	if rec.RSRP != nil && *rec.RSRP < a.cfg.WeakRSRP {
		return "coverage_drop"
	}
	if rec.SINR != nil && *rec.SINR < a.cfg.LowSINR &&
		rec.RSRP != nil && *rec.RSRP >= a.cfg.AdequateRSRPForI {
		return "interference_drop"
	}
	return "quality_drop"
}
