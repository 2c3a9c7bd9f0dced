package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"drivetest/pkg/contracts/domain"
)

// QoSAnalyzer covers service quality: degraded voice quality during active
// calls (SINR as the quality proxy) and unstable bearer throughput.
type QoSAnalyzer struct {
	cfg    QoSConfig
	logger *slog.Logger
}

func NewQoSAnalyzer(cfg QoSConfig, logger *slog.Logger) *QoSAnalyzer {
	return &QoSAnalyzer{cfg: cfg, logger: logger}
}

func (a *QoSAnalyzer) Category() domain.IssueCategory { return domain.CategoryQoS }

func (a *QoSAnalyzer) Analyze(ctx context.Context, ds *domain.Dataset) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, nil
	}

	issues := a.voiceQuality(ds)
	if issue, ok := a.bearerJitter(ds); ok {
		issues = append(issues, issue)
	}

	a.logger.DebugContext(ctx, "qos analysis complete", slog.Int("flagged", len(issues)))
	return issues, nil
}

// voiceQuality flags SINR collapses while a call is active. Call activity is
// tracked from call_attempt to call_end or call_drop.
func (a *QoSAnalyzer) voiceQuality(ds *domain.Dataset) []domain.Issue {
	inCall := make([]bool, ds.Len())
	active := false
	for i := range ds.Records {
		switch ds.Records[i].EventType {
		case domain.EventCallAttempt:
			active = true
		case domain.EventCallEnd, domain.EventCallDrop:
			inCall[i] = active
			active = false
			continue
		}
		inCall[i] = active
	}

	runs := findRuns(ds, a.cfg.MinRunLength, 0, func(r *domain.CanonicalRecord) bool {
		return r.SINR != nil && *r.SINR < a.cfg.QualityFloorSINR
	})

	var issues []domain.Issue
	for _, r := range runs {
		idx := r.indices()
		callSamples := 0
		for _, i := range idx {
			if inCall[i] {
				callSamples++
			}
		}
		// Only spans that overlap an active call are a voice finding.
		if callSamples*2 < len(idx) {
			continue
		}
		meanSINR, _ := meanOf(ds, idx, selSINR)
		issues = append(issues, domain.Issue{
			Category:  domain.CategoryQoS,
			Severity:  severityForDeviation(a.cfg.QualityFloorSINR-meanSINR, 3),
			RootCause: "volte_quality",
			Description: fmt.Sprintf("in-call SINR degraded to %.1f dB over %d samples",
				meanSINR, r.length()),
			Recommendation:    "voice quality at risk in this area; prioritize the underlying radio problem and verify VoLTE QCI-1 scheduling",
			Location:          locationOf(ds, idx),
			SupportingRecords: supportingRows(ds, idx),
			Metrics: map[string]float64{
				"mean_sinr":    meanSINR,
				"run_length":   float64(r.length()),
				"call_samples": float64(callSamples),
			},
			Thresholds: map[string]float64{
				"quality_floor_sinr": a.cfg.QualityFloorSINR,
			},
		})
	}
	return issues
}

// bearerJitter flags an unstable data bearer: a coefficient of variation of
// DL throughput above the configured bound over enough samples.
func (a *QoSAnalyzer) bearerJitter(ds *domain.Dataset) (domain.Issue, bool) {
	var values []float64
	var idx []int
	for i := range ds.Records {
		if v := ds.Records[i].ThroughputDL; v != nil {
			values = append(values, *v)
			idx = append(idx, i)
		}
	}
	if len(values) < a.cfg.MinSamples {
		return domain.Issue{}, false
	}
	mean, stddev := meanStddev(values)
	if mean <= 0 {
		return domain.Issue{}, false
	}
	cov := stddev / mean
	if cov <= a.cfg.JitterCoV {
		return domain.Issue{}, false
	}

	return domain.Issue{
		Category:  domain.CategoryQoS,
		Severity:  severityForDeviation(cov-a.cfg.JitterCoV, 0.5),
		RootCause: "bearer_qos",
		Description: fmt.Sprintf("DL throughput is unstable (mean %.0f kbps, coefficient of variation %.2f over %d samples)",
			mean, cov, len(values)),
		Recommendation:    "bearer throughput fluctuates heavily; check scheduler fairness, link adaptation and transport jitter",
		Location:          locationOf(ds, idx),
		SupportingRecords: supportingRows(ds, idx),
		Metrics: map[string]float64{
			"mean_dl_kbps": mean,
			"stddev_kbps":  stddev,
			"cov":          cov,
		},
		Thresholds: map[string]float64{
			"jitter_cov":  a.cfg.JitterCoV,
			"min_samples": float64(a.cfg.MinSamples),
		},
	}, true
}
