package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"drivetest/pkg/contracts/domain"
)

// ParameterAnalyzer detects mobility-parameter problems: ping-pong handovers
// bouncing between the same two cells, and serving-cell changes that happen
// without any visible handover signalling.
type ParameterAnalyzer struct {
	cfg    ParameterConfig
	logger *slog.Logger
}

func NewParameterAnalyzer(cfg ParameterConfig, logger *slog.Logger) *ParameterAnalyzer {
	return &ParameterAnalyzer{cfg: cfg, logger: logger}
}

func (a *ParameterAnalyzer) Category() domain.IssueCategory {
	return domain.CategoryParameterMismatch
}

func (a *ParameterAnalyzer) Analyze(ctx context.Context, ds *domain.Dataset) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Serving-cell transition list in record order.
	type transition struct {
		from, to string
		idx      int
		at       time.Time
		signaled bool
	}
	var transitions []transition

	prevCell := ""
	sawAttempt := false
	for i := range ds.Records {
		rec := &ds.Records[i]
		if rec.EventType == domain.EventHandoverAttempt {
			sawAttempt = true
		}
		if rec.ServingCellID == "" {
			continue
		}
		if prevCell != "" && rec.ServingCellID != prevCell {
			transitions = append(transitions, transition{
				from:     prevCell,
				to:       rec.ServingCellID,
				idx:      i,
				at:       rec.Timestamp,
				signaled: sawAttempt || rec.EventType.IsHandover(),
			})
			sawAttempt = false
		}
		prevCell = rec.ServingCellID
	}

	window := time.Duration(a.cfg.PingPongWindow) * time.Second
	pingpongs := map[string][]int{} // "A<->B" -> indices of the bounce-back transitions
	var unsignaled []int

	for i, tr := range transitions {
		if !tr.signaled {
			unsignaled = append(unsignaled, tr.idx)
		}
		if i == 0 {
			continue
		}
		prev := transitions[i-1]
		if prev.from == tr.to && prev.to == tr.from {
			inWindow := tr.at.IsZero() || prev.at.IsZero() || tr.at.Sub(prev.at) <= window
			if inWindow {
				key := pairKey(tr.from, tr.to)
				pingpongs[key] = append(pingpongs[key], prev.idx, tr.idx)
			}
		}
	}

	var issues []domain.Issue

	keys := make([]string, 0, len(pingpongs))
	for k := range pingpongs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		idx := dedupInts(pingpongs[key])
		bounces := len(pingpongs[key]) / 2
		if bounces < a.cfg.MinOccurrences {
			continue
		}
		issues = append(issues, domain.Issue{
			Category:  domain.CategoryParameterMismatch,
			Severity:  severityForDeviation(float64(bounces-a.cfg.MinOccurrences), 3),
			RootCause: "pingpong_handover",
			Description: fmt.Sprintf("serving cell bounced between %s %d times within %ds windows",
				key, bounces, a.cfg.PingPongWindow),
			Recommendation:    "increase handover hysteresis or time-to-trigger between these two cells",
			Location:          locationOf(ds, idx),
			SupportingRecords: supportingRows(ds, idx),
			Metrics: map[string]float64{
				"bounces": float64(bounces),
			},
			Thresholds: map[string]float64{
				"ping_pong_window_s": float64(a.cfg.PingPongWindow),
				"min_occurrences":    float64(a.cfg.MinOccurrences),
			},
		})
	}

	if len(unsignaled) >= a.cfg.MinOccurrences {
		issues = append(issues, domain.Issue{
			Category:  domain.CategoryParameterMismatch,
			Severity:  severityForDeviation(float64(len(unsignaled)-a.cfg.MinOccurrences), 5),
			RootCause: "missing_ho_events",
			Description: fmt.Sprintf("%d serving-cell changes occurred with no handover signalling in the log",
				len(unsignaled)),
			Recommendation:    "verify event logging on the collection tool and check for RRC re-establishments masking handovers",
			Location:          locationOf(ds, unsignaled),
			SupportingRecords: supportingRows(ds, unsignaled),
			Metrics: map[string]float64{
				"unsignaled_changes": float64(len(unsignaled)),
			},
			Thresholds: map[string]float64{
				"min_occurrences": float64(a.cfg.MinOccurrences),
			},
		})
	}

	a.logger.DebugContext(ctx, "parameter analysis complete",
		slog.Int("transitions", len(transitions)),
		slog.Int("flagged", len(issues)))
	return issues, nil
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "<->" + b
}

func dedupInts(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	var out []int
	for _, v := range in {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
