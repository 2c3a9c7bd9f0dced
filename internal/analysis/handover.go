package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"drivetest/pkg/contracts/domain"
)

// pairStats accumulates handover outcomes for one serving→target cell pair.
type pairStats struct {
	attempts        int
	failures        int
	failNoNeighbors int
	failWeakServing int
	supporting      []int
}

// HandoverAnalyzer reconstructs attempt→outcome sequences per cell pair and
// flags pairs whose failure ratio exceeds the configured bound. Pairs with
// fewer than MinAttempts attempts are ignored to avoid small-sample noise.
type HandoverAnalyzer struct {
	cfg    HandoverConfig
	logger *slog.Logger
}

func NewHandoverAnalyzer(cfg HandoverConfig, logger *slog.Logger) *HandoverAnalyzer {
	return &HandoverAnalyzer{cfg: cfg, logger: logger}
}

func (a *HandoverAnalyzer) Category() domain.IssueCategory { return domain.CategoryHandover }

func (a *HandoverAnalyzer) Analyze(ctx context.Context, ds *domain.Dataset) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pairs := a.collectPairs(ds)

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var issues []domain.Issue
	for _, key := range keys {
		ps := pairs[key]
		if ps.attempts < a.cfg.MinAttempts {
			continue
		}
		ratio := float64(ps.failures) / float64(ps.attempts)
		if ratio <= a.cfg.FailureRatio {
			continue
		}

		rootCause := "ho_failure_rate"
		rec := "review handover parameters (hysteresis, time-to-trigger) for this cell pair"
		if ps.failures > 0 && ps.failNoNeighbors*2 > ps.failures {
			rootCause = "missing_neighbor"
			rec = "failures occur with an empty neighbor list; audit the neighbor relations of the source cell"
		} else if ps.failures > 0 && ps.failWeakServing*2 > ps.failures {
			rootCause = "too_late_ho"
			rec = "serving signal is already weak when the handover triggers; advance the trigger (lower hysteresis or A3 offset)"
		}

		issues = append(issues, domain.Issue{
			Category:  domain.CategoryHandover,
			Severity:  severityForDeviation(ratio-a.cfg.FailureRatio, 0.10),
			RootCause: rootCause,
			Description: fmt.Sprintf("cell pair %s: %d of %d handover attempts failed (%.0f%%)",
				key, ps.failures, ps.attempts, ratio*100),
			Recommendation:    rec,
			Location:          locationOfRows(ds, ps.supporting),
			SupportingRecords: ps.supporting,
			Metrics: map[string]float64{
				"attempts":      float64(ps.attempts),
				"failures":      float64(ps.failures),
				"failure_ratio": ratio,
			},
			Thresholds: map[string]float64{
				"failure_ratio": a.cfg.FailureRatio,
				"min_attempts":  float64(a.cfg.MinAttempts),
			},
		})
	}

	a.logger.DebugContext(ctx, "handover analysis complete",
		slog.Int("cell_pairs", len(pairs)),
		slog.Int("flagged", len(issues)))
	return issues, nil
}

// collectPairs walks the event stream in record order. An attempt opens a
// pending handover for its serving cell; the next success or failure event
// closes it. The target cell is taken from the serving cell after a success,
// falling back to the first listed neighbor at the attempt.
func (a *HandoverAnalyzer) collectPairs(ds *domain.Dataset) map[string]*pairStats {
	pairs := make(map[string]*pairStats)

	type pending struct {
		serving  string
		neighbor string
		weakRSRP bool
		row      int
	}
	var open *pending

	stat := func(source, target string) *pairStats {
		key := source + "->" + target
		ps, ok := pairs[key]
		if !ok {
			ps = &pairStats{}
			pairs[key] = ps
		}
		return ps
	}

	targetOf := func(p *pending, servingNow string) string {
		if servingNow != "" && servingNow != p.serving {
			return servingNow
		}
		if p.neighbor != "" {
			return p.neighbor
		}
		return "unknown"
	}

	for i := range ds.Records {
		rec := &ds.Records[i]
		switch rec.EventType {
		case domain.EventHandoverAttempt:
			// A new attempt abandons any unanswered one; the abandoned
			// attempt still counts toward its pair's denominator.
			if open != nil {
				ps := stat(open.serving, targetOf(open, ""))
				ps.attempts++
				ps.supporting = append(ps.supporting, open.row)
			}
			neighbor := ""
			if len(rec.NeighborCellIDs) > 0 {
				neighbor = rec.NeighborCellIDs[0]
			}
			open = &pending{
				serving:  rec.ServingCellID,
				neighbor: neighbor,
				weakRSRP: rec.RSRP != nil && *rec.RSRP < a.cfg.WeakServingRSRP,
				row:      rec.SourceRow,
			}

		case domain.EventHandoverSuccess:
			if open == nil {
				continue
			}
			ps := stat(open.serving, targetOf(open, rec.ServingCellID))
			ps.attempts++
			ps.supporting = append(ps.supporting, open.row, rec.SourceRow)
			open = nil

		case domain.EventHandoverFailure:
			if open == nil {
				// Failure without a visible attempt still counts as one.
				neighbor := "unknown"
				if len(rec.NeighborCellIDs) > 0 {
					neighbor = rec.NeighborCellIDs[0]
				}
				ps := stat(rec.ServingCellID, neighbor)
				ps.attempts++
				ps.failures++
				if len(rec.NeighborCellIDs) == 0 {
					ps.failNoNeighbors++
				}
				ps.supporting = append(ps.supporting, rec.SourceRow)
				continue
			}
			ps := stat(open.serving, targetOf(open, ""))
			ps.attempts++
			ps.failures++
			if open.neighbor == "" {
				ps.failNoNeighbors++
			}
			if open.weakRSRP {
				ps.failWeakServing++
			}
			ps.supporting = append(ps.supporting, open.row, rec.SourceRow)
			open = nil
		}
	}

	if open != nil {
		ps := stat(open.serving, targetOf(open, ""))
		ps.attempts++
		ps.supporting = append(ps.supporting, open.row)
	}
	return pairs
}

// locationOfRows resolves source-row references back to dataset indices
// before building the bounding location.
func locationOfRows(ds *domain.Dataset, rows []int) *domain.Location {
	byRow := make(map[int]int, ds.Len())
	for i := range ds.Records {
		byRow[ds.Records[i].SourceRow] = i
	}
	var idx []int
	for _, row := range rows {
		if i, ok := byRow[row]; ok {
			idx = append(idx, i)
		}
	}
	return locationOf(ds, idx)
}
