package analysis

import (
	"context"
	"log/slog"

	"drivetest/pkg/contracts/domain"
)

// Analyzer is the capability every analysis model implements. Analyze must
// treat the dataset as read-only and must return zero issues, not an error,
// for well-formed but empty or degenerate datasets.
type Analyzer interface {
	Category() domain.IssueCategory
	Analyze(ctx context.Context, ds *domain.Dataset) ([]domain.Issue, error)
}

// All constructs the full model set in canonical category order. The config
// must already be validated.
func All(cfg Config, logger *slog.Logger) []Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return []Analyzer{
		NewCoverageAnalyzer(cfg.Coverage, logger),
		NewInterferenceAnalyzer(cfg.Interference, logger),
		NewHandoverAnalyzer(cfg.Handover, logger),
		NewThroughputAnalyzer(cfg.Throughput, logger),
		NewCallDropAnalyzer(cfg.CallDrop, logger),
		NewOverloadAnalyzer(cfg.Overload, logger),
		NewParameterAnalyzer(cfg.Parameter, logger),
		NewQoSAnalyzer(cfg.QoS, logger),
	}
}
