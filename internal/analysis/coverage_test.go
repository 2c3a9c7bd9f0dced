package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivetest/pkg/contracts/domain"
)

// signalDataset builds a dataset whose record i carries the given RSRP and a
// healthy SINR. SourceRow is 1-based.
func signalDataset(rsrp []float64) *domain.Dataset {
	records := make([]domain.CanonicalRecord, len(rsrp))
	for i, v := range rsrp {
		records[i] = domain.CanonicalRecord{
			RSRP:      domain.Float64(v),
			SINR:      domain.Float64(15),
			SourceRow: i + 1,
		}
	}
	return &domain.Dataset{Format: domain.FormatCSV, Records: records}
}

func TestCoverage_SingleWeakRun(t *testing.T) {
	// 100 records, rows 41..50 at -110 dBm, everything else healthy.
	rsrp := make([]float64, 100)
	for i := range rsrp {
		rsrp[i] = -80
	}
	for i := 40; i < 50; i++ {
		rsrp[i] = -110
	}

	a := NewCoverageAnalyzer(DefaultConfig().Coverage, nil)
	issues, err := a.Analyze(context.Background(), signalDataset(rsrp))
	require.NoError(t, err)

	require.Len(t, issues, 1)
	issue := issues[0]
	assert.Equal(t, domain.CategoryCoverage, issue.Category)
	assert.Equal(t, "weak_coverage", issue.RootCause)
	require.Len(t, issue.SupportingRecords, 10)
	assert.Equal(t, 41, issue.SupportingRecords[0])
	assert.Equal(t, 50, issue.SupportingRecords[9])
}

func TestCoverage_RunBelowMinLengthIgnored(t *testing.T) {
	rsrp := []float64{-80, -110, -110, -110, -80, -80}

	a := NewCoverageAnalyzer(DefaultConfig().Coverage, nil)
	issues, err := a.Analyze(context.Background(), signalDataset(rsrp))
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCoverage_GapMerging(t *testing.T) {
	// Two weak runs separated by 2 healthy records; merge gap 3 joins them.
	rsrp := make([]float64, 20)
	for i := range rsrp {
		rsrp[i] = -80
	}
	for i := 2; i < 6; i++ {
		rsrp[i] = -112
	}
	for i := 8; i < 12; i++ {
		rsrp[i] = -112
	}

	a := NewCoverageAnalyzer(DefaultConfig().Coverage, nil)
	issues, err := a.Analyze(context.Background(), signalDataset(rsrp))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Len(t, issues[0].SupportingRecords, 10) // rows 3..12 inclusive
}

func TestCoverage_HoleClassification(t *testing.T) {
	rsrp := make([]float64, 10)
	for i := range rsrp {
		rsrp[i] = -125 // 20 dB below threshold
	}

	a := NewCoverageAnalyzer(DefaultConfig().Coverage, nil)
	issues, err := a.Analyze(context.Background(), signalDataset(rsrp))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "coverage_hole", issues[0].RootCause)
	assert.GreaterOrEqual(t, issues[0].Severity, domain.SeverityHigh)
}

func TestCoverage_ThresholdMonotonicity(t *testing.T) {
	rsrp := make([]float64, 200)
	for i := range rsrp {
		rsrp[i] = -90 - float64(i%40) // sweeps -90 .. -129
	}
	ds := signalDataset(rsrp)

	flaggedAt := func(threshold float64) int {
		cfg := DefaultConfig().Coverage
		cfg.RSRPThreshold = threshold
		cfg.RSRQThreshold = -30 // keep RSRQ out of the way
		issues, err := NewCoverageAnalyzer(cfg, nil).Analyze(context.Background(), ds)
		require.NoError(t, err)
		total := 0
		for _, issue := range issues {
			total += len(issue.SupportingRecords)
		}
		return total
	}

	prev := -1
	for _, threshold := range []float64{-125, -115, -105, -95, -85} {
		n := flaggedAt(threshold)
		assert.GreaterOrEqual(t, n, prev, "raising the threshold must never unflag records")
		prev = n
	}
}

func TestCoverage_EmptyDataset(t *testing.T) {
	a := NewCoverageAnalyzer(DefaultConfig().Coverage, nil)
	issues, err := a.Analyze(context.Background(), &domain.Dataset{Format: domain.FormatCSV})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCoverage_RSRQOnlyTriggers(t *testing.T) {
	records := make([]domain.CanonicalRecord, 8)
	for i := range records {
		records[i] = domain.CanonicalRecord{
			RSRP:      domain.Float64(-80),
			RSRQ:      domain.Float64(-19),
			SourceRow: i + 1,
		}
	}
	ds := &domain.Dataset{Format: domain.FormatCSV, Records: records}

	a := NewCoverageAnalyzer(DefaultConfig().Coverage, nil)
	issues, err := a.Analyze(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, issues, 1)
}
