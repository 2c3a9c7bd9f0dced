package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivetest/pkg/contracts/domain"
)

// handoverSequence appends an attempt followed by its outcome for the given
// serving cell and neighbor.
func handoverSequence(records []domain.CanonicalRecord, serving, neighbor string, outcome domain.EventType, rsrp float64) []domain.CanonicalRecord {
	row := len(records) + 1
	records = append(records, domain.CanonicalRecord{
		EventType:       domain.EventHandoverAttempt,
		ServingCellID:   serving,
		NeighborCellIDs: []string{neighbor},
		RSRP:            domain.Float64(rsrp),
		SourceRow:       row,
	})
	records = append(records, domain.CanonicalRecord{
		EventType:       outcome,
		ServingCellID:   serving,
		NeighborCellIDs: []string{neighbor},
		RSRP:            domain.Float64(rsrp),
		SourceRow:       row + 1,
	})
	return records
}

func TestHandover_FailureRateAboveThreshold(t *testing.T) {
	var records []domain.CanonicalRecord
	// Pair A->B: 20 attempts, 4 failures (20% > 10% with >= 10 attempts).
	for i := 0; i < 16; i++ {
		records = handoverSequence(records, "A", "B", domain.EventHandoverSuccess, -85)
	}
	for i := 0; i < 4; i++ {
		records = handoverSequence(records, "A", "B", domain.EventHandoverFailure, -85)
	}
	// Pair C->D: 3 attempts, 1 failure, below the minimum-attempt floor.
	for i := 0; i < 2; i++ {
		records = handoverSequence(records, "C", "D", domain.EventHandoverSuccess, -85)
	}
	records = handoverSequence(records, "C", "D", domain.EventHandoverFailure, -85)

	ds := &domain.Dataset{Format: domain.FormatCSV, Records: records}
	a := NewHandoverAnalyzer(DefaultConfig().Handover, nil)
	issues, err := a.Analyze(context.Background(), ds)
	require.NoError(t, err)

	require.Len(t, issues, 1)
	issue := issues[0]
	assert.Equal(t, domain.CategoryHandover, issue.Category)
	assert.Equal(t, "ho_failure_rate", issue.RootCause)
	assert.Equal(t, 20.0, issue.Metrics["attempts"])
	assert.Equal(t, 4.0, issue.Metrics["failures"])
	assert.InDelta(t, 0.20, issue.Metrics["failure_ratio"], 0.001)
}

func TestHandover_RatioBelowThresholdIgnored(t *testing.T) {
	var records []domain.CanonicalRecord
	// 20 attempts, 1 failure: 5% <= 10%.
	for i := 0; i < 19; i++ {
		records = handoverSequence(records, "A", "B", domain.EventHandoverSuccess, -85)
	}
	records = handoverSequence(records, "A", "B", domain.EventHandoverFailure, -85)

	ds := &domain.Dataset{Format: domain.FormatCSV, Records: records}
	a := NewHandoverAnalyzer(DefaultConfig().Handover, nil)
	issues, err := a.Analyze(context.Background(), ds)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestHandover_TooLateClassification(t *testing.T) {
	var records []domain.CanonicalRecord
	// All failures happen with serving RSRP already below -100 dBm.
	for i := 0; i < 6; i++ {
		records = handoverSequence(records, "A", "B", domain.EventHandoverSuccess, -85)
	}
	for i := 0; i < 4; i++ {
		records = handoverSequence(records, "A", "B", domain.EventHandoverFailure, -112)
	}

	ds := &domain.Dataset{Format: domain.FormatCSV, Records: records}
	a := NewHandoverAnalyzer(DefaultConfig().Handover, nil)
	issues, err := a.Analyze(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "too_late_ho", issues[0].RootCause)
}

func TestHandover_MissingNeighborClassification(t *testing.T) {
	var records []domain.CanonicalRecord
	for i := 0; i < 6; i++ {
		records = handoverSequence(records, "A", "B", domain.EventHandoverSuccess, -85)
	}
	// Failures whose attempts carry no neighbor list at all. Enough of
	// them to clear the minimum-attempt floor on their own pair.
	for i := 0; i < 12; i++ {
		row := len(records) + 1
		records = append(records,
			domain.CanonicalRecord{
				EventType:     domain.EventHandoverAttempt,
				ServingCellID: "A",
				RSRP:          domain.Float64(-85),
				SourceRow:     row,
			},
			domain.CanonicalRecord{
				EventType:     domain.EventHandoverFailure,
				ServingCellID: "A",
				RSRP:          domain.Float64(-85),
				SourceRow:     row + 1,
			})
	}

	ds := &domain.Dataset{Format: domain.FormatCSV, Records: records}
	a := NewHandoverAnalyzer(DefaultConfig().Handover, nil)
	issues, err := a.Analyze(context.Background(), ds)
	require.NoError(t, err)

	// The pair with missing neighbors is keyed separately (target unknown).
	var found bool
	for _, issue := range issues {
		if issue.RootCause == "missing_neighbor" {
			found = true
		}
	}
	require.True(t, found, "expected a missing_neighbor issue, got %+v", issues)
}

func TestHandover_EmptyDataset(t *testing.T) {
	a := NewHandoverAnalyzer(DefaultConfig().Handover, nil)
	issues, err := a.Analyze(context.Background(), &domain.Dataset{Format: domain.FormatCSV})
	require.NoError(t, err)
	assert.Empty(t, issues)
}
