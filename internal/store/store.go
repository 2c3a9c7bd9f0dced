// Package store persists drive-test sessions and their analysis reports.
// Persistence is optional: the pipeline runs identically with a NopStore,
// and storage failures never affect analysis results.
package store

import (
	"context"

	"drivetest/pkg/contracts/domain"
)

// Store is the persistence surface the pipeline writes to.
type Store interface {
	SaveSession(ctx context.Context, session *domain.DriveTestSession) error
	SaveReport(ctx context.Context, report *domain.AnalysisReport) error
	ListSessions(ctx context.Context) ([]domain.DriveTestSession, error)
	GetReport(ctx context.Context, sessionID string) (*domain.AnalysisReport, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// NopStore discards everything. It reports no sessions and no reports.
type NopStore struct{}

func (NopStore) SaveSession(context.Context, *domain.DriveTestSession) error { return nil }
func (NopStore) SaveReport(context.Context, *domain.AnalysisReport) error    { return nil }
func (NopStore) ListSessions(context.Context) ([]domain.DriveTestSession, error) {
	return nil, nil
}
func (NopStore) GetReport(context.Context, string) (*domain.AnalysisReport, error) {
	return nil, nil
}
func (NopStore) DeleteSession(context.Context, string) error { return nil }
