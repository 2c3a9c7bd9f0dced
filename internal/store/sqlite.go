package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	apperrors "drivetest/internal/errors"
	"drivetest/pkg/contracts/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	uploaded_at  TEXT NOT NULL,
	filename     TEXT NOT NULL,
	format       TEXT NOT NULL,
	record_count INTEGER NOT NULL,
	start_time   TEXT,
	end_time     TEXT
);
CREATE TABLE IF NOT EXISTS reports (
	session_id   TEXT PRIMARY KEY REFERENCES sessions(id),
	generated_at TEXT NOT NULL,
	summary_json TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS issues (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      TEXT NOT NULL REFERENCES sessions(id),
	category        TEXT NOT NULL,
	severity        INTEGER NOT NULL,
	root_cause      TEXT NOT NULL,
	description     TEXT NOT NULL,
	recommendation  TEXT NOT NULL,
	latitude        REAL,
	longitude       REAL,
	cluster_id      INTEGER NOT NULL,
	supporting_json TEXT NOT NULL,
	metrics_json    TEXT NOT NULL,
	thresholds_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_issues_session ON issues(session_id);
`

// SQLiteStore keeps sessions and reports in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// the schema.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open database", err)
	}
	// modernc sqlite serializes writes; one connection avoids lock churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to apply schema", err)
	}

	logger.Info("sqlite store opened", slog.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.DriveTestSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
			(id, uploaded_at, filename, format, record_count, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UploadedAt.UTC().Format(time.RFC3339Nano),
		session.Filename,
		string(session.Format),
		session.RecordCount,
		timeOrNil(session.StartTime),
		timeOrNil(session.EndTime),
	)
	if err != nil {
		return apperrors.NewStorageError("failed to save session", err)
	}
	return nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, report *domain.AnalysisReport) error {
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return apperrors.NewStorageError("failed to encode summary", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO reports (session_id, generated_at, summary_json)
		VALUES (?, ?, ?)`,
		report.SessionID,
		report.GeneratedAt.UTC().Format(time.RFC3339Nano),
		string(summary),
	); err != nil {
		return apperrors.NewStorageError("failed to save report", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM issues WHERE session_id = ?`, report.SessionID); err != nil {
		return apperrors.NewStorageError("failed to clear previous issues", err)
	}

	for i := range report.Issues {
		issue := &report.Issues[i]
		supporting, err := json.Marshal(issue.SupportingRecords)
		if err != nil {
			return apperrors.NewStorageError("failed to encode supporting records", err)
		}
		metrics, err := json.Marshal(issue.Metrics)
		if err != nil {
			return apperrors.NewStorageError("failed to encode metrics", err)
		}
		thresholds, err := json.Marshal(issue.Thresholds)
		if err != nil {
			return apperrors.NewStorageError("failed to encode thresholds", err)
		}

		var lat, lon any
		if issue.Location != nil {
			lat, lon = issue.Location.Latitude, issue.Location.Longitude
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO issues
				(session_id, category, severity, root_cause, description,
				 recommendation, latitude, longitude, cluster_id,
				 supporting_json, metrics_json, thresholds_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.SessionID,
			string(issue.Category),
			int(issue.Severity),
			issue.RootCause,
			issue.Description,
			issue.Recommendation,
			lat, lon,
			issue.ClusterID,
			string(supporting), string(metrics), string(thresholds),
		); err != nil {
			return apperrors.NewStorageError("failed to save issue", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("failed to commit report", err)
	}

	s.logger.DebugContext(ctx, "report persisted",
		slog.String("session_id", report.SessionID),
		slog.Int("issues", len(report.Issues)))
	return nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]domain.DriveTestSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uploaded_at, filename, format, record_count, start_time, end_time
		FROM sessions ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list sessions", err)
	}
	defer rows.Close()

	var sessions []domain.DriveTestSession
	for rows.Next() {
		var sess domain.DriveTestSession
		var uploaded string
		var format string
		var start, end sql.NullString
		if err := rows.Scan(&sess.ID, &uploaded, &sess.Filename, &format,
			&sess.RecordCount, &start, &end); err != nil {
			return nil, apperrors.NewStorageError("failed to scan session", err)
		}
		sess.Format = domain.FormatTag(format)
		sess.UploadedAt, _ = time.Parse(time.RFC3339Nano, uploaded)
		sess.StartTime = parseNullTime(start)
		sess.EndTime = parseNullTime(end)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) GetReport(ctx context.Context, sessionID string) (*domain.AnalysisReport, error) {
	report := &domain.AnalysisReport{SessionID: sessionID}

	var generated, summary string
	err := s.db.QueryRowContext(ctx, `
		SELECT generated_at, summary_json FROM reports WHERE session_id = ?`,
		sessionID).Scan(&generated, &summary)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewStorageError(
			fmt.Sprintf("no report for session %s", sessionID), err)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load report", err)
	}
	report.GeneratedAt, _ = time.Parse(time.RFC3339Nano, generated)
	if err := json.Unmarshal([]byte(summary), &report.Summary); err != nil {
		return nil, apperrors.NewStorageError("failed to decode summary", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, severity, root_cause, description, recommendation,
		       latitude, longitude, cluster_id,
		       supporting_json, metrics_json, thresholds_json
		FROM issues WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load issues", err)
	}
	defer rows.Close()

	for rows.Next() {
		var issue domain.Issue
		var category string
		var severity int
		var lat, lon sql.NullFloat64
		var supporting, metrics, thresholds string
		if err := rows.Scan(&category, &severity, &issue.RootCause,
			&issue.Description, &issue.Recommendation,
			&lat, &lon, &issue.ClusterID,
			&supporting, &metrics, &thresholds); err != nil {
			return nil, apperrors.NewStorageError("failed to scan issue", err)
		}
		issue.Category = domain.IssueCategory(category)
		issue.Severity = domain.Severity(severity)
		if lat.Valid && lon.Valid {
			issue.Location = &domain.Location{Latitude: lat.Float64, Longitude: lon.Float64}
		}
		if err := json.Unmarshal([]byte(supporting), &issue.SupportingRecords); err != nil {
			return nil, apperrors.NewStorageError("failed to decode supporting records", err)
		}
		if err := json.Unmarshal([]byte(metrics), &issue.Metrics); err != nil {
			return nil, apperrors.NewStorageError("failed to decode metrics", err)
		}
		if err := json.Unmarshal([]byte(thresholds), &issue.Thresholds); err != nil {
			return nil, apperrors.NewStorageError("failed to decode thresholds", err)
		}
		report.Issues = append(report.Issues, issue)
	}
	return report, rows.Err()
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM issues WHERE session_id = ?`,
		`DELETE FROM reports WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, sessionID); err != nil {
			return apperrors.NewStorageError("failed to delete session", err)
		}
	}
	return tx.Commit()
}

func timeOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullTime(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
