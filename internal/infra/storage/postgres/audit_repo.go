package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/devwspito/pasos-httpkit/internal/pipeline"
)

// AuditRepo implements pipeline.AuditSink on PostgreSQL.
type AuditRepo struct {
	db *DB
}

// NewAuditRepo creates a new attempt audit repository.
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// RecordAttempt persists one transport attempt.
func (r *AuditRepo) RecordAttempt(ctx context.Context, rec pipeline.AttemptRecord) error {
	query := `
		INSERT INTO request_attempts (
			request_id, attempt, method, path, status_code, failure_kind, latency_ms, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.RequestID, rec.Attempt, rec.Method, rec.Path,
		rec.StatusCode, rec.FailureKind, rec.Latency.Milliseconds(), rec.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// AttemptRow is one persisted attempt.
type AttemptRow struct {
	ID          int64     `db:"id"`
	RequestID   string    `db:"request_id"`
	Attempt     int       `db:"attempt"`
	Method      string    `db:"method"`
	Path        string    `db:"path"`
	StatusCode  int       `db:"status_code"`
	FailureKind string    `db:"failure_kind"`
	LatencyMs   int64     `db:"latency_ms"`
	StartedAt   time.Time `db:"started_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// RecentAttempts returns the newest attempts, most recent first.
func (r *AuditRepo) RecentAttempts(ctx context.Context, limit int) ([]AttemptRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []AttemptRow
	query := `
		SELECT id, request_id, attempt, method, path, status_code, failure_kind, latency_ms, started_at, created_at
		FROM request_attempts
		ORDER BY started_at DESC
		LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("select attempts: %w", err)
	}
	return rows, nil
}

// AttemptsForRequest returns all attempts of one logical call in order.
func (r *AuditRepo) AttemptsForRequest(ctx context.Context, requestID string) ([]AttemptRow, error) {
	var rows []AttemptRow
	query := `
		SELECT id, request_id, attempt, method, path, status_code, failure_kind, latency_ms, started_at, created_at
		FROM request_attempts
		WHERE request_id = $1
		ORDER BY attempt ASC
	`
	if err := r.db.SelectContext(ctx, &rows, query, requestID); err != nil {
		return nil, fmt.Errorf("select attempts: %w", err)
	}
	return rows, nil
}

// Prune deletes attempts older than the retention period. Zero retention
// keeps everything.
func (r *AuditRepo) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM request_attempts WHERE started_at < $1`,
		time.Now().Add(-retention),
	)
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return res.RowsAffected()
}
