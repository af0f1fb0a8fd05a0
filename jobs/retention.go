package jobs

import (
	"context"
	"encoding/json"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RetentionJob archives aged audit rows and sweeps stale sessions. The
// primary audit_logs table stays append-only inside the retention
// window; rows beyond it move to audit_logs_archive in one
// transaction so no record is ever lost in transit.
type RetentionJob struct {
	pool      *pgxpool.Pool
	logger    *slog.Logger
	retention time.Duration
}

// NewRetentionJob constructs the retention job.
func NewRetentionJob(pool *pgxpool.Pool, logger *slog.Logger, retention time.Duration) *RetentionJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionJob{pool: pool, logger: logger, retention: retention}
}

// HandleAuditArchive processes TaskAuditArchive tasks.
func (j *RetentionJob) HandleAuditArchive(ctx context.Context, t *asynq.Task) error {
	retention := j.retention
	var payload AuditArchivePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.RetentionHours > 0 {
			retention = time.Duration(payload.RetentionHours) * time.Hour
		}
	}
	if retention <= 0 {
		j.logger.Info("audit archive skipped, no retention configured")
		return nil
	}
	cutoff := time.Now().UTC().Add(-retention)

	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	moved, err := tx.Exec(ctx, `INSERT INTO audit_logs_archive
SELECT * FROM audit_logs WHERE occurred_at < $1
ON CONFLICT (id) DO NOTHING`, cutoff)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM audit_logs a
WHERE a.occurred_at < $1
  AND EXISTS (SELECT 1 FROM audit_logs_archive ar WHERE ar.id = a.id)`, cutoff); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	j.logger.Info("audit archive run",
		slog.Int64("rows_moved", moved.RowsAffected()),
		slog.Time("cutoff", cutoff))
	return nil
}

// HandleSessionSweep processes TaskSessionSweep tasks.
func (j *RetentionJob) HandleSessionSweep(ctx context.Context, t *asynq.Task) error {
	tag, err := j.pool.Exec(ctx, `DELETE FROM admin_sessions WHERE expires_at < NOW()`)
	if err != nil {
		return err
	}
	j.logger.Info("session sweep run", slog.Int64("rows_deleted", tag.RowsAffected()))
	return nil
}
