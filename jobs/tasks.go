package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditArchive moves aged audit rows into the archive table.
	TaskAuditArchive = "audit:archive"
	// TaskSessionSweep removes expired session records.
	TaskSessionSweep = "session:sweep"
)

// AuditArchivePayload configures one archive run.
type AuditArchivePayload struct {
	// RetentionHours bounds how old a row must be before archiving.
	RetentionHours int `json:"retention_hours"`
}

// NewAuditArchiveTask constructs the archive task.
func NewAuditArchiveTask(payload AuditArchivePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditArchive, data), nil
}

// NewSessionSweepTask constructs the session sweep task.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionSweep, nil)
}
