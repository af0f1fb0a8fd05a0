package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable audit backing: it appends records into
// audit_logs and serves timeline reads over the same table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a store over the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Append inserts one audit_logs row. Insert only; the table never sees
// UPDATE or DELETE from the application within the retention window.
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("audit: postgres store not initialised")
	}
	changesJSON, err := json.Marshal(rec.Changes)
	if err != nil {
		return fmt.Errorf("audit: marshal changes: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO audit_logs (id, actor_id, actor_name, action, resource, resource_id, changes, ip_address, user_agent, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.UserID, rec.UserName, rec.Action, rec.Resource, rec.ResourceID, changesJSON, rec.IPAddress, rec.UserAgent, rec.CreatedAt)
	return err
}

const timelineSelect = `SELECT id, actor_id, actor_name, action, resource, resource_id, changes, ip_address, user_agent, occurred_at
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
  AND ($3::text IS NULL OR actor_id = $3)
  AND ($4::text IS NULL OR resource = $4)
  AND ($5::text IS NULL OR action = $5)
ORDER BY occurred_at DESC`

// TimelinePage returns a window of matching records ordered newest
// first.
func (s *PostgresStore) TimelinePage(ctx context.Context, f Filters, limit, offset int) ([]Record, error) {
	query := timelineSelect + ` LIMIT $6 OFFSET $7`
	rows, err := s.pool.Query(ctx, query,
		nullTime(f.From), nullTime(f.To), nullText(f.Actor), nullText(f.Resource), nullText(f.Action),
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// TimelineAll returns every matching record, used by the CSV export.
func (s *PostgresStore) TimelineAll(ctx context.Context, f Filters) ([]Record, error) {
	rows, err := s.pool.Query(ctx, timelineSelect,
		nullTime(f.From), nullTime(f.To), nullText(f.Actor), nullText(f.Resource), nullText(f.Action))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

type pgRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows pgRows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var changesJSON []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.UserName, &rec.Action, &rec.Resource, &rec.ResourceID, &changesJSON, &rec.IPAddress, &rec.UserAgent, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if len(changesJSON) > 0 {
			if err := json.Unmarshal(changesJSON, &rec.Changes); err != nil {
				return nil, fmt.Errorf("audit: decode changes for %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullText(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
