// Package history records task lifecycle events.
//
// The log is append-only by construction: Logger exposes Record and two read
// queries, nothing else. Entries reference tasks by id without a foreign key,
// so history survives the deletion of the task it describes.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"commitline/internal/domain"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Logger is the only access path to task history.
type Logger interface {
	// Record appends one entry, snapshotting the task's estimate and actual
	// hours category as they are at call time.
	Record(ctx context.Context, q DBTX, task domain.Task, event domain.HistoryEvent, previous *domain.TaskStatus, next domain.TaskStatus) (domain.TaskHistoryEntry, error)
	// ByCommitment returns a commitment's entries in chronological order.
	ByCommitment(ctx context.Context, q DBTX, commitmentID string) ([]domain.TaskHistoryEntry, error)
	// Since returns entries from the trailing window of days, oldest first.
	Since(ctx context.Context, q DBTX, days int) ([]domain.TaskHistoryEntry, error)
}

// SQLLogger stores history in the task_history table.
type SQLLogger struct {
	Now func() time.Time
}

var _ Logger = SQLLogger{}

func (l SQLLogger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l SQLLogger) Record(ctx context.Context, q DBTX, task domain.Task, event domain.HistoryEvent, previous *domain.TaskStatus, next domain.TaskStatus) (domain.TaskHistoryEntry, error) {
	if task.ID == "" || task.CommitmentID == "" {
		return domain.TaskHistoryEntry{}, fmt.Errorf("record %s: task and commitment ids required", event)
	}
	entry := domain.TaskHistoryEntry{
		TaskID:         task.ID,
		CommitmentID:   task.CommitmentID,
		EventType:      event,
		PreviousStatus: previous,
		NewStatus:      next,
		CreatedAt:      l.now(),
	}
	if task.EstimatedHours != nil {
		v := *task.EstimatedHours
		entry.EstimatedHours = &v
	}
	if task.ActualHoursCategory != nil {
		c := *task.ActualHoursCategory
		entry.ActualHoursCategory = &c
	}
	var prev, category any
	if previous != nil {
		prev = string(*previous)
	}
	if entry.ActualHoursCategory != nil {
		category = string(*entry.ActualHoursCategory)
	}
	var estimate any
	if entry.EstimatedHours != nil {
		estimate = *entry.EstimatedHours
	}
	res, err := q.ExecContext(ctx, `INSERT INTO task_history(task_id,commitment_id,event_type,previous_status,new_status,estimated_hours,actual_hours_category,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		entry.TaskID, entry.CommitmentID, string(entry.EventType), prev, string(entry.NewStatus), estimate, category,
		entry.CreatedAt.Format(domain.TimeLayout))
	if err != nil {
		return entry, fmt.Errorf("record %s for task %s: %w", event, task.ID, err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return entry, err
	}
	return entry, nil
}

const selectColumns = `SELECT id,task_id,commitment_id,event_type,previous_status,new_status,estimated_hours,actual_hours_category,created_at FROM task_history`

func (l SQLLogger) ByCommitment(ctx context.Context, q DBTX, commitmentID string) ([]domain.TaskHistoryEntry, error) {
	return query(ctx, q, selectColumns+` WHERE commitment_id=? ORDER BY created_at ASC, id ASC`, commitmentID)
}

func (l SQLLogger) Since(ctx context.Context, q DBTX, days int) ([]domain.TaskHistoryEntry, error) {
	if days < 0 {
		days = 0
	}
	cutoff := l.now().Add(-time.Duration(days) * 24 * time.Hour)
	return query(ctx, q, selectColumns+` WHERE created_at>=? ORDER BY created_at ASC, id ASC`, cutoff.Format(domain.TimeLayout))
}

func query(ctx context.Context, q DBTX, stmt string, args ...any) ([]domain.TaskHistoryEntry, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TaskHistoryEntry
	for rows.Next() {
		var e domain.TaskHistoryEntry
		var event, next, created string
		var prev, category sql.NullString
		var estimate sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.TaskID, &e.CommitmentID, &event, &prev, &next, &estimate, &category, &created); err != nil {
			return nil, err
		}
		e.EventType = domain.HistoryEvent(event)
		e.NewStatus = domain.TaskStatus(next)
		if prev.Valid {
			s := domain.TaskStatus(prev.String)
			e.PreviousStatus = &s
		}
		if estimate.Valid {
			v := estimate.Float64
			e.EstimatedHours = &v
		}
		if category.Valid {
			c := domain.HoursCategory(category.String)
			e.ActualHoursCategory = &c
		}
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("history %d created_at: %w", e.ID, err)
		}
		e.CreatedAt = ts.UTC()
		res = append(res, e)
	}
	return res, rows.Err()
}
