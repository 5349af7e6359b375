package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"commitline/internal/domain"
)

const taskColumns = `id,commitment_id,title,scope,status,position,estimated_hours,actual_hours_category,is_notification_task,created_at,updated_at,completed_at`

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var scope, category, completedAt sql.NullString
	var estimate sql.NullFloat64
	var status, created, updated string
	err := row.Scan(&t.ID, &t.CommitmentID, &t.Title, &scope, &status, &t.Position, &estimate, &category,
		&t.IsNotificationTask, &created, &updated, &completedAt)
	if err != nil {
		return t, err
	}
	t.Status = domain.TaskStatus(status)
	if scope.Valid {
		t.Scope = scope.String
	}
	if estimate.Valid {
		v := estimate.Float64
		t.EstimatedHours = &v
	}
	if category.Valid {
		c := domain.HoursCategory(category.String)
		t.ActualHoursCategory = &c
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return t, err
	}
	t.CompletedAt, err = parseNullTime(completedAt)
	return t, err
}

func (r Repo) InsertTask(ctx context.Context, q DBTX, t domain.Task) error {
	_, err := q.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.CommitmentID, t.Title, nullable(t.Scope), string(t.Status), t.Position, nullableFloatPtr(t.EstimatedHours),
		nullableCategory(t.ActualHoursCategory), t.IsNotificationTask, formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		nullableTime(t.CompletedAt))
	return err
}

func (r Repo) UpdateTask(ctx context.Context, q DBTX, t domain.Task) error {
	res, err := q.ExecContext(ctx, `UPDATE tasks SET title=?, scope=?, status=?, position=?, estimated_hours=?, actual_hours_category=?, updated_at=?, completed_at=? WHERE id=?`,
		t.Title, nullable(t.Scope), string(t.Status), t.Position, nullableFloatPtr(t.EstimatedHours),
		nullableCategory(t.ActualHoursCategory), formatTime(t.UpdatedAt), nullableTime(t.CompletedAt), t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, q DBTX, id string) (domain.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListTasks returns a commitment's tasks in display order.
func (r Repo) ListTasks(ctx context.Context, q DBTX, commitmentID string) ([]domain.Task, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE commitment_id=? ORDER BY position ASC, created_at ASC, id ASC`, commitmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// NextTaskPosition returns the position after the last task of a commitment.
func (r Repo) NextTaskPosition(ctx context.Context, q DBTX, commitmentID string) (int, error) {
	var next int
	err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(position)+1,0) FROM tasks WHERE commitment_id=?`, commitmentID).Scan(&next)
	return next, err
}

// ShiftTaskPositions moves every task at or after from by delta.
func (r Repo) ShiftTaskPositions(ctx context.Context, q DBTX, commitmentID string, from, delta int) error {
	_, err := q.ExecContext(ctx, `UPDATE tasks SET position=position+? WHERE commitment_id=? AND position>=?`, delta, commitmentID, from)
	return err
}

func (r Repo) DeleteTask(ctx context.Context, q DBTX, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

func nullableCategory(v *domain.HoursCategory) any {
	if v == nil {
		return nil
	}
	return string(*v)
}
