package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"commitline/internal/domain"
)

const planColumns = `id,commitment_id,status,notification_task_id,at_risk_reason,skipped_reason,skipped_at,completed_at,created_at,updated_at`

func scanPlan(row rowScanner) (domain.CleanupPlan, error) {
	var p domain.CleanupPlan
	var status, created, updated string
	var notificationID, reason, skippedReason, skippedAt, completedAt sql.NullString
	err := row.Scan(&p.ID, &p.CommitmentID, &status, &notificationID, &reason, &skippedReason, &skippedAt, &completedAt, &created, &updated)
	if err != nil {
		return p, err
	}
	p.Status = domain.PlanStatus(status)
	if notificationID.Valid {
		p.NotificationTaskID = &notificationID.String
	}
	if reason.Valid {
		p.AtRiskReason = reason.String
	}
	if skippedReason.Valid {
		p.SkippedReason = &skippedReason.String
	}
	if p.SkippedAt, err = parseNullTime(skippedAt); err != nil {
		return p, err
	}
	if p.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return p, err
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return p, err
	}
	p.UpdatedAt, err = parseTime(updated)
	return p, err
}

func (r Repo) InsertPlan(ctx context.Context, q DBTX, p domain.CleanupPlan) error {
	_, err := q.ExecContext(ctx, `INSERT INTO cleanup_plans(`+planColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.CommitmentID, string(p.Status), nullableStringPtr(p.NotificationTaskID), nullable(p.AtRiskReason),
		nullableStringPtr(p.SkippedReason), nullableTime(p.SkippedAt), nullableTime(p.CompletedAt),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

func (r Repo) UpdatePlan(ctx context.Context, q DBTX, p domain.CleanupPlan) error {
	res, err := q.ExecContext(ctx, `UPDATE cleanup_plans SET status=?, notification_task_id=?, at_risk_reason=?, skipped_reason=?, skipped_at=?, completed_at=?, updated_at=? WHERE id=?`,
		string(p.Status), nullableStringPtr(p.NotificationTaskID), nullable(p.AtRiskReason), nullableStringPtr(p.SkippedReason),
		nullableTime(p.SkippedAt), nullableTime(p.CompletedAt), formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cleanup plan %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// PlanForCommitment returns the commitment's plan or ErrNotFound when the
// commitment has never been at risk.
func (r Repo) PlanForCommitment(ctx context.Context, q DBTX, commitmentID string) (domain.CleanupPlan, error) {
	p, err := scanPlan(q.QueryRowContext(ctx, `SELECT `+planColumns+` FROM cleanup_plans WHERE commitment_id=?`, commitmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("cleanup plan for %s: %w", commitmentID, ErrNotFound)
	}
	return p, err
}

func (r Repo) ListPlans(ctx context.Context, q DBTX) ([]domain.CleanupPlan, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+planColumns+` FROM cleanup_plans ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CleanupPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) CountPlans(ctx context.Context, q DBTX, commitmentID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT count(*) FROM cleanup_plans WHERE commitment_id=?`, commitmentID).Scan(&n)
	return n, err
}
