package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"commitline/internal/domain"
	clerrors "commitline/internal/errors"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query can run either
// standalone or inside the caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repo struct {
	DB *sql.DB
}

// ErrNotFound aliases the shared sentinel so callers can use either name.
var ErrNotFound = clerrors.ErrNotFound

const dateLayout = "2006-01-02"

func (r Repo) InsertStakeholder(ctx context.Context, q DBTX, s domain.Stakeholder) error {
	_, err := q.ExecContext(ctx, `INSERT INTO stakeholders(id,name,created_at) VALUES (?,?,?)`,
		s.ID, s.Name, formatTime(s.CreatedAt))
	return err
}

func (r Repo) GetStakeholder(ctx context.Context, q DBTX, id string) (domain.Stakeholder, error) {
	var s domain.Stakeholder
	var created string
	err := q.QueryRowContext(ctx, `SELECT id,name,created_at FROM stakeholders WHERE id=?`, id).Scan(&s.ID, &s.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("stakeholder %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return s, err
	}
	s.CreatedAt, err = parseTime(created)
	return s, err
}

func (r Repo) ListStakeholders(ctx context.Context, q DBTX) ([]domain.Stakeholder, error) {
	rows, err := q.QueryContext(ctx, `SELECT id,name,created_at FROM stakeholders ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Stakeholder
	for rows.Next() {
		var s domain.Stakeholder
		var created string
		if err := rows.Scan(&s.ID, &s.Name, &created); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

const commitmentColumns = `c.id,c.deliverable,c.stakeholder_id,s.name,c.due_date,c.due_time,c.status,c.marked_at_risk_at,c.completed_at,c.completed_on_time,c.at_risk_recovered,c.abandoned_at,c.created_at,c.updated_at`

const commitmentFrom = `FROM commitments c JOIN stakeholders s ON s.id=c.stakeholder_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommitment(row rowScanner) (domain.Commitment, error) {
	var c domain.Commitment
	var dueDate, status, created, updated string
	var dueTime, markedAt, completedAt, abandonedAt sql.NullString
	var onTime sql.NullBool
	var recovered bool
	err := row.Scan(&c.ID, &c.Deliverable, &c.StakeholderID, &c.StakeholderName, &dueDate, &dueTime, &status,
		&markedAt, &completedAt, &onTime, &recovered, &abandonedAt, &created, &updated)
	if err != nil {
		return c, err
	}
	c.Status = domain.CommitmentStatus(status)
	c.AtRiskRecovered = recovered
	if c.DueDate, err = time.Parse(dateLayout, dueDate); err != nil {
		return c, fmt.Errorf("commitment %s due_date: %w", c.ID, err)
	}
	if dueTime.Valid {
		c.DueTime = &dueTime.String
	}
	if onTime.Valid {
		v := onTime.Bool
		c.CompletedOnTime = &v
	}
	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{{markedAt, &c.MarkedAtRiskAt}, {completedAt, &c.CompletedAt}, {abandonedAt, &c.AbandonedAt}} {
		if *f.dst, err = parseNullTime(f.src); err != nil {
			return c, err
		}
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return c, err
	}
	c.UpdatedAt, err = parseTime(updated)
	return c, err
}

func (r Repo) InsertCommitment(ctx context.Context, q DBTX, c domain.Commitment) error {
	_, err := q.ExecContext(ctx, `INSERT INTO commitments(id,deliverable,stakeholder_id,due_date,due_time,status,marked_at_risk_at,completed_at,completed_on_time,at_risk_recovered,abandoned_at,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Deliverable, c.StakeholderID, c.DueDate.Format(dateLayout), nullableStringPtr(c.DueTime), string(c.Status),
		nullableTime(c.MarkedAtRiskAt), nullableTime(c.CompletedAt), nullableBoolPtr(c.CompletedOnTime), c.AtRiskRecovered,
		nullableTime(c.AbandonedAt), formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	return err
}

// UpdateCommitment writes the mutable lifecycle columns. Deliverable,
// stakeholder and due date are fixed once the commitment exists.
func (r Repo) UpdateCommitment(ctx context.Context, q DBTX, c domain.Commitment) error {
	res, err := q.ExecContext(ctx, `UPDATE commitments SET status=?, marked_at_risk_at=?, completed_at=?, completed_on_time=?, at_risk_recovered=?, abandoned_at=?, updated_at=? WHERE id=?`,
		string(c.Status), nullableTime(c.MarkedAtRiskAt), nullableTime(c.CompletedAt), nullableBoolPtr(c.CompletedOnTime),
		c.AtRiskRecovered, nullableTime(c.AbandonedAt), formatTime(c.UpdatedAt), c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("commitment %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

func (r Repo) GetCommitment(ctx context.Context, q DBTX, id string) (domain.Commitment, error) {
	c, err := scanCommitment(q.QueryRowContext(ctx, `SELECT `+commitmentColumns+` `+commitmentFrom+` WHERE c.id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("commitment %s: %w", id, ErrNotFound)
	}
	return c, err
}

type CommitmentFilters struct {
	Status        domain.CommitmentStatus
	StakeholderID string
}

func (r Repo) ListCommitments(ctx context.Context, q DBTX, f CommitmentFilters) ([]domain.Commitment, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "c.status=?")
		args = append(args, string(f.Status))
	}
	if f.StakeholderID != "" {
		clauses = append(clauses, "c.stakeholder_id=?")
		args = append(args, f.StakeholderID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := q.QueryContext(ctx, `SELECT `+commitmentColumns+` `+commitmentFrom+` `+where+` ORDER BY c.due_date ASC, c.id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(domain.TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return formatTime(*v)
}

func nullableBoolPtr(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
