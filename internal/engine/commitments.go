package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"commitline/internal/cleanup"
	"commitline/internal/domain"
	clerrors "commitline/internal/errors"
	"commitline/internal/events"
	"commitline/internal/repo"
)

func (e Engine) CreateStakeholder(ctx context.Context, name string) (domain.Stakeholder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Stakeholder{}, fmt.Errorf("%w: stakeholder name is required", clerrors.ErrValidation)
	}
	s := domain.Stakeholder{ID: uuid.NewString(), Name: name, CreatedAt: e.now()}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertStakeholder(ctx, tx, s); err != nil {
		return s, fmt.Errorf("insert stakeholder: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "stakeholder.created", "stakeholder", s.ID, events.EventPayload{"name": s.Name}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

func (e Engine) ListStakeholders(ctx context.Context) ([]domain.Stakeholder, error) {
	return e.Repo.ListStakeholders(ctx, e.DB)
}

// CommitmentCreateOptions are parameters for creating a commitment.
type CommitmentCreateOptions struct {
	Deliverable   string
	StakeholderID string
	DueDate       time.Time
	// DueTime is an optional HH:MM time on the due date.
	DueTime string
}

func (e Engine) CreateCommitment(ctx context.Context, opts CommitmentCreateOptions) (domain.Commitment, error) {
	opts.Deliverable = strings.TrimSpace(opts.Deliverable)
	if opts.Deliverable == "" {
		return domain.Commitment{}, fmt.Errorf("%w: deliverable is required", clerrors.ErrValidation)
	}
	if opts.StakeholderID == "" {
		return domain.Commitment{}, fmt.Errorf("%w: stakeholder is required", clerrors.ErrValidation)
	}
	if opts.DueDate.IsZero() {
		return domain.Commitment{}, fmt.Errorf("%w: due date is required", clerrors.ErrValidation)
	}
	var dueTime *string
	if opts.DueTime != "" {
		if _, err := time.Parse("15:04", opts.DueTime); err != nil {
			return domain.Commitment{}, fmt.Errorf("%w: due time %q must be HH:MM", clerrors.ErrValidation, opts.DueTime)
		}
		dueTime = &opts.DueTime
	}
	d := opts.DueDate.UTC()
	now := e.now()
	c := domain.Commitment{
		ID:            uuid.NewString(),
		Deliverable:   opts.Deliverable,
		StakeholderID: opts.StakeholderID,
		DueDate:       time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		DueTime:       dueTime,
		Status:        domain.CommitmentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetStakeholder(ctx, tx, opts.StakeholderID)
	if err != nil {
		return c, err
	}
	c.StakeholderName = s.Name
	if err := e.Repo.InsertCommitment(ctx, tx, c); err != nil {
		return c, fmt.Errorf("insert commitment: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "commitment.created", "commitment", c.ID, events.EventPayload{
		"deliverable": c.Deliverable,
		"stakeholder": s.Name,
		"due":         c.DueAt().Format(time.RFC3339),
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

func (e Engine) GetCommitment(ctx context.Context, id string) (domain.Commitment, error) {
	return e.Repo.GetCommitment(ctx, e.DB, id)
}

func (e Engine) ListCommitments(ctx context.Context, f repo.CommitmentFilters) ([]domain.Commitment, error) {
	return e.Repo.ListCommitments(ctx, e.DB, f)
}

// CommitmentDetail is a commitment with everything hanging off it.
type CommitmentDetail struct {
	Commitment domain.Commitment         `json:"commitment"`
	Tasks      []domain.Task             `json:"tasks"`
	Plan       *domain.CleanupPlan       `json:"cleanup_plan,omitempty"`
	History    []domain.TaskHistoryEntry `json:"history"`
}

func (e Engine) CommitmentDetail(ctx context.Context, id string) (CommitmentDetail, error) {
	var d CommitmentDetail
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return d, err
	}
	defer tx.Rollback()

	if d.Commitment, err = e.Repo.GetCommitment(ctx, tx, id); err != nil {
		return d, err
	}
	if d.Tasks, err = e.Repo.ListTasks(ctx, tx, id); err != nil {
		return d, err
	}
	plan, err := e.Repo.PlanForCommitment(ctx, tx, id)
	switch {
	case err == nil:
		d.Plan = &plan
	case !clerrors.Is(err, clerrors.ErrNotFound):
		return d, err
	}
	if d.History, err = e.History.ByCommitment(ctx, tx, id); err != nil {
		return d, err
	}
	return d, tx.Commit()
}

// saveCommitment persists c and records the transition from prev.
func (e Engine) saveCommitment(ctx context.Context, tx repo.DBTX, c domain.Commitment, prev domain.CommitmentStatus, evtType string, payload events.EventPayload) error {
	if err := e.Repo.UpdateCommitment(ctx, tx, c); err != nil {
		return fmt.Errorf("update commitment: %w", err)
	}
	if payload == nil {
		payload = events.EventPayload{}
	}
	payload["from"] = prev
	payload["to"] = c.Status
	return e.Events.Append(ctx, tx, evtType, "commitment", c.ID, payload)
}

func (e Engine) logTransition(c domain.Commitment, prev domain.CommitmentStatus) {
	e.Log.Info().Str("commitment", c.ID).Str("from", string(prev)).Str("to", string(c.Status)).Msg("commitment transition")
}

// StartCommitment moves a pending commitment to in_progress.
func (e Engine) StartCommitment(ctx context.Context, id string) (domain.Commitment, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Commitment{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCommitment(ctx, tx, id)
	if err != nil {
		return c, err
	}
	if err := ensureCommitmentFrom(c, domain.CommitmentPending, domain.CommitmentInProgress); err != nil {
		return c, err
	}
	prev := c.Status
	c.Status = domain.CommitmentInProgress
	c.UpdatedAt = e.now()
	if err := e.saveCommitment(ctx, tx, c, prev, "commitment.started", nil); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	e.logTransition(c, prev)
	return c, nil
}

// MarkAtRisk flags a pending or in-progress commitment and makes sure it has
// an open cleanup plan with a pinned notification task. A commitment that is
// already at risk is rejected, so a plan is never duplicated.
func (e Engine) MarkAtRisk(ctx context.Context, id, reason string) (domain.Commitment, domain.CleanupPlan, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Commitment{}, domain.CleanupPlan{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCommitment(ctx, tx, id)
	if err != nil {
		return c, domain.CleanupPlan{}, err
	}
	if err := ensureCommitmentTransition(c, domain.CommitmentAtRisk); err != nil {
		return c, domain.CleanupPlan{}, err
	}
	now := e.now()
	prev := c.Status
	c.Status = domain.CommitmentAtRisk
	c.MarkedAtRiskAt = &now
	c.UpdatedAt = now
	reason = strings.TrimSpace(reason)
	if err := e.saveCommitment(ctx, tx, c, prev, "commitment.at_risk", events.EventPayload{"reason": reason}); err != nil {
		return c, domain.CleanupPlan{}, err
	}
	plan, task, err := e.Cleanup.EnsurePlan(ctx, tx, c, reason)
	if err != nil {
		return c, plan, fmt.Errorf("ensure cleanup plan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return c, plan, err
	}
	e.logTransition(c, prev)
	e.Log.Info().Str("commitment", c.ID).Str("plan", plan.ID).Str("notification_task", task.ID).Msg("cleanup plan ready")
	return c, plan, nil
}

// Complete finishes a commitment and finalizes any open cleanup plan. A
// commitment that was ever at risk and still lands on time is recorded as
// recovered.
func (e Engine) Complete(ctx context.Context, id string) (domain.Commitment, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Commitment{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCommitment(ctx, tx, id)
	if err != nil {
		return c, err
	}
	if err := ensureCommitmentTransition(c, domain.CommitmentCompleted); err != nil {
		return c, err
	}
	now := e.now()
	onTime := !now.After(c.DueAt())
	prev := c.Status
	c.Status = domain.CommitmentCompleted
	c.CompletedAt = &now
	c.CompletedOnTime = &onTime
	c.AtRiskRecovered = c.WasAtRisk() && onTime
	c.UpdatedAt = now
	if err := e.saveCommitment(ctx, tx, c, prev, "commitment.completed", events.EventPayload{
		"on_time":   onTime,
		"recovered": c.AtRiskRecovered,
	}); err != nil {
		return c, err
	}
	if _, _, err := e.Cleanup.Apply(ctx, tx, c.ID, cleanup.TriggerCommitmentCompleted, ""); err != nil {
		return c, fmt.Errorf("finalize cleanup plan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	e.logTransition(c, prev)
	return c, nil
}

// AbandonOptions controls abandoning an at-risk commitment whose stakeholder
// has not been notified.
type AbandonOptions struct {
	Override bool
	Reason   string
}

// Abandon drops a commitment. When it is at risk with the notification task
// still open, the caller must pass Override; the plan is then skipped with a
// reason.
func (e Engine) Abandon(ctx context.Context, id string, opts AbandonOptions) (domain.Commitment, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Commitment{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCommitment(ctx, tx, id)
	if err != nil {
		return c, err
	}
	if err := ensureCommitmentTransition(c, domain.CommitmentAbandoned); err != nil {
		return c, err
	}
	trigger, err := e.abandonTrigger(ctx, tx, c, opts.Override)
	if err != nil {
		return c, err
	}
	now := e.now()
	prev := c.Status
	c.Status = domain.CommitmentAbandoned
	c.AbandonedAt = &now
	c.UpdatedAt = now
	reason := strings.TrimSpace(opts.Reason)
	if err := e.saveCommitment(ctx, tx, c, prev, "commitment.abandoned", events.EventPayload{
		"override": opts.Override,
		"reason":   reason,
	}); err != nil {
		return c, err
	}
	if trigger != "" {
		if _, _, err := e.Cleanup.Apply(ctx, tx, c.ID, trigger, reason); err != nil {
			return c, fmt.Errorf("close cleanup plan: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	e.logTransition(c, prev)
	if trigger == cleanup.TriggerAbandonedOverride {
		e.Log.Warn().Str("commitment", c.ID).Msg("abandoned without notifying stakeholder")
	}
	return c, nil
}

// abandonTrigger decides how abandoning c affects its plan, or rejects the
// abandonment. It performs no writes.
func (e Engine) abandonTrigger(ctx context.Context, tx repo.DBTX, c domain.Commitment, override bool) (cleanup.Trigger, error) {
	if c.Status != domain.CommitmentAtRisk {
		return "", nil
	}
	plan, err := e.Repo.PlanForCommitment(ctx, tx, c.ID)
	if clerrors.Is(err, clerrors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !plan.Status.Open() {
		return "", nil
	}
	done, err := e.Cleanup.NotificationDone(ctx, tx, plan)
	if err != nil {
		return "", err
	}
	switch {
	case done:
		return cleanup.TriggerAbandonedNotified, nil
	case override:
		return cleanup.TriggerAbandonedOverride, nil
	default:
		return "", fmt.Errorf("%w: notify %s before abandoning commitment %s", clerrors.ErrNotificationPending, c.StakeholderName, c.ID)
	}
}

// Recover returns an at-risk commitment to in_progress and cancels its
// plan. marked_at_risk_at is kept.
func (e Engine) Recover(ctx context.Context, id string) (domain.Commitment, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Commitment{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCommitment(ctx, tx, id)
	if err != nil {
		return c, err
	}
	if err := ensureCommitmentFrom(c, domain.CommitmentAtRisk, domain.CommitmentInProgress); err != nil {
		return c, err
	}
	prev := c.Status
	c.Status = domain.CommitmentInProgress
	c.UpdatedAt = e.now()
	if err := e.saveCommitment(ctx, tx, c, prev, "commitment.recovered", nil); err != nil {
		return c, err
	}
	if _, _, err := e.Cleanup.Apply(ctx, tx, c.ID, cleanup.TriggerRecovered, ""); err != nil {
		return c, fmt.Errorf("cancel cleanup plan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	e.logTransition(c, prev)
	return c, nil
}

// Reopen moves a completed commitment back to in_progress and clears its
// completion fields.
func (e Engine) Reopen(ctx context.Context, id string) (domain.Commitment, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Commitment{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCommitment(ctx, tx, id)
	if err != nil {
		return c, err
	}
	if err := ensureCommitmentFrom(c, domain.CommitmentCompleted, domain.CommitmentInProgress); err != nil {
		return c, err
	}
	prev := c.Status
	c.Status = domain.CommitmentInProgress
	c.CompletedAt = nil
	c.CompletedOnTime = nil
	c.AtRiskRecovered = false
	c.UpdatedAt = e.now()
	if err := e.saveCommitment(ctx, tx, c, prev, "commitment.reopened", nil); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	e.logTransition(c, prev)
	return c, nil
}
