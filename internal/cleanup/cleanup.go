// Package cleanup maintains the recovery plan attached to an at-risk
// commitment and the pinned task that reminds the user to warn the
// stakeholder.
//
// Status changes are decided by NextStatus, a pure function of the current
// plan status and a trigger. The Orchestrator applies them to storage on the
// caller's transaction; it never commits or rolls back.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"commitline/internal/domain"
	clerrors "commitline/internal/errors"
	"commitline/internal/events"
	"commitline/internal/history"
	"commitline/internal/repo"
)

// Trigger is a commitment-level event that may move a cleanup plan.
type Trigger string

const (
	TriggerNotificationCompleted Trigger = "notification_completed"
	TriggerCommitmentCompleted   Trigger = "commitment_completed"
	TriggerAbandonedNotified     Trigger = "abandoned_notified"
	TriggerAbandonedOverride     Trigger = "abandoned_override"
	TriggerRecovered             Trigger = "recovered"
)

// DefaultSkipReason is recorded when an override abandonment gives no reason.
const DefaultSkipReason = "abandoned without notifying stakeholder"

// NextStatus maps a trigger onto the plan's next status. The second result is
// false when the trigger leaves the plan untouched, which is always the case
// once the plan is completed, skipped or cancelled.
func NextStatus(current domain.PlanStatus, t Trigger) (domain.PlanStatus, bool) {
	if !current.Open() {
		return current, false
	}
	switch t {
	case TriggerNotificationCompleted:
		if current == domain.PlanPlanned {
			return domain.PlanInProgress, true
		}
	case TriggerCommitmentCompleted, TriggerAbandonedNotified:
		return domain.PlanCompleted, true
	case TriggerAbandonedOverride:
		return domain.PlanSkipped, true
	case TriggerRecovered:
		return domain.PlanCancelled, true
	}
	return current, false
}

// NotificationTitle is the title of the synthesized stakeholder task.
func NotificationTitle(stakeholder string) string {
	return fmt.Sprintf("Notify %s about at-risk commitment", stakeholder)
}

func notificationScope(c domain.Commitment, reason string) string {
	if reason == "" {
		reason = "not given"
	}
	return fmt.Sprintf("Stakeholder: %s\nDeliverable: %s\nDue: %s\nReason: %s",
		c.StakeholderName, c.Deliverable, c.DueAt().Format("2006-01-02 15:04"), reason)
}

// Tx is the transaction handle the orchestrator writes through.
type Tx = repo.DBTX

type Orchestrator struct {
	Repo    repo.Repo
	History history.Logger
	Events  events.Writer
	Now     func() time.Time
	Log     zerolog.Logger
}

func (o Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

// EnsurePlan gives an at-risk commitment exactly one open plan and an open
// notification task pinned at position 0. A plan left over from an earlier
// risk episode is reset to planned; its notification task is reused while it
// is still open and replaced otherwise.
func (o Orchestrator) EnsurePlan(ctx context.Context, tx Tx, c domain.Commitment, reason string) (domain.CleanupPlan, domain.Task, error) {
	now := o.now()
	plan, err := o.Repo.PlanForCommitment(ctx, tx, c.ID)
	switch {
	case err == nil:
		task, reused, err := o.reusableNotification(ctx, tx, plan)
		if err != nil {
			return plan, domain.Task{}, err
		}
		if !reused {
			if task, err = o.createNotification(ctx, tx, c, reason); err != nil {
				return plan, domain.Task{}, err
			}
		}
		plan.Status = domain.PlanPlanned
		plan.NotificationTaskID = &task.ID
		plan.AtRiskReason = reason
		plan.SkippedReason = nil
		plan.SkippedAt = nil
		plan.CompletedAt = nil
		plan.UpdatedAt = now
		if err := o.Repo.UpdatePlan(ctx, tx, plan); err != nil {
			return plan, task, err
		}
		if err := o.Events.Append(ctx, tx, "cleanup_plan.reopened", "cleanup_plan", plan.ID, events.EventPayload{
			"commitment_id":        c.ID,
			"notification_task_id": task.ID,
			"notification_reused":  reused,
		}); err != nil {
			return plan, task, err
		}
		o.Log.Debug().Str("commitment", c.ID).Str("plan", plan.ID).Bool("notification_reused", reused).Msg("cleanup plan reopened")
		return plan, task, nil
	case clerrors.Is(err, clerrors.ErrNotFound):
	default:
		return plan, domain.Task{}, err
	}

	task, err := o.createNotification(ctx, tx, c, reason)
	if err != nil {
		return domain.CleanupPlan{}, domain.Task{}, err
	}
	plan = domain.CleanupPlan{
		ID:                 uuid.NewString(),
		CommitmentID:       c.ID,
		Status:             domain.PlanPlanned,
		NotificationTaskID: &task.ID,
		AtRiskReason:       reason,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := o.Repo.InsertPlan(ctx, tx, plan); err != nil {
		return plan, task, fmt.Errorf("insert cleanup plan: %w", err)
	}
	if err := o.Events.Append(ctx, tx, "cleanup_plan.created", "cleanup_plan", plan.ID, events.EventPayload{
		"commitment_id":        c.ID,
		"notification_task_id": task.ID,
		"reason":               reason,
	}); err != nil {
		return plan, task, err
	}
	o.Log.Debug().Str("commitment", c.ID).Str("plan", plan.ID).Msg("cleanup plan created")
	return plan, task, nil
}

func (o Orchestrator) reusableNotification(ctx context.Context, tx Tx, plan domain.CleanupPlan) (domain.Task, bool, error) {
	if plan.NotificationTaskID == nil {
		return domain.Task{}, false, nil
	}
	task, err := o.Repo.GetTask(ctx, tx, *plan.NotificationTaskID)
	if clerrors.Is(err, clerrors.ErrNotFound) {
		return domain.Task{}, false, nil
	}
	if err != nil {
		return domain.Task{}, false, err
	}
	return task, task.Status.Open(), nil
}

func (o Orchestrator) createNotification(ctx context.Context, tx Tx, c domain.Commitment, reason string) (domain.Task, error) {
	now := o.now()
	if err := o.Repo.ShiftTaskPositions(ctx, tx, c.ID, 0, 1); err != nil {
		return domain.Task{}, fmt.Errorf("shift tasks: %w", err)
	}
	task := domain.Task{
		ID:                 uuid.NewString(),
		CommitmentID:       c.ID,
		Title:              NotificationTitle(c.StakeholderName),
		Scope:              notificationScope(c, reason),
		Status:             domain.TaskPending,
		Position:           0,
		IsNotificationTask: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := o.Repo.InsertTask(ctx, tx, task); err != nil {
		return task, fmt.Errorf("insert notification task: %w", err)
	}
	if _, err := o.History.Record(ctx, tx, task, domain.EventCreated, nil, task.Status); err != nil {
		return task, err
	}
	return task, nil
}

// NotificationDone reports whether the plan's notification task has been
// completed. A removed notification task counts as not done.
func (o Orchestrator) NotificationDone(ctx context.Context, tx Tx, plan domain.CleanupPlan) (bool, error) {
	if plan.NotificationTaskID == nil {
		return false, nil
	}
	task, err := o.Repo.GetTask(ctx, tx, *plan.NotificationTaskID)
	if clerrors.Is(err, clerrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return task.Status == domain.TaskCompleted, nil
}

// Apply moves the commitment's plan according to t. It returns false without
// writing when the commitment has no plan or the trigger does not apply.
func (o Orchestrator) Apply(ctx context.Context, tx Tx, commitmentID string, t Trigger, reason string) (domain.CleanupPlan, bool, error) {
	plan, err := o.Repo.PlanForCommitment(ctx, tx, commitmentID)
	if clerrors.Is(err, clerrors.ErrNotFound) {
		return domain.CleanupPlan{}, false, nil
	}
	if err != nil {
		return plan, false, err
	}
	next, ok := NextStatus(plan.Status, t)
	if !ok {
		return plan, false, nil
	}
	now := o.now()
	prev := plan.Status
	plan.Status = next
	plan.UpdatedAt = now
	switch next {
	case domain.PlanCompleted:
		plan.CompletedAt = &now
	case domain.PlanSkipped:
		if reason == "" {
			reason = DefaultSkipReason
		}
		plan.SkippedReason = &reason
		plan.SkippedAt = &now
	}
	if err := o.Repo.UpdatePlan(ctx, tx, plan); err != nil {
		return plan, false, err
	}
	payload := events.EventPayload{"commitment_id": commitmentID, "from": prev, "to": next, "trigger": t}
	if plan.SkippedReason != nil {
		payload["reason"] = *plan.SkippedReason
	}
	if err := o.Events.Append(ctx, tx, "cleanup_plan."+string(next), "cleanup_plan", plan.ID, payload); err != nil {
		return plan, false, err
	}
	o.Log.Debug().Str("plan", plan.ID).Str("trigger", string(t)).Str("from", string(prev)).Str("to", string(next)).Msg("cleanup plan moved")
	return plan, true, nil
}
