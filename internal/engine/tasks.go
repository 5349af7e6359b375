package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"commitline/internal/cleanup"
	"commitline/internal/domain"
	clerrors "commitline/internal/errors"
	"commitline/internal/events"
	"commitline/internal/repo"
)

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	CommitmentID   string
	Title          string
	Scope          string
	EstimatedHours *float64
}

// CreateTask appends a pending task after the commitment's existing tasks.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	opts.Title = strings.TrimSpace(opts.Title)
	if opts.Title == "" {
		return domain.Task{}, fmt.Errorf("%w: title is required", clerrors.ErrValidation)
	}
	if opts.CommitmentID == "" {
		return domain.Task{}, fmt.Errorf("%w: commitment is required", clerrors.ErrValidation)
	}
	if opts.EstimatedHours != nil && *opts.EstimatedHours <= 0 {
		return domain.Task{}, fmt.Errorf("%w: estimated hours must be positive", clerrors.ErrValidation)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCommitment(ctx, tx, opts.CommitmentID)
	if err != nil {
		return domain.Task{}, err
	}
	if c.Status == domain.CommitmentAbandoned {
		return domain.Task{}, fmt.Errorf("%w: commitment %s is abandoned", clerrors.ErrInvalidTransition, c.ID)
	}
	pos, err := e.Repo.NextTaskPosition(ctx, tx, c.ID)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.now()
	t := domain.Task{
		ID:             uuid.NewString(),
		CommitmentID:   c.ID,
		Title:          opts.Title,
		Scope:          strings.TrimSpace(opts.Scope),
		Status:         domain.TaskPending,
		Position:       pos,
		EstimatedHours: opts.EstimatedHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return t, fmt.Errorf("insert task: %w", err)
	}
	if _, err := e.History.Record(ctx, tx, t, domain.EventCreated, nil, t.Status); err != nil {
		return t, err
	}
	if err := tx.Commit(); err != nil {
		return t, err
	}
	return t, nil
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return e.Repo.GetTask(ctx, e.DB, id)
}

func (e Engine) ListTasks(ctx context.Context, commitmentID string) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, e.DB, commitmentID)
}

// TaskHistory returns a commitment's task history, oldest first.
func (e Engine) TaskHistory(ctx context.Context, commitmentID string) ([]domain.TaskHistoryEntry, error) {
	return e.History.ByCommitment(ctx, e.DB, commitmentID)
}

// RecentEvents returns the audit log, newest first.
func (e Engine) RecentEvents(ctx context.Context, limit int, entityID string) ([]domain.Event, error) {
	return events.Latest(ctx, e.DB, limit, entityID)
}

// moveTask applies a status change to t and records exactly one history entry.
func (e Engine) moveTask(ctx context.Context, tx repo.DBTX, t *domain.Task, to domain.TaskStatus, event domain.HistoryEvent) error {
	if err := ensureTaskTransition(*t, to); err != nil {
		return err
	}
	now := e.now()
	prev := t.Status
	t.Status = to
	t.UpdatedAt = now
	if to == domain.TaskCompleted {
		t.CompletedAt = &now
	}
	if err := e.Repo.UpdateTask(ctx, tx, *t); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	_, err := e.History.Record(ctx, tx, *t, event, &prev, to)
	return err
}

func (e Engine) StartTask(ctx context.Context, id string) (domain.Task, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTask(ctx, tx, id)
	if err != nil {
		return t, err
	}
	if t.Status != domain.TaskPending {
		return t, fmt.Errorf("%w: task %s is %s, expected pending", clerrors.ErrInvalidTransition, t.ID, t.Status)
	}
	if err := e.moveTask(ctx, tx, &t, domain.TaskInProgress, domain.EventStarted); err != nil {
		return t, err
	}
	return t, tx.Commit()
}

// CompleteTaskOptions carries the optional actual-effort bucket.
type CompleteTaskOptions struct {
	ActualHours *domain.HoursCategory
}

// CompleteTask finishes a task. Completing a notification task moves its
// cleanup plan from planned to in_progress.
func (e Engine) CompleteTask(ctx context.Context, id string, opts CompleteTaskOptions) (domain.Task, error) {
	if opts.ActualHours != nil && !opts.ActualHours.Valid() {
		return domain.Task{}, fmt.Errorf("%w: unknown actual hours category %q", clerrors.ErrValidation, *opts.ActualHours)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTask(ctx, tx, id)
	if err != nil {
		return t, err
	}
	if opts.ActualHours != nil {
		t.ActualHoursCategory = opts.ActualHours
	}
	if err := e.moveTask(ctx, tx, &t, domain.TaskCompleted, domain.EventCompleted); err != nil {
		return t, err
	}
	if t.IsNotificationTask {
		if err := e.notificationCompleted(ctx, tx, t); err != nil {
			return t, err
		}
	}
	if err := tx.Commit(); err != nil {
		return t, err
	}
	return t, nil
}

func (e Engine) notificationCompleted(ctx context.Context, tx repo.DBTX, t domain.Task) error {
	plan, err := e.Repo.PlanForCommitment(ctx, tx, t.CommitmentID)
	if clerrors.Is(err, clerrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if plan.NotificationTaskID == nil || *plan.NotificationTaskID != t.ID {
		return nil
	}
	if _, _, err := e.Cleanup.Apply(ctx, tx, t.CommitmentID, cleanup.TriggerNotificationCompleted, ""); err != nil {
		return fmt.Errorf("advance cleanup plan: %w", err)
	}
	e.Log.Info().Str("commitment", t.CommitmentID).Str("task", t.ID).Msg("stakeholder notified")
	return nil
}

// SkipTask skips a task. Notification tasks need confirm.
func (e Engine) SkipTask(ctx context.Context, id string, confirm bool) (domain.Task, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTask(ctx, tx, id)
	if err != nil {
		return t, err
	}
	if t.IsNotificationTask && !confirm {
		return t, fmt.Errorf("%w: skipping notification task %s", clerrors.ErrConfirmationRequired, t.ID)
	}
	if err := e.moveTask(ctx, tx, &t, domain.TaskSkipped, domain.EventSkipped); err != nil {
		return t, err
	}
	if err := tx.Commit(); err != nil {
		return t, err
	}
	if t.IsNotificationTask {
		e.Log.Warn().Str("commitment", t.CommitmentID).Str("task", t.ID).Msg("notification task skipped")
	}
	return t, nil
}

// MoveTask places a task at position among its siblings and renumbers the
// rest. Notification tasks stay pinned at the front and cannot be passed.
func (e Engine) MoveTask(ctx context.Context, id string, position int) ([]domain.Task, error) {
	if position < 0 {
		return nil, fmt.Errorf("%w: position must not be negative", clerrors.ErrValidation)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if t.IsNotificationTask {
		return nil, fmt.Errorf("%w: task %s cannot be moved", clerrors.ErrNotificationPinned, t.ID)
	}
	tasks, err := e.Repo.ListTasks(ctx, tx, t.CommitmentID)
	if err != nil {
		return nil, err
	}
	// Notification tasks lead the list whatever their status.
	var pinned, rest []domain.Task
	for _, other := range tasks {
		switch {
		case other.ID == t.ID:
		case other.IsNotificationTask:
			pinned = append(pinned, other)
		default:
			rest = append(rest, other)
		}
	}
	if position < len(pinned) {
		return nil, fmt.Errorf("%w: positions before %d are held by %s", clerrors.ErrNotificationPinned, len(pinned), pinned[0].ID)
	}
	ordered := append(pinned, rest...)
	if position > len(ordered) {
		position = len(ordered)
	}
	ordered = append(ordered[:position], append([]domain.Task{t}, ordered[position:]...)...)
	now := e.now()
	for i := range ordered {
		if ordered[i].Position == i {
			continue
		}
		ordered[i].Position = i
		ordered[i].UpdatedAt = now
		if err := e.Repo.UpdateTask(ctx, tx, ordered[i]); err != nil {
			return nil, err
		}
	}
	if err := e.Events.Append(ctx, tx, "task.moved", "task", t.ID, events.EventPayload{
		"commitment_id": t.CommitmentID,
		"from":          t.Position,
		"to":            position,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ordered, nil
}

// RemoveTask deletes a task. Its history entries are kept. Notification
// tasks need override.
func (e Engine) RemoveTask(ctx context.Context, id string, override bool) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTask(ctx, tx, id)
	if err != nil {
		return err
	}
	if t.IsNotificationTask && !override {
		return fmt.Errorf("%w: removing notification task %s", clerrors.ErrConfirmationRequired, t.ID)
	}
	if err := e.Repo.DeleteTask(ctx, tx, t.ID); err != nil {
		return err
	}
	if err := e.Repo.ShiftTaskPositions(ctx, tx, t.CommitmentID, t.Position+1, -1); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "task.removed", "task", t.ID, events.EventPayload{
		"commitment_id": t.CommitmentID,
		"title":         t.Title,
		"notification":  t.IsNotificationTask,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if t.IsNotificationTask {
		e.Log.Warn().Str("commitment", t.CommitmentID).Str("task", t.ID).Msg("notification task removed")
	}
	return nil
}
