package engine

import (
	"fmt"

	"commitline/internal/domain"
	clerrors "commitline/internal/errors"
)

// commitmentTransitions is the single source of allowed commitment moves.
// completed -> in_progress is a reopen; abandoned is terminal.
var commitmentTransitions = map[domain.CommitmentStatus][]domain.CommitmentStatus{
	domain.CommitmentPending:    {domain.CommitmentInProgress, domain.CommitmentAtRisk, domain.CommitmentCompleted, domain.CommitmentAbandoned},
	domain.CommitmentInProgress: {domain.CommitmentAtRisk, domain.CommitmentCompleted, domain.CommitmentAbandoned},
	domain.CommitmentAtRisk:     {domain.CommitmentInProgress, domain.CommitmentCompleted, domain.CommitmentAbandoned},
	domain.CommitmentCompleted:  {domain.CommitmentInProgress},
	domain.CommitmentAbandoned:  {},
}

var taskTransitions = map[domain.TaskStatus][]domain.TaskStatus{
	domain.TaskPending:    {domain.TaskInProgress, domain.TaskCompleted, domain.TaskSkipped},
	domain.TaskInProgress: {domain.TaskCompleted, domain.TaskSkipped},
	domain.TaskCompleted:  {},
	domain.TaskSkipped:    {},
}

// CanTransition reports whether a commitment may move from one status to
// another.
func CanTransition(from, to domain.CommitmentStatus) bool {
	for _, s := range commitmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionTask reports whether a task may move between statuses.
func CanTransitionTask(from, to domain.TaskStatus) bool {
	for _, s := range taskTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ensureCommitmentTransition(c domain.Commitment, to domain.CommitmentStatus) error {
	if !CanTransition(c.Status, to) {
		return fmt.Errorf("%w: commitment %s cannot move from %s to %s", clerrors.ErrInvalidTransition, c.ID, c.Status, to)
	}
	return nil
}

// ensureCommitmentFrom rejects operations that are only defined for one
// source status, even when the target is reachable from elsewhere.
func ensureCommitmentFrom(c domain.Commitment, from, to domain.CommitmentStatus) error {
	if c.Status != from {
		return fmt.Errorf("%w: commitment %s is %s, expected %s to move to %s", clerrors.ErrInvalidTransition, c.ID, c.Status, from, to)
	}
	return ensureCommitmentTransition(c, to)
}

func ensureTaskTransition(t domain.Task, to domain.TaskStatus) error {
	if !CanTransitionTask(t.Status, to) {
		return fmt.Errorf("%w: task %s cannot move from %s to %s", clerrors.ErrInvalidTransition, t.ID, t.Status, to)
	}
	return nil
}
