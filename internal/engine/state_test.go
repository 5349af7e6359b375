package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"commitline/internal/domain"
	clerrors "commitline/internal/errors"
)

func TestCanTransition(t *testing.T) {
	all := []domain.CommitmentStatus{
		domain.CommitmentPending, domain.CommitmentInProgress, domain.CommitmentAtRisk,
		domain.CommitmentCompleted, domain.CommitmentAbandoned,
	}
	allowed := map[[2]domain.CommitmentStatus]bool{
		{domain.CommitmentPending, domain.CommitmentInProgress}:   true,
		{domain.CommitmentPending, domain.CommitmentAtRisk}:       true,
		{domain.CommitmentPending, domain.CommitmentCompleted}:    true,
		{domain.CommitmentPending, domain.CommitmentAbandoned}:    true,
		{domain.CommitmentInProgress, domain.CommitmentAtRisk}:    true,
		{domain.CommitmentInProgress, domain.CommitmentCompleted}: true,
		{domain.CommitmentInProgress, domain.CommitmentAbandoned}: true,
		{domain.CommitmentAtRisk, domain.CommitmentInProgress}:    true,
		{domain.CommitmentAtRisk, domain.CommitmentCompleted}:     true,
		{domain.CommitmentAtRisk, domain.CommitmentAbandoned}:     true,
		{domain.CommitmentCompleted, domain.CommitmentInProgress}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]domain.CommitmentStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionTask(t *testing.T) {
	assert.True(t, CanTransitionTask(domain.TaskPending, domain.TaskInProgress))
	assert.True(t, CanTransitionTask(domain.TaskPending, domain.TaskCompleted))
	assert.True(t, CanTransitionTask(domain.TaskInProgress, domain.TaskSkipped))
	assert.False(t, CanTransitionTask(domain.TaskInProgress, domain.TaskPending))
	assert.False(t, CanTransitionTask(domain.TaskCompleted, domain.TaskInProgress))
	assert.False(t, CanTransitionTask(domain.TaskSkipped, domain.TaskCompleted))
}

func TestEnsureCommitmentFrom(t *testing.T) {
	c := domain.Commitment{ID: "c-1", Status: domain.CommitmentPending}
	err := ensureCommitmentFrom(c, domain.CommitmentAtRisk, domain.CommitmentInProgress)
	assert.True(t, errors.Is(err, clerrors.ErrInvalidTransition))
	assert.Contains(t, err.Error(), "c-1")

	c.Status = domain.CommitmentAtRisk
	assert.NoError(t, ensureCommitmentFrom(c, domain.CommitmentAtRisk, domain.CommitmentInProgress))
}
