package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commitline/internal/config"
	"commitline/internal/domain"
	"commitline/internal/metrics"
)

func defaultComposer() Composer {
	return NewComposer(config.Default())
}

func perfect(samples metrics.Samples) metrics.Rates {
	return metrics.Rates{OnTime: 1, Notification: 1, Cleanup: 1, Estimation: 1, Samples: samples}
}

func TestCleanSlateScoresAMinus(t *testing.T) {
	m := defaultComposer().Build(perfect(metrics.Samples{}), 0, nil)
	assert.Equal(t, 90.0, m.Score)
	assert.Equal(t, "A-", m.LetterGrade)
}

func TestScoreWithHistory(t *testing.T) {
	c := defaultComposer()
	r := perfect(metrics.Samples{OnTime: 3})
	assert.Equal(t, 95.0, c.Score(r, 0))
	assert.Equal(t, 97.0, c.Score(r, 1))
	assert.Equal(t, 99.0, c.Score(r, 2))
	assert.Equal(t, 100.0, c.Score(r, 3))
	assert.Equal(t, 100.0, c.Score(r, 52))
}

func TestScoreWeighting(t *testing.T) {
	c := defaultComposer()
	r := metrics.Rates{OnTime: 0.5, Notification: 6.0 / 7.0, Cleanup: 0, Estimation: 1, Samples: metrics.Samples{OnTime: 2, Notification: 1, Cleanup: 1}}
	// 0.175 + 0.2143 + 0 + 0.1 = 0.4893
	assert.Equal(t, 48.9, c.Score(r, 0))
	assert.Equal(t, "F", Grade(c.Score(r, 0)))
}

func TestScoreClamped(t *testing.T) {
	c := Composer{Weights: config.Weights{OnTime: 1}, PointsPerWeek: 50, MaxBonusPoints: 50}
	assert.Equal(t, 100.0, c.Score(perfect(metrics.Samples{OnTime: 1}), 4))
	assert.Equal(t, 0.0, c.Score(metrics.Rates{Samples: metrics.Samples{OnTime: 1}}, 0))
}

func TestStreakBonus(t *testing.T) {
	c := defaultComposer()
	assert.Equal(t, 0.0, c.StreakBonus(0))
	assert.Equal(t, 0.0, c.StreakBonus(-1))
	assert.InDelta(t, 0.02, c.StreakBonus(1), 1e-12)
	assert.InDelta(t, 0.05, c.StreakBonus(10), 1e-12)
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "A+"}, {97, "A+"}, {96.9, "A"}, {93, "A"}, {90, "A-"},
		{89.9, "B+"}, {87, "B+"}, {83, "B"}, {80, "B-"},
		{77, "C+"}, {73, "C"}, {70, "C-"},
		{67, "D+"}, {63, "D"}, {60, "D-"}, {59.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.score), "score %.1f", tt.score)
	}
}

func TestCoaching(t *testing.T) {
	low := domain.IntegrityMetrics{OnTimeRate: 0.9, NotificationTimeliness: 0.2, CleanupCompletionRate: 0.5, EstimationAccuracy: 1, Score: 60, LetterGrade: "D-"}
	msg := Coaching(low)
	assert.Contains(t, msg, "early warning")
	assert.Contains(t, msg, "20%")

	high := domain.IntegrityMetrics{OnTimeRate: 1, NotificationTimeliness: 1, CleanupCompletionRate: 1, EstimationAccuracy: 1, Score: 99, LetterGrade: "A+", CurrentStreakWeeks: 2}
	assert.Contains(t, Coaching(high), "2-week")
	assert.Contains(t, Coaching(high), "Keep it up")

	mid := domain.IntegrityMetrics{OnTimeRate: 0.8, NotificationTimeliness: 1, CleanupCompletionRate: 1, EstimationAccuracy: 1, Score: 88, LetterGrade: "B+"}
	assert.Contains(t, Coaching(mid), "on-time delivery")
}

func TestWeakestPrefersWeightOrderOnTies(t *testing.T) {
	c, v := Weakest(domain.IntegrityMetrics{OnTimeRate: 1, NotificationTimeliness: 0.5, CleanupCompletionRate: 0.5, EstimationAccuracy: 1})
	assert.Equal(t, domain.ComponentNotification, c)
	assert.Equal(t, 0.5, v)
}

func TestAffecting(t *testing.T) {
	now := time.Date(2025, 12, 18, 12, 0, 0, 0, time.UTC)
	at := func(days int) *time.Time {
		v := now.Add(-time.Duration(days) * 24 * time.Hour)
		return &v
	}
	late, onTime := false, true
	var cs []domain.Commitment
	for i := 1; i <= 6; i++ {
		cs = append(cs, domain.Commitment{ID: string(rune('a' + i)), Status: domain.CommitmentCompleted, CompletedAt: at(i), CompletedOnTime: &late})
	}
	cs = append(cs,
		domain.Commitment{ID: "on-time", Status: domain.CommitmentCompleted, CompletedAt: at(1), CompletedOnTime: &onTime},
		domain.Commitment{ID: "recovered", Status: domain.CommitmentCompleted, CompletedAt: at(1), CompletedOnTime: &onTime, AtRiskRecovered: true},
		domain.Commitment{ID: "old", Status: domain.CommitmentCompleted, CompletedAt: at(45), CompletedOnTime: &late},
		domain.Commitment{ID: "dropped", Status: domain.CommitmentAbandoned, AbandonedAt: at(0)},
	)

	got := Affecting(cs, now, 30, 5)
	require.Len(t, got, 5)
	assert.Equal(t, "dropped", got[0].ID)
	assert.Equal(t, ReasonAbandoned, got[0].Reason)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, ReasonCompletedLate, got[1].Reason)
	for _, a := range got {
		assert.NotContains(t, []string{"on-time", "recovered", "old"}, a.ID)
	}
}
