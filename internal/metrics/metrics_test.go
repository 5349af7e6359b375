package metrics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commitline/internal/domain"
)

var now = time.Date(2025, 12, 18, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func done(at time.Time, onTime bool) domain.Commitment {
	return domain.Commitment{
		Status:          domain.CommitmentCompleted,
		CompletedAt:     ptr(at),
		CompletedOnTime: ptr(onTime),
		DueDate:         date(2025, 12, 20),
	}
}

func TestCleanSlateDefaults(t *testing.T) {
	assert.Equal(t, 1.0, OnTimeRate(nil))
	assert.Equal(t, 1.0, NotificationTimeliness(nil, 7))
	assert.Equal(t, 1.0, CleanupCompletionRate(nil))
	assert.Equal(t, 1.0, EstimationAccuracy(nil, now, DefaultParams()))
	assert.Equal(t, 0, CurrentStreakWeeks(nil, nil, now))

	r := NewCalculator(DefaultParams()).Rates(Snapshot{TakenAt: now}, Window{})
	assert.True(t, r.Samples.Empty())
	assert.Equal(t, Rates{OnTime: 1, Notification: 1, Cleanup: 1, Estimation: 1}, r)
}

func TestOnTimeRate(t *testing.T) {
	open := domain.Commitment{Status: domain.CommitmentInProgress}
	abandoned := domain.Commitment{Status: domain.CommitmentAbandoned, AbandonedAt: ptr(now)}
	cs := []domain.Commitment{done(now, true), done(now, false), done(now, true), open, abandoned}
	assert.InDelta(t, 2.0/3.0, OnTimeRate(cs), 1e-9)
}

func TestOnTimeRateCreditsTimelyRecovery(t *testing.T) {
	recovered := done(now, true)
	recovered.MarkedAtRiskAt = ptr(now.Add(-72 * time.Hour))
	recovered.AtRiskRecovered = true

	late := done(now, false)
	late.MarkedAtRiskAt = ptr(now.Add(-72 * time.Hour))

	assert.Equal(t, 1.0, OnTimeRate([]domain.Commitment{recovered}))
	assert.Equal(t, 0.0, OnTimeRate([]domain.Commitment{late}))
	assert.Equal(t, 0.5, OnTimeRate([]domain.Commitment{recovered, late}))
}

func TestNotificationTimeliness(t *testing.T) {
	mark := func(due, marked time.Time) domain.Commitment {
		return domain.Commitment{DueDate: due, MarkedAtRiskAt: ptr(marked)}
	}
	tests := []struct {
		name string
		cs   []domain.Commitment
		want float64
	}{
		{"six days early", []domain.Commitment{mark(date(2025, 12, 20), time.Date(2025, 12, 14, 17, 30, 0, 0, time.UTC))}, 6.0 / 7.0},
		{"capped at seven", []domain.Commitment{mark(date(2025, 12, 20), date(2025, 11, 1))}, 1},
		{"on due date", []domain.Commitment{mark(date(2025, 12, 20), date(2025, 12, 20))}, 0},
		{"after due date", []domain.Commitment{mark(date(2025, 12, 20), date(2025, 12, 23))}, 0},
		{"average", []domain.Commitment{
			mark(date(2025, 12, 20), date(2025, 12, 13)),
			mark(date(2025, 12, 20), date(2025, 12, 21)),
		}, 0.5},
		{"unmarked ignored", []domain.Commitment{{DueDate: date(2025, 12, 20)}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NotificationTimeliness(tt.cs, 7), 1e-9)
		})
	}
}

func TestCleanupCompletionRate(t *testing.T) {
	plans := []domain.CleanupPlan{
		{Status: domain.PlanCompleted},
		{Status: domain.PlanSkipped},
		{Status: domain.PlanCancelled},
		{Status: domain.PlanCompleted},
	}
	assert.Equal(t, 0.5, CleanupCompletionRate(plans))
}

func history(taskID string, at time.Time, estimate *float64, cat *domain.HoursCategory) domain.TaskHistoryEntry {
	return domain.TaskHistoryEntry{
		TaskID:              taskID,
		EventType:           domain.EventCompleted,
		NewStatus:           domain.TaskCompleted,
		EstimatedHours:      estimate,
		ActualHoursCategory: cat,
		CreatedAt:           at,
	}
}

func TestEstimationAccuracyNeedsMinimumSamples(t *testing.T) {
	samples := EstimationSamples([]domain.TaskHistoryEntry{
		history("t-1", now, ptr(4.0), ptr(domain.HoursLonger)),
	})
	require.Len(t, samples, 1)
	assert.InDelta(t, 0.325, math.Abs(samples[0].Multiplier-1), 1e-9)
	assert.Equal(t, 1.0, EstimationAccuracy(samples, now, DefaultParams()))
}

func TestEstimationSamplesFiltersUnqualified(t *testing.T) {
	entries := []domain.TaskHistoryEntry{
		history("no-estimate", now, nil, ptr(domain.HoursLonger)),
		history("no-category", now, ptr(2.0), nil),
		history("bad-category", now, ptr(2.0), ptr(domain.HoursCategory("sideways"))),
		{TaskID: "started", EventType: domain.EventStarted, EstimatedHours: ptr(2.0), ActualHoursCategory: ptr(domain.HoursLonger), CreatedAt: now},
		history("dup", now.Add(-time.Hour), ptr(2.0), ptr(domain.HoursMuchLonger)),
		history("dup", now, ptr(2.0), ptr(domain.HoursOnTarget)),
	}
	samples := EstimationSamples(entries)
	require.Len(t, samples, 1)
	assert.Equal(t, "dup", samples[0].TaskID)
	assert.Equal(t, 1.0, samples[0].Multiplier)
}

func TestEstimationAccuracyUniformVariance(t *testing.T) {
	var samples []EstimationSample
	for i := 0; i < 5; i++ {
		samples = append(samples, EstimationSample{Multiplier: 1.325, CompletedAt: now.Add(-time.Duration(i) * 24 * time.Hour)})
	}
	// Identical variances average to themselves regardless of weights.
	assert.InDelta(t, 0.675, EstimationAccuracy(samples, now, DefaultParams()), 1e-9)
}

func TestEstimationAccuracyWeightsRecentSamples(t *testing.T) {
	samples := []EstimationSample{
		{Multiplier: 1.0, CompletedAt: now},
		{Multiplier: 1.0, CompletedAt: now},
		{Multiplier: 1.0, CompletedAt: now},
		{Multiplier: 1.0, CompletedAt: now},
		{Multiplier: 2.0, CompletedAt: now.Add(-7 * 24 * time.Hour)},
	}
	// Four fresh perfect samples (weight 1) and one week-old miss (weight 0.5).
	want := 1 - (0.5*1.0)/4.5
	assert.InDelta(t, want, EstimationAccuracy(samples, now, DefaultParams()), 1e-9)
}

func TestEstimationAccuracyExcludesOldSamples(t *testing.T) {
	var samples []EstimationSample
	for i := 0; i < 4; i++ {
		samples = append(samples, EstimationSample{Multiplier: 2.0, CompletedAt: now})
	}
	samples = append(samples, EstimationSample{Multiplier: 2.0, CompletedAt: now.Add(-91 * 24 * time.Hour)})
	// Only four samples remain inside 90 days, below the minimum.
	assert.Equal(t, 1.0, EstimationAccuracy(samples, now, DefaultParams()))

	samples = append(samples, EstimationSample{Multiplier: 2.0, CompletedAt: now})
	assert.Equal(t, 0.0, EstimationAccuracy(samples, now, DefaultParams()))
}

func TestDecayWeight(t *testing.T) {
	day := 24 * time.Hour
	assert.Equal(t, 1.0, DecayWeight(0, 7))
	assert.Equal(t, 1.0, DecayWeight(-day, 7))
	assert.InDelta(t, 0.5, DecayWeight(7*day, 7), 1e-12)
	assert.InDelta(t, 0.25, DecayWeight(14*day, 7), 1e-12)
	assert.InDelta(t, math.Pow(0.5, 3.0/7.0), DecayWeight(3*day, 7), 1e-12)
}

func TestDecayWeightedMean(t *testing.T) {
	points := []Point{
		{Value: 1, At: now},
		{Value: 0, At: now.Add(-7 * 24 * time.Hour)},
		{Value: 10, At: now.Add(time.Hour)},
	}
	mean, n := DecayWeightedMean(points, now, 7, 90*24*time.Hour)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 1/1.5, mean, 1e-12)

	mean, n = DecayWeightedMean(nil, now, 7, 0)
	assert.Zero(t, mean)
	assert.Zero(t, n)
}

// Mondays of consecutive ISO weeks in December 2025.
var (
	week1 = date(2025, 12, 1)
	week2 = date(2025, 12, 8)
	week3 = date(2025, 12, 15)
)

func TestCurrentStreakWeeks(t *testing.T) {
	cs := []domain.Commitment{
		done(week1.Add(time.Hour), true),
		done(week2.Add(time.Hour), true),
		done(week2.Add(48*time.Hour), true),
		done(week3.Add(time.Hour), true),
	}
	assert.Equal(t, 3, CurrentStreakWeeks(cs, nil, now))

	// A late completion in an older week caps the run at the newer weeks.
	cs[0] = done(week1.Add(time.Hour), false)
	assert.Equal(t, 2, CurrentStreakWeeks(cs, nil, now))
}

func TestCurrentStreakStopsOnAbandonmentAndSkippedCleanup(t *testing.T) {
	cs := []domain.Commitment{
		done(week1.Add(time.Hour), true),
		done(week2.Add(time.Hour), true),
		done(week3.Add(time.Hour), true),
		{Status: domain.CommitmentAbandoned, AbandonedAt: ptr(week2.Add(72 * time.Hour))},
	}
	assert.Equal(t, 1, CurrentStreakWeeks(cs, nil, now))

	plans := []domain.CleanupPlan{{Status: domain.PlanSkipped, SkippedAt: ptr(week3.Add(2 * time.Hour))}}
	assert.Equal(t, 0, CurrentStreakWeeks(cs[:3], plans, now))
}

func TestCurrentStreakDropsWhenLatestWeekGoesLate(t *testing.T) {
	cs := []domain.Commitment{
		done(week1.Add(time.Hour), true),
		done(week2.Add(time.Hour), true),
		done(week3.Add(time.Hour), true),
	}
	before := CurrentStreakWeeks(cs, nil, now)
	cs = append(cs, done(week3.Add(30*time.Hour), false))
	after := CurrentStreakWeeks(cs, nil, now)
	assert.Equal(t, 3, before)
	assert.Equal(t, 0, after)
	assert.LessOrEqual(t, after, before)
}

func TestCurrentStreakSpansISOYearBoundary(t *testing.T) {
	cs := []domain.Commitment{
		done(date(2025, 12, 22), true),
		done(date(2025, 12, 29), true), // ISO week 1 of 2026
		done(date(2026, 1, 5), true),
	}
	assert.Equal(t, 3, CurrentStreakWeeks(cs, nil, date(2026, 1, 7)))
}

func TestCurrentStreakNeedsRecentActivity(t *testing.T) {
	cs := []domain.Commitment{done(date(2024, 12, 10), true)}
	assert.Equal(t, 0, CurrentStreakWeeks(cs, nil, now))

	// An idle current week keeps last week's run alive.
	cs = []domain.Commitment{done(week1.Add(time.Hour), true), done(week2.Add(time.Hour), true)}
	assert.Equal(t, 2, CurrentStreakWeeks(cs, nil, week3.Add(time.Hour)))
	assert.Equal(t, 0, CurrentStreakWeeks(cs, nil, week3.AddDate(0, 0, 8)))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, domain.TrendUp, Compare(0.9, 0.8, 0.05))
	assert.Equal(t, domain.TrendDown, Compare(0.7, 0.8, 0.05))
	assert.Equal(t, domain.TrendStable, Compare(0.82, 0.8, 0.05))
	assert.Equal(t, domain.TrendStable, Compare(0.83, 0.8, 0.05))
	assert.Equal(t, domain.TrendUp, Compare(0.5, 0, 0.05))
	assert.Equal(t, domain.TrendStable, Compare(0, 0, 0.05))
}

func TestWindowContains(t *testing.T) {
	current, previous := Trailing(now, 30)
	assert.True(t, current.Contains(now))
	assert.False(t, current.Contains(now.Add(time.Second)))
	assert.False(t, current.Contains(current.Start))
	assert.True(t, previous.Contains(current.Start))
	assert.True(t, Window{}.Contains(time.Time{}))
}

func TestRatesRespectWindow(t *testing.T) {
	s := Snapshot{
		TakenAt: now,
		Commitments: []domain.Commitment{
			done(now.Add(-5*24*time.Hour), false),
			done(now.Add(-40*24*time.Hour), true),
		},
		Plans: []domain.CleanupPlan{
			{Status: domain.PlanSkipped, CreatedAt: now.Add(-2 * 24 * time.Hour)},
		},
	}
	current, previous := Trailing(now, 30)
	calc := NewCalculator(DefaultParams())

	cur := calc.Rates(s, current)
	assert.Equal(t, 0.0, cur.OnTime)
	assert.Equal(t, 0.0, cur.Cleanup)
	assert.Equal(t, 1, cur.Samples.OnTime)

	prev := calc.Rates(s, previous)
	assert.Equal(t, 1.0, prev.OnTime)
	assert.Equal(t, 1.0, prev.Cleanup)
	assert.Equal(t, 0, prev.Samples.Cleanup)

	all := calc.Rates(s, Window{})
	assert.Equal(t, 0.5, all.OnTime)
}

func TestTrends(t *testing.T) {
	s := Snapshot{
		TakenAt: now,
		Commitments: []domain.Commitment{
			done(now.Add(-5*24*time.Hour), true),
			done(now.Add(-40*24*time.Hour), false),
			done(now.Add(-41*24*time.Hour), true),
		},
	}
	cmp, err := NewCalculator(DefaultParams()).Trends(context.Background(), s, 30)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cmp.Current.OnTime)
	assert.Equal(t, 0.5, cmp.Previous.OnTime)
	assert.Equal(t, domain.TrendUp, cmp.Trends[domain.ComponentOnTime])
	assert.Equal(t, domain.TrendStable, cmp.Trends[domain.ComponentCleanup])
	assert.Len(t, cmp.Trends, 4)
}

func TestTrendsHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCalculator(DefaultParams()).Trends(ctx, Snapshot{TakenAt: now}, 30)
	assert.ErrorIs(t, err, context.Canceled)
}
