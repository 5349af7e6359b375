// Package score folds the four reliability rates and the streak into a
// single 0-100 integrity score with a letter grade.
package score

import (
	"math"

	"commitline/internal/config"
	"commitline/internal/domain"
	"commitline/internal/metrics"
)

// Composer holds the weights and bonus rules for the composite score.
type Composer struct {
	Weights           config.Weights
	PointsPerWeek     float64
	MaxBonusPoints    float64
	CleanSlateCeiling float64
}

func NewComposer(cfg *config.Config) Composer {
	return Composer{
		Weights:           cfg.Scoring.Weights,
		PointsPerWeek:     cfg.Scoring.Streak.PointsPerWeek,
		MaxBonusPoints:    cfg.Scoring.Streak.MaxBonusPoints,
		CleanSlateCeiling: cfg.Scoring.CleanSlateCeiling,
	}
}

// StreakBonus is the bonus fraction earned by a streak, capped at
// MaxBonusPoints.
func (c Composer) StreakBonus(streakWeeks int) float64 {
	if streakWeeks <= 0 {
		return 0
	}
	return math.Min(float64(streakWeeks)*c.PointsPerWeek, c.MaxBonusPoints) / 100
}

// Score combines the rates and streak into a value within [0,100], rounded
// to one decimal. With no samples behind any rate the result is capped at
// CleanSlateCeiling.
func (c Composer) Score(r metrics.Rates, streakWeeks int) float64 {
	w := c.Weights
	raw := (r.OnTime*w.OnTime +
		r.Notification*w.Notification +
		r.Cleanup*w.Cleanup +
		r.Estimation*w.Estimation +
		c.StreakBonus(streakWeeks)) * 100
	s := math.Max(0, math.Min(100, raw))
	if r.Samples.Empty() && c.CleanSlateCeiling > 0 {
		s = math.Min(s, c.CleanSlateCeiling)
	}
	return math.Round(s*10) / 10
}

var grades = []struct {
	min   float64
	grade string
}{
	{97, "A+"}, {93, "A"}, {90, "A-"},
	{87, "B+"}, {83, "B"}, {80, "B-"},
	{77, "C+"}, {73, "C"}, {70, "C-"},
	{67, "D+"}, {63, "D"}, {60, "D-"},
}

// Grade maps a score onto its letter grade.
func Grade(score float64) string {
	for _, g := range grades {
		if score >= g.min {
			return g.grade
		}
	}
	return "F"
}

// Build assembles the metrics value object. trends may be nil.
func (c Composer) Build(r metrics.Rates, streakWeeks int, trends map[domain.Component]domain.Trend) domain.IntegrityMetrics {
	s := c.Score(r, streakWeeks)
	return domain.IntegrityMetrics{
		OnTimeRate:             r.OnTime,
		NotificationTimeliness: r.Notification,
		CleanupCompletionRate:  r.Cleanup,
		EstimationAccuracy:     r.Estimation,
		CurrentStreakWeeks:     streakWeeks,
		Score:                  s,
		LetterGrade:            Grade(s),
		Trends:                 trends,
	}
}
