package score

import (
	"fmt"
	"sort"
	"time"

	"commitline/internal/domain"
	"commitline/internal/metrics"
)

const (
	ReasonCompletedLate = "completed_late"
	ReasonAbandoned     = "abandoned"
)

// AffectingCommitment is a recent commitment that pulled the score down.
type AffectingCommitment struct {
	ID          string    `json:"id"`
	Deliverable string    `json:"deliverable"`
	Stakeholder string    `json:"stakeholder"`
	DueDate     string    `json:"due_date"`
	Reason      string    `json:"reason"`
	At          time.Time `json:"at"`
}

// Report is the response for the assistant's reliability query.
type Report struct {
	Metrics     domain.IntegrityMetrics `json:"metrics"`
	Coaching    string                  `json:"coaching"`
	Affecting   []AffectingCommitment   `json:"affecting_commitments"`
	Samples     metrics.Samples         `json:"samples"`
	GeneratedAt time.Time               `json:"generated_at"`
}

var componentLabels = map[domain.Component]string{
	domain.ComponentOnTime:       "on-time delivery",
	domain.ComponentNotification: "early warning to stakeholders",
	domain.ComponentCleanup:      "finishing cleanup plans",
	domain.ComponentEstimation:   "estimating task effort",
}

var componentAdvice = map[domain.Component]string{
	domain.ComponentOnTime:       "Trim scope or renegotiate dates before they slip.",
	domain.ComponentNotification: "Mark commitments at risk as soon as you doubt the date.",
	domain.ComponentCleanup:      "Follow through on notifications before abandoning work.",
	domain.ComponentEstimation:   "Compare estimates with actual effort and adjust.",
}

// Weakest returns the lowest of the four rates, first in weight order on ties.
func Weakest(m domain.IntegrityMetrics) (domain.Component, float64) {
	values := map[domain.Component]float64{
		domain.ComponentOnTime:       m.OnTimeRate,
		domain.ComponentNotification: m.NotificationTimeliness,
		domain.ComponentCleanup:      m.CleanupCompletionRate,
		domain.ComponentEstimation:   m.EstimationAccuracy,
	}
	weakest := domain.Components[0]
	for _, c := range domain.Components[1:] {
		if values[c] < values[weakest] {
			weakest = c
		}
	}
	return weakest, values[weakest]
}

// Coaching returns guidance keyed off the grade band: a callout of the
// weakest rate below B, reinforcement at A or above, a nudge in between.
func Coaching(m domain.IntegrityMetrics) string {
	switch {
	case m.Score < 83:
		c, v := Weakest(m)
		return fmt.Sprintf("Your %s is the weakest area at %.0f%%. %s", componentLabels[c], v*100, componentAdvice[c])
	case m.Score >= 93:
		if m.CurrentStreakWeeks > 0 {
			return fmt.Sprintf("Excellent reliability: %s with a %d-week on-time streak. Keep it up.", m.LetterGrade, m.CurrentStreakWeeks)
		}
		return fmt.Sprintf("Excellent reliability at %s. Keep it up.", m.LetterGrade)
	default:
		c, _ := Weakest(m)
		return fmt.Sprintf("Solid at %s. Improving %s is the quickest way up.", m.LetterGrade, componentLabels[c])
	}
}

// Affecting lists late completions and abandonments from the trailing window,
// newest first, at most limit entries.
func Affecting(commitments []domain.Commitment, now time.Time, windowDays, limit int) []AffectingCommitment {
	cutoff := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	var out []AffectingCommitment
	for _, c := range commitments {
		var at *time.Time
		var reason string
		switch {
		case c.Status == domain.CommitmentCompleted && c.CompletedAt != nil && !metrics.IsOnTime(c):
			at, reason = c.CompletedAt, ReasonCompletedLate
		case c.Status == domain.CommitmentAbandoned && c.AbandonedAt != nil:
			at, reason = c.AbandonedAt, ReasonAbandoned
		default:
			continue
		}
		if at.Before(cutoff) || at.After(now) {
			continue
		}
		out = append(out, AffectingCommitment{
			ID:          c.ID,
			Deliverable: c.Deliverable,
			Stakeholder: c.StakeholderName,
			DueDate:     c.DueDate.Format("2006-01-02"),
			Reason:      reason,
			At:          *at,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
