package metrics

import (
	"sort"
	"time"

	"commitline/internal/domain"
)

type isoWeek struct {
	year, week int
}

func weekOf(t time.Time) isoWeek {
	y, w := t.UTC().ISOWeek()
	return isoWeek{y, w}
}

func (w isoWeek) before(o isoWeek) bool {
	if w.year != o.year {
		return w.year < o.year
	}
	return w.week < o.week
}

// CurrentStreakWeeks counts consecutive active ISO weeks, newest first, in
// which every completion was on time. A late completion, an abandonment or a
// skipped cleanup plan ends the streak in the week it happened. Weeks with no
// activity are not counted and do not break the run, but the newest active
// week must be now's week or the one before it, otherwise there is no
// current streak.
func CurrentStreakWeeks(commitments []domain.Commitment, plans []domain.CleanupPlan, now time.Time) int {
	broken := map[isoWeek]bool{}
	for _, c := range commitments {
		switch {
		case completed(c) && c.CompletedAt != nil:
			wk := weekOf(*c.CompletedAt)
			if !IsOnTime(c) {
				broken[wk] = true
			} else if _, ok := broken[wk]; !ok {
				broken[wk] = false
			}
		case c.Status == domain.CommitmentAbandoned && c.AbandonedAt != nil:
			broken[weekOf(*c.AbandonedAt)] = true
		}
	}
	for _, p := range plans {
		if p.Status == domain.PlanSkipped && p.SkippedAt != nil {
			broken[weekOf(*p.SkippedAt)] = true
		}
	}
	weeks := make([]isoWeek, 0, len(broken))
	for w := range broken {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[j].before(weeks[i]) })
	if len(weeks) == 0 || weeks[0].before(weekOf(now.AddDate(0, 0, -7))) {
		return 0
	}
	streak := 0
	for _, w := range weeks {
		if broken[w] {
			break
		}
		streak++
	}
	return streak
}
