// Package metrics turns commitments, cleanup plans and task history into the
// four reliability rates and the on-time streak.
//
// Every function here is pure: it reads the slices it is given and never
// touches storage, so callers can run several computations over one
// snapshot concurrently. Each rate falls back to 1.0 when there is nothing
// to judge (clean slate).
package metrics

import (
	"math"
	"time"

	"commitline/internal/config"
	"commitline/internal/domain"
)

const cleanSlate = 1.0

type Params struct {
	NotificationHorizonDays int
	MinEstimationSamples    int
	HalfLifeDays            float64
	MaxAgeDays              int
	TrendThreshold          float64
}

func DefaultParams() Params {
	return ParamsFromConfig(config.Default())
}

func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		NotificationHorizonDays: cfg.Metrics.NotificationHorizonDays,
		MinEstimationSamples:    cfg.Metrics.Estimation.MinSamples,
		HalfLifeDays:            cfg.Metrics.Estimation.HalfLifeDays,
		MaxAgeDays:              cfg.Metrics.Estimation.MaxAgeDays,
		TrendThreshold:          cfg.Trend.Threshold,
	}
}

// Snapshot is a consistent read of everything the calculator needs.
type Snapshot struct {
	Commitments []domain.Commitment
	Plans       []domain.CleanupPlan
	History     []domain.TaskHistoryEntry
	TakenAt     time.Time
}

// Samples counts the observations behind each rate. Zero means the rate is
// the clean-slate default.
type Samples struct {
	OnTime       int `json:"on_time"`
	Notification int `json:"notification"`
	Cleanup      int `json:"cleanup"`
	Estimation   int `json:"estimation"`
}

// Empty reports whether every rate is running on its default.
func (s Samples) Empty() bool {
	return s.OnTime == 0 && s.Notification == 0 && s.Cleanup == 0 && s.Estimation == 0
}

type Rates struct {
	OnTime       float64 `json:"on_time_rate"`
	Notification float64 `json:"notification_timeliness"`
	Cleanup      float64 `json:"cleanup_completion_rate"`
	Estimation   float64 `json:"estimation_accuracy"`
	Samples      Samples `json:"samples"`
}

// Value returns the rate for one component.
func (r Rates) Value(c domain.Component) float64 {
	switch c {
	case domain.ComponentOnTime:
		return r.OnTime
	case domain.ComponentNotification:
		return r.Notification
	case domain.ComponentCleanup:
		return r.Cleanup
	case domain.ComponentEstimation:
		return r.Estimation
	}
	return 0
}

// IsOnTime reports whether a completed commitment earns on-time credit. A
// recovery from at-risk that still met the due date gets full credit.
func IsOnTime(c domain.Commitment) bool {
	if c.AtRiskRecovered {
		return true
	}
	return c.CompletedOnTime != nil && *c.CompletedOnTime
}

func completed(c domain.Commitment) bool {
	return c.Status == domain.CommitmentCompleted && c.CompletedOnTime != nil
}

// OnTimeRate is on-time completions over all completions.
func OnTimeRate(commitments []domain.Commitment) float64 {
	var total, onTime int
	for _, c := range commitments {
		if !completed(c) {
			continue
		}
		total++
		if IsOnTime(c) {
			onTime++
		}
	}
	if total == 0 {
		return cleanSlate
	}
	return float64(onTime) / float64(total)
}

// NotificationTimeliness averages how many days of warning each at-risk
// commitment gave, as a fraction of horizonDays. Marking on or after the due
// date scores zero.
func NotificationTimeliness(commitments []domain.Commitment, horizonDays int) float64 {
	if horizonDays <= 0 {
		horizonDays = 7
	}
	var sum float64
	var n int
	for _, c := range commitments {
		if c.MarkedAtRiskAt == nil {
			continue
		}
		days := daysBetween(*c.MarkedAtRiskAt, c.DueDate)
		sum += float64(clamp(days, 0, horizonDays)) / float64(horizonDays)
		n++
	}
	if n == 0 {
		return cleanSlate
	}
	return sum / float64(n)
}

// CleanupCompletionRate is completed plans over all plans.
func CleanupCompletionRate(plans []domain.CleanupPlan) float64 {
	if len(plans) == 0 {
		return cleanSlate
	}
	var done int
	for _, p := range plans {
		if p.Status == domain.PlanCompleted {
			done++
		}
	}
	return float64(done) / float64(len(plans))
}

// EstimationSample is one completed task with both an estimate and an
// actual-hours category.
type EstimationSample struct {
	TaskID      string
	Multiplier  float64
	CompletedAt time.Time
}

// EstimationSamples extracts qualifying completions from history, keeping the
// latest completion per task.
func EstimationSamples(history []domain.TaskHistoryEntry) []EstimationSample {
	latest := map[string]int{}
	var out []EstimationSample
	for _, h := range history {
		if h.EventType != domain.EventCompleted || h.EstimatedHours == nil || h.ActualHoursCategory == nil {
			continue
		}
		m, ok := h.ActualHoursCategory.Multiplier()
		if !ok {
			continue
		}
		s := EstimationSample{TaskID: h.TaskID, Multiplier: m, CompletedAt: h.CreatedAt}
		if i, seen := latest[h.TaskID]; seen {
			if s.CompletedAt.After(out[i].CompletedAt) {
				out[i] = s
			}
			continue
		}
		latest[h.TaskID] = len(out)
		out = append(out, s)
	}
	return out
}

// EstimationAccuracy is 1 minus the decay-weighted mean of |multiplier-1|
// over samples no older than MaxAgeDays, floored at 0. Fewer than
// MinEstimationSamples usable samples yields 1.0.
func EstimationAccuracy(samples []EstimationSample, now time.Time, p Params) float64 {
	acc, _ := estimationAccuracy(samples, now, p)
	return acc
}

func estimationAccuracy(samples []EstimationSample, now time.Time, p Params) (float64, int) {
	points := make([]Point, 0, len(samples))
	for _, s := range samples {
		points = append(points, Point{Value: math.Abs(s.Multiplier - 1.0), At: s.CompletedAt})
	}
	maxAge := time.Duration(p.MaxAgeDays) * 24 * time.Hour
	mean, n := DecayWeightedMean(points, now, p.HalfLifeDays, maxAge)
	if n == 0 || n < p.MinEstimationSamples {
		return cleanSlate, 0
	}
	return math.Max(0, 1-mean), n
}

// Calculator computes rates over a snapshot, optionally restricted to a window.
type Calculator struct {
	Params Params
}

func NewCalculator(p Params) Calculator {
	return Calculator{Params: p}
}

// Rates computes the four rates over the entities that fall in w. The zero
// Window covers all history, with estimation decay measured from s.TakenAt.
func (c Calculator) Rates(s Snapshot, w Window) Rates {
	var done, marked []domain.Commitment
	for _, cm := range s.Commitments {
		if completed(cm) && cm.CompletedAt != nil && w.Contains(*cm.CompletedAt) {
			done = append(done, cm)
		}
		if cm.MarkedAtRiskAt != nil && w.Contains(*cm.MarkedAtRiskAt) {
			marked = append(marked, cm)
		}
	}
	var plans []domain.CleanupPlan
	for _, p := range s.Plans {
		if w.Contains(p.CreatedAt) {
			plans = append(plans, p)
		}
	}
	var samples []EstimationSample
	for _, es := range EstimationSamples(s.History) {
		if w.Contains(es.CompletedAt) {
			samples = append(samples, es)
		}
	}
	now := s.TakenAt
	if !w.IsZero() {
		now = w.End
	}
	estimation, estimationN := estimationAccuracy(samples, now, c.Params)
	return Rates{
		OnTime:       OnTimeRate(done),
		Notification: NotificationTimeliness(marked, c.Params.NotificationHorizonDays),
		Cleanup:      CleanupCompletionRate(plans),
		Estimation:   estimation,
		Samples: Samples{
			OnTime:       len(done),
			Notification: len(marked),
			Cleanup:      len(plans),
			Estimation:   estimationN,
		},
	}
}

// daysBetween counts calendar days from the date of from to the date of to.
func daysBetween(from, to time.Time) int {
	f := from.UTC()
	d := to.UTC()
	start := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(end.Sub(start).Hours() / 24))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
