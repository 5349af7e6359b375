package engine

import (
	"context"
	"fmt"

	"commitline/internal/domain"
	"commitline/internal/metrics"
	"commitline/internal/repo"
	"commitline/internal/score"
)

// Snapshot reads commitments, plans and history in one transaction so the
// metrics never mix state from before and after a concurrent mutation.
func (e Engine) Snapshot(ctx context.Context) (metrics.Snapshot, error) {
	s := metrics.Snapshot{TakenAt: e.now()}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()

	if s.Commitments, err = e.Repo.ListCommitments(ctx, tx, repo.CommitmentFilters{}); err != nil {
		return s, fmt.Errorf("load commitments: %w", err)
	}
	if s.Plans, err = e.Repo.ListPlans(ctx, tx); err != nil {
		return s, fmt.Errorf("load cleanup plans: %w", err)
	}
	// Estimation decays from the end of the older trend window, so history
	// must reach that far back plus the sample age limit.
	days := e.Config.Metrics.Estimation.MaxAgeDays + 2*e.Config.Trend.WindowDays
	if s.History, err = e.History.Since(ctx, tx, days); err != nil {
		return s, fmt.Errorf("load task history: %w", err)
	}
	return s, tx.Commit()
}

type evaluation struct {
	snapshot metrics.Snapshot
	rates    metrics.Rates
	metrics  domain.IntegrityMetrics
}

func (e Engine) evaluate(ctx context.Context) (evaluation, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return evaluation{}, err
	}
	calc := metrics.NewCalculator(metrics.ParamsFromConfig(e.Config))
	rates := calc.Rates(snap, metrics.Window{})
	cmp, err := calc.Trends(ctx, snap, e.Config.Trend.WindowDays)
	if err != nil {
		return evaluation{}, err
	}
	streak := metrics.CurrentStreakWeeks(snap.Commitments, snap.Plans, snap.TakenAt)
	m := score.NewComposer(e.Config).Build(rates, streak, cmp.Trends)
	e.Log.Debug().Float64("score", m.Score).Str("grade", m.LetterGrade).Int("streak", streak).Msg("integrity computed")
	return evaluation{snapshot: snap, rates: rates, metrics: m}, nil
}

// Integrity computes the current reliability metrics from persisted state.
func (e Engine) Integrity(ctx context.Context) (domain.IntegrityMetrics, error) {
	ev, err := e.evaluate(ctx)
	return ev.metrics, err
}

// Report is Integrity plus coaching text and the commitments dragging the
// score down.
func (e Engine) Report(ctx context.Context) (score.Report, error) {
	ev, err := e.evaluate(ctx)
	if err != nil {
		return score.Report{}, err
	}
	return score.Report{
		Metrics:     ev.metrics,
		Coaching:    score.Coaching(ev.metrics),
		Affecting:   score.Affecting(ev.snapshot.Commitments, ev.snapshot.TakenAt, e.Config.Report.AffectingWindowDays, e.Config.Report.AffectingLimit),
		Samples:     ev.rates.Samples,
		GeneratedAt: ev.snapshot.TakenAt,
	}, nil
}
