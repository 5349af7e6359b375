package metrics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"commitline/internal/domain"
)

// Window is the half-open interval (Start, End]. The zero Window contains
// every instant.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

func (w Window) Contains(t time.Time) bool {
	if w.IsZero() {
		return true
	}
	return t.After(w.Start) && !t.After(w.End)
}

// Trailing returns the last days ending at now and the equally long window
// immediately before it.
func Trailing(now time.Time, days int) (current, previous Window) {
	span := time.Duration(days) * 24 * time.Hour
	current = Window{Start: now.Add(-span), End: now}
	previous = Window{Start: now.Add(-2 * span), End: now.Add(-span)}
	return current, previous
}

// Compare classifies the relative change from previous to current.
func Compare(current, previous, threshold float64) domain.Trend {
	if previous == 0 {
		if current > 0 {
			return domain.TrendUp
		}
		return domain.TrendStable
	}
	diff := (current - previous) / previous
	switch {
	case diff > threshold:
		return domain.TrendUp
	case diff < -threshold:
		return domain.TrendDown
	default:
		return domain.TrendStable
	}
}

// Comparison holds the two windows' rates and the per-component direction.
type Comparison struct {
	Current  Rates                             `json:"current"`
	Previous Rates                             `json:"previous"`
	Trends   map[domain.Component]domain.Trend `json:"trends"`
}

// Trends computes the trailing and preceding windows concurrently over the
// same snapshot and compares them component by component.
func (c Calculator) Trends(ctx context.Context, s Snapshot, days int) (Comparison, error) {
	current, previous := Trailing(s.TakenAt, days)
	var cmp Comparison
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		cmp.Current = c.Rates(s, current)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		cmp.Previous = c.Rates(s, previous)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}
	cmp.Trends = make(map[domain.Component]domain.Trend, len(domain.Components))
	for _, comp := range domain.Components {
		cmp.Trends[comp] = Compare(cmp.Current.Value(comp), cmp.Previous.Value(comp), c.Params.TrendThreshold)
	}
	return cmp, nil
}
