package metrics

import (
	"math"
	"time"
)

// Point is a value observed at a point in time.
type Point struct {
	Value float64
	At    time.Time
}

// DecayWeight halves every halfLifeDays of age. Negative ages weigh 1.
func DecayWeight(age time.Duration, halfLifeDays float64) float64 {
	if age <= 0 || halfLifeDays <= 0 {
		return 1
	}
	days := age.Hours() / 24
	return math.Pow(0.5, days/halfLifeDays)
}

// DecayWeightedMean averages points weighted by DecayWeight relative to now.
// Points after now or older than maxAge are skipped; n is the number used.
func DecayWeightedMean(points []Point, now time.Time, halfLifeDays float64, maxAge time.Duration) (mean float64, n int) {
	var sum, weights float64
	for _, p := range points {
		age := now.Sub(p.At)
		if age < 0 || (maxAge > 0 && age > maxAge) {
			continue
		}
		w := DecayWeight(age, halfLifeDays)
		sum += w * p.Value
		weights += w
		n++
	}
	if n == 0 || weights == 0 {
		return 0, 0
	}
	return sum / weights, n
}
