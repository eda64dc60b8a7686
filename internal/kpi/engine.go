// Package kpi implements the weighted KPI accounting rules.
package kpi

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"

	"github.com/verte-zerg/kpicalc/internal/model"
)

// Apply sets category c to newCount and updates the aggregates.
//
// Increases subtract the point delta from Needed directly; decreases
// recompute Needed from the target minus Value. The two paths diverge once
// either aggregate has been clamped and both are kept as-is.
//
// Counts above model.MaxCount are rejected with model.ErrCountTooLarge.
// The returned bool reports whether anything changed.
func Apply(t *model.Tally, c model.Category, newCount int) (bool, error) {
	info, ok := model.Lookup(c)
	if !ok {
		return false, goerr.Wrap(model.ErrUnknownCategory, "failed to apply count", goerr.V("category", string(c)))
	}
	if newCount > model.MaxCount {
		return false, goerr.Wrap(model.ErrCountTooLarge, "failed to apply count",
			goerr.V("category", string(c)), goerr.V("count", newCount), goerr.V("max", model.MaxCount))
	}
	if t.Counters == nil {
		t.Counters = model.DefaultCounters()
	}

	clamped := max(0, newCount)
	delta := clamped - t.Counters[c]
	if delta == 0 {
		return false, nil
	}
	pointDelta := delta * info.Weight

	if delta > 0 {
		t.Value += pointDelta
		t.Needed = max(0, t.Needed-pointDelta)
	} else {
		t.Value = max(0, t.Value+pointDelta)
		t.Needed = min(model.TargetPoints, max(0, model.TargetPoints-t.Value))
	}
	t.Counters[c] = clamped
	return true, nil
}

// Step moves category c by delta (typically +1 or -1).
func Step(t *model.Tally, c model.Category, delta int) (bool, error) {
	current := 0
	if t.Counters != nil {
		current = t.Counters[c]
	}
	return Apply(t, c, current+delta)
}

// Reset zeroes every count and restores the aggregates to their start values.
func Reset(t *model.Tally) {
	*t = model.NewTally()
}

// Points returns the weight-multiplied points of every category.
func Points(counters model.Counters) map[model.Category]int {
	points := make(map[model.Category]int, len(model.Catalog))
	for _, info := range model.Catalog {
		points[info.Key] = counters[info.Key] * info.Weight
	}
	return points
}

// Status is the derived display state of a tally.
type Status struct {
	Percent    float64
	Exceeded   bool
	ExceededBy int
	Needed     int
	Value      int
}

// Progress derives the display state from t.
func Progress(t model.Tally) Status {
	pct := float64(t.Value) / float64(model.TargetPoints) * 100
	if pct > 100 {
		pct = 100
	}
	s := Status{
		Percent: pct,
		Needed:  t.Needed,
		Value:   t.Value,
	}
	if t.Value >= model.TargetPoints {
		s.Exceeded = true
		s.ExceededBy = t.Value - model.TargetPoints
	}
	return s
}

// Label returns the needed/exceeded line shown under the counters.
func (s Status) Label() string {
	if s.Exceeded {
		return fmt.Sprintf("Exceeded by: %d", s.ExceededBy)
	}
	return fmt.Sprintf("KPI needed: %d", s.Needed)
}

// RGB returns the progress bar colour: red to yellow up to 50%, then
// yellow to green.
func (s Status) RGB() (r, g, b int) {
	p := s.Percent
	if p <= 50 {
		return 255, int(p * 5.1), 0
	}
	return 255 - int((p-50)*5.1), 255, 0
}
