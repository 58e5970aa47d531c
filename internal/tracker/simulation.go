package tracker

import (
	"math"
	"time"

	"TokenRadar/internal/model"
)

// advanceSimulation creates the category's stats record on first
// membership and freezes the entry price once the configured delay has
// elapsed. The freeze is one-way: once FixedPrice is set it never changes.
// Returns true if the token's persisted state changed.
func (e *Engine) advanceSimulation(t *model.TrackedToken, cat model.Category, s Sample, delay time.Duration, now time.Time, out *Outcome) bool {
	if t.Stats == nil {
		t.Stats = make(map[model.Category]*model.SimStats)
	}
	stats, ok := t.Stats[cat]
	if !ok {
		t.Stats[cat] = &model.SimStats{
			EntryTime:  now,
			EntryPrice: s.Price,
			EntryValue: s.Value,
		}
		return true
	}

	if stats.Frozen() {
		return false
	}
	if now.Sub(stats.EntryTime) >= delay {
		price, value, at := s.Price, s.Value, now
		stats.FixedPrice = &price
		stats.FixedValue = &value
		stats.FixedTime = &at
		out.Frozen = append(out.Frozen, cat)
		return true
	}
	return false
}

// SimView is the display state of one category simulation.
type SimView struct {
	Waiting     bool
	SecondsLeft int
	Portfolio   float64
	ProfitPct   float64
}

// SimulationView computes the displayed simulation outcome for a token in
// one category. ok is false when the token never entered the category.
func SimulationView(t *model.TrackedToken, cat model.Category, settings model.Settings, now time.Time) (SimView, bool) {
	stats := t.StatsFor(cat)
	if stats == nil {
		return SimView{}, false
	}

	if !stats.Frozen() {
		delay := time.Duration(settings.DelayMinutes) * time.Minute
		left := int(math.Ceil(float64(delay-now.Sub(stats.EntryTime)) / float64(time.Second)))
		if left < 0 {
			left = 0
		}
		return SimView{Waiting: true, SecondsLeft: left}, true
	}

	portfolio := (t.CurrentPrice / *stats.FixedPrice) * settings.InvestAmount
	profit := (portfolio - settings.InvestAmount) / settings.InvestAmount * 100
	return SimView{Portfolio: portfolio, ProfitPct: profit}, true
}
