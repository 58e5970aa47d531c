package tracker

import (
	"time"

	"TokenRadar/internal/model"
)

// Sample is one fresh price observation for a tracked token.
type Sample struct {
	Price float64
	Value float64
}

// Outcome reports what one classification pass did to a token.
type Outcome struct {
	Changed    bool
	Categories []model.Category
	Frozen     []model.Category // simulations whose entry price locked this cycle
}

// Engine recomputes each token's derived state once per update cycle.
// Zero-value thresholds are replaced by NewEngine defaults.
type Engine struct {
	KeepThreshold float64
	HoldWindow    time.Duration
	NoDataGrace   time.Duration
	MaxAge        time.Duration

	DipRatio      float64 // fraction of peak that triggers the dip state
	RecoverRatio  float64 // fraction of peak that counts as recovering
	ViralMentions int
	BreakoutMin   int

	Now func() time.Time
}

// NewEngine creates an Engine with the historical thresholds.
func NewEngine(keepThreshold float64, holdWindow, noDataGrace, maxAge time.Duration) *Engine {
	return &Engine{
		KeepThreshold: keepThreshold,
		HoldWindow:    holdWindow,
		NoDataGrace:   noDataGrace,
		MaxAge:        maxAge,
		DipRatio:      0.75,
		RecoverRatio:  0.90,
		ViralMentions: 3,
		BreakoutMin:   2,
		Now:           time.Now,
	}
}

// Classify applies one price sample to a token: breakout detection against
// the prior peak, then the peak update, then dip, then recovery, in that
// order. It also advances per-category simulations and returns the cohorts
// the token belongs to this cycle.
func (e *Engine) Classify(t *model.TrackedToken, s Sample, settings model.Settings) Outcome {
	now := e.Now()
	var out Outcome
	t.Events = model.CycleEvents{}

	// Breakout is judged against the peak before this sample; only then
	// does the peak move. PeakValue never decreases.
	breaking := s.Value > t.PeakValue
	if breaking {
		t.PeakValue = s.Value
		t.Trend = model.TrendStable
		t.BreakoutCount++
		t.LastBreakout = now
		t.Events.Breakout = true
		out.Changed = true
	}

	if s.Value < t.PeakValue*e.DipRatio && t.Trend != model.TrendDipping {
		t.Trend = model.TrendDipping
		out.Changed = true
	}

	recovering := t.Trend == model.TrendDipping &&
		s.Value >= t.PeakValue*e.RecoverRatio &&
		s.Value < t.PeakValue
	if recovering {
		t.LastRecovery = now
		t.Events.Recovery = true
		out.Changed = true
	}

	delay := time.Duration(settings.DelayMinutes) * time.Minute

	if len(t.Mentions) >= e.ViralMentions {
		if e.advanceSimulation(t, model.CategoryViral, s, delay, now, &out) {
			out.Changed = true
		}
		out.Categories = append(out.Categories, model.CategoryViral)
	}

	if t.BreakoutCount >= e.BreakoutMin && (breaking || now.Sub(t.LastBreakout) < e.HoldWindow) {
		if e.advanceSimulation(t, model.CategoryBreakout, s, delay, now, &out) {
			out.Changed = true
		}
		out.Categories = append(out.Categories, model.CategoryBreakout)
	}

	if recovering {
		if e.advanceSimulation(t, model.CategoryRecovery, s, delay, now, &out) {
			out.Changed = true
		}
		out.Categories = append(out.Categories, model.CategoryRecovery)
	} else if now.Sub(t.LastRecovery) < e.HoldWindow && t.StatsFor(model.CategoryRecovery) != nil {
		// Hold-window membership only for tokens that formally entered
		// the recovery cohort at some point.
		if e.advanceSimulation(t, model.CategoryRecovery, s, delay, now, &out) {
			out.Changed = true
		}
		out.Categories = append(out.Categories, model.CategoryRecovery)
	}

	t.CurrentValue = s.Value
	t.CurrentPrice = s.Price
	t.LastUpdate = now
	t.LastPriceAt = now

	return out
}

// EvictReason explains why a token left the store.
type EvictReason string

const (
	EvictBelowKeep EvictReason = "below keep threshold"
	EvictNoData    EvictReason = "no price data"
	EvictMaxAge    EvictReason = "max retention age"
)

// Evict decides whether a token should be removed from the store entirely.
// sample is nil when the price lookup returned no match for the address.
func (e *Engine) Evict(t *model.TrackedToken, sample *Sample) (EvictReason, bool) {
	now := e.Now()
	if sample != nil && sample.Value < e.KeepThreshold {
		return EvictBelowKeep, true
	}
	if sample == nil && now.Sub(t.LastPriceAt) > e.NoDataGrace {
		return EvictNoData, true
	}
	if now.Sub(t.DetectedAt) > e.MaxAge {
		return EvictMaxAge, true
	}
	return "", false
}
