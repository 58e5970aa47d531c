package model

import "time"

// Category is a display cohort a tracked token can belong to.
type Category string

const (
	CategoryViral    Category = "viral"
	CategoryBreakout Category = "breakout"
	CategoryRecovery Category = "recovery"
)

// Categories lists all live-panel categories in render order.
var Categories = []Category{CategoryViral, CategoryBreakout, CategoryRecovery}

// TrendState is the persistent per-token valuation state.
type TrendState string

const (
	TrendStable  TrendState = "STABLE"
	TrendDipping TrendState = "DIPPING"
)

// Mention records one channel calling a token. Unique per channel.
type Mention struct {
	Channel string    `json:"channel"`
	Link    string    `json:"link,omitempty"`
	Time    time.Time `json:"time"`
}

// SimStats anchors a paper-trade simulation to the moment a token first
// entered a category. The Fixed* fields are set exactly once, after the
// configured delay has elapsed, and never change again.
type SimStats struct {
	EntryTime  time.Time  `json:"entry_time"`
	EntryPrice float64    `json:"entry_price"`
	EntryValue float64    `json:"entry_value"`
	FixedPrice *float64   `json:"fixed_price,omitempty"`
	FixedTime  *time.Time `json:"fixed_time,omitempty"`
	FixedValue *float64   `json:"fixed_value,omitempty"`
}

// Frozen reports whether the simulation entry price has been locked in.
func (s *SimStats) Frozen() bool { return s != nil && s.FixedPrice != nil }

// CycleEvents holds one-shot events observed during the current update
// cycle. Not persisted; reset every cycle.
type CycleEvents struct {
	Breakout bool `json:"-"`
	Recovery bool `json:"-"`
}

// TrackedToken is one monitored address with its accumulated mention and
// valuation history.
type TrackedToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	RefURL  string `json:"ref_url,omitempty"`

	EntryValue   float64 `json:"entry_fdv"`
	EntryPrice   float64 `json:"entry_price"`
	CurrentValue float64 `json:"current_fdv"`
	CurrentPrice float64 `json:"current_price"`
	PeakValue    float64 `json:"peak_fdv"`

	Trend         TrendState `json:"trend"`
	BreakoutCount int        `json:"breakout_count"`
	LastBreakout  time.Time  `json:"last_breakout,omitempty"`
	LastRecovery  time.Time  `json:"last_recovery,omitempty"`

	Mentions []Mention              `json:"mentions"`
	Stats    map[Category]*SimStats `json:"list_stats,omitempty"`

	DetectedAt  time.Time `json:"detected_at"`
	LastUpdate  time.Time `json:"last_update"`
	LastPriceAt time.Time `json:"last_price_at"`

	Events CycleEvents `json:"-"`
}

// GrowthRatio is current/entry value, the primary ranking signal.
func (t *TrackedToken) GrowthRatio() float64 {
	if t.EntryValue <= 0 {
		return 0
	}
	return t.CurrentValue / t.EntryValue
}

// GrowthPercent is the growth expressed as a percentage over entry.
func (t *TrackedToken) GrowthPercent() float64 {
	return (t.GrowthRatio() - 1) * 100
}

// Dipping reports whether the token is in the persistent dip state.
func (t *TrackedToken) Dipping() bool { return t.Trend == TrendDipping }

// HasMentionFrom reports whether a channel already called this token.
func (t *TrackedToken) HasMentionFrom(channel string) bool {
	for _, m := range t.Mentions {
		if m.Channel == channel {
			return true
		}
	}
	return false
}

// AddMention appends a mention unless the channel is already present.
// Returns true if the mention was stored.
func (t *TrackedToken) AddMention(m Mention) bool {
	if t.HasMentionFrom(m.Channel) {
		return false
	}
	t.Mentions = append(t.Mentions, m)
	return true
}

// StatsFor returns the simulation stats for a category, or nil if the token
// never entered it.
func (t *TrackedToken) StatsFor(cat Category) *SimStats {
	if t.Stats == nil {
		return nil
	}
	return t.Stats[cat]
}
