package model

// PanelState records the outbound message backing one rendered panel.
// MessageID zero means no message exists for the slot.
type PanelState struct {
	MessageID int64  `json:"message_id,omitempty"`
	LastText  string `json:"-"`
}

// PanelDashboard is the panel slot key for the global dashboard; the
// category panels use their Category value as key.
const PanelDashboard = "dashboard"

// Settings are the runtime-mutable simulation knobs. Changes apply
// prospectively: already-frozen simulation entries are never recomputed.
type Settings struct {
	InvestAmount float64 `json:"simulation_amount"`
	DelayMinutes int     `json:"simulation_time_minutes"`
}

// GlobalState is the full persisted aggregate: every tracked token, every
// panel slot, and the runtime settings. Serialized as one unit.
type GlobalState struct {
	Tokens   map[string]*TrackedToken `json:"tokens"`
	Panels   map[string]*PanelState   `json:"panels"`
	Settings Settings                 `json:"settings"`
}

// NewGlobalState returns an empty state with the given settings defaults.
func NewGlobalState(defaults Settings) *GlobalState {
	return &GlobalState{
		Tokens:   make(map[string]*TrackedToken),
		Panels:   make(map[string]*PanelState),
		Settings: defaults,
	}
}

// Normalize fills nil maps after JSON decoding and applies settings
// defaults for fields missing from older state files.
func (g *GlobalState) Normalize(defaults Settings) {
	if g.Tokens == nil {
		g.Tokens = make(map[string]*TrackedToken)
	}
	if g.Panels == nil {
		g.Panels = make(map[string]*PanelState)
	}
	for _, t := range g.Tokens {
		if t.Trend == "" {
			t.Trend = TrendStable
		}
		if t.PeakValue < t.EntryValue {
			t.PeakValue = t.EntryValue
		}
		if t.Stats == nil {
			t.Stats = make(map[Category]*SimStats)
		}
		if t.LastPriceAt.IsZero() {
			t.LastPriceAt = t.DetectedAt
		}
	}
	if g.Settings.InvestAmount <= 0 {
		g.Settings.InvestAmount = defaults.InvestAmount
	}
	if g.Settings.DelayMinutes <= 0 {
		g.Settings.DelayMinutes = defaults.DelayMinutes
	}
}
