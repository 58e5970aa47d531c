package recorder

import "time"

// Token lifecycle event types.
const (
	EventDetected  = "TOKEN_DETECTED"
	EventRemoved   = "TOKEN_REMOVED"
	EventBreakout  = "BREAKOUT"
	EventRecovery  = "RECOVERY"
	EventSimFrozen = "SIM_FROZEN"
)

// TokenEvent records one lifecycle event for a tracked token.
type TokenEvent struct {
	Type    string
	Address string
	Symbol  string
	Value   float64
	Note    string
}

// CycleStats summarizes one completed update cycle.
type CycleStats struct {
	Tracked  int
	Viral    int
	Breakout int
	Recovery int
	Removed  int
	Duration time.Duration
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordTokenEvent(evt *TokenEvent) error
	RecordCycle(stats *CycleStats) error
	Close() error
}
