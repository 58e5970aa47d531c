package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Governor gates all outbound traffic. It enforces three independent rules:
// a queueing wait between consecutive price-gateway calls, a drop-style
// cooldown per panel slot, and a global suppression window entered when a
// provider reports an explicit retry-after. Urgent traffic (command replies)
// does not pass through the governor at all.
type Governor struct {
	mu              sync.Mutex
	gateway         *rate.Limiter
	cooldown        time.Duration
	lastPanelSend   map[string]time.Time
	suppressedUntil time.Time
	now             func() time.Time
}

// NewGovernor creates a Governor with the given gateway call spacing and
// per-panel cooldown.
func NewGovernor(gatewaySpacing, panelCooldown time.Duration) *Governor {
	return &Governor{
		gateway:       rate.NewLimiter(rate.Every(gatewaySpacing), 1),
		cooldown:      panelCooldown,
		lastPanelSend: make(map[string]time.Time),
		now:           time.Now,
	}
}

// WaitGateway blocks until the next price-gateway call is allowed, or the
// context is cancelled. Gateway calls queue rather than drop.
func (g *Governor) WaitGateway(ctx context.Context) error {
	return g.gateway.Wait(ctx)
}

// AllowPanel reports whether the panel slot may issue a send/edit/delete
// this cycle. Calls inside the cooldown window or a suppression window are
// dropped, not queued. The cooldown itself is committed by MarkPanel only
// after the call succeeds, so a failed attempt does not delay the retry.
func (g *Governor) AllowPanel(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Before(g.suppressedUntil) {
		return false
	}
	if last, ok := g.lastPanelSend[key]; ok && now.Sub(last) < g.cooldown {
		return false
	}
	return true
}

// MarkPanel starts the slot's cooldown after a successful outbound call.
func (g *Governor) MarkPanel(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastPanelSend[key] = g.now()
}

// Suppress opens the circuit for all non-urgent outbound calls until d has
// elapsed, in response to a provider-signaled retry-after.
func (g *Governor) Suppress(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	until := g.now().Add(d)
	if until.After(g.suppressedUntil) {
		g.suppressedUntil = until
	}
}

// Suppressed reports whether the global suppression window is active.
func (g *Governor) Suppressed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.suppressedUntil)
}
