package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGovernor(cooldown time.Duration) (*Governor, *time.Time) {
	g := NewGovernor(time.Millisecond, cooldown)
	now := time.Now()
	g.now = func() time.Time { return now }
	return g, &now
}

func TestAllowPanel_CooldownDrops(t *testing.T) {
	g, now := testGovernor(15 * time.Second)

	assert.True(t, g.AllowPanel("viral"))
	g.MarkPanel("viral")
	// Inside the cooldown window the call is dropped, not queued.
	*now = now.Add(5 * time.Second)
	assert.False(t, g.AllowPanel("viral"))
	*now = now.Add(11 * time.Second)
	assert.True(t, g.AllowPanel("viral"))
}

func TestAllowPanel_UncommittedAttemptDoesNotArmCooldown(t *testing.T) {
	g, now := testGovernor(15 * time.Second)

	// An allowed attempt that fails never calls MarkPanel, so the very next
	// cycle may retry immediately.
	assert.True(t, g.AllowPanel("viral"))
	*now = now.Add(time.Second)
	assert.True(t, g.AllowPanel("viral"))
}

func TestAllowPanel_KeysAreIndependent(t *testing.T) {
	g, _ := testGovernor(15 * time.Second)

	assert.True(t, g.AllowPanel("viral"))
	g.MarkPanel("viral")
	assert.True(t, g.AllowPanel("breakout"))
	assert.False(t, g.AllowPanel("viral"))
}

func TestSuppress_BlocksAllPanels(t *testing.T) {
	g, now := testGovernor(time.Second)

	g.Suppress(30 * time.Second)
	assert.True(t, g.Suppressed())
	assert.False(t, g.AllowPanel("viral"))
	assert.False(t, g.AllowPanel("dashboard"))

	*now = now.Add(31 * time.Second)
	assert.False(t, g.Suppressed())
	assert.True(t, g.AllowPanel("viral"))
}

func TestSuppress_BlocksMarkedSlotAfterWindow(t *testing.T) {
	g, now := testGovernor(15 * time.Second)
	assert.True(t, g.AllowPanel("viral"))
	g.MarkPanel("viral")

	g.Suppress(5 * time.Second)
	*now = now.Add(6 * time.Second)
	// Suppression has lifted but the slot's own cooldown still applies.
	assert.False(t, g.AllowPanel("viral"))
}

func TestSuppress_KeepsLongestWindow(t *testing.T) {
	g, now := testGovernor(time.Second)

	g.Suppress(30 * time.Second)
	g.Suppress(5 * time.Second) // shorter request must not shrink the window
	*now = now.Add(10 * time.Second)
	assert.True(t, g.Suppressed())
}

func TestWaitGateway_QueuesCalls(t *testing.T) {
	g := NewGovernor(10*time.Millisecond, time.Second)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, g.WaitGateway(context.Background()))
	}
	// First call is free; the next two wait one spacing interval each.
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWaitGateway_CancelledContext(t *testing.T) {
	g := NewGovernor(time.Hour, time.Second)
	require.NoError(t, g.WaitGateway(context.Background())) // burst token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, g.WaitGateway(ctx))
}
