package panel

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"TokenRadar/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var renderSettings = model.Settings{InvestAmount: 7, DelayMinutes: 2}

func renderToken(symbol string, entry, current float64) model.TrackedToken {
	now := time.Now()
	return model.TrackedToken{
		Address:      "So11111111111111111111111111111111111111112",
		Symbol:       symbol,
		EntryValue:   entry,
		CurrentValue: current,
		PeakValue:    current,
		Trend:        model.TrendStable,
		Mentions:     []model.Mention{{Channel: "@alpha", Time: now}},
		DetectedAt:   now,
	}
}

func TestRenderCategory_EmptyCohortSignalsRemoval(t *testing.T) {
	r := NewRenderer()
	text, ok := r.RenderCategory(model.CategoryViral, nil, renderSettings, time.Now())
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestRenderCategory_EscapesSymbols(t *testing.T) {
	r := NewRenderer()
	tok := renderToken("<b>EVIL</b>", 20000, 25000)
	text, ok := r.RenderCategory(model.CategoryViral, []model.TrackedToken{tok}, renderSettings, time.Now())
	require.True(t, ok)
	assert.NotContains(t, text, "<b>EVIL</b>")
	assert.Contains(t, text, "&lt;b&gt;EVIL&lt;/b&gt;")
}

func TestRenderCategory_ListCap(t *testing.T) {
	r := NewRenderer()
	cohort := make([]model.TrackedToken, 0, 25)
	for i := 0; i < 25; i++ {
		cohort = append(cohort, renderToken(fmt.Sprintf("T%02d", i), 20000, 25000))
	}
	text, ok := r.RenderCategory(model.CategoryViral, cohort, renderSettings, time.Now())
	require.True(t, ok)
	assert.Contains(t, text, "20. ")
	assert.NotContains(t, text, "21. ")
}

func TestRenderCategory_SortsViralByMentions(t *testing.T) {
	r := NewRenderer()
	now := time.Now()
	loud := renderToken("LOUD", 20000, 25000)
	loud.Mentions = []model.Mention{
		{Channel: "@a", Time: now}, {Channel: "@b", Time: now},
		{Channel: "@c", Time: now}, {Channel: "@d", Time: now},
	}
	quiet := renderToken("QUIET", 20000, 40000)
	quiet.Mentions = append(quiet.Mentions, model.Mention{Channel: "@x", Time: now}, model.Mention{Channel: "@y", Time: now})

	text, ok := r.RenderCategory(model.CategoryViral, []model.TrackedToken{quiet, loud}, renderSettings, now)
	require.True(t, ok)
	assert.Less(t, strings.Index(text, "LOUD"), strings.Index(text, "QUIET"))
}

func TestRenderCategory_SortsBreakoutByRecency(t *testing.T) {
	r := NewRenderer()
	now := time.Now()
	old := renderToken("OLD", 20000, 25000)
	old.LastBreakout = now.Add(-10 * time.Minute)
	fresh := renderToken("FRESH", 20000, 22000)
	fresh.LastBreakout = now.Add(-time.Minute)

	text, ok := r.RenderCategory(model.CategoryBreakout, []model.TrackedToken{old, fresh}, renderSettings, now)
	require.True(t, ok)
	assert.Less(t, strings.Index(text, "FRESH"), strings.Index(text, "OLD"))
}

func TestRenderCategory_CollectingDataPlaceholder(t *testing.T) {
	r := NewRenderer()
	tok := renderToken("NEW", 20000, 21000)
	text, ok := r.RenderCategory(model.CategoryViral, []model.TrackedToken{tok}, renderSettings, time.Now())
	require.True(t, ok)
	assert.Contains(t, text, "Collecting data...")
}

func TestRenderCategory_ReferenceLinks(t *testing.T) {
	r := NewRenderer()
	tok := renderToken("LNK", 20000, 25000)
	text, ok := r.RenderCategory(model.CategoryViral, []model.TrackedToken{tok}, renderSettings, time.Now())
	require.True(t, ok)
	assert.Contains(t, text, "https://gmgn.ai/sol/token/"+tok.Address)
	assert.Contains(t, text, "https://mevx.io/solana/"+tok.Address)
}

func TestRenderDashboard_EmptySignals(t *testing.T) {
	r := NewRenderer()
	now := time.Now()

	// Nothing clears the filter and no message exists: no panel needed.
	flat := renderToken("FLAT", 20000, 21000)
	text, ok := r.RenderDashboard([]model.TrackedToken{flat}, false, now)
	assert.False(t, ok)
	assert.Empty(t, text)

	// With an existing message the dashboard shows a placeholder instead.
	text, ok = r.RenderDashboard([]model.TrackedToken{flat}, true, now)
	require.True(t, ok)
	assert.Contains(t, text, "Waiting for movers")
}

func TestRenderDashboard_GrowthFilterAndOrder(t *testing.T) {
	r := NewRenderer()
	now := time.Now()
	big := renderToken("BIG", 20000, 60000)   // 3.0x
	mid := renderToken("MID", 20000, 30000)   // 1.5x
	flat := renderToken("FLAT", 20000, 22000) // 1.1x, filtered out

	text, ok := r.RenderDashboard([]model.TrackedToken{mid, flat, big}, false, now)
	require.True(t, ok)
	assert.NotContains(t, text, "FLAT")
	assert.Less(t, strings.Index(text, "BIG"), strings.Index(text, "MID"))
}

func TestRenderDashboard_MentionsTruncated(t *testing.T) {
	r := NewRenderer()
	now := time.Now()
	tok := renderToken("MANY", 20000, 60000)
	tok.Mentions = nil
	for i := 0; i < 8; i++ {
		tok.Mentions = append(tok.Mentions, model.Mention{
			Channel: fmt.Sprintf("@ch%d", i),
			Time:    now.Add(time.Duration(i) * time.Minute),
		})
	}

	text, ok := r.RenderDashboard([]model.TrackedToken{tok}, false, now)
	require.True(t, ok)
	// Most recent five listed, earliest three collapsed.
	assert.Contains(t, text, "@ch7")
	assert.Contains(t, text, "@ch3")
	assert.NotContains(t, text, "@ch2")
	assert.Contains(t, text, "+3 more")
}

func TestRenderDashboard_EscapesMentionLinks(t *testing.T) {
	r := NewRenderer()
	now := time.Now()
	tok := renderToken("LNK", 20000, 60000)
	tok.Mentions = []model.Mention{{
		Channel: "@alpha",
		Link:    `https://t.me/alpha/1"><script>`,
		Time:    now,
	}}

	text, ok := r.RenderDashboard([]model.TrackedToken{tok}, false, now)
	require.True(t, ok)
	assert.NotContains(t, text, `"><script>`)
	assert.Contains(t, text, "&#34;&gt;&lt;script&gt;")
}

func TestRenderTop(t *testing.T) {
	r := NewRenderer()

	t.Run("no winners", func(t *testing.T) {
		loser := renderToken("DOWN", 20000, 15000)
		text := r.RenderTop("Viral", []model.TrackedToken{loser})
		assert.Contains(t, text, "No gains")
	})

	t.Run("winners ranked by growth", func(t *testing.T) {
		a := renderToken("AAA", 20000, 30000)
		b := renderToken("BBB", 20000, 80000)
		text := r.RenderTop("Global", []model.TrackedToken{a, b})
		assert.Contains(t, text, "TOP GLOBAL")
		assert.Less(t, strings.Index(text, "BBB"), strings.Index(text, "AAA"))
	})
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$20,000", formatCurrency(20000))
	assert.Equal(t, "$1,234,567", formatCurrency(1234567.9))
}
