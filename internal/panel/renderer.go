package panel

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"TokenRadar/internal/model"
	"TokenRadar/internal/tracker"

	"github.com/dustin/go-humanize"
)

// Renderer formats category cohorts into Telegram HTML panel text. Pure:
// no I/O, no state. Display caps are tunables, not contracts.
type Renderer struct {
	ListLimit      int
	DashboardLimit int
	TopLimit       int
	MentionsLimit  int
	MinGrowthShow  float64 // dashboard growth-ratio filter
}

// NewRenderer creates a Renderer with the historical display caps.
func NewRenderer() *Renderer {
	return &Renderer{
		ListLimit:      20,
		DashboardLimit: 15,
		TopLimit:       15,
		MentionsLimit:  5,
		MinGrowthShow:  1.30,
	}
}

var categoryTitles = map[model.Category]string{
	model.CategoryViral:    "🔥 <b>LIVE: VIRAL / HOT 🔥 (3+ Calls)</b> 🔥",
	model.CategoryBreakout: "🚀 <b>LIVE: NEW HIGHS 🚀 (Min 2 Hits)</b> 🚀",
	model.CategoryRecovery: "♻️ <b>LIVE: RECOVERING / DIP EATER ♻️</b> ♻️",
}

func formatCurrency(v float64) string {
	return "$" + humanize.CommafWithDigits(v, 0)
}

func shortDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return strings.ToUpper(t.Format("Jan 02 15:04"))
}

func timeOnly(t time.Time) string {
	if t.IsZero() {
		return "--:--"
	}
	return t.Format("15:04:05")
}

func escape(s string) string { return html.EscapeString(s) }

func refLinks(address string) string {
	return fmt.Sprintf(`🔗 <a href="https://gmgn.ai/sol/token/%s">GMGN</a> • <a href="https://mevx.io/solana/%s">MEVX</a>`,
		address, address)
}

// sortCohort orders a category cohort by its display key: viral by mention
// count, breakout and recovery by most recent event. Stable, so ties keep
// insertion order.
func sortCohort(cat model.Category, cohort []model.TrackedToken) {
	switch cat {
	case model.CategoryViral:
		sort.SliceStable(cohort, func(i, j int) bool {
			return len(cohort[i].Mentions) > len(cohort[j].Mentions)
		})
	case model.CategoryBreakout:
		sort.SliceStable(cohort, func(i, j int) bool {
			return cohort[i].LastBreakout.After(cohort[j].LastBreakout)
		})
	case model.CategoryRecovery:
		sort.SliceStable(cohort, func(i, j int) bool {
			return cohort[i].LastRecovery.After(cohort[j].LastRecovery)
		})
	}
}

func sortByGrowth(tokens []model.TrackedToken) {
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].GrowthRatio() > tokens[j].GrowthRatio()
	})
}

func (r *Renderer) simLine(t *model.TrackedToken, cat model.Category, settings model.Settings, now time.Time) string {
	view, ok := tracker.SimulationView(t, cat, settings, now)
	if !ok {
		return "⏳ <i>Simulating entry...</i>"
	}
	if view.Waiting {
		return fmt.Sprintf("⏳ <b>Sim ($%.0f):</b> Waiting for entry (%ds)", settings.InvestAmount, view.SecondsLeft)
	}
	icon := "📈"
	if view.ProfitPct < 0 {
		icon = "📉"
	}
	return fmt.Sprintf("💵 <b>Sim ($%.0f):</b> %s $%.2f (%.1f%%)", settings.InvestAmount, icon, view.Portfolio, view.ProfitPct)
}

// RenderCategory formats one live category panel. ok is false when the
// cohort is empty, which signals the panel should disappear.
func (r *Renderer) RenderCategory(cat model.Category, cohort []model.TrackedToken, settings model.Settings, now time.Time) (string, bool) {
	if len(cohort) == 0 {
		return "", false
	}

	sortCohort(cat, cohort)
	if len(cohort) > r.ListLimit {
		cohort = cohort[:r.ListLimit]
	}

	var b strings.Builder
	b.WriteString(categoryTitles[cat] + "\n")
	b.WriteString(fmt.Sprintf("<i>Top %d Active | Sim Invest: $%.0f</i>\n\n", r.ListLimit, settings.InvestAmount))

	for i := range cohort {
		t := &cohort[i]
		trendIcon := "🟢"
		if t.GrowthPercent() < 0 {
			trendIcon = "🔴"
		}

		extra := ""
		switch cat {
		case model.CategoryBreakout:
			extra = fmt.Sprintf(" | ⚡ Hits: %d", t.BreakoutCount)
		case model.CategoryRecovery:
			extra = " | ♻️ Dip Eater"
		}

		b.WriteString(fmt.Sprintf("%d. %s <b>$%s</b> (%+.0f%%)\n", i+1, trendIcon, escape(t.Symbol), t.GrowthPercent()))

		stats := t.StatsFor(cat)
		if stats == nil {
			b.WriteString("   Collecting data...\n\n")
			continue
		}
		b.WriteString(fmt.Sprintf("   ⏱ <b>Listed:</b> %s\n", timeOnly(stats.EntryTime)))
		b.WriteString(fmt.Sprintf("   💰 Entry: %s ➔ <b>Now: %s</b>\n", formatCurrency(t.EntryValue), formatCurrency(t.CurrentValue)))
		b.WriteString("   " + r.simLine(t, cat, settings, now) + "\n")
		b.WriteString(fmt.Sprintf("   🗣 <b>%d Calls</b>%s | %s\n\n", len(t.Mentions), extra, refLinks(t.Address)))
	}

	b.WriteString(fmt.Sprintf("⚡ <i>Updated: %s</i>", timeOnly(now)))
	return b.String(), true
}

// mentionsBlock renders the bounded most-recent mention sublist.
func (r *Renderer) mentionsBlock(t *model.TrackedToken) string {
	mentions := t.Mentions
	hidden := 0
	if len(mentions) > r.MentionsLimit {
		hidden = len(mentions) - r.MentionsLimit
		mentions = mentions[len(mentions)-r.MentionsLimit:]
	}

	lines := make([]string, 0, len(mentions)+1)
	for _, m := range mentions {
		label := fmt.Sprintf("<b>%s</b>", escape(m.Channel))
		if m.Link != "" {
			label = fmt.Sprintf(`<a href="%s">%s</a>`, escape(m.Link), escape(m.Channel))
		}
		lines = append(lines, fmt.Sprintf("• %s - %s", shortDate(m.Time), label))
	}
	if hidden > 0 {
		lines = append(lines, fmt.Sprintf("• +%d more", hidden))
	}
	return strings.Join(lines, "\n")
}

// RenderDashboard formats the global ranked view. While no dashboard
// message exists and no token clears the growth filter, ok is false and no
// panel is needed; an existing dashboard shows a placeholder instead of
// disappearing.
func (r *Renderer) RenderDashboard(tokens []model.TrackedToken, hasMessage bool, now time.Time) (string, bool) {
	movers := make([]model.TrackedToken, 0, len(tokens))
	for _, t := range tokens {
		if t.GrowthRatio() >= r.MinGrowthShow {
			movers = append(movers, t)
		}
	}
	if len(movers) == 0 && !hasMessage {
		return "", false
	}

	sortByGrowth(movers)
	if len(movers) > r.DashboardLimit {
		movers = movers[:r.DashboardLimit]
	}

	var b strings.Builder
	b.WriteString("<b>📊 GLOBAL DASHBOARD</b>\n\n")

	if len(movers) == 0 {
		b.WriteString(fmt.Sprintf("<i>💤 Waiting for movers (+%.0f%%)...</i>", (r.MinGrowthShow-1)*100))
	} else {
		for i := range movers {
			t := &movers[i]
			b.WriteString(fmt.Sprintf("%d. <b>$%s</b> | %+.0f%%\n", i+1, escape(t.Symbol), t.GrowthPercent()))
			b.WriteString(fmt.Sprintf("   💰 Entry: %s ➔ <b>Now: %s</b>\n", formatCurrency(t.EntryValue), formatCurrency(t.CurrentValue)))
			b.WriteString("   " + refLinks(t.Address) + "\n")
			b.WriteString(fmt.Sprintf("   <blockquote expandable>%s</blockquote>\n\n", r.mentionsBlock(t)))
		}
	}

	b.WriteString(fmt.Sprintf("\n⚡ Updated: %s", timeOnly(now)))
	return b.String(), true
}

// RenderTop formats the on-demand ROI report for one cohort. Only tokens
// above their entry value count as winners.
func (r *Renderer) RenderTop(title string, tokens []model.TrackedToken) string {
	winners := make([]model.TrackedToken, 0, len(tokens))
	for _, t := range tokens {
		if t.CurrentValue > t.EntryValue {
			winners = append(winners, t)
		}
	}
	if len(winners) == 0 {
		return fmt.Sprintf("📉 No gains in <b>%s</b>.", escape(title))
	}

	sortByGrowth(winners)
	if len(winners) > r.TopLimit {
		winners = winners[:r.TopLimit]
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🏆 <b>TOP %s (ROI)</b>\n\n", escape(strings.ToUpper(title))))
	for i := range winners {
		t := &winners[i]
		b.WriteString(fmt.Sprintf("%d. <b>$%s</b> (%+.0f%%)\n", i+1, escape(t.Symbol), t.GrowthPercent()))
		b.WriteString(fmt.Sprintf("   💰 Entry: %s ➔ Now: %s\n", formatCurrency(t.EntryValue), formatCurrency(t.CurrentValue)))
		b.WriteString(fmt.Sprintf("   📅 %s\n\n", shortDate(t.DetectedAt)))
	}
	return b.String()
}
