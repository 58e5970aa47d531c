package scheduler

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"TokenRadar/internal/model"
)

// Commands accept "/" or "." prefixes, matching the historical bot.
var (
	reHelp      = regexp.MustCompile(`^[/.]help$`)
	reSetInvest = regexp.MustCompile(`^[/.]setinvest (\d+)$`)
	reSetTime   = regexp.MustCompile(`^[/.]settime (\d+)$`)
	reTop       = regexp.MustCompile(`^[/.]top (\w+)$`)
	reClean     = regexp.MustCompile(`^[/.]clean (\w+)$`)
	rePurge     = regexp.MustCompile(`^[/.]purge (\d+)$`)
	reRemove    = regexp.MustCompile(`^[/.]remove (\S+)$`)
	reNuke      = regexp.MustCompile(`^[/.]nuke$`)
	reDashboard = regexp.MustCompile(`^[/.]dashboard$`)
)

const helpText = `📚 <b>COMMAND PANEL</b> 📚

<b>⚙️ CONFIGURATION</b>
• <code>/setinvest 10</code> ➔ Set the simulated investment to $10 USD.
• <code>/settime 5</code> ➔ Set the simulation entry delay to 5 min.

<b>📊 PERFORMANCE REPORTS</b>
• <code>/top viral</code> ➔ Best gains in the Viral list.
• <code>/top breakout</code> ➔ Best gains in Breakout.
• <code>/top recovery</code> ➔ Best gains in Recovery.
• <code>/top global</code> ➔ Best gains across the whole bot.
• <code>/dashboard</code> ➔ Force an update cycle now.

<b>🧹 VISUAL CLEANUP (keeps data)</b>
• <code>/clean viral</code> ➔ Remove the Viral list message from the chat.
• <code>/clean breakout</code> ➔ Remove the Breakout list message.
• <code>/clean recovery</code> ➔ Remove the Recovery list message.
• <code>/clean dashboard</code> ➔ Remove the Dashboard message.

<b>🗑️ DATA MANAGEMENT (deletes data)</b>
• <code>/remove ADDR</code> ➔ Stop tracking one token by address or symbol.
• <code>/purge 3</code> ➔ Drop tokens older than 3 days from memory.
• <code>/nuke</code> ➔ ☢️ <b>DANGER:</b> wipe the whole database and reset.`

// HandleCommand processes a user command and returns a reply. Messages
// from any chat other than the destination are ignored entirely.
func (s *Scheduler) HandleCommand(chatID int64, text string) string {
	if chatID != s.DestinationID {
		return ""
	}
	if !strings.HasPrefix(text, "/") && !strings.HasPrefix(text, ".") {
		return ""
	}

	switch {
	case reHelp.MatchString(text):
		return helpText

	case reSetInvest.MatchString(text):
		amount, _ := strconv.Atoi(reSetInvest.FindStringSubmatch(text)[1])
		if amount <= 0 {
			return "❌ Enter a valid amount."
		}
		s.Store.SetInvestAmount(float64(amount))
		s.saveAfterCommand()
		log.Printf("[INFO] config updated: simulated investment set to $%d", amount)
		return fmt.Sprintf("✅ <b>Simulated investment updated:</b> $%d USD", amount)

	case reSetTime.MatchString(text):
		minutes, _ := strconv.Atoi(reSetTime.FindStringSubmatch(text)[1])
		if minutes <= 0 {
			return "❌ Enter a valid time (minutes)."
		}
		s.Store.SetDelayMinutes(minutes)
		s.saveAfterCommand()
		log.Printf("[INFO] config updated: simulation delay set to %d min", minutes)
		return fmt.Sprintf("✅ <b>Simulation delay updated:</b> %d minutes", minutes)

	case reTop.MatchString(text):
		return s.topReport(reTop.FindStringSubmatch(text)[1])

	case reClean.MatchString(text):
		return s.cleanPanel(reClean.FindStringSubmatch(text)[1])

	case rePurge.MatchString(text):
		days, _ := strconv.Atoi(rePurge.FindStringSubmatch(text)[1])
		if days <= 0 {
			return ""
		}
		n := s.PurgeOlderThan(time.Duration(days) * 24 * time.Hour)
		if n == 0 {
			return "✅ Nothing to purge."
		}
		return fmt.Sprintf("🗑️ Removed %d old tokens.", n)

	case reRemove.MatchString(text):
		return s.removeToken(reRemove.FindStringSubmatch(text)[1])

	case reNuke.MatchString(text):
		return s.nuke()

	case reDashboard.MatchString(text):
		go s.RunCycleNow()
		return ""

	default:
		return "❓ Unknown command. Try /help."
	}
}

func (s *Scheduler) topReport(kind string) string {
	kind = strings.ToLower(kind)
	all := s.Store.All()

	var cohort []model.TrackedToken
	switch kind {
	case "viral":
		for _, t := range all {
			if len(t.Mentions) >= s.Engine.ViralMentions {
				cohort = append(cohort, t)
			}
		}
	case "breakout":
		for _, t := range all {
			if t.BreakoutCount >= s.Engine.BreakoutMin {
				cohort = append(cohort, t)
			}
		}
	case "recovery":
		for _, t := range all {
			if !t.LastRecovery.IsZero() {
				cohort = append(cohort, t)
			}
		}
	case "global", "dashboard":
		cohort = all
	default:
		return "❌ Types: viral, breakout, recovery, global"
	}

	return s.Renderer.RenderTop(kind, cohort)
}

func (s *Scheduler) cleanPanel(kind string) string {
	key := strings.ToLower(kind)
	switch key {
	case string(model.CategoryViral), string(model.CategoryBreakout),
		string(model.CategoryRecovery), model.PanelDashboard:
	default:
		return "❌ Types: viral, breakout, recovery, dashboard"
	}

	slot := s.Store.Panel(key)
	if slot.MessageID != 0 {
		if err := s.Messenger.Delete(slot.MessageID); err != nil {
			log.Printf("[WARN] clean %s: %v", key, err)
		}
	}
	s.Store.ClearPanel(key)
	s.saveAfterCommand()
	return fmt.Sprintf("🗑️ Visual list <b>%s</b> removed.", strings.ToUpper(key))
}

func (s *Scheduler) removeToken(query string) string {
	var removedSymbol string
	s.Store.Update(func(st *model.GlobalState) {
		if t, ok := st.Tokens[query]; ok {
			removedSymbol = t.Symbol
			delete(st.Tokens, query)
			return
		}
		for addr, t := range st.Tokens {
			if strings.EqualFold(t.Symbol, query) {
				removedSymbol = t.Symbol
				delete(st.Tokens, addr)
				return
			}
		}
	})
	if removedSymbol == "" {
		return fmt.Sprintf("❌ No tracked token matches <code>%s</code>.", query)
	}
	s.saveAfterCommand()
	log.Printf("[INFO] token %s removed by command", removedSymbol)
	return fmt.Sprintf("🗑️ <b>$%s</b> is no longer tracked.", removedSymbol)
}

func (s *Scheduler) nuke() string {
	keys := append([]string{model.PanelDashboard}, string(model.CategoryViral),
		string(model.CategoryBreakout), string(model.CategoryRecovery))
	for _, key := range keys {
		if slot := s.Store.Panel(key); slot.MessageID != 0 {
			if err := s.Messenger.Delete(slot.MessageID); err != nil {
				log.Printf("[WARN] nuke delete %s: %v", key, err)
			}
		}
	}
	s.Store.Reset()
	s.saveAfterCommand()
	log.Println("[INFO] database wiped by /nuke command")
	return "☢️ <b>DATABASE WIPED</b>"
}

func (s *Scheduler) saveAfterCommand() {
	if err := s.Store.Save(); err != nil {
		log.Printf("[ERROR] %v", err)
	}
}
