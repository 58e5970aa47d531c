package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"TokenRadar/internal/dexscreener"
	"TokenRadar/internal/model"
	"TokenRadar/internal/panel"
	"TokenRadar/internal/recorder"
	"TokenRadar/internal/store"
	"TokenRadar/internal/tracker"

	"github.com/robfig/cron/v3"
)

// PriceGateway batch-resolves quotes for tracked addresses.
type PriceGateway interface {
	BatchLookup(ctx context.Context, addresses []string) (map[string]dexscreener.Quote, error)
}

// Scheduler drives the update cycle: batch-fetch prices, classify and
// simulate every token, persist once, then render and reconcile each panel.
// Overlapping triggers are dropped via a non-blocking try-lock.
type Scheduler struct {
	Cron          *cron.Cron
	Ctx           context.Context
	Store         *store.Store
	Gateway       PriceGateway
	Engine        *tracker.Engine
	Renderer      *panel.Renderer
	Reconciler    *panel.Reconciler
	Messenger     panel.Messenger
	Recorder      recorder.Recorder
	DestinationID int64
	BatchSize     int

	running   atomic.Bool
	lastCycle atomic.Int64 // unix seconds of last completed cycle
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, st *store.Store, gw PriceGateway, eng *tracker.Engine,
	rend *panel.Renderer, rec *panel.Reconciler, msg panel.Messenger, hist recorder.Recorder,
	destinationID int64, batchSize int) *Scheduler {
	return &Scheduler{
		Cron:          cron.New(cron.WithSeconds()),
		Ctx:           ctx,
		Store:         st,
		Gateway:       gw,
		Engine:        eng,
		Renderer:      rend,
		Reconciler:    rec,
		Messenger:     msg,
		Recorder:      hist,
		DestinationID: destinationID,
		BatchSize:     batchSize,
	}
}

// RegisterAll registers the update tick and the daily retention purge.
func (s *Scheduler) RegisterAll(updateCron, purgeCron string) error {
	if _, err := s.Cron.AddFunc(updateCron, s.runCycle); err != nil {
		return fmt.Errorf("register update cycle: %w", err)
	}
	if _, err := s.Cron.AddFunc(purgeCron, func() {
		if n := s.PurgeOlderThan(s.Engine.MaxAge); n > 0 {
			log.Printf("[INFO] retention purge removed %d tokens", n)
		}
	}); err != nil {
		return fmt.Errorf("register retention purge: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunCycleNow executes one update cycle immediately (manual trigger).
func (s *Scheduler) RunCycleNow() {
	s.runCycle()
}

// LastCycle returns when the last cycle completed, zero if none ran yet.
func (s *Scheduler) LastCycle() time.Time {
	if ts := s.lastCycle.Load(); ts > 0 {
		return time.Unix(ts, 0)
	}
	return time.Time{}
}

func chunkAddresses(addrs []string, size int) [][]string {
	var chunks [][]string
	for len(addrs) > size {
		chunks = append(chunks, addrs[:size])
		addrs = addrs[size:]
	}
	if len(addrs) > 0 {
		chunks = append(chunks, addrs)
	}
	return chunks
}

func (s *Scheduler) runCycle() {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("[INFO] update cycle already running, trigger dropped")
		return
	}
	defer s.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] update cycle panic: %v", r)
		}
	}()

	start := time.Now()
	// The render phase must run even with nothing tracked, so panels for
	// tokens removed outside a cycle are emptied on the next tick.
	addrs := s.Store.Addresses()

	changed := false
	removed := 0
	cohorts := make(map[model.Category][]model.TrackedToken)

	for _, chunk := range chunkAddresses(addrs, s.BatchSize) {
		quotes, err := s.Gateway.BatchLookup(s.Ctx, chunk)
		if err != nil {
			// Provider trouble skips this chunk only; the tokens keep
			// their state and are retried next cycle.
			log.Printf("[WARN] batch lookup failed, skipping chunk of %d: %v", len(chunk), err)
			continue
		}

		var events []recorder.TokenEvent
		s.Store.Update(func(st *model.GlobalState) {
			for _, addr := range chunk {
				t := st.Tokens[addr]
				if t == nil {
					continue
				}

				var sample *tracker.Sample
				if q, ok := quotes[addr]; ok {
					sample = &tracker.Sample{Price: q.Price, Value: q.Value}
				}

				if reason, evict := s.Engine.Evict(t, sample); evict {
					log.Printf("[INFO] removing %s (%s): FDV $%.0f", t.Symbol, reason, t.CurrentValue)
					delete(st.Tokens, addr)
					changed = true
					removed++
					events = append(events, recorder.TokenEvent{
						Type: recorder.EventRemoved, Address: addr, Symbol: t.Symbol,
						Value: t.CurrentValue, Note: string(reason),
					})
					continue
				}
				if sample == nil {
					continue
				}

				out := s.Engine.Classify(t, *sample, st.Settings)
				if out.Changed {
					changed = true
				}
				if t.Events.Breakout {
					events = append(events, recorder.TokenEvent{
						Type: recorder.EventBreakout, Address: addr, Symbol: t.Symbol,
						Value: sample.Value, Note: fmt.Sprintf("hit %d", t.BreakoutCount),
					})
				}
				if t.Events.Recovery {
					events = append(events, recorder.TokenEvent{
						Type: recorder.EventRecovery, Address: addr, Symbol: t.Symbol,
						Value: sample.Value,
					})
				}
				for _, cat := range out.Frozen {
					events = append(events, recorder.TokenEvent{
						Type: recorder.EventSimFrozen, Address: addr, Symbol: t.Symbol,
						Value: sample.Price, Note: string(cat),
					})
				}
				for _, cat := range out.Categories {
					cohorts[cat] = append(cohorts[cat], *t)
				}
			}
		})

		for i := range events {
			if err := s.Recorder.RecordTokenEvent(&events[i]); err != nil {
				log.Printf("[ERROR] record token event: %v", err)
			}
		}
	}

	if changed {
		if err := s.Store.Save(); err != nil {
			log.Printf("[ERROR] %v — unsaved state will be lost on restart", err)
		}
	}

	settings := s.Store.Settings()
	now := time.Now()
	panelChanged := false

	for _, cat := range model.Categories {
		text, present := s.Renderer.RenderCategory(cat, cohorts[cat], settings, now)
		if s.Reconciler.Sync(string(cat), text, present) {
			panelChanged = true
		}
	}

	hasDashboard := s.Store.Panel(model.PanelDashboard).MessageID != 0
	text, present := s.Renderer.RenderDashboard(s.Store.All(), hasDashboard, now)
	if s.Reconciler.Sync(model.PanelDashboard, text, present) {
		panelChanged = true
	}

	if panelChanged {
		if err := s.Store.Save(); err != nil {
			log.Printf("[ERROR] %v", err)
		}
	}

	if err := s.Recorder.RecordCycle(&recorder.CycleStats{
		Tracked:  s.Store.Len(),
		Viral:    len(cohorts[model.CategoryViral]),
		Breakout: len(cohorts[model.CategoryBreakout]),
		Recovery: len(cohorts[model.CategoryRecovery]),
		Removed:  removed,
		Duration: time.Since(start),
	}); err != nil {
		log.Printf("[ERROR] record cycle: %v", err)
	}
	s.lastCycle.Store(time.Now().Unix())
}

// PurgeOlderThan removes every token detected more than age ago and
// returns the count removed.
func (s *Scheduler) PurgeOlderThan(age time.Duration) int {
	cutoff := time.Now().Add(-age)
	var purged []recorder.TokenEvent
	s.Store.Update(func(st *model.GlobalState) {
		for addr, t := range st.Tokens {
			if t.DetectedAt.Before(cutoff) {
				delete(st.Tokens, addr)
				purged = append(purged, recorder.TokenEvent{
					Type: recorder.EventRemoved, Address: addr, Symbol: t.Symbol,
					Value: t.CurrentValue, Note: "purged",
				})
			}
		}
	})
	if len(purged) == 0 {
		return 0
	}
	for i := range purged {
		if err := s.Recorder.RecordTokenEvent(&purged[i]); err != nil {
			log.Printf("[ERROR] record token event: %v", err)
		}
	}
	if err := s.Store.Save(); err != nil {
		log.Printf("[ERROR] %v", err)
	}
	return len(purged)
}
