package ingest

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"TokenRadar/internal/dexscreener"
	"TokenRadar/internal/model"
	"TokenRadar/internal/recorder"
	"TokenRadar/internal/store"
)

// AddressPattern matches base58 Solana addresses embedded in message text.
var AddressPattern = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)

// Event is one inbound mention delivered by the message-ingestion
// transport.
type Event struct {
	Address     string    `json:"address"`
	ChannelName string    `json:"channel_name"`
	Link        string    `json:"link,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Lookup resolves a single address against the price provider.
type Lookup interface {
	SingleLookup(ctx context.Context, address string) (*dexscreener.Quote, error)
}

// Handler consumes mention events: known tokens gain a mention (once per
// channel), unknown addresses are admitted only above the entry threshold.
// It mutates the store only; rendering happens on the next scheduled cycle.
type Handler struct {
	Store    *store.Store
	Gateway  Lookup
	Recorder recorder.Recorder
	MinEntry float64
}

// NewHandler creates a Handler.
func NewHandler(st *store.Store, gw Lookup, rec recorder.Recorder, minEntry float64) *Handler {
	return &Handler{Store: st, Gateway: gw, Recorder: rec, MinEntry: minEntry}
}

// Handle processes one mention event.
func (h *Handler) Handle(ctx context.Context, evt Event) error {
	if evt.Address == "" || evt.ChannelName == "" {
		return fmt.Errorf("mention event missing address or channel")
	}
	// The address field may carry surrounding message text; extract the
	// first base58 run that looks like an address.
	address := AddressPattern.FindString(evt.Address)
	if address == "" {
		return fmt.Errorf("no token address in %q", evt.Address)
	}
	when := evt.Timestamp
	if when.IsZero() {
		when = time.Now()
	}
	mention := model.Mention{Channel: evt.ChannelName, Link: evt.Link, Time: when}

	added := false
	known := false
	var symbol string
	h.Store.Update(func(st *model.GlobalState) {
		t, ok := st.Tokens[address]
		if !ok {
			return
		}
		known = true
		symbol = t.Symbol
		added = t.AddMention(mention)
	})

	if known {
		if !added {
			// Duplicate channel, idempotent.
			return nil
		}
		log.Printf("[INFO] new mention for %s from %s", symbol, evt.ChannelName)
		if err := h.Store.Save(); err != nil {
			log.Printf("[ERROR] %v", err)
		}
		return nil
	}

	quote, err := h.Gateway.SingleLookup(ctx, address)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", address, err)
	}
	if quote == nil {
		return nil
	}
	if quote.Value < h.MinEntry {
		log.Printf("[INFO] ignored %s (%s), FDV too low: $%.0f", quote.Symbol, evt.ChannelName, quote.Value)
		return nil
	}

	now := time.Now()
	token := &model.TrackedToken{
		Address:      address,
		Name:         quote.Name,
		Symbol:       quote.Symbol,
		RefURL:       quote.RefURL,
		EntryValue:   quote.Value,
		EntryPrice:   quote.Price,
		CurrentValue: quote.Value,
		CurrentPrice: quote.Price,
		PeakValue:    quote.Value,
		Trend:        model.TrendStable,
		Mentions:     []model.Mention{mention},
		Stats:        make(map[model.Category]*model.SimStats),
		DetectedAt:   now,
		LastUpdate:   now,
		LastPriceAt:  now,
	}
	h.Store.Upsert(token)

	log.Printf("[INFO] new token detected: %s from %s, entry FDV $%.0f, address %s",
		quote.Symbol, evt.ChannelName, quote.Value, address)
	if err := h.Recorder.RecordTokenEvent(&recorder.TokenEvent{
		Type:    recorder.EventDetected,
		Address: address,
		Symbol:  quote.Symbol,
		Value:   quote.Value,
		Note:    evt.ChannelName,
	}); err != nil {
		log.Printf("[ERROR] record token event: %v", err)
	}
	if err := h.Store.Save(); err != nil {
		log.Printf("[ERROR] %v", err)
	}
	return nil
}
