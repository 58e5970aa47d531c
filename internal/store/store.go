package store

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"TokenRadar/internal/model"
)

// Store owns the GlobalState aggregate. All mutation goes through its
// methods under one mutex so invariants stay centrally enforced; callers
// decide when a batch of mutations is durable by calling Save.
type Store struct {
	mu       sync.Mutex
	state    *model.GlobalState
	filePath string
}

// NewStore loads state from disk, or starts empty. A malformed state file
// is logged and discarded rather than crashing startup.
func NewStore(filePath string, defaults model.Settings) (*Store, error) {
	state, err := loadState(filePath)
	if err != nil {
		log.Printf("[WARN] state file unreadable, starting empty: %v", err)
		state = nil
	}
	if state == nil {
		state = model.NewGlobalState(defaults)
	}
	state.Normalize(defaults)

	s := &Store{state: state, filePath: filePath}
	log.Printf("[INFO] state loaded: %d tokens, invest $%.0f, sim delay %d min",
		len(state.Tokens), state.Settings.InvestAmount, state.Settings.DelayMinutes)
	return s, nil
}

// Update runs fn with exclusive access to the state. It does not persist;
// call Save once per mutation batch.
func (s *Store) Update(fn func(st *model.GlobalState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Get returns a copy of one tracked token.
func (s *Store) Get(address string) (model.TrackedToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.Tokens[address]
	if !ok {
		return model.TrackedToken{}, false
	}
	return *t, true
}

// Upsert stores a token under its address.
func (s *Store) Upsert(t *model.TrackedToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Tokens[t.Address] = t
}

// Remove deletes a token. Returns true if it existed.
func (s *Store) Remove(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Tokens[address]; !ok {
		return false
	}
	delete(s.state.Tokens, address)
	return true
}

// Addresses returns all tracked addresses in a stable order.
func (s *Store) Addresses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	addrs := make([]string, 0, len(s.state.Tokens))
	for a := range s.state.Tokens {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return addrs
}

// All returns copies of every tracked token.
func (s *Store) All() []model.TrackedToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TrackedToken, 0, len(s.state.Tokens))
	for _, a := range s.sortedAddressesLocked() {
		out = append(out, *s.state.Tokens[a])
	}
	return out
}

func (s *Store) sortedAddressesLocked() []string {
	addrs := make([]string, 0, len(s.state.Tokens))
	for a := range s.state.Tokens {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return addrs
}

// Len reports the number of tracked tokens.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Tokens)
}

// Settings returns a copy of the runtime settings.
func (s *Store) Settings() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings
}

// SetInvestAmount updates the simulated investment notional.
func (s *Store) SetInvestAmount(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Settings.InvestAmount = amount
}

// SetDelayMinutes updates the simulation entry delay. Applies prospectively
// to simulations still waiting; frozen entries are untouched.
func (s *Store) SetDelayMinutes(minutes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Settings.DelayMinutes = minutes
}

// Panel returns a copy of one panel slot.
func (s *Store) Panel(key string) model.PanelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.state.Panels[key]; ok {
		return *p
	}
	return model.PanelState{}
}

// SetPanel records the message backing a panel slot.
func (s *Store) SetPanel(key string, messageID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Panels[key] = &model.PanelState{MessageID: messageID, LastText: text}
}

// ClearPanel resets a panel slot to the no-message state.
func (s *Store) ClearPanel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.Panels, key)
}

// Reset wipes all tokens and panel slots, keeping settings.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Tokens = make(map[string]*model.TrackedToken)
	s.state.Panels = make(map[string]*model.PanelState)
}

// Save serializes the full state to disk with atomic-replace semantics.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := saveState(s.filePath, s.state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
