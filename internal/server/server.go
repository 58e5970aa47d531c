package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"TokenRadar/internal/ingest"
	"TokenRadar/internal/store"

	"github.com/gorilla/mux"
)

// Server exposes the keep-alive endpoint, a small status view, and the
// push endpoint the message-ingestion transport delivers mention events to.
type Server struct {
	store     *store.Store
	handler   *ingest.Handler
	lastCycle func() time.Time
	startedAt time.Time
}

// New creates an http.Server listening on addr.
func New(addr string, st *store.Store, h *ingest.Handler, lastCycle func() time.Time) *http.Server {
	s := &Server{
		store:     st,
		handler:   h,
		lastCycle: lastCycle,
		startedAt: time.Now(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/status", s.status).Methods(http.MethodGet)
	r.HandleFunc("/mentions", s.mentions).Methods(http.MethodPost)

	return &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Tracker Bot OK"))
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	settings := s.store.Settings()
	var last *time.Time
	if t := s.lastCycle(); !t.IsZero() {
		last = &t
	}
	resp := map[string]any{
		"tracked":        s.store.Len(),
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"invest_amount":  settings.InvestAmount,
		"delay_minutes":  settings.DelayMinutes,
		"last_cycle":     last,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[WARN] encode status: %v", err)
	}
}

func (s *Server) mentions(w http.ResponseWriter, r *http.Request) {
	var evt ingest.Event
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := s.handler.Handle(r.Context(), evt); err != nil {
		log.Printf("[WARN] ingest mention: %v", err)
		http.Error(w, "ingest failed", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
