// Package api provides the read-only HTTP observation API over a running
// simulation, plus a small admin control plane for operator actions
// (event injection).
//
// Grounded on the teacher's internal/api/server.go (Server wraps the live
// simulation, GET endpoints are public/read-only, POST endpoints require a
// bearer token, a dedicated adminOnly wrapper, CORS middleware, writeJSON
// helper) generalized from net/http.ServeMux + a hand-rolled bearer-token
// check onto github.com/go-chi/chi/v5 for routing and
// github.com/golang-jwt/jwt/v5 for signing/verifying the admin token, per
// SPEC_FULL §1's "from elite-agent-collective" wiring.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/events"
	"github.com/talgya/crossroads/internal/simstate"
)

// Server serves a read-only view of a simstate.State over HTTP, guarded by
// mu so concurrent JSON encoding never races with a tick in progress.
//
// Unlike the teacher's Server, which reads engine.Simulation fields with no
// synchronization (its HTTP goroutine and tick loop coexist by convention,
// not by lock), this Server takes the same *sync.RWMutex the run loop locks
// for the duration of each RunTick — a correctness fix required once the
// API runs in its own goroutine alongside a tick loop that mutates the same
// State concurrently (documented in DESIGN.md).
type Server struct {
	State *simstate.State
	Mu    *sync.RWMutex

	Addr      string
	JWTSecret []byte // empty disables admin (POST) endpoints entirely

	httpServer *http.Server
}

// Router builds the chi.Router serving every endpoint, exposed separately
// from Start so tests can exercise it with httptest.NewServer without
// binding a real port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/agents", s.handleAgents)
	r.Get("/api/v1/agents/{id}", s.handleAgentDetail)
	r.Get("/api/v1/locations", s.handleLocations)
	r.Get("/api/v1/events", s.handleEvents)
	r.Get("/api/v1/stats", s.handleStats)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/api/v1/inject", s.handleInject)
	})

	return r
}

// Start begins serving the HTTP API in a background goroutine. Call
// Shutdown to stop it.
func (s *Server) Start() {
	s.httpServer = &http.Server{Addr: s.Addr, Handler: s.Router()}

	slog.Info("observation API starting", "addr", s.Addr, "admin_auth", len(s.JWTSecret) > 0)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observation API error", "error", err)
		}
	}()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- public, read-only endpoints ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	st := s.State
	writeJSON(w, http.StatusOK, map[string]any{
		"tick":        st.Clock.Tick(),
		"season":      st.Clock.Season(),
		"time_of_day": st.Clock.TimeOfDay().String(),
		"agent_count": len(st.AliveAgents()),
	})
}

type agentSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Alive    bool      `json:"alive"`
	Health   int32     `json:"health"`
	Position uuid.UUID `json:"position"`
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	out := make([]agentSummary, 0, len(s.State.Agents))
	for _, a := range s.State.Agents {
		out = append(out, agentSummary{ID: uuid.UUID(a.ID), Name: a.Name, Alive: a.Alive, Health: a.Health, Position: a.Position})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	s.Mu.RLock()
	defer s.Mu.RUnlock()

	a, ok := s.State.AgentIndex[agent.ID(id)]
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type locationSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Population int       `json:"population"`
	HasShelter bool      `json:"has_shelter"`
	HasFire    bool      `json:"has_fire"`
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	var out []locationSummary
	for _, id := range s.State.World.AllLocationIDs() {
		loc, ok := s.State.World.GetLocation(id)
		if !ok {
			continue
		}
		out = append(out, locationSummary{
			ID:         loc.ID,
			Name:       loc.Name,
			Population: s.State.PopulationAt(loc.ID),
			HasShelter: loc.HasShelter,
			HasFire:    loc.HasFire,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	log := s.State.Log
	const maxReturned = 200
	if len(log) > maxReturned {
		log = log[len(log)-maxReturned:]
	}
	writeJSON(w, http.StatusOK, log)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	alive := s.State.AliveAgents()
	deaths := 0
	for _, a := range s.State.Agents {
		if !a.Alive {
			deaths++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tick":             s.State.Clock.Tick(),
		"alive_agents":     len(alive),
		"total_agents_ever": len(s.State.Agents),
		"deaths":           deaths,
		"structures":       len(s.State.Structures),
	})
}

// --- admin endpoints ---

type injectRequest struct {
	Kind         string `json:"kind"` // natural_disaster | resource_boom | plague | migration
	TargetRegion string `json:"target_region"`
	Severity     int    `json:"severity"`
}

var injectKinds = map[string]events.Kind{
	"natural_disaster": events.NaturalDisaster,
	"resource_boom":    events.ResourceBoom,
	"plague":           events.Plague,
	"migration":        events.Migration,
}

// handleInject queues an operator event for the next Wake phase to consume
// (spec §6 "Operator injected events"), mirroring the teacher's
// handleIntervention but targeting internal/events.State.Enqueue instead of
// a settlement-specific intervention.
func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	kind, ok := injectKinds[req.Kind]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", req.Kind))
		return
	}

	s.Mu.Lock()
	s.State.Events.Enqueue(events.New(kind, req.TargetRegion, req.Severity))
	s.Mu.Unlock()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
