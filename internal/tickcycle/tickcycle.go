// Package tickcycle implements RunTick, the six-phase orchestrator that
// advances one simulation tick end to end: Wake, Perception, Decision,
// Resolution, Persist, Reflection (spec §5).
//
// Grounded on the teacher's Engine.step (internal/engine/tick.go), which
// sequences a single tick's callbacks (OnTick/OnHour/OnDay/...) in a fixed
// order with slog.Info bracketing start/stop; this package generalizes that
// single-function step into five ordered sub-phases; the sixth
// (Persistence) has no step inside RunTick, since internal/persistence owns
// actual snapshot writes, called by the process boundary (cmd/crossroads)
// rather than from inside a tick.
package tickcycle

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/conflict"
	"github.com/talgya/crossroads/internal/decision"
	"github.com/talgya/crossroads/internal/simstate"
)

// Config bundles the per-run choices RunTick needs but simstate.State
// doesn't carry itself: which decision source resolves actions the fast
// rule path doesn't, which conflict strategy arbitrates contested gathers,
// and how long a tick waits on that decision source before defaulting to
// NoAction (spec §6 "Decision-source failure or timeout: defaults to
// NoAction").
type Config struct {
	Decision         decision.Source
	ConflictStrategy conflict.Strategy
	DecisionTimeout  time.Duration
}

// Result summarizes one completed tick, for the caller's logging/narration
// (internal/api's observation feed, cmd/crossroads' console output) without
// it having to re-derive this from state.Log.
type Result struct {
	Tick         uint64
	ActionsTaken int
	Deaths       int
	Births       int
}

// RunTick advances state by exactly one tick, running every phase in strict
// sequence (spec §5 invariant: "phases never interleave within a tick").
// rng must be a single source seeded once per run and passed to every
// RunTick call across that run's lifetime (internal/vitals' own determinism
// requirement propagated up to this entry point); RunTick never constructs
// its own rand.Source. Only a hard world-consistency fault (an agent's
// recorded Position naming a Location that no longer exists) returns an
// error here — everything else that can go wrong for a single agent or
// action is absorbed as that agent's NoAction/failure for the tick, per
// spec §7's "tick-fatal errors are rare; most failures are scoped to one
// agent or one action."
func RunTick(ctx context.Context, state *simstate.State, cfg Config, rng *rand.Rand) (Result, error) {
	tick, deaths, births, err := wake(state, rng)
	if err != nil {
		return Result{}, err
	}
	slog.Info("tick woke", "tick", tick, "agents", len(state.AliveAgents()), "deaths", deaths, "births", births)

	perceptions := perceive(state, tick)

	actions := decide(ctx, state, cfg, tick, perceptions)

	taken := resolve(state, cfg, tick, actions)

	reflect(state, tick, actions, taken)

	slog.Info("tick resolved", "tick", tick, "actions", len(actions))
	return Result{Tick: tick, ActionsTaken: len(actions), Deaths: deaths, Births: births}, nil
}

// sortedAliveAgents is the single deterministic iteration order every phase
// uses (spec §5 "agents are processed in sorted-ID order within every
// phase"), reused instead of re-sorting ad hoc in each phase.
func sortedAliveAgents(state *simstate.State) []*agent.Agent {
	out := state.AliveAgents()
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
