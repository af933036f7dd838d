// Package decision defines the Decision source port (spec §6
// "collect_decisions(tick, perceptions) -> map<agent_id, ActionRequest>")
// and its three implementations: a stub that always returns NoAction, a
// rule-engine adapter, and an LLM adapter.
//
// New code — the teacher's engine calls agents.Decide in-process with no
// pluggable boundary (internal/engine/simulation.go TickMinute); this
// package is the seam spec §6 requires so internal/tickcycle never knows
// which concrete decision strategy a run is configured with.
package decision

import (
	"context"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/perception"
)

// Source collects one ActionRequest (action.Action doubles as that shape,
// see internal/action) per agent with a perception this tick. A source may
// omit an agent from the result map entirely; the caller treats that the
// same as an explicit NoAction (spec §6 "Decision-source failure or
// timeout: defaults to NoAction").
type Source interface {
	CollectDecisions(ctx context.Context, tick uint64, perceptions map[agent.ID]perception.Perception) map[agent.ID]action.Action
}

// Stub always returns NoAction for every agent it's asked about. Used for
// dry runs and as the Decision source's documented fallback implementation
// (spec §6).
type Stub struct{}

func (Stub) CollectDecisions(_ context.Context, _ uint64, perceptions map[agent.ID]perception.Perception) map[agent.ID]action.Action {
	out := make(map[agent.ID]action.Action, len(perceptions))
	for id := range perceptions {
		out[id] = action.Action{AgentID: id, Kind: action.NoAction}
	}
	return out
}
