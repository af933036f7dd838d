package tickcycle

import (
	"context"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/handlers"
	"github.com/talgya/crossroads/internal/perception"
	"github.com/talgya/crossroads/internal/rules"
	"github.com/talgya/crossroads/internal/simstate"
	"github.com/talgya/crossroads/internal/worldmap"
)

// decide runs spec §5's Decision phase: the fast rule-engine path
// (internal/rules) checked first against each agent's own, by-reference
// agent.LoopDetector — unlike decision.RuleEngineAdapter, which keeps a
// separate loop-state table because the decision.Source interface is never
// handed the live *agent.Agent — then the configured external source for
// whichever agents the fast path didn't resolve, bounded by
// cfg.DecisionTimeout.
func decide(ctx context.Context, state *simstate.State, cfg Config, tick uint64, perceptions map[agent.ID]perception.Perception) map[agent.ID]action.Action {
	out := make(map[agent.ID]action.Action, len(perceptions))
	needExternal := make(map[agent.ID]perception.Perception)

	for _, a := range sortedAliveAgents(state) {
		p, ok := perceptions[a.ID]
		if !ok {
			continue
		}
		act, matched := rules.Decide(buildRulesInput(p), &a.LoopDetector)
		if !matched {
			needExternal[a.ID] = p
			continue
		}
		act.AgentID = a.ID
		act.SubmittedTick = tick
		out[a.ID] = act
	}

	if len(needExternal) > 0 {
		out = mergeExternalDecisions(ctx, cfg, tick, needExternal, out)
	}

	// Submission order is sorted-agent-ID ascending regardless of which
	// path resolved the action (spec §4.11's conflict-claim ordering and
	// the general determinism invariant depend on a single, stable order).
	var seq uint64
	for _, a := range sortedAliveAgents(state) {
		act, ok := out[a.ID]
		if !ok {
			continue
		}
		act.SequenceNumber = seq
		out[a.ID] = act
		seq++
	}
	return out
}

// mergeExternalDecisions calls cfg.Decision for every agent the fast path
// left unresolved, defaulting to NoAction per-agent if the source omits one,
// returns an empty map, or the call exceeds cfg.DecisionTimeout (spec §6).
func mergeExternalDecisions(ctx context.Context, cfg Config, tick uint64, needExternal map[agent.ID]perception.Perception, out map[agent.ID]action.Action) map[agent.ID]action.Action {
	var external map[agent.ID]action.Action
	if cfg.Decision != nil {
		callCtx := ctx
		if cfg.DecisionTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, cfg.DecisionTimeout)
			defer cancel()
		}
		external = cfg.Decision.CollectDecisions(callCtx, tick, needExternal)
	}
	for id := range needExternal {
		act, ok := external[id]
		if !ok {
			act = action.Action{Kind: action.NoAction}
		}
		act.AgentID = id
		act.SubmittedTick = tick
		out[id] = act
	}
	return out
}

// buildRulesInput reconstructs rules.Input from a Perception, the same
// derivation decision.RuleEngineAdapter's unexported buildRulesInput
// performs (that function is private to internal/decision, which exists to
// satisfy the decision.Source port; tickcycle's fast path runs inline
// instead of through that port, so it needs its own copy of the same
// derivation).
func buildRulesInput(p perception.Perception) rules.Input {
	foodHeld := make(map[worldmap.Resource]uint32)
	var held uint32
	for res, q := range p.Self.Inventory {
		held += q
		if res.IsFood() {
			foodHeld[res] = q
		}
	}
	waterAvailable := p.Self.Inventory[worldmap.ResourceWater] > 0 || p.Surroundings.ResourceCounts[worldmap.ResourceWater] > 0

	return rules.Input{
		P:                 p,
		IsNight:           p.TimeOfDay == "Night",
		MedicineAvailable: p.Self.Inventory[worldmap.ResourceMedicine] > 0,
		WaterAvailable:    waterAvailable,
		InventoryFood:     foodHeld,
		InventoryHeld:     held,
		InventoryMax:      handlers.MaxCarry,
		BaseGatherYield:   handlers.BaseGatherYield,
	}
}
