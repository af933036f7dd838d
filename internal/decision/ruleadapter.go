package decision

import (
	"context"
	"sync"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/handlers"
	"github.com/talgya/crossroads/internal/perception"
	"github.com/talgya/crossroads/internal/rules"
	"github.com/talgya/crossroads/internal/worldmap"
)

// RuleEngineAdapter satisfies Source entirely with internal/rules, for runs
// configured to never call out to an LLM. It reconstructs rules.Input from
// Perception alone (MedicineAvailable/WaterAvailable/InventoryFood read off
// perception.SelfState.Inventory, IsNight off TimeOfDay), and owns the
// per-agent LoopState map itself since the Source interface is not handed
// the live *agent.Agent.
//
// Grounded on internal/rules' own doc comment describing the fast path as
// "operates on a Perception" — this adapter is the literal decision.Source
// realization of that same operation, reused rather than duplicated.
type RuleEngineAdapter struct {
	mu         sync.Mutex
	loopStates map[agent.ID]*agent.LoopState
}

// NewRuleEngineAdapter constructs an adapter with an empty loop-state table.
func NewRuleEngineAdapter() *RuleEngineAdapter {
	return &RuleEngineAdapter{loopStates: make(map[agent.ID]*agent.LoopState)}
}

func (r *RuleEngineAdapter) CollectDecisions(_ context.Context, tick uint64, perceptions map[agent.ID]perception.Perception) map[agent.ID]action.Action {
	out := make(map[agent.ID]action.Action, len(perceptions))
	for id, p := range perceptions {
		in := buildRulesInput(p)

		r.mu.Lock()
		ls, ok := r.loopStates[id]
		if !ok {
			ls = &agent.LoopState{}
			r.loopStates[id] = ls
		}
		r.mu.Unlock()

		act, matched := rules.Decide(in, ls)
		if !matched {
			act = action.Action{Kind: action.NoAction}
		}
		act.AgentID = id
		act.SubmittedTick = tick
		out[id] = act
	}
	return out
}

func buildRulesInput(p perception.Perception) rules.Input {
	foodHeld := make(map[worldmap.Resource]uint32)
	var held uint32
	for res, q := range p.Self.Inventory {
		held += q
		if isFoodResource(res) {
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

func isFoodResource(res worldmap.Resource) bool {
	for _, f := range worldmap.FoodResources {
		if f == res {
			return true
		}
	}
	return false
}
