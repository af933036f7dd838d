package tickcycle

import (
	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/handlers"
	"github.com/talgya/crossroads/internal/reflection"
	"github.com/talgya/crossroads/internal/simstate"
)

// reflect runs spec §5's Reflection phase: every agent that submitted an
// action this tick gets a synthesized memory of its outcome and any goal
// updates its decision carried, regardless of whether the action succeeded.
// Agents that submitted nothing (not present at a populated location, or
// dead before Decision ran) are left untouched.
func reflect(state *simstate.State, tick uint64, actions map[agent.ID]action.Action, taken map[agent.ID]handlers.HandlerResult) {
	for _, a := range sortedAliveAgents(state) {
		act, ok := actions[a.ID]
		if !ok {
			continue
		}
		res := taken[a.ID]
		reflection.Reflect(a, tick, act, reflection.Outcome{Success: res.Success, Detail: res.Detail})
	}
}
