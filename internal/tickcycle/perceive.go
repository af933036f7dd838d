package tickcycle

import (
	"fmt"

	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/perception"
	"github.com/talgya/crossroads/internal/reflection"
	"github.com/talgya/crossroads/internal/simstate"
)

// recentMemoryWindow is how many of an agent's most recent memories are
// surfaced in its Perception (spec §4.6 "recent_memory: a short rolling
// window, not the full memory log").
const recentMemoryWindow = 5

// perceive runs spec §5's Perception phase: one shared LocationContext per
// populated location, then one agent-specific Perception per present agent.
func perceive(state *simstate.State, tick uint64) map[agent.ID]perception.Perception {
	season := state.Clock.Season()
	cond := state.Weather.Weather(tick, season)
	timeOfDay := state.Clock.TimeOfDay().String()

	out := make(map[agent.ID]perception.Perception)
	for _, locID := range state.World.AllLocationIDs() {
		present := state.AgentsAt(locID)
		if len(present) == 0 {
			continue
		}
		locCtx := perception.BuildLocationContext(state.World, locID, present, state.MessageBoards[locID])
		for _, a := range present {
			out[a.ID] = perception.AttachAgent(
				locCtx, a, tick, timeOfDay, season, cond,
				a.Goals, reflection.RecentContent(a, recentMemoryWindow),
				notificationsFor(state, a),
				state.Reputation, state.Social,
			)
		}
	}
	return out
}

// notificationsFor surfaces board messages directly addressed to a (not
// broadcasts, which already appear in Surroundings.Messages) as plain
// strings an agent's Perception can carry.
func notificationsFor(state *simstate.State, a *agent.Agent) []string {
	var out []string
	for _, m := range state.MessageBoards[a.Position] {
		if !m.IsBroadcast && m.RecipientID == a.ID {
			out = append(out, fmt.Sprintf("%s: %s", m.SenderName, m.Content))
		}
	}
	return out
}
