// Package reflection implements the tick cycle's Reflection phase (spec
// §4.15 step 6): for each agent's action result this tick, synthesize a
// memory entry and push it onto the agent's capped memory stream, then
// apply any goal updates the decision source supplied — independent of
// whether the action itself succeeded.
//
// Grounded on the teacher's internal/agents/memory.go (Memory,
// MaxMemories, AddMemory, RecentMemories): same Memory shape
// (Tick/Content/Importance) and the same "cap the stream, evict when
// full" idea. Two things change to match spec: eviction is strict FIFO
// (oldest first) rather than the teacher's lowest-importance-replaced
// policy (spec §3 says exactly "oldest evicted"), and content/importance
// are synthesized from a validated action.Action + outcome rather than
// handed in by a caller that already knows what to say.
package reflection

import (
	"fmt"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
)

// Importance weights for synthesized action memories (spec §4.15 "success
// weight 0.3, failure weight 0.5").
const (
	SuccessWeight float32 = 0.3
	FailureWeight float32 = 0.5
)

// Outcome is the minimal slice of an action's result Reflection needs: it
// doesn't care about handler-specific fields, only whether the action
// succeeded and what rejection (if any) to narrate.
type Outcome struct {
	Success bool
	Detail  string // free-text rejection reason or handler detail, may be empty
}

// Reflect runs the Reflection phase for one agent this tick: synthesizes
// and pushes a memory entry for act's outcome, then overwrites the agent's
// goals if act carried GoalUpdates.
func Reflect(a *agent.Agent, tick uint64, act action.Action, outcome Outcome) {
	a.AddMemory(synthesize(tick, act, outcome))
	if act.GoalUpdates != nil {
		a.SetGoals(act.GoalUpdates)
	}
}

func synthesize(tick uint64, act action.Action, outcome Outcome) agent.Memory {
	weight := SuccessWeight
	verb := "succeeded"
	if !outcome.Success {
		weight = FailureWeight
		verb = "failed"
	}

	content := fmt.Sprintf("%s %s", act.Kind, verb)
	if outcome.Detail != "" {
		content = fmt.Sprintf("%s: %s", content, outcome.Detail)
	}

	return agent.Memory{
		Tick:       tick,
		Content:    content,
		Importance: weight,
		Type:       agent.MemoryTypeAction,
	}
}

// RecentContent returns the content strings of an agent's most recent n
// memories, newest first — the form internal/perception's RecentMemory
// slice expects (spec §6 perception payload "recent memory").
func RecentContent(a *agent.Agent, n int) []string {
	if len(a.Memories) == 0 {
		return nil
	}
	if n > len(a.Memories) {
		n = len(a.Memories)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = a.Memories[len(a.Memories)-1-i].Content
	}
	return out
}
