// Package vitals implements per-tick hunger/thirst/health/age progression
// and death classification (spec §4.9).
//
// Grounded directly on the teacher's agents.DecayNeeds / applyRest
// death-on-zero-health pattern (internal/agents/behavior.go), generalized
// from the teacher's ad hoc inline mutation into the spec's explicit
// ordered sequence with configurable rates and a closed DeathCause enum.
package vitals

import (
	"math/rand"

	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/worldmap"
)

// DeathCause is the closed set of reasons an agent's life ends.
type DeathCause uint8

const (
	CauseNone DeathCause = iota
	CauseStarvation
	CauseDehydration
	CauseOldAge
	CauseViolence
	CauseAccident
)

func (c DeathCause) String() string {
	switch c {
	case CauseStarvation:
		return "Starvation"
	case CauseDehydration:
		return "Dehydration"
	case CauseOldAge:
		return "OldAge"
	case CauseViolence:
		return "Violence"
	case CauseAccident:
		return "Accident"
	default:
		return "None"
	}
}

// Rates governing the per-tick vitals sequence. A static table, not
// per-agent configuration — spec §9 prefers static tables to dynamic
// dispatch for exactly this kind of global constant.
const (
	HungerPerTick       = 1
	ThirstPerTick       = 2
	EnergyDecayPerTick  = 1
	StarvationDamage    = 3
	DehydrationDamage   = 5
	ElderDeathChance    = 0.0005 // per-tick probability of death once Elder
)

// DeathConsequences is what happens to an agent's held resources at death:
// spec §4.9 requires the full inventory to be accounted for, not discarded.
type DeathConsequences struct {
	DroppedInventory map[worldmap.Resource]uint32
}

// Tick runs the ordered per-tick vitals sequence for a single living agent:
//  1. hunger increases
//  2. thirst increases
//  3. starvation damage applied if hunger is maxed
//  4. dehydration damage applied if thirst is maxed
//  5. passive energy decay
// then checks for death by health exhaustion or old age. Returns whether
// the agent died this tick and, if so, the cause and resulting
// consequences. rng must be a seeded source reused across the run (never a
// fresh unseeded source per call) to preserve the determinism invariant.
func Tick(a *agent.Agent, currentTick uint64, rng *rand.Rand) (died bool, cause DeathCause, consequences DeathConsequences) {
	if !a.Alive {
		return false, CauseNone, DeathConsequences{}
	}

	a.Hunger += HungerPerTick
	a.Thirst += ThirstPerTick

	starving := a.Hunger >= 100
	dehydrated := a.Thirst >= 100
	if starving {
		a.Health -= StarvationDamage
	}
	if dehydrated {
		a.Health -= DehydrationDamage
	}
	a.Energy -= EnergyDecayPerTick
	a.ClampVitals()

	if a.Health <= 0 {
		cause := CauseStarvation
		if dehydrated {
			cause = CauseDehydration // more severe per-tick damage dominates when both apply
		}
		return kill(a, currentTick, cause)
	}

	if a.Maturity(currentTick) == agent.Elder && rng.Float64() < ElderDeathChance {
		return kill(a, currentTick, CauseOldAge)
	}

	return false, CauseNone, DeathConsequences{}
}

// Kill immediately ends an agent's life for a cause external to the
// per-tick vitals sequence (combat, accident), returning the resulting
// consequences. internal/tickcycle's Wake phase calls this for agents whose
// health an event drove to zero.
func Kill(a *agent.Agent, currentTick uint64, cause DeathCause) (bool, DeathCause, DeathConsequences) {
	return kill(a, currentTick, cause)
}

func kill(a *agent.Agent, currentTick uint64, cause DeathCause) (bool, DeathCause, DeathConsequences) {
	dropped := make(map[worldmap.Resource]uint32, len(a.Inventory))
	for res, qty := range a.Inventory {
		if qty > 0 {
			dropped[res] = qty
		}
	}
	a.Inventory = make(map[worldmap.Resource]uint32)
	a.Alive = false
	a.DiedTick = currentTick
	a.Health = 0
	return true, cause, DeathConsequences{DroppedInventory: dropped}
}
