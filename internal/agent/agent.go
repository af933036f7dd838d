// Package agent defines the simulation's core actor: identity, vitals,
// inventory, travel state, and the skills/knowledge an agent has acquired.
//
// Grounded on the teacher's internal/agents/types.go (Agent struct) and
// internal/agents/needs.go (NeedsState), generalized from the teacher's
// Maslow-hierarchy needs model into the spec's vitals (health/energy/
// hunger/thirst) plus maturity-stage gating (spec §4.9, §4.10 stage 4).
package agent

import (
	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/worldmap"
)

// ID is an agent's opaque 128-bit identifier.
type ID = uuid.UUID

// Sex is an agent's biological sex, relevant to the Reproduce stub handler.
type Sex uint8

const (
	Female Sex = iota
	Male
)

// Maturity buckets an agent's age into life stages that gate which actions
// validation permits (spec §4.10 stage 4, "maturity").
type Maturity uint8

const (
	Infant Maturity = iota
	Child
	Adolescent
	Adult
	Elder
)

func (m Maturity) String() string {
	switch m {
	case Infant:
		return "Infant"
	case Child:
		return "Child"
	case Adolescent:
		return "Adolescent"
	case Adult:
		return "Adult"
	case Elder:
		return "Elder"
	default:
		return "Unknown"
	}
}

// Age thresholds (in ticks) for each Maturity stage. Static table, matching
// spec §9's preference for static tables over dynamic dispatch.
const (
	AgeChild      uint64 = 5 * 1440   // 5 sim-days
	AgeAdolescent uint64 = 15 * 1440  // 15 sim-days
	AgeAdult      uint64 = 20 * 1440  // 20 sim-days
	AgeElder      uint64 = 200 * 1440 // 200 sim-days
)

// MaturityAt returns the Maturity stage for a given age in ticks.
func MaturityAt(ageTicks uint64) Maturity {
	switch {
	case ageTicks < AgeChild:
		return Infant
	case ageTicks < AgeAdolescent:
		return Child
	case ageTicks < AgeAdult:
		return Adolescent
	case ageTicks < AgeElder:
		return Adult
	default:
		return Elder
	}
}

// Skill pairs a 0-100 proficiency level with the accumulated experience
// points that drove it there (spec §3: "skills: mapping skill-name → level
// and → experience points").
type Skill struct {
	Level uint8
	XP    uint32
}

// Skills tracks an agent's proficiency in each discipline.
type Skills struct {
	Farming  Skill
	Mining   Skill
	Crafting Skill
	Combat   Skill
	Trade    Skill
	Social   Skill
}

// TravelState describes an in-progress Move action.
type TravelState struct {
	Active      bool
	RouteID     worldmap.RouteID
	Destination worldmap.LocationID
	TicksLeft   uint32
}

// Agent is the simulation's core actor.
type Agent struct {
	ID   ID
	Name string
	Sex  Sex

	BornTick uint64
	Alive    bool
	DiedTick uint64 // valid only if !Alive

	// Vitals are signed so handlers can subtract freely before ClampVitals
	// restores the [0,100] invariant; an unsigned type would wrap on
	// underflow instead of clamping.
	Health int32 // 0-100; 0 triggers death
	Energy int32 // 0-100
	Hunger int32 // 0-100; 100 is starving
	Thirst int32 // 0-100; 100 is parched

	Position     worldmap.LocationID
	HomeLocation worldmap.LocationID
	Travel       TravelState

	Inventory map[worldmap.Resource]uint32
	Skills    Skills
	Known     map[string]bool // knowledge.ItemID values, by string to avoid an import cycle

	Goals    []string // ordered, capped at MaxGoals (spec §3)
	Memories []Memory // ordered oldest-to-newest, capped at MaxMemories (spec §3)

	LoopDetector LoopState
}

// MaxGoals is the cap on an agent's ordered goal sequence (spec §3 "goals:
// ordered sequence of up to 5 goal strings").
const MaxGoals = 5

// MemoryType is the closed set of memory entry types. Reflection currently
// only ever synthesizes "action" memories (spec §4.15); the type exists so
// future memory sources (social events, injected-event witnessing) have
// somewhere to land without widening Memory's shape.
type MemoryType string

const MemoryTypeAction MemoryType = "action"

// Memory records a notable experience in an agent's life, created by
// internal/reflection from an action outcome (spec §4.15 "synthesize a
// memory entry").
type Memory struct {
	Tick       uint64
	Content    string
	Importance float32 // success weight 0.3, failure weight 0.5 (spec §4.15)
	Type       MemoryType
}

// MaxMemories caps Memories; spec §3 "memory: ordered sequence of memory
// entries capped at 50 (oldest evicted)" — unlike the teacher's
// importance-based eviction, this is a strict FIFO cap.
const MaxMemories = 50

// AddMemory appends m to the agent's memory stream, evicting the oldest
// entry once the stream is at MaxMemories (spec §3, §4.15).
func (a *Agent) AddMemory(m Memory) {
	a.Memories = append(a.Memories, m)
	if len(a.Memories) > MaxMemories {
		a.Memories = a.Memories[len(a.Memories)-MaxMemories:]
	}
}

// SetGoals overwrites the agent's goal sequence, truncating to MaxGoals
// (spec §4.15 "if the decision supplied goal updates, overwrite the
// agent's goals with them").
func (a *Agent) SetGoals(goals []string) {
	if len(goals) > MaxGoals {
		goals = goals[:MaxGoals]
	}
	a.Goals = append([]string(nil), goals...)
}

// LoopState persists the rule engine's per-agent consecutive-same-rule
// counter across tick boundaries (spec §4.14).
type LoopState struct {
	LastRuleID       string
	ConsecutiveFires uint32
}

// New constructs a freshly born Agent at full vitals.
func New(name string, sex Sex, home worldmap.LocationID, bornTick uint64) *Agent {
	return &Agent{
		ID:           uuid.New(),
		Name:         name,
		Sex:          sex,
		BornTick:     bornTick,
		Alive:        true,
		Health:       100,
		Energy:       100,
		Hunger:       0,
		Thirst:       0,
		Position:     home,
		HomeLocation: home,
		Inventory:    make(map[worldmap.Resource]uint32),
		Known:        make(map[string]bool),
	}
}

// Age returns the agent's age in ticks as of the given current tick.
func (a *Agent) Age(currentTick uint64) uint64 {
	if currentTick < a.BornTick {
		return 0
	}
	return currentTick - a.BornTick
}

// Maturity returns the agent's current life stage.
func (a *Agent) Maturity(currentTick uint64) Maturity {
	return MaturityAt(a.Age(currentTick))
}

// HasResource reports whether the agent holds at least `amount` of res.
func (a *Agent) HasResource(res worldmap.Resource, amount uint32) bool {
	return a.Inventory[res] >= amount
}

// AddResource increases the agent's held quantity of res.
func (a *Agent) AddResource(res worldmap.Resource, amount uint32) {
	a.Inventory[res] += amount
}

// RemoveResource decreases the agent's held quantity of res, floored at
// zero, and reports whether the full amount was available.
func (a *Agent) RemoveResource(res worldmap.Resource, amount uint32) bool {
	have := a.Inventory[res]
	if have < amount {
		a.Inventory[res] = 0
		return false
	}
	a.Inventory[res] = have - amount
	return true
}

// BestFood returns the highest-priority food resource the agent is
// currently holding a nonzero amount of, per worldmap.FoodPriority (spec
// §4.14's "best food in inventory" rule-engine heuristic).
func (a *Agent) BestFood() (worldmap.Resource, bool) {
	for _, res := range worldmap.FoodPriority {
		if a.Inventory[res] > 0 {
			return res, true
		}
	}
	return 0, false
}

// ClampVitals restores Health/Energy/Hunger/Thirst to their [0,100] range
// after a mutation; every vitals-mutating handler must call this before
// returning (spec §9 invariant: vitals never leave [0,100]).
func (a *Agent) ClampVitals() {
	a.Health = clamp100(a.Health)
	a.Energy = clamp100(a.Energy)
	a.Hunger = clamp100(a.Hunger)
	a.Thirst = clamp100(a.Thirst)
}

func clamp100(v int32) int32 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
