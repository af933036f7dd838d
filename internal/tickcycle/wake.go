package tickcycle

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/handlers"
	"github.com/talgya/crossroads/internal/simstate"
	"github.com/talgya/crossroads/internal/vitals"
	"github.com/talgya/crossroads/internal/worldmap"
)

// wake runs spec §5's Wake phase: advance the clock, expire stale messages,
// regenerate resources, advance in-progress travel, tick every agent's
// vitals, apply the operator's pending/active events, reconcile any deaths
// those events caused directly, realize migration spawns, and decay every
// route and structure. Returns the new tick, death/birth counts for the
// caller's Result, and a non-nil error only on a world-consistency fault.
func wake(state *simstate.State, rng *rand.Rand) (tick uint64, deaths int, births int, err error) {
	for _, a := range sortedAliveAgents(state) {
		if _, ok := state.World.GetLocation(a.Position); !ok {
			return 0, 0, 0, fmt.Errorf("tickcycle: agent %s is at unknown location %s", a.ID, a.Position)
		}
	}

	tick = state.Clock.Advance()
	state.ExpireMessages(tick)

	season := state.Clock.Season()
	state.World.RegenerateAllResources(season, tick, state.Ledger)

	for _, a := range sortedAliveAgents(state) {
		handlers.AdvanceTravel(a)
	}

	for _, a := range sortedAliveAgents(state) {
		died, cause, consequences := vitals.Tick(a, tick, rng)
		if died {
			deaths++
			dropInventory(state, a, consequences, tick)
			narrateDeath(state, a, cause, tick)
		}
	}

	present := state.PresentByLocation()
	state.Events.Process(state.World, state.Ledger, present, state.PopulationAt, tick)
	state.Events.Advance(state.World, present, tick)

	// internal/events' disaster and plague damage mutates Health directly
	// and never calls vitals.Kill, so any agent an event dropped to zero
	// health is finalized here rather than walking around undead until the
	// next vitals.Tick call notices (spec §4.9 "health <= 0 always ends in
	// Kill being called exactly once"). CauseAccident stands in for
	// whichever environmental effect actually did it, since a shared tick
	// can't always attribute the kill to one cause over the other.
	for _, a := range sortedAliveAgents(state) {
		if a.Alive && a.Health <= 0 {
			_, cause, consequences := vitals.Kill(a, tick, vitals.CauseAccident)
			deaths++
			dropInventory(state, a, consequences, tick)
			narrateDeath(state, a, cause, tick)
		}
	}

	for _, spawn := range state.Events.DrainSpawns() {
		sex := agent.Female
		if rng.Intn(2) == 1 {
			sex = agent.Male
		}
		child := agent.New(fmt.Sprintf("Settler-%d-%d", tick, rng.Intn(100000)), sex, spawn.LocationID, tick)
		state.AddAgent(child)
		births++
	}

	for _, route := range state.World.AllRoutes() {
		route.Decay()
	}
	decayStructures(state, tick)

	return tick, deaths, births, nil
}

// dropInventory commits a dead agent's DeathConsequences.DroppedInventory to
// the world at the agent's last Position (spec §4.9 "dropped inventory
// becomes available at the agent's location, not discarded").
func dropInventory(state *simstate.State, a *agent.Agent, consequences vitals.DeathConsequences, tick uint64) {
	resources := make([]worldmap.Resource, 0, len(consequences.DroppedInventory))
	for res := range consequences.DroppedInventory {
		resources = append(resources, res)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i] < resources[j] })
	for _, res := range resources {
		qty := consequences.DroppedInventory[res]
		if qty == 0 {
			continue
		}
		state.World.AddResourceAt(a.Position, res, qty, tick, worldmap.ReasonTransfer, state.Ledger)
	}
}

func narrateDeath(state *simstate.State, a *agent.Agent, cause vitals.DeathCause, tick uint64) {
	state.EmitEvent(simstate.WorldEvent{
		Tick:        tick,
		Description: fmt.Sprintf("%s died of %s", a.Name, cause),
		Category:    "death",
	})
}

// decayStructures runs Structure.Decay over the live registry in sorted-ID
// order and removes anything decayed to rubble, both from the registry and
// from its Location's Structures list (spec §4.12 "a structure with zero
// durability is gone, not merely unusable").
func decayStructures(state *simstate.State, tick uint64) {
	ids := make([]uuid.UUID, 0, len(state.Structures))
	for id := range state.Structures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		s := state.Structures[id]
		s.Decay()
		if !s.Demolished() {
			continue
		}
		delete(state.Structures, id)
		if loc, ok := state.World.GetLocation(s.Location); ok {
			loc.Structures = removeID(loc.Structures, id)
		}
		state.EmitEvent(simstate.WorldEvent{
			Tick:        tick,
			Description: fmt.Sprintf("a %s has decayed to rubble", s.Type),
			Category:    "structure",
		})
	}
}

func removeID(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
