// Package events implements operator-injected world events (spec §6
// "Operator injected events"): natural disasters, resource booms, plagues,
// and migrations, all queued by an operator (via internal/api or
// cmd/crossroads) and applied during the next Wake phase.
//
// Grounded on the teacher's internal/engine/intervention.go
// (ProvisionSettlement/CultivateSettlement/ConsolidateSettlement), which is
// the teacher's own operator-injected-event mechanism: named interventions
// that mutate settlement state and emit a world Event. This package
// generalizes the teacher's three hand-named interventions into spec's four
// closed event Kinds, replaces ActiveBoost with ActiveBoom/ActivePlague, and
// adds plague-specific spread/duration ticking the teacher's boosts never
// needed.
package events

import (
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/worldmap"
)

// Kind is the closed set of operator-injectable event types (spec §6).
type Kind uint8

const (
	NaturalDisaster Kind = iota
	ResourceBoom
	Plague
	Migration
)

func (k Kind) String() string {
	switch k {
	case NaturalDisaster:
		return "NaturalDisaster"
	case ResourceBoom:
		return "ResourceBoom"
	case Plague:
		return "Plague"
	case Migration:
		return "Migration"
	default:
		return "Unknown"
	}
}

// defaultSeverity and the clamp range spec §6 assigns when an operator omits
// or mistypes a severity.
const defaultSeverity = 2
const minSeverity, maxSeverity = 1, 5

// InjectedEvent is one operator-submitted event awaiting the next Wake.
type InjectedEvent struct {
	Kind         Kind
	TargetRegion string // location name, case-insensitive; Migration ignores this
	Severity     uint8
}

// New constructs an InjectedEvent, clamping severity into [1,5] and
// defaulting to 2 when severity is 0 (spec §6 "Severity defaults to 2 when
// absent or unparseable; clamped to [1,5]" — callers parsing operator input
// are expected to pass 0 for "absent/unparseable").
func New(kind Kind, targetRegion string, severity int) InjectedEvent {
	s := severity
	if s == 0 {
		s = defaultSeverity
	}
	if s < minSeverity {
		s = minSeverity
	}
	if s > maxSeverity {
		s = maxSeverity
	}
	return InjectedEvent{Kind: kind, TargetRegion: targetRegion, Severity: uint8(s)}
}

// ActiveBoom is a resource_boom's lingering effect. Spec's boom mechanics are
// "add once, then nothing further" — the record only exists so Wake can
// expire it; unlike ActivePlague it does no per-tick work.
type ActiveBoom struct {
	LocationID worldmap.LocationID
	ExpiresAt  uint64
}

// ActivePlague is a plague's lingering effect: per-tick Health damage to
// every agent at LocationID until ExpiresAt, optionally having already
// spread once to a neighbor.
type ActivePlague struct {
	LocationID    worldmap.LocationID
	DamagePerTick int32
	ExpiresAt     uint64
	Spreadable    bool // true only immediately after creation from a severity>=3 source plague
}

// SpawnMarker records a pending agent spawn at a location, queued by a
// migration event for the caller (internal/tickcycle) to realize during a
// later Wake.
type SpawnMarker struct {
	LocationID worldmap.LocationID
}

// State holds the operator's pending event backlog plus every currently
// active boom/plague, all of it part of the snapshot payload (spec §6
// "Persistence port... pending events").
type State struct {
	Pending []InjectedEvent
	Booms   []ActiveBoom
	Plagues []ActivePlague
	Spawns  []SpawnMarker

	seed int64
}

// NewState constructs an empty event backlog. seed drives which neighbor a
// spreadable plague spreads to (pickNeighbor): a fresh rand.Source keyed by
// (tick, locationID, seed) per call, never shared mutable state, so spread
// selection stays a pure function of world state like internal/weather's
// Condition draw (same determinism invariant, same technique).
func NewState(seed int64) *State {
	return &State{seed: seed}
}

// Enqueue appends an operator-submitted event to the backlog for the next
// Wake to consume.
func (s *State) Enqueue(e InjectedEvent) {
	s.Pending = append(s.Pending, e)
}

// targetResources returns the resources natural_disaster/resource_boom act
// on (spec §6): Wood, Water, Stone, plus every food resource a location
// stocks (spec's generic "Food").
func targetResources(loc *worldmap.Location) []worldmap.Resource {
	out := []worldmap.Resource{worldmap.ResourceWood, worldmap.ResourceStone, worldmap.ResourceWater}
	for _, res := range worldmap.FoodResources {
		if _, ok := loc.Resources[res]; ok {
			out = append(out, res)
		}
	}
	return out
}

// resolveTarget matches an operator's region string to a Location, falling
// back to the deterministic first location (spec §6).
func resolveTarget(world *worldmap.Map, region string) (worldmap.LocationID, bool) {
	if region != "" {
		if id, ok := world.LocationByName(region); ok {
			return id, true
		}
	}
	return world.FirstLocationID()
}

// Process applies every pending InjectedEvent against world state and
// agents, then clears the backlog. present supplies, for a LocationID, the
// agents physically standing there (natural_disaster damages them).
// Process returns nothing: newly activated plagues/booms are appended to
// s.Plagues/s.Booms directly; SpawnMarkers from Migration are appended to
// s.Spawns.
func (s *State) Process(world *worldmap.Map, ledger *worldmap.Ledger, present map[worldmap.LocationID][]*agent.Agent, populationOf func(worldmap.LocationID) int, tick uint64) {
	pending := s.Pending
	s.Pending = nil
	for _, e := range pending {
		switch e.Kind {
		case NaturalDisaster:
			s.applyDisaster(world, ledger, present, e, tick)
		case ResourceBoom:
			s.applyBoom(world, ledger, e, tick)
		case Plague:
			s.applyPlague(world, e, tick)
		case Migration:
			s.applyMigration(world, populationOf, e)
		}
	}
}

func (s *State) applyDisaster(world *worldmap.Map, ledger *worldmap.Ledger, present map[worldmap.LocationID][]*agent.Agent, e InjectedEvent, tick uint64) {
	locID, ok := resolveTarget(world, e.TargetRegion)
	if !ok {
		return
	}
	loc, ok := world.GetLocation(locID)
	if !ok {
		return
	}
	amount := uint32(e.Severity) * 20
	for _, res := range targetResources(loc) {
		world.DepleteResource(locID, res, amount, tick, worldmap.ReasonDisasterLoss, ledger)
	}
	damage := int32(e.Severity) * 10
	for _, a := range present[locID] {
		a.Health -= damage
		a.ClampVitals()
	}
}

func (s *State) applyBoom(world *worldmap.Map, ledger *worldmap.Ledger, e InjectedEvent, tick uint64) {
	locID, ok := resolveTarget(world, e.TargetRegion)
	if !ok {
		return
	}
	loc, ok := world.GetLocation(locID)
	if !ok {
		return
	}
	amount := uint32(e.Severity) * 15
	for _, res := range targetResources(loc) {
		world.AddResourceAt(locID, res, amount, tick, worldmap.ReasonEventBoom, ledger)
	}
	s.Booms = append(s.Booms, ActiveBoom{
		LocationID: locID,
		ExpiresAt:  tick + uint64(e.Severity)*10,
	})
}

func (s *State) applyPlague(world *worldmap.Map, e InjectedEvent, tick uint64) {
	locID, ok := resolveTarget(world, e.TargetRegion)
	if !ok {
		return
	}
	s.Plagues = append(s.Plagues, ActivePlague{
		LocationID:    locID,
		DamagePerTick: int32(e.Severity) * 5,
		ExpiresAt:     tick + uint64(e.Severity)*8,
		Spreadable:    e.Severity >= 3,
	})
}

func (s *State) applyMigration(world *worldmap.Map, populationOf func(worldmap.LocationID) int, e InjectedEvent) {
	ids := world.AllLocationIDs()
	if len(ids) == 0 {
		return
	}
	target := ids[0]
	best := populationOf(target)
	for _, id := range ids[1:] {
		if p := populationOf(id); p < best {
			best = p
			target = id
		}
	}
	count := int(e.Severity) * 2
	for i := 0; i < count; i++ {
		s.Spawns = append(s.Spawns, SpawnMarker{LocationID: target})
	}
}

// Advance ticks down every active plague (applying per-tick damage to
// co-located agents, and spreading once to a neighbor with halved damage and
// duration if the plague was created spreadable) and expires booms/plagues
// whose ExpiresAt has passed, run once per Wake after Process (spec §6 Wake
// "tick down active plagues... and resource booms").
func (s *State) Advance(world *worldmap.Map, present map[worldmap.LocationID][]*agent.Agent, tick uint64) {
	var spread []ActivePlague
	keepPlagues := s.Plagues[:0]
	for _, p := range s.Plagues {
		if tick >= p.ExpiresAt {
			continue
		}
		for _, a := range present[p.LocationID] {
			a.Health -= p.DamagePerTick
			a.ClampVitals()
		}
		if p.Spreadable {
			if neighbors := world.Neighbors(p.LocationID); len(neighbors) > 0 {
				spread = append(spread, ActivePlague{
					LocationID:    s.pickNeighbor(neighbors, p.LocationID, tick),
					DamagePerTick: p.DamagePerTick / 2,
					ExpiresAt:     tick + (p.ExpiresAt-tick)/2,
					Spreadable:    false, // a spread plague never re-spreads (spec §6)
				})
			}
			p.Spreadable = false
		}
		keepPlagues = append(keepPlagues, p)
	}
	s.Plagues = append(keepPlagues, spread...)

	keepBooms := s.Booms[:0]
	for _, b := range s.Booms {
		if tick >= b.ExpiresAt {
			continue
		}
		keepBooms = append(keepBooms, b)
	}
	s.Booms = keepBooms
}

// pickNeighbor deterministically selects one LocationID from neighbors,
// keyed only by (tick, source, s.seed) — the same fresh-Source-per-call
// technique internal/weather.System.Weather uses, so repeated calls with
// identical inputs always agree regardless of call order (spec §9
// determinism invariant).
func (s *State) pickNeighbor(neighbors []worldmap.LocationID, source worldmap.LocationID, tick uint64) worldmap.LocationID {
	if len(neighbors) == 1 {
		return neighbors[0]
	}
	h := fnv.New64a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(tick >> (8 * uint(i)))
	}
	h.Write(buf[:])
	for i := 0; i < 8; i++ {
		buf[i] = byte(uint64(s.seed) >> (8 * uint(i)))
	}
	h.Write(buf[:])
	h.Write([]byte(source.String()))

	r := rand.New(rand.NewSource(int64(h.Sum64())))
	return neighbors[r.Intn(len(neighbors))]
}

// DrainSpawns returns and clears the pending spawn markers, for the caller
// (internal/tickcycle) to realize as new agents born into the world.
func (s *State) DrainSpawns() []SpawnMarker {
	out := s.Spawns
	s.Spawns = nil
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID.String() < out[j].LocationID.String() })
	return out
}
