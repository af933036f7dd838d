package worldmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/weather"
)

// LocationID and RouteID are opaque 128-bit identifiers (spec §3).
type LocationID = uuid.UUID
type RouteID = uuid.UUID

// PathType describes a route's construction tier. Better tiers lower travel
// cost and resist decay; ImproveRoute (internal/handlers) upgrades tiers one
// step at a time.
type PathType uint8

const (
	PathTrail PathType = iota
	PathRoad
	PathHighway
)

func (p PathType) String() string {
	switch p {
	case PathTrail:
		return "Trail"
	case PathRoad:
		return "Road"
	case PathHighway:
		return "Highway"
	default:
		return "Unknown"
	}
}

// NextPathUpgrade returns the next tier above p and true, or the zero value
// and false if p is already the highest tier.
func NextPathUpgrade(p PathType) (PathType, bool) {
	switch p {
	case PathTrail:
		return PathRoad, true
	case PathRoad:
		return PathHighway, true
	default:
		return PathTrail, false
	}
}

// UpgradeCost returns the materials required to upgrade a route currently at
// tier p to its next tier. Static table (spec §9 "prefer static tables").
func UpgradeCost(p PathType) map[Resource]uint32 {
	switch p {
	case PathTrail:
		return map[Resource]uint32{ResourceWood: 20, ResourceStone: 10}
	case PathRoad:
		return map[Resource]uint32{ResourceStone: 40, ResourceMetal: 5}
	default:
		return nil
	}
}

// costMultiplier scales a route's BaseCost by its construction tier.
func (p PathType) costMultiplier() float64 {
	switch p {
	case PathTrail:
		return 1.0
	case PathRoad:
		return 0.6
	case PathHighway:
		return 0.3
	default:
		return 1.0
	}
}

// ACL gates who may act at or traverse a Location or Route (spec §3 "ACL":
// "allowed-agents set, allowed-groups set, denied-agents set, public flag").
type ACL struct {
	Public        bool
	AllowedAgents map[uuid.UUID]bool
	AllowedGroups map[uuid.UUID]bool
	DeniedAgents  map[uuid.UUID]bool
}

// Allows implements spec §3's traversal predicate: "not in denied ∧
// (public ∨ allowed ∨ group-member)". Denial always wins, even over a
// public flag or explicit allow-list entry.
func (a ACL) Allows(agent uuid.UUID, groups []uuid.UUID) bool {
	if a.DeniedAgents[agent] {
		return false
	}
	if a.Public {
		return true
	}
	if a.AllowedAgents[agent] {
		return true
	}
	for _, g := range groups {
		if a.AllowedGroups[g] {
			return true
		}
	}
	return false
}

// ResourceNode tracks a harvestable quantity of a single Resource at a
// Location, with a regeneration rate bounded by a maximum.
type ResourceNode struct {
	Resource    Resource
	Quantity    uint32
	MaxQuantity uint32
	RegenRate   uint32 // quantity restored per regeneration pass
}

// Regenerate restores RegenRate units, capped at MaxQuantity, and returns the
// amount actually added (for ledger accounting).
func (n *ResourceNode) Regenerate() uint32 {
	room := n.MaxQuantity - n.Quantity
	if room == 0 {
		return 0
	}
	add := n.RegenRate
	if add > room {
		add = room
	}
	n.Quantity += add
	return add
}

// Location is a node in the world graph: a place agents occupy, gather from,
// and build at.
type Location struct {
	ID             LocationID
	Name           string
	Resources      map[Resource]*ResourceNode
	Structures     []uuid.UUID
	ACL            ACL
	StorageSlots   uint32
	HasShelter     bool
	HasFire        bool
	HasMeetingHall bool
	HasLibrary     bool
	HasWorkshop    bool
	HasForge       bool
	HasFarmPlot    bool
}

// Route is a directed edge between two Locations.
type Route struct {
	ID         RouteID
	From       LocationID
	To         LocationID
	BaseCost   uint32 // ticks of travel at PathTrail tier, no weather penalty
	PathType   PathType
	Durability uint32 // 0..100; reaching 0 closes the route until repaired
	Toll       map[Resource]uint32 // resources a Move along this route consumes from the traveler; nil means free passage
	ACL        ACL                 // spec §3: Routes carry an ACL alongside Locations
}

// RouteDecayPerTick is how much Durability a route loses per tick of existence
// (invariant: routes degrade monotonically absent repair/upgrade).
const RouteDecayPerTick = 1

// Decay reduces Durability by RouteDecayPerTick, floored at zero.
func (r *Route) Decay() {
	if r.Durability > RouteDecayPerTick {
		r.Durability -= RouteDecayPerTick
	} else {
		r.Durability = 0
	}
}

// Closed reports whether the route is impassable due to decay.
func (r *Route) Closed() bool {
	return r.Durability == 0
}

// Map is the graph of Locations connected by directed Routes.
type Map struct {
	locations map[LocationID]*Location
	routes    map[RouteID]*Route
	outbound  map[LocationID][]RouteID
}

// NewMap constructs an empty world graph.
func NewMap() *Map {
	return &Map{
		locations: make(map[LocationID]*Location),
		routes:    make(map[RouteID]*Route),
		outbound:  make(map[LocationID][]RouteID),
	}
}

// AddLocation inserts a Location, assigning it an ID if the zero UUID was
// given, and returns the assigned ID.
func (m *Map) AddLocation(loc *Location) LocationID {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	if loc.Resources == nil {
		loc.Resources = make(map[Resource]*ResourceNode)
	}
	m.locations[loc.ID] = loc
	return loc.ID
}

// AddRoute inserts a directed Route between two existing Locations.
func (m *Map) AddRoute(r *Route) (RouteID, error) {
	if _, ok := m.locations[r.From]; !ok {
		return uuid.Nil, fmt.Errorf("worldmap: unknown From location %s", r.From)
	}
	if _, ok := m.locations[r.To]; !ok {
		return uuid.Nil, fmt.Errorf("worldmap: unknown To location %s", r.To)
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.routes[r.ID] = r
	m.outbound[r.From] = append(m.outbound[r.From], r.ID)
	return r.ID, nil
}

// routeByID returns a Route by ID for direct mutation in tests and handlers
// that already hold a RouteID (e.g. ImproveRoute, Repair).
func (m *Map) routeByID(id RouteID) (*Route, bool) {
	r, ok := m.routes[id]
	return r, ok
}

// RouteByID is the exported form of routeByID, used by handlers that need to
// mutate a route's PathType or Durability directly.
func (m *Map) RouteByID(id RouteID) (*Route, bool) {
	return m.routeByID(id)
}

// GetLocation returns the Location by ID, or nil, false if absent.
func (m *Map) GetLocation(id LocationID) (*Location, bool) {
	loc, ok := m.locations[id]
	return loc, ok
}

// LocationByName returns the Location whose Name matches (case-insensitive),
// or false if none does. Used by internal/events to resolve an operator's
// target_region string to a concrete Location (spec §6 "a region is matched
// by name, case-insensitive").
func (m *Map) LocationByName(name string) (LocationID, bool) {
	for _, id := range m.sortedLocationIDs() {
		if strings.EqualFold(m.locations[id].Name, name) {
			return id, true
		}
	}
	return uuid.Nil, false
}

// FirstLocationID deterministically returns the lowest-sorted LocationID in
// the map, the fallback target when an operator's region name doesn't match
// any Location (spec §6 "falls back to the first location").
func (m *Map) FirstLocationID() (LocationID, bool) {
	ids := m.sortedLocationIDs()
	if len(ids) == 0 {
		return uuid.Nil, false
	}
	return ids[0], true
}

// AllLocationIDs returns every LocationID in the map in deterministic order.
func (m *Map) AllLocationIDs() []LocationID {
	return m.sortedLocationIDs()
}

// AllRoutes returns every Route in the graph, sorted by ID, for callers
// (internal/tickcycle's per-tick Decay pass) that need to walk the full set
// rather than one location's outbound edges.
func (m *Map) AllRoutes() []*Route {
	ids := make([]RouteID, 0, len(m.routes))
	for id := range m.routes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	out := make([]*Route, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.routes[id])
	}
	return out
}

func (m *Map) sortedLocationIDs() []LocationID {
	ids := make([]LocationID, 0, len(m.locations))
	for id := range m.locations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// RoutesBetween returns every directed route from `from` to `to` (normally
// zero or one, but nothing forbids parallel routes of different tiers).
func (m *Map) RoutesBetween(from, to LocationID) []*Route {
	var out []*Route
	for _, rid := range m.outbound[from] {
		r := m.routes[rid]
		if r.To == to {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// FindRouteFromTo returns the cheapest open route between two locations, if
// any.
func (m *Map) FindRouteFromTo(from, to LocationID) (*Route, bool) {
	candidates := m.RoutesBetween(from, to)
	var best *Route
	for _, r := range candidates {
		if r.Closed() {
			continue
		}
		if best == nil || r.BaseCost < best.BaseCost {
			best = r
		}
	}
	return best, best != nil
}

// Neighbors returns the distinct Locations directly reachable from `from` by
// an open route.
func (m *Map) Neighbors(from LocationID) []LocationID {
	seen := make(map[LocationID]bool)
	var out []LocationID
	for _, rid := range m.outbound[from] {
		r := m.routes[rid]
		if r.Closed() {
			continue
		}
		if !seen[r.To] {
			seen[r.To] = true
			out = append(out, r.To)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// EffectiveTravelCost computes the actual tick cost of traversing a route
// given the current weather. Storm conditions make the route impassable
// regardless of durability (validation stage 7, world state / §4.10).
func (m *Map) EffectiveTravelCost(routeID RouteID, cond weather.Condition) (cost uint32, blocked bool) {
	r, ok := m.routes[routeID]
	if !ok || r.Closed() {
		return 0, true
	}
	if cond.BlocksTravel() {
		return 0, true
	}
	adjusted := float64(r.BaseCost) * r.PathType.costMultiplier()
	if cond == weather.Rain || cond == weather.Snow || cond == weather.Fog {
		adjusted *= 1.25
	}
	if adjusted < 1 {
		adjusted = 1
	}
	return uint32(adjusted), false
}

// DepleteResource removes up to `amount` units of a Resource at a Location
// (floored at zero) and appends a ledger entry with the given reason. Unlike
// HarvestResource this has no actor and is used by world-scale effects
// (internal/events natural disasters) rather than agent gather actions.
func (m *Map) DepleteResource(locID LocationID, res Resource, amount uint32, tick uint64, reason Reason, ledger *Ledger) uint32 {
	loc, ok := m.locations[locID]
	if !ok {
		return 0
	}
	node, ok := loc.Resources[res]
	if !ok || node.Quantity == 0 {
		return 0
	}
	take := amount
	if take > node.Quantity {
		take = node.Quantity
	}
	node.Quantity -= take
	if take > 0 && ledger != nil {
		ledger.Append(Entry{Tick: tick, Location: locID, Resource: res, Delta: -int64(take), Reason: reason})
	}
	return take
}

// AddResourceAt increases a Resource node's Quantity at a Location, capped at
// MaxQuantity, and appends a ledger entry with the given reason. A no-op if
// the Location has no node for that Resource (world effects enrich existing
// nodes, they don't create new resource types at a location).
func (m *Map) AddResourceAt(locID LocationID, res Resource, amount uint32, tick uint64, reason Reason, ledger *Ledger) uint32 {
	loc, ok := m.locations[locID]
	if !ok {
		return 0
	}
	node, ok := loc.Resources[res]
	if !ok {
		return 0
	}
	room := node.MaxQuantity - node.Quantity
	add := amount
	if add > room {
		add = room
	}
	node.Quantity += add
	if add > 0 && ledger != nil {
		ledger.Append(Entry{Tick: tick, Location: locID, Resource: res, Delta: int64(add), Reason: reason})
	}
	return add
}

// FoodResources lists every Resource classified IsFood, in deterministic
// order. World-scale effects that act on "Food" generically (spec §6
// natural_disaster/resource_boom) apply to each food resource a Location
// actually stocks.
var FoodResources = []Resource{
	ResourceFoodBerry, ResourceFoodRoot, ResourceFoodMeat,
	ResourceFoodFish, ResourceFoodFarmed, ResourceFoodCooked,
}

// RegenerateAllResources runs one regeneration pass over every ResourceNode
// in the map, scaled by season, appending a ledger entry per non-zero
// restoration so the conservation invariant (spec §6) can be checked.
func (m *Map) RegenerateAllResources(season string, tick uint64, ledger *Ledger) {
	seasonMultiplier := map[string]float64{
		"Spring": 1.5, "Summer": 1.2, "Autumn": 1.0, "Winter": 0.4,
	}
	mult, ok := seasonMultiplier[season]
	if !ok {
		mult = 1.0
	}
	locIDs := make([]LocationID, 0, len(m.locations))
	for id := range m.locations {
		locIDs = append(locIDs, id)
	}
	sort.Slice(locIDs, func(i, j int) bool { return locIDs[i].String() < locIDs[j].String() })
	for _, id := range locIDs {
		loc := m.locations[id]
		resKeys := make([]Resource, 0, len(loc.Resources))
		for res := range loc.Resources {
			resKeys = append(resKeys, res)
		}
		sort.Slice(resKeys, func(i, j int) bool { return resKeys[i] < resKeys[j] })
		for _, res := range resKeys {
			node := loc.Resources[res]
			original := node.RegenRate
			node.RegenRate = uint32(float64(original) * mult)
			added := node.Regenerate()
			node.RegenRate = original
			if added > 0 && ledger != nil {
				ledger.Append(Entry{
					Tick:     tick,
					Location: id,
					Resource: res,
					Delta:    int64(added),
					Reason:   ReasonRegeneration,
				})
			}
		}
	}
}

// HarvestResource removes up to `amount` units of a Resource from a
// Location, returning the quantity actually harvested (which may be less
// than requested if the node is depleted). Appends a ledger entry for the
// consumed units.
func (m *Map) HarvestResource(locID LocationID, res Resource, amount uint32, actor uuid.UUID, tick uint64, ledger *Ledger) (uint32, error) {
	loc, ok := m.locations[locID]
	if !ok {
		return 0, fmt.Errorf("worldmap: unknown location %s", locID)
	}
	node, ok := loc.Resources[res]
	if !ok || node.Quantity == 0 {
		return 0, nil
	}
	take := amount
	if take > node.Quantity {
		take = node.Quantity
	}
	node.Quantity -= take
	if take > 0 && ledger != nil {
		ledger.Append(Entry{
			Tick:     tick,
			Location: locID,
			Resource: res,
			Delta:    -int64(take),
			Reason:   ReasonHarvest,
			Actor:    actor,
		})
	}
	return take, nil
}
