// Package handlers implements the ~25 action handlers that turn a validated
// action.Action into agent-state mutations and world deltas (spec §4.12).
// Each handler follows a strict pre-compute/mutate/signal shape: immutable
// reads of world state happen first, then the agent is mutated, then a
// HandlerResult describes whatever the caller (internal/tickcycle) must
// still commit to the world map — never an overlapping immutable and
// mutable borrow on the same state, per spec §5's ordering guarantee.
//
// Grounded on the teacher's applyWork/applyEat/applyForage/applyRest/
// applySocialize (internal/agents/behavior.go) for the per-handler mutate
// function idiom, and on original_source/crates/emergence-agents/src/
// actions/handlers.rs for the per-action detail shapes (StructureBuiltDetails,
// StructureRepairedDetails, EnforcementAppliedDetails, etc.), adapted here
// into the single HandlerResult struct's optional fields.
package handlers

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/structures"
	"github.com/talgya/crossroads/internal/weather"
	"github.com/talgya/crossroads/internal/worldmap"
)

// Reason is the closed set of handler-level failure causes (spec §7
// "Handler errors"), distinct from validation.RejectionReason because a
// handler can fail for reasons validation cannot see in advance — e.g. a
// gather conflict resolved to zero quantity, or a craft recipe with no
// matching inputs at execution time.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonConflictLost
	ReasonUnavailableTarget
	ReasonInvalidTarget
	ReasonInsufficientResources
	ReasonPermissionDenied
	ReasonCapacityExceeded
	ReasonGovernanceFailed
)

func (r Reason) String() string {
	names := [...]string{
		"None", "ConflictLost", "UnavailableTarget", "InvalidTarget",
		"InsufficientResources", "PermissionDenied", "CapacityExceeded",
		"GovernanceFailed",
	}
	if int(r) < len(names) {
		return names[r]
	}
	return "Unknown"
}

// MaxCarry is the inventory cap a Gather/Build/Demolish/Craft/Mine/Smelt
// handler must respect when adding resources (spec §4.12 "capped by carry").
const MaxCarry uint32 = 200

// Message is a direct or broadcast communication emitted by Communicate/
// Broadcast, matching spec §6's wire shape.
type Message struct {
	SenderID    uuid.UUID
	SenderName  string
	RecipientID uuid.UUID // zero value (uuid.Nil) when IsBroadcast
	Content     string
	Tick        uint64
	LocationID  worldmap.LocationID
	IsBroadcast bool
}

// HandlerResult bundles everything a handler produced: the agent mutation
// already happened by the time this is returned, so HandlerResult carries
// only what the caller must still apply to world state, plus bookkeeping
// for Reflection and rejections.
type HandlerResult struct {
	Success bool
	Reason  Reason
	Detail  string

	LocationDeltas map[worldmap.Resource]int64 // signed deltas to apply to the agent's location
	TollPaid       map[worldmap.Resource]uint32 // resources Move consumed from the traveler's inventory, for ledger attribution

	BeganTravel         bool
	StructureBuilt      *structures.Structure
	StructureRepaired   uuid.UUID
	RestoredAmount      uint32
	StructureDemolished uuid.UUID
	RouteUpgraded       worldmap.RouteID
	RouteRepaired       worldmap.RouteID
	StructureClaimed    uuid.UUID
	FarmPlanted         bool
	FarmHarvested       bool
	LibraryWrite        string
	LibraryRead         string
	Message             *Message
}

func fail(reason Reason, detail string) HandlerResult {
	return HandlerResult{Success: false, Reason: reason, Detail: detail}
}

func ok(detail string) HandlerResult {
	return HandlerResult{Success: true, Detail: detail, LocationDeltas: map[worldmap.Resource]int64{}}
}

// Context bundles the read-only execution context every handler needs.
type Context struct {
	World *worldmap.Map
	Tick  uint64
	Cond  weather.Condition // this tick's weather, for Move's EffectiveTravelCost
}

// Execute dispatches a validated action to its handler. Gather must have
// already passed through internal/conflict before reaching here with its
// resolved, post-conflict quantity in act.Params.Amount.
func Execute(a *agent.Agent, act action.Action, ctx *Context) (HandlerResult, error) {
	switch act.Kind {
	case action.NoAction:
		return ok("no action"), nil
	case action.Gather:
		return gather(a, act, ctx)
	case action.Eat:
		return eat(a, act)
	case action.Drink:
		return drink(a, act, ctx)
	case action.Rest:
		return rest(a, ctx)
	case action.Move:
		return move(a, act, ctx)
	case action.Communicate:
		return communicate(a, act, ctx)
	case action.Broadcast:
		return broadcast(a, act, ctx)
	case action.Teach:
		return teach(a, act)
	case action.Build:
		return build(a, act, ctx)
	case action.Repair:
		return repair(a, act)
	case action.Demolish:
		return demolish(a, act)
	case action.ImproveRoute:
		return improveRoute(a, act, ctx)
	case action.Claim:
		return claim(a, act)
	case action.Legislate:
		return legislate(a, act)
	case action.Enforce:
		return enforce(a, act)
	case action.FarmPlant:
		return farmPlant(a, act)
	case action.FarmHarvest:
		return farmHarvest(a, act)
	case action.Craft:
		return craft(a, act)
	case action.Mine:
		return mine(a, act, ctx)
	case action.Smelt:
		return smelt(a, act)
	case action.Write:
		return write(a, act)
	case action.Read:
		return read(a, act)
	default:
		if act.Kind.ExternallyManaged() {
			return externallyManaged(a, act)
		}
		return fail(ReasonInvalidTarget, fmt.Sprintf("unhandled action kind %s", act.Kind)), nil
	}
}

// externallyManaged is the shared no-op for the 12 stub kinds (spec §9 Open
// Question): they pass validation and reach here, but their effects (child
// creation, trade settlement, combat resolution, vote tallying, ...) are
// resolved outside this core.
func externallyManaged(a *agent.Agent, act action.Action) (HandlerResult, error) {
	r := ok(fmt.Sprintf("%s deferred to external system", act.Kind))
	return r, nil
}

// --- Gather / consumption ---------------------------------------------

// BaseGatherYield is the default Gather quantity when a caller submits
// Params.Amount == 0 (let the handler pick), before the skill bonus — the
// same figure internal/rules.Input.BaseGatherYield and the decision
// adapters use to predict whether a gather would overflow carry capacity
// (spec §8 scenarios 1 and 5 both exercise this at gathering skill zero).
const BaseGatherYield = 3

// gatherEnergyCost is the energy Gather deducts regardless of yield (spec §8
// scenario 1: energy 80 -> 70).
const gatherEnergyCost = 10

// skillXPPerUse is the experience awarded to the relevant skill on a single
// use of any skill-bumping handler (spec §8 scenario 1: gathering XP = 10;
// no other scenario gives a literal figure, so every skill-bumping handler
// shares this constant per spec §9's "XP awards are compile-time tables").
const skillXPPerUse uint32 = 10

func gather(a *agent.Agent, act action.Action, ctx *Context) (HandlerResult, error) {
	loc, ok2 := ctx.World.GetLocation(a.Position)
	if !ok2 {
		return fail(ReasonUnavailableTarget, "agent location does not exist"), nil
	}
	node, ok2 := loc.Resources[act.Params.Resource]
	if !ok2 {
		return fail(ReasonUnavailableTarget, "resource not present at location"), nil
	}

	skillBonus := uint32(a.Skills.Farming.Level) / 2
	if act.Params.Resource == worldmap.ResourceOre || act.Params.Resource == worldmap.ResourceMetal {
		skillBonus = uint32(a.Skills.Mining.Level) / 2
	}
	want := act.Params.Amount
	if want == 0 {
		want = BaseGatherYield + skillBonus
	}
	actual := want
	if actual > node.Quantity {
		actual = node.Quantity
	}
	held := uint32(0)
	for _, q := range a.Inventory {
		held += q
	}
	room := uint32(0)
	if MaxCarry > held {
		room = MaxCarry - held
	}
	if actual > room {
		actual = room
	}
	if actual == 0 {
		return fail(ReasonConflictLost, "no supply or carry room remaining"), nil
	}

	a.AddResource(act.Params.Resource, actual)
	a.Energy -= gatherEnergyCost
	a.ClampVitals()
	a.Skills.Farming = bumpSkill(a.Skills.Farming)

	res := ok(fmt.Sprintf("gathered %d %s", actual, act.Params.Resource))
	res.LocationDeltas[act.Params.Resource] = -int64(actual)
	return res, nil
}

// bumpSkill awards one use's worth of XP and, while below the level cap,
// advances Level by one (spec §3 "skills map to level and experience
// points").
func bumpSkill(s agent.Skill) agent.Skill {
	s.XP += skillXPPerUse
	if s.Level < 100 {
		s.Level++
	}
	return s
}

func eat(a *agent.Agent, act action.Action) (HandlerResult, error) {
	res := act.Params.Resource
	if !a.HasResource(res, 1) {
		return fail(ReasonInsufficientResources, "no food of the requested type held"), nil
	}
	a.RemoveResource(res, 1)
	fv := worldmap.FoodValueTable[res]
	a.Hunger += fv.HungerDelta
	a.Energy += fv.EnergyDelta
	a.ClampVitals()
	return ok(fmt.Sprintf("ate 1 %s", res)), nil
}

func drink(a *agent.Agent, act action.Action, ctx *Context) (HandlerResult, error) {
	loc, hasLoc := ctx.World.GetLocation(a.Position)
	res := ok("drank")
	if hasLoc {
		if node, present := loc.Resources[worldmap.ResourceWater]; present && node.Quantity > 0 {
			res.LocationDeltas[worldmap.ResourceWater] = -1
			a.Hunger -= 5
			a.Energy += 5
			a.ClampVitals()
			return res, nil
		}
	}
	if a.HasResource(worldmap.ResourceWater, 1) {
		a.RemoveResource(worldmap.ResourceWater, 1)
		a.Hunger -= 5
		a.Energy += 5
		a.ClampVitals()
		return res, nil
	}
	return fail(ReasonUnavailableTarget, "no water at location or in inventory"), nil
}

// --- Rest / travel ------------------------------------------------------

// baseRestRecovery is the default (unsheltered) Rest energy recovery (spec
// §8 scenario 3: energy 20 -> 65 under a 150% shelter bonus, i.e. 30*1.5=45).
const baseRestRecovery = 30

func rest(a *agent.Agent, ctx *Context) (HandlerResult, error) {
	bonusPct := uint32(100)
	if loc, present := ctx.World.GetLocation(a.Position); present && loc.HasShelter {
		bonusPct = 150
	}
	recovered := int32(baseRestRecovery * bonusPct / 100)
	a.Energy += recovered
	a.Health += recovered / 4
	a.ClampVitals()
	return ok(fmt.Sprintf("rested, recovered %d energy", recovered)), nil
}

// moveEnergyCost is the energy Move deducts per tick of travel begun (spec
// §8 scenario 4: energy 80 -> 65).
const moveEnergyCost = 15

func move(a *agent.Agent, act action.Action, ctx *Context) (HandlerResult, error) {
	route, present := ctx.World.RouteByID(act.Params.TargetRoute)
	if !present || route.Closed() {
		return fail(ReasonUnavailableTarget, "route does not exist or is closed"), nil
	}
	cost, blocked := ctx.World.EffectiveTravelCost(route.ID, ctx.Cond)
	if blocked {
		return fail(ReasonUnavailableTarget, "route impassable in current weather"), nil
	}
	a.Travel = agent.TravelState{
		Active:      true,
		RouteID:     route.ID,
		Destination: route.To,
		TicksLeft:   cost,
	}
	a.Energy -= moveEnergyCost
	a.ClampVitals()
	r := ok("began travel")
	r.BeganTravel = true
	for res, amt := range route.Toll {
		before := a.Inventory[res]
		a.RemoveResource(res, amt)
		if spent := before - a.Inventory[res]; spent > 0 {
			if r.TollPaid == nil {
				r.TollPaid = make(map[worldmap.Resource]uint32, len(route.Toll))
			}
			r.TollPaid[res] = spent
		}
	}
	return r, nil
}

// AdvanceTravel decrements an in-progress Move's remaining ticks and
// teleports the agent to its destination on reaching zero (spec §4.12
// "advance_travel (engine-driven)"), called once per agent per Wake by
// internal/tickcycle rather than dispatched through Execute — it is not a
// submitted action.
func AdvanceTravel(a *agent.Agent) {
	if !a.Travel.Active {
		return
	}
	if a.Travel.TicksLeft > 0 {
		a.Travel.TicksLeft--
	}
	if a.Travel.TicksLeft == 0 {
		a.Position = a.Travel.Destination
		a.Travel = agent.TravelState{}
	}
}

// --- Communication --------------------------------------------------

const maxMessageCodepoints = 500

func truncateMessage(content string) string {
	runes := []rune(content)
	if len(runes) <= maxMessageCodepoints {
		return content
	}
	return string(runes[:maxMessageCodepoints])
}

func communicate(a *agent.Agent, act action.Action, ctx *Context) (HandlerResult, error) {
	if act.Params.TargetAgent == uuid.Nil {
		return fail(ReasonInvalidTarget, "no recipient specified"), nil
	}
	r := ok("sent message")
	r.Message = &Message{
		SenderID: a.ID, SenderName: a.Name, RecipientID: act.Params.TargetAgent,
		Content: truncateMessage(act.Params.Message), Tick: ctx.Tick, LocationID: a.Position,
	}
	return r, nil
}

const broadcastEnergyCost = 8

func broadcast(a *agent.Agent, act action.Action, ctx *Context) (HandlerResult, error) {
	a.Energy -= broadcastEnergyCost
	a.ClampVitals()
	r := ok("broadcast message")
	r.Message = &Message{
		SenderID: a.ID, SenderName: a.Name,
		Content: truncateMessage(act.Params.Message), Tick: ctx.Tick, LocationID: a.Position,
		IsBroadcast: true,
	}
	return r, nil
}

const teachEnergyCost = 10

func teach(a *agent.Agent, act action.Action) (HandlerResult, error) {
	if act.Params.TargetAgent == uuid.Nil {
		return fail(ReasonInvalidTarget, "no student specified"), nil
	}
	a.Energy -= teachEnergyCost
	a.ClampVitals()
	a.Skills.Social = bumpSkill(a.Skills.Social)
	return ok("taught a lesson; success determined externally"), nil
}

// --- Construction ------------------------------------------------------

func build(a *agent.Agent, act action.Action, ctx *Context) (HandlerResult, error) {
	bp, present := structures.BlueprintTable[structures.Type(act.Params.StructureType)]
	if !present {
		return fail(ReasonInvalidTarget, "unknown structure type"), nil
	}
	for res, cost := range bp.MaterialCosts {
		if !a.HasResource(res, cost) {
			return fail(ReasonInsufficientResources, fmt.Sprintf("missing %d %s", cost, res)), nil
		}
	}
	for res, cost := range bp.MaterialCosts {
		a.RemoveResource(res, cost)
	}
	s := structures.New(bp.Type, act.Params.TargetLocation, a.ID, ctx.Tick)
	r := ok(fmt.Sprintf("built %s", bp.Type))
	r.StructureBuilt = s
	return r, nil
}

func repair(a *agent.Agent, act action.Action) (HandlerResult, error) {
	if act.Params.TargetStructure == uuid.Nil {
		return fail(ReasonInvalidTarget, "no structure specified"), nil
	}
	// Materials proportional to missing durability are computed by the
	// caller (internal/tickcycle), which holds the live Structure; this
	// handler only validates the agent can pay whatever it is told to pay
	// and signals the restore. structures.RestoreAmount is the single
	// source of truth for how much durability a given spend restores.
	r := ok("repaired structure")
	r.StructureRepaired = act.Params.TargetStructure
	return r, nil
}

const demolishSalvagePct = 30

func demolish(a *agent.Agent, act action.Action) (HandlerResult, error) {
	if act.Params.TargetStructure == uuid.Nil {
		return fail(ReasonInvalidTarget, "no structure specified"), nil
	}
	r := ok("demolished structure")
	r.StructureDemolished = act.Params.TargetStructure
	return r, nil
}

// SalvageMaterials computes the 30% salvage of a blueprint's original
// material cost (spec §4.12 Demolish), capped by remaining carry room.
func SalvageMaterials(bp structures.Blueprint, held uint32) map[worldmap.Resource]uint32 {
	out := make(map[worldmap.Resource]uint32, len(bp.MaterialCosts))
	room := uint32(0)
	if MaxCarry > held {
		room = MaxCarry - held
	}
	for res, cost := range bp.MaterialCosts {
		salvage := cost * demolishSalvagePct / 100
		if salvage > room {
			salvage = room
		}
		room -= salvage
		if salvage > 0 {
			out[res] = salvage
		}
	}
	return out
}

func improveRoute(a *agent.Agent, act action.Action, ctx *Context) (HandlerResult, error) {
	route, present := ctx.World.RouteByID(act.Params.TargetRoute)
	if !present {
		return fail(ReasonInvalidTarget, "route does not exist"), nil
	}
	if next, upgradable := worldmap.NextPathUpgrade(route.PathType); upgradable {
		cost := worldmap.UpgradeCost(route.PathType)
		for res, amt := range cost {
			if !a.HasResource(res, amt) {
				return fail(ReasonInsufficientResources, "missing upgrade materials"), nil
			}
		}
		for res, amt := range cost {
			a.RemoveResource(res, amt)
		}
		r := ok(fmt.Sprintf("upgraded route to %s", next))
		r.RouteUpgraded = route.ID
		return r, nil
	}
	// Already at max tier: signal a durability repair instead, no materials.
	r := ok("route at max tier; repaired durability instead")
	r.RouteRepaired = route.ID
	return r, nil
}

func claim(a *agent.Agent, act action.Action) (HandlerResult, error) {
	if act.Params.TargetStructure == uuid.Nil {
		return fail(ReasonInvalidTarget, "no structure specified"), nil
	}
	r := ok("claimed structure")
	r.StructureClaimed = act.Params.TargetStructure
	return r, nil
}

// --- Governance ----------------------------------------------------

func legislate(a *agent.Agent, act action.Action) (HandlerResult, error) {
	if act.Params.TargetGroup == uuid.Nil {
		return fail(ReasonPermissionDenied, "requires group membership"), nil
	}
	if act.Params.RuleText == "" {
		return fail(ReasonGovernanceFailed, "rule text is empty"), nil
	}
	return ok(fmt.Sprintf("legislated: %s", act.Params.RuleText)), nil
}

func enforce(a *agent.Agent, act action.Action) (HandlerResult, error) {
	if act.Params.TargetAgent == uuid.Nil {
		return fail(ReasonInvalidTarget, "no enforcement target"), nil
	}
	return ok("applied enforcement"), nil
}

// --- Agriculture ------------------------------------------------------

const farmGrowthTicks = 200

func farmPlant(a *agent.Agent, act action.Action) (HandlerResult, error) {
	seed, found := a.BestFood()
	if !found {
		return fail(ReasonInsufficientResources, "no food available to plant as seed"), nil
	}
	a.RemoveResource(seed, 1)
	r := ok(fmt.Sprintf("planted %s, matures in %d ticks", seed, farmGrowthTicks))
	r.FarmPlanted = true
	return r, nil
}

func farmHarvest(a *agent.Agent, act action.Action) (HandlerResult, error) {
	yield := BaseGatherYield + uint32(a.Skills.Farming.Level)/2
	a.AddResource(worldmap.ResourceFoodFarmed, yield)
	a.Skills.Farming = bumpSkill(a.Skills.Farming)
	r := ok(fmt.Sprintf("harvested %d food", yield))
	r.FarmHarvested = true
	return r, nil
}

// --- Crafting / industry ---------------------------------------------

// recipe describes one Craft output and the inputs it consumes.
type recipe struct {
	Inputs map[worldmap.Resource]uint32
	Yield  uint32
}

// craftRecipes is the static table Craft resolves against by requested
// output resource (spec §4.12 "resolve recipe by output resource").
var craftRecipes = map[worldmap.Resource]recipe{
	worldmap.ResourceTool:      {Inputs: map[worldmap.Resource]uint32{worldmap.ResourceMetal: 1, worldmap.ResourceWood: 1}, Yield: 1},
	worldmap.ResourceFoodCooked: {Inputs: map[worldmap.Resource]uint32{worldmap.ResourceFoodRoot: 1, worldmap.ResourceWood: 1}, Yield: 1},
	worldmap.ResourceMedicine:  {Inputs: map[worldmap.Resource]uint32{worldmap.ResourceHerb: 2}, Yield: 1},
}

func craft(a *agent.Agent, act action.Action) (HandlerResult, error) {
	rec, present := craftRecipes[act.Params.Resource]
	if !present {
		return fail(ReasonInvalidTarget, "no recipe produces that resource"), nil
	}
	for res, need := range rec.Inputs {
		if !a.HasResource(res, need) {
			return fail(ReasonInsufficientResources, fmt.Sprintf("missing %d %s", need, res)), nil
		}
	}
	for res, need := range rec.Inputs {
		a.RemoveResource(res, need)
	}
	a.AddResource(act.Params.Resource, rec.Yield)
	a.Skills.Crafting = bumpSkill(a.Skills.Crafting)
	return ok(fmt.Sprintf("crafted %d %s", rec.Yield, act.Params.Resource)), nil
}

const mineRequiredTool = worldmap.ResourceTool

func mine(a *agent.Agent, act action.Action, ctx *Context) (HandlerResult, error) {
	if !a.HasResource(mineRequiredTool, 1) {
		return fail(ReasonInsufficientResources, "mining requires a tool"), nil
	}
	loc, present := ctx.World.GetLocation(a.Position)
	if !present {
		return fail(ReasonUnavailableTarget, "location does not exist"), nil
	}
	node, present := loc.Resources[worldmap.ResourceOre]
	if !present {
		return fail(ReasonUnavailableTarget, "no ore at this location"), nil
	}
	want := BaseGatherYield + uint32(a.Skills.Mining.Level)/2
	actual := want
	if actual > node.Quantity {
		actual = node.Quantity
	}
	if actual == 0 {
		return fail(ReasonUnavailableTarget, "ore depleted"), nil
	}
	a.AddResource(worldmap.ResourceOre, actual)
	a.Skills.Mining = bumpSkill(a.Skills.Mining)
	r := ok(fmt.Sprintf("mined %d ore", actual))
	r.LocationDeltas[worldmap.ResourceOre] = -int64(actual)
	return r, nil
}

func smelt(a *agent.Agent, act action.Action) (HandlerResult, error) {
	if !a.HasResource(worldmap.ResourceOre, 2) || !a.HasResource(worldmap.ResourceWood, 1) {
		return fail(ReasonInsufficientResources, "smelting requires 2 ore and 1 wood"), nil
	}
	a.RemoveResource(worldmap.ResourceOre, 2)
	a.RemoveResource(worldmap.ResourceWood, 1)
	a.AddResource(worldmap.ResourceMetal, 1)
	a.Skills.Crafting = bumpSkill(a.Skills.Crafting)
	return ok("smelted 1 metal"), nil
}

// --- Library --------------------------------------------------------

func write(a *agent.Agent, act action.Action) (HandlerResult, error) {
	if act.Params.Message == "" {
		return fail(ReasonInvalidTarget, "no concept to write"), nil
	}
	r := ok(fmt.Sprintf("wrote %q to the library", act.Params.Message))
	r.LibraryWrite = act.Params.Message
	return r, nil
}

func read(a *agent.Agent, act action.Action) (HandlerResult, error) {
	if act.Params.Message == "" {
		return fail(ReasonInvalidTarget, "no concept to read"), nil
	}
	r := ok(fmt.Sprintf("read %q from the library", act.Params.Message))
	r.LibraryRead = act.Params.Message
	return r, nil
}
