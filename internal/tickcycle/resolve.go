package tickcycle

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/conflict"
	"github.com/talgya/crossroads/internal/feasibility"
	"github.com/talgya/crossroads/internal/fixedpoint"
	"github.com/talgya/crossroads/internal/handlers"
	"github.com/talgya/crossroads/internal/persuasion"
	"github.com/talgya/crossroads/internal/reputation"
	"github.com/talgya/crossroads/internal/simstate"
	"github.com/talgya/crossroads/internal/structures"
	"github.com/talgya/crossroads/internal/validation"
	"github.com/talgya/crossroads/internal/worldmap"
)

// resolve runs spec §5's Resolution phase: freeform actions resolve to a
// concrete kind first, every action is validated, contested Gather actions
// are arbitrated by internal/conflict before Execute ever sees them, and
// every successful HandlerResult's side effects are committed to world
// state. Returns each agent's outcome for the Reflection phase.
func resolve(state *simstate.State, cfg Config, tick uint64, actions map[agent.ID]action.Action) map[agent.ID]handlers.HandlerResult {
	season := state.Clock.Season()
	cond := state.Weather.Weather(tick, season)
	ctx := &handlers.Context{World: state.World, Tick: tick, Cond: cond}

	out := make(map[agent.ID]handlers.HandlerResult, len(actions))
	validated := make(map[agent.ID]action.Action, len(actions))

	// Pass 1: resolve freeform requests to a concrete action (or an
	// immediate failure) and validate every remaining action.
	deps := validation.Deps{Agents: state.AgentIndex, Structures: state.Structures}
	for _, a := range sortedAliveAgents(state) {
		act, ok := actions[a.ID]
		if !ok {
			continue
		}
		if act.Kind == action.Freeform {
			resolvedAct, failure, isFailure := resolveFreeform(act)
			if isFailure {
				out[a.ID] = failure
				continue
			}
			act = resolvedAct
		}
		// The rule engine and feasibility both leave Gather's Amount at its
		// zero value to mean "handler's default yield" (handlers.gather's own
		// fallback), but validateSyntax requires Amount > 0 — so the default
		// must be filled in before Validate ever sees it, not after.
		if act.Kind == action.Gather && act.Params.Amount == 0 {
			act.Params.Amount = handlers.BaseGatherYield
		}
		if err := validation.Validate(a, act, state.World, cond, tick, validation.KnownKnowledge(a.Known), deps); err != nil {
			out[a.ID] = handlers.HandlerResult{Detail: err.Error()}
			continue
		}
		validated[a.ID] = act
	}

	// Pass 2: arbitrate every contested Gather claim per (location,
	// resource), rewriting each grantee's Params.Amount to its outcome
	// (spec §4.11's "the handler always executes against the resolved
	// quantity, never the raw request").
	grants := resolveGatherClaims(state, cfg.ConflictStrategy, validated)
	for id, granted := range grants {
		if granted == 0 {
			out[id] = handlers.HandlerResult{Reason: handlers.ReasonConflictLost, Detail: "conflict resolution granted no supply"}
			delete(validated, id)
			continue
		}
		act := validated[id]
		act.Params.Amount = granted
		validated[id] = act
	}

	// Pass 3: execute and commit, in the same deterministic order.
	for _, a := range sortedAliveAgents(state) {
		act, ok := validated[a.ID]
		if !ok {
			continue
		}
		res, err := handlers.Execute(a, act, ctx)
		if err != nil {
			slog.Warn("handler execution error", "agent", a.ID, "kind", act.Kind.String(), "err", err)
			out[a.ID] = handlers.HandlerResult{Detail: err.Error()}
			continue
		}
		if act.Kind == action.Read && res.Success {
			gateLibraryRead(state, a, &res)
		}
		if act.Kind == action.Claim && res.Success {
			gateClaimOwnership(state, &res)
		}
		applyPersuasion(state, a, act, &res, tick)
		if res.Success {
			commit(state, a, act, res, tick)
		}
		out[a.ID] = res
	}
	return out
}

// resolveFreeform classifies act.Params.Message via feasibility.Evaluate. A
// Feasible verdict returns the resolved concrete action (with the original
// action's identity/sequencing fields reattached); Infeasible or a second
// NeedsEvaluation verdict (this is the second pass — decision.LLMAdapter
// already ran one before submitting a Freeform action at all, per its own
// decideOne) both return an immediate failure, since no further external
// arbitration exists past Resolution.
func resolveFreeform(act action.Action) (resolved action.Action, failure handlers.HandlerResult, isFailure bool) {
	result := feasibility.Evaluate(act.Params.Message)
	switch result.Outcome {
	case feasibility.Feasible:
		resolved = result.Resolved
		resolved.ID = act.ID
		resolved.AgentID = act.AgentID
		resolved.SubmittedTick = act.SubmittedTick
		resolved.SequenceNumber = act.SequenceNumber
		resolved.GoalUpdates = act.GoalUpdates
		return resolved, handlers.HandlerResult{}, false
	case feasibility.NeedsEvaluation:
		return action.Action{}, handlers.HandlerResult{Reason: handlers.ReasonInvalidTarget, Detail: "freeform request still unresolvable on second evaluation"}, true
	default:
		return action.Action{}, handlers.HandlerResult{Reason: handlers.ReasonInvalidTarget, Detail: result.Reason}, true
	}
}

type gatherKey struct {
	loc worldmap.LocationID
	res worldmap.Resource
}

// resolveGatherClaims groups every validated Gather action by (location,
// resource), submits one conflict.Claim per agent using its tick-local
// SequenceNumber as SubmittedAt, and resolves each group against the
// location's actual current supply.
func resolveGatherClaims(state *simstate.State, strategy conflict.Strategy, validated map[agent.ID]action.Action) map[agent.ID]uint32 {
	claims := make(map[gatherKey][]conflict.Claim)
	var keys []gatherKey

	ids := make([]agent.ID, 0, len(validated))
	for id := range validated {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		act := validated[id]
		if act.Kind != action.Gather {
			continue
		}
		a, ok := state.AgentIndex[id]
		if !ok {
			continue
		}
		key := gatherKey{loc: a.Position, res: act.Params.Resource}
		if _, seen := claims[key]; !seen {
			keys = append(keys, key)
		}
		claims[key] = append(claims[key], conflict.Claim{AgentID: id, Requested: act.Params.Amount, SubmittedAt: act.SequenceNumber})
	}

	grants := make(map[agent.ID]uint32)
	for _, key := range keys {
		supply := uint32(0)
		if loc, ok := state.World.GetLocation(key.loc); ok {
			if node, ok := loc.Resources[key.res]; ok {
				supply = node.Quantity
			}
		}
		for _, outcome := range conflict.Resolve(strategy, claims[key], supply) {
			grants[outcome.AgentID] = outcome.Quantity
		}
	}
	return grants
}

// gateLibraryRead enforces that Read only succeeds for a concept actually
// Written at the agent's current location — the handler itself has no
// access to simstate.State.Library, so this is the only place that check
// can happen.
func gateLibraryRead(state *simstate.State, a *agent.Agent, res *handlers.HandlerResult) {
	for _, concept := range state.Library[a.Position] {
		if concept == res.LibraryRead {
			return
		}
	}
	res.Success = false
	res.Reason = handlers.ReasonUnavailableTarget
	res.Detail = fmt.Sprintf("no record of %q in this location's library", res.LibraryRead)
}

// gateClaimOwnership enforces that Claim only succeeds against an unowned
// structure or one whose owner has since died — the handler itself has no
// access to simstate.State.Structures/AgentIndex, so this is the only place
// that check can happen (spec §8: "Claim of structure owned by a living
// agent → PermissionDenied").
func gateClaimOwnership(state *simstate.State, res *handlers.HandlerResult) {
	s, ok := state.Structures[res.StructureClaimed]
	if !ok || s.Owner == uuid.Nil {
		return
	}
	if owner, alive := state.AgentIndex[s.Owner]; alive && owner.Alive {
		res.Success = false
		res.Reason = handlers.ReasonPermissionDenied
		res.Detail = "structure already owned by a living agent"
	}
}

// applyPersuasion gates Teach and Enforce's actual success on
// internal/persuasion's score, computed from the pair's standing reputation,
// social-graph trust, and shared culture (spec §4.14 persuasion bands): a
// Succeeded verdict applies the full reputation.ActionEffects table,
// PartialSuccess applies it at half weight, Failed overturns the handler's
// optimistic success.
func applyPersuasion(state *simstate.State, a *agent.Agent, act action.Action, res *handlers.HandlerResult, tick uint64) {
	if !res.Success {
		return
	}
	if act.Kind != action.Teach && act.Kind != action.Enforce {
		return
	}
	if act.Params.TargetAgent == uuid.Nil {
		return
	}

	outcome := evaluatePersuasion(state, a.ID, act.Params.TargetAgent, tick)
	switch outcome {
	case persuasion.Succeeded:
		state.Reputation.RecordAction(act.Params.TargetAgent, a.ID, act.Kind.String(), tick)
	case persuasion.PartialSuccess:
		for _, eff := range reputation.ActionEffects[act.Kind.String()] {
			state.Reputation.Record(act.Params.TargetAgent, a.ID, eff.Tag, eff.Delta/2, eff.Reason, tick)
		}
	default:
		res.Success = false
		res.Reason = handlers.ReasonGovernanceFailed
		res.Detail = fmt.Sprintf("%s failed to persuade its target", act.Kind)
	}
}

// persuasionCultureBonusScale converts culture.Registry.Jaccard's [0,1]
// similarity into persuasion.Input's raw bonus-points scale (capped at 10
// inside Evaluate regardless).
const persuasionCultureBonusScale = 10.0

func evaluatePersuasion(state *simstate.State, actorID, targetID uuid.UUID, tick uint64) persuasion.Outcome {
	in := persuasion.Input{
		Honesty:            normalizeScore(state.Reputation.PublicAggregate(actorID, "honesty", tick)),
		Trust:              normalizeScore(state.Social.Score(targetID, actorID)),
		Reputation:         normalizeScore(state.Reputation.PublicAggregate(actorID, "trustworthiness", tick)),
		SharedCultureBonus: state.Culture.Jaccard(actorID, targetID) * persuasionCultureBonusScale,
	}
	_, outcome := persuasion.Evaluate(in)
	return outcome
}

// normalizeScore maps a [-1, 1] fixedpoint score (reputation.Tracker and
// socialgraph.Graph's shared range) onto persuasion.Input's expected [0, 1]
// factor.
func normalizeScore(v fixedpoint.Fixed) float64 {
	return (v.Float() + 1) / 2
}

// commit applies every side effect a successful HandlerResult reported,
// beyond the agent-inventory mutation the handler already performed
// in-place, to the rest of world state.
func commit(state *simstate.State, a *agent.Agent, act action.Action, res handlers.HandlerResult, tick uint64) {
	commitLocationDeltas(state, a, res, tick)
	commitToll(state, a, res, tick)

	if res.Message != nil {
		state.PostMessage(*res.Message)
	}
	if res.StructureBuilt != nil {
		commitStructureBuilt(state, res.StructureBuilt)
	}
	if res.StructureRepaired != uuid.Nil {
		commitRepair(state, a, res.StructureRepaired)
	}
	if res.StructureDemolished != uuid.Nil {
		commitDemolish(state, a, res.StructureDemolished)
	}
	if res.StructureClaimed != uuid.Nil {
		commitClaim(state, a, res.StructureClaimed)
	}
	if res.RouteUpgraded != uuid.Nil {
		commitRouteUpgrade(state, res.RouteUpgraded)
	}
	if res.RouteRepaired != uuid.Nil {
		commitRouteRepair(state, res.RouteRepaired)
	}
	if res.LibraryWrite != "" {
		state.Library[a.Position] = append(state.Library[a.Position], res.LibraryWrite)
	}

	switch act.Kind {
	case action.Communicate:
		if res.Message != nil && !res.Message.IsBroadcast {
			state.Social.RecordInteraction(a.ID, res.Message.RecipientID, 0.05, tick)
		}
	case action.Teach:
		if act.Params.TargetAgent != uuid.Nil {
			state.Social.RecordInteraction(a.ID, act.Params.TargetAgent, 0.1, tick)
		}
	}
}

func sortedDeltaResources(deltas map[worldmap.Resource]int64) []worldmap.Resource {
	out := make([]worldmap.Resource, 0, len(deltas))
	for r := range deltas {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedCostResources(costs map[worldmap.Resource]uint32) []worldmap.Resource {
	out := make([]worldmap.Resource, 0, len(costs))
	for r := range costs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// commitLocationDeltas applies every (resource, signed delta) a handler
// reported against the agent's current location: negative deltas are an
// actor-attributed harvest, positive deltas an unattributed transfer in
// (spec §9 Open Question — AddResourceAt has no actor parameter, so a
// positive-delta ledger entry currently can't name who produced it; no
// handler exercises this path today, but the commit logic is symmetric in
// case one eventually does).
func commitLocationDeltas(state *simstate.State, a *agent.Agent, res handlers.HandlerResult, tick uint64) {
	for _, r := range sortedDeltaResources(res.LocationDeltas) {
		delta := res.LocationDeltas[r]
		switch {
		case delta < 0:
			if _, err := state.World.HarvestResource(a.Position, r, uint32(-delta), a.ID, tick, state.Ledger); err != nil {
				slog.Warn("location delta commit failed", "agent", a.ID, "resource", r.String(), "err", err)
			}
		case delta > 0:
			state.World.AddResourceAt(a.Position, r, uint32(delta), tick, worldmap.ReasonTransfer, state.Ledger)
		}
	}
}

// commitToll appends a ledger entry for tolls Move already deducted from
// the traveler's inventory: an agent-attributed, location-less flow (spec's
// own Entry doc comment: "Location can be the zero UUID and Actor identifies
// the agent instead").
func commitToll(state *simstate.State, a *agent.Agent, res handlers.HandlerResult, tick uint64) {
	for _, r := range sortedCostResources(res.TollPaid) {
		qty := res.TollPaid[r]
		if qty == 0 {
			continue
		}
		state.Ledger.Append(worldmap.Entry{Tick: tick, Actor: a.ID, Resource: r, Delta: -int64(qty), Reason: worldmap.ReasonConsumption})
	}
}

// commitStructureBuilt registers the new Structure and applies its
// blueprint's LocationEffects to the Location it stands at — the only place
// the presence flags (HasShelter, HasMeetingHall, HasWorkshop, ...) that
// validation's Location stage gates on ever get set.
func commitStructureBuilt(state *simstate.State, s *structures.Structure) {
	state.Structures[s.ID] = s
	loc, ok := state.World.GetLocation(s.Location)
	if !ok {
		return
	}
	loc.Structures = append(loc.Structures, s.ID)
	eff := structures.BlueprintTable[s.Type].Effects
	if eff.HasShelter {
		loc.HasShelter = true
	}
	if eff.HasFire {
		loc.HasFire = true
	}
	if eff.HasMeetingHall {
		loc.HasMeetingHall = true
	}
	if eff.HasLibrary {
		loc.HasLibrary = true
	}
	if eff.HasWorkshop {
		loc.HasWorkshop = true
	}
	if eff.HasForge {
		loc.HasForge = true
	}
	if eff.HasFarmPlot {
		loc.HasFarmPlot = true
	}
	loc.StorageSlots += eff.TotalStorageSlots
}

// commitRepair pays up to the blueprint's full material cost from the
// agent's holdings (capped by what it actually carries), then restores
// durability proportionally via structures.RestoreAmount — the single
// function both this commit and the handler's own doc comment name as the
// source of truth, so the two can never disagree.
func commitRepair(state *simstate.State, a *agent.Agent, structID uuid.UUID) {
	s, ok := state.Structures[structID]
	if !ok {
		return
	}
	bp := structures.BlueprintTable[s.Type]
	spent := make(map[worldmap.Resource]uint32, len(bp.MaterialCosts))
	for _, r := range sortedCostResources(bp.MaterialCosts) {
		cost := bp.MaterialCosts[r]
		pay := cost
		if held := a.Inventory[r]; held < pay {
			pay = held
		}
		if pay == 0 {
			continue
		}
		a.RemoveResource(r, pay)
		spent[r] = pay
	}
	restored := structures.RestoreAmount(bp, spent)
	s.Durability += restored
	if s.Durability > bp.MaxDurability {
		s.Durability = bp.MaxDurability
	}
}

func commitDemolish(state *simstate.State, a *agent.Agent, structID uuid.UUID) {
	s, ok := state.Structures[structID]
	if !ok {
		return
	}
	bp := structures.BlueprintTable[s.Type]
	var held uint32
	for _, q := range a.Inventory {
		held += q
	}
	salvage := handlers.SalvageMaterials(bp, held)
	for _, r := range sortedCostResources(salvage) {
		a.AddResource(r, salvage[r])
	}
	delete(state.Structures, structID)
	if loc, ok := state.World.GetLocation(s.Location); ok {
		loc.Structures = removeID(loc.Structures, structID)
	}
}

// commitClaim transfers ownership to the claimant. gateClaimOwnership has
// already rejected any claim against a structure owned by a living agent
// before commit is ever reached, so reclaiming a dead owner's structure or
// claiming an unowned one are the only cases left here.
func commitClaim(state *simstate.State, a *agent.Agent, structID uuid.UUID) {
	s, ok := state.Structures[structID]
	if !ok {
		return
	}
	s.Owner = a.ID
}

func commitRouteUpgrade(state *simstate.State, routeID worldmap.RouteID) {
	route, ok := state.World.RouteByID(routeID)
	if !ok {
		return
	}
	if next, upgradable := worldmap.NextPathUpgrade(route.PathType); upgradable {
		route.PathType = next
	}
}

func commitRouteRepair(state *simstate.State, routeID worldmap.RouteID) {
	route, ok := state.World.RouteByID(routeID)
	if !ok {
		return
	}
	route.Durability = 100
}
