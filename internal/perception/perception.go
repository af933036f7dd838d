// Package perception assembles the structured document the decision source
// (rule engine or external LLM/stub) sees each tick (spec §6 "Perception
// payload"). A LocationContext is built once per populated location and
// shared across every agent standing there; AttachAgent layers in
// agent-specific state plus fog-of-war-gated reputation summaries, so the
// expensive parts of perception (surroundings, messages) are computed once
// per location rather than once per agent.
//
// New code — the teacher's Tier-0 engine has no perception/decision
// boundary, agents read global state directly — grounded on
// original_source/crates/emergence-perception (location-context-shared-
// across-agents is its central idea) and on internal/reputation's
// VisibleTo/PerceptionSummary for the fog-of-war gating.
package perception

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/handlers"
	"github.com/talgya/crossroads/internal/reputation"
	"github.com/talgya/crossroads/internal/socialgraph"
	"github.com/talgya/crossroads/internal/weather"
	"github.com/talgya/crossroads/internal/worldmap"
)

// fuzzBucket is the rounding granularity applied to location resource
// quantities before they reach an agent's perception, so agents reason
// about "roughly how much wood" rather than an exact count (spec §6
// "fuzzed resource quantities"). Deterministic rounding (not per-observer
// noise) keeps perception a pure function of world state, matching the
// determinism invariant.
const fuzzBucket = 5

func fuzzQuantity(q uint32) uint32 {
	return (q / fuzzBucket) * fuzzBucket
}

// AgentSummary describes one other agent visible at a location.
type AgentSummary struct {
	AgentID           uuid.UUID
	Name              string
	RelationshipLabel string
	ReputationSummary map[reputation.Tag]float64 // present only if VisibleTo allows it
}

// RouteInfo describes one route an agent knows leaving their location.
type RouteInfo struct {
	RouteID     worldmap.RouteID
	Destination worldmap.LocationID
	PathType    worldmap.PathType
}

// Surroundings is the location-scoped slice of a Perception, built once per
// location and shared by every agent standing there.
type Surroundings struct {
	LocationName   string
	LocationID     worldmap.LocationID
	ResourceCounts map[worldmap.Resource]uint32
	Structures     []uuid.UUID
	Messages       []handlers.Message
}

// LocationContext is the shared, agent-independent half of perception for
// one location this tick.
type LocationContext struct {
	Surroundings    Surroundings
	CoLocatedAgents []*agent.Agent
	KnownRoutes     []RouteInfo
}

// BuildLocationContext assembles the agent-independent perception slice for
// one location, run once per populated location per tick.
func BuildLocationContext(world *worldmap.Map, locID worldmap.LocationID, present []*agent.Agent, board []handlers.Message) LocationContext {
	loc, ok := world.GetLocation(locID)
	ctx := LocationContext{CoLocatedAgents: present}
	if !ok {
		return ctx
	}

	counts := make(map[worldmap.Resource]uint32, len(loc.Resources))
	resKeys := make([]worldmap.Resource, 0, len(loc.Resources))
	for res := range loc.Resources {
		resKeys = append(resKeys, res)
	}
	sort.Slice(resKeys, func(i, j int) bool { return resKeys[i] < resKeys[j] })
	for _, res := range resKeys {
		counts[res] = fuzzQuantity(loc.Resources[res].Quantity)
	}

	ctx.Surroundings = Surroundings{
		LocationName:   loc.Name,
		LocationID:     loc.ID,
		ResourceCounts: counts,
		Structures:     append([]uuid.UUID(nil), loc.Structures...),
		Messages:       board,
	}

	var routes []RouteInfo
	for _, rid := range neighborRoutes(world, locID) {
		r, ok := world.RouteByID(rid)
		if !ok || r.Closed() {
			continue
		}
		routes = append(routes, RouteInfo{RouteID: r.ID, Destination: r.To, PathType: r.PathType})
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].RouteID.String() < routes[j].RouteID.String() })
	ctx.KnownRoutes = routes
	return ctx
}

// neighborRoutes is a small local helper since worldmap.Map doesn't expose
// outbound route IDs directly, only derived Neighbors/RoutesBetween views.
func neighborRoutes(world *worldmap.Map, locID worldmap.LocationID) []worldmap.RouteID {
	var ids []worldmap.RouteID
	for _, dest := range world.Neighbors(locID) {
		for _, r := range world.RoutesBetween(locID, dest) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// SelfState is the agent's own vitals/inventory/goals slice of Perception.
type SelfState struct {
	Health, Energy, Hunger, Thirst int32
	Inventory                      map[worldmap.Resource]uint32
	CarryLoad                      string // "current/max"
	Goals                          []string
}

// Perception is the full structured document handed to the decision source
// for one agent this tick (spec §6).
type Perception struct {
	AgentID            uuid.UUID
	Tick               uint64
	TimeOfDay          string
	Season             string
	Weather            weather.Condition
	Self               SelfState
	Surroundings       Surroundings
	CoLocatedAgents    []AgentSummary
	KnownRoutes        []RouteInfo
	RecentMemory       []string
	AvailableActions   []action.Kind
	Notifications      []string
	PersonalitySummary string
}

// AttachAgent layers agent-specific state onto a shared LocationContext,
// applying fog-of-war: a co-located agent's ReputationSummary is populated
// only when reputation.VisibleTo allows it for this (observer, subject)
// pair (spec §6 "Reputation summaries are attached per visible agent when
// the observer has interacted with them").
func AttachAgent(
	ctx LocationContext,
	a *agent.Agent,
	tick uint64,
	timeOfDay, season string,
	cond weather.Condition,
	goals []string,
	memory []string,
	notifications []string,
	rep *reputation.Tracker,
	social *socialgraph.Graph,
) Perception {
	held := uint32(0)
	inv := make(map[worldmap.Resource]uint32, len(a.Inventory))
	for res, q := range a.Inventory {
		held += q
		inv[res] = q
	}

	var summaries []AgentSummary
	for _, other := range ctx.CoLocatedAgents {
		if other.ID == a.ID {
			continue
		}
		s := AgentSummary{
			AgentID:           other.ID,
			Name:              other.Name,
			RelationshipLabel: relationshipLabel(social, a.ID, other.ID),
		}
		if rep != nil && social != nil && reputation.VisibleTo(a.ID, other.ID, social) {
			raw := rep.PerceptionSummary(other.ID, tick)
			summary := make(map[reputation.Tag]float64, len(raw))
			for tag, v := range raw {
				summary[tag] = v.Float()
			}
			s.ReputationSummary = summary
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].AgentID.String() < summaries[j].AgentID.String() })

	return Perception{
		AgentID:   a.ID,
		Tick:      tick,
		TimeOfDay: timeOfDay,
		Season:    season,
		Weather:   cond,
		Self: SelfState{
			Health: a.Health, Energy: a.Energy, Hunger: a.Hunger, Thirst: a.Thirst,
			Inventory: inv,
			CarryLoad: fmt.Sprintf("%d/%d", held, handlers.MaxCarry),
			Goals:     goals,
		},
		Surroundings:     ctx.Surroundings,
		CoLocatedAgents:  summaries,
		KnownRoutes:      ctx.KnownRoutes,
		RecentMemory:     memory,
		AvailableActions: AvailableActions(a),
		Notifications:    notifications,
	}
}

// relationshipLabel buckets a pairwise score into a human-readable label;
// Stranger when the pair has never interacted (score is meaningless noise
// otherwise).
func relationshipLabel(social *socialgraph.Graph, a, b uuid.UUID) string {
	if social == nil || !social.HasInteracted(a, b) {
		return "Stranger"
	}
	score := social.Score(a, b).Float()
	switch {
	case score >= 0.6:
		return "Ally"
	case score >= 0.2:
		return "Friend"
	case score > -0.2:
		return "Acquaintance"
	case score > -0.6:
		return "Rival"
	default:
		return "Enemy"
	}
}

// AvailableActions returns the Kinds offered to an agent: a fixed base list,
// or only NoAction and Move while the agent is travelling. Maturity stage is
// not considered. Handlers/
// validation still enforce the authoritative rules; this list is advisory,
// matching spec §6's "available actions list" as informational perception
// content, not a second source of truth.
func AvailableActions(a *agent.Agent) []action.Kind {
	base := []action.Kind{
		action.NoAction, action.Gather, action.Eat, action.Drink, action.Rest,
		action.Move, action.Communicate, action.Broadcast, action.Write, action.Read,
	}
	if a.Travel.Active {
		return []action.Kind{action.NoAction, action.Move}
	}
	return base
}
