// Package validation implements the eight-stage, fail-fast action
// validation pipeline (spec §4.10): syntax, travel state, vitals, maturity,
// location, resources, world state, and skill/knowledge, each produced as
// a closed RejectionReason on failure.
//
// Grounded on original_source/crates/emergence-agents/src/actions/
// validation.rs for the per-action-type stage bodies (ActionType/
// ActionParameters variant matching drove the switch-on-Kind dispatch
// below), and on the teacher's agents.Decide/ApplyAction switch-on-enum
// idiom (internal/agents/behavior.go).
package validation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/knowledge"
	"github.com/talgya/crossroads/internal/structures"
	"github.com/talgya/crossroads/internal/weather"
	"github.com/talgya/crossroads/internal/worldmap"
)

// RejectionReason is the closed set of reasons an action fails validation.
type RejectionReason uint8

const (
	RejectionNone RejectionReason = iota
	RejectionSyntax
	RejectionTravelInProgress
	RejectionInsufficientVitals
	RejectionImmature
	RejectionLocationAccessDenied
	RejectionInsufficientResources
	RejectionInvalidWorldState
	RejectionMissingKnowledge
)

func (r RejectionReason) String() string {
	names := [...]string{
		"None", "Syntax", "TravelInProgress", "InsufficientVitals", "Immature",
		"LocationAccessDenied", "InsufficientResources", "InvalidWorldState",
		"MissingKnowledge",
	}
	if int(r) < len(names) {
		return names[r]
	}
	return "Unknown"
}

// Rejection is the error type every failed validation stage returns.
type Rejection struct {
	Reason RejectionReason
	Detail string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("validation: %s: %s", r.Reason, r.Detail)
}

func reject(reason RejectionReason, detail string) *Rejection {
	return &Rejection{Reason: reason, Detail: detail}
}

// KnownKnowledge is the minimal interface validation needs from an agent's
// learned-items set, matching agent.Agent.Known's map[string]bool shape.
type KnownKnowledge map[string]bool

// Deps is the simstate lookups validation's Location stage needs but an
// agent.Agent/action.Action pair can't supply on their own: the other
// agents (for Communicate co-location) and the built structures (for
// Repair/Demolish/Claim's location check).
type Deps struct {
	Agents     map[uuid.UUID]*agent.Agent
	Structures map[uuid.UUID]*structures.Structure
}

// minEnergy is the static per-Kind minimum energy an agent must have to
// attempt an action (spec §4.10 stage 3, "vitals").
var minEnergy = map[action.Kind]int32{
	action.Gather:       10,
	action.Move:         15,
	action.Build:        20,
	action.Repair:       15,
	action.Demolish:     15,
	action.ImproveRoute: 20,
	action.FarmPlant:    10,
	action.FarmHarvest:  10,
	action.Craft:        10,
	action.Mine:         15,
	action.Smelt:        10,
	action.Enforce:      10,
}

// minMaturity is the static per-Kind minimum maturity stage required (spec
// §4.10 stage 4).
var minMaturity = map[action.Kind]agent.Maturity{
	action.Build:        agent.Adolescent,
	action.Craft:        agent.Adolescent,
	action.Mine:         agent.Adolescent,
	action.Smelt:        agent.Adolescent,
	action.Legislate:    agent.Adult,
	action.Enforce:      agent.Adult,
	action.Vote:         agent.Adult,
	action.Marry:        agent.Adult,
	action.Divorce:      agent.Adult,
	action.Reproduce:    agent.Adult,
	action.Intimidate:   agent.Adolescent,
	action.Teach:        agent.Adult,
	action.Claim:        agent.Adult,
}

// Validate runs all eight stages in order, stopping at the first failure.
func Validate(a *agent.Agent, act action.Action, world *worldmap.Map, cond weather.Condition, currentTick uint64, known KnownKnowledge, deps Deps) error {
	if err := validateSyntax(act); err != nil {
		return err
	}
	if err := validateTravelState(a, act); err != nil {
		return err
	}
	if err := validateVitals(a, act); err != nil {
		return err
	}
	if err := validateMaturity(a, act, currentTick); err != nil {
		return err
	}
	if err := validateLocation(a, act, world, deps); err != nil {
		return err
	}
	if err := validateResources(a, act); err != nil {
		return err
	}
	if err := validateWorldState(a, act, world, cond); err != nil {
		return err
	}
	if err := validateSkillKnowledge(a, act, known, world); err != nil {
		return err
	}
	return nil
}

// validateSyntax checks that every parameter a Kind requires is present.
func validateSyntax(act action.Action) error {
	switch act.Kind {
	case action.Gather, action.Mine:
		if act.Params.Amount == 0 {
			return reject(RejectionSyntax, "Amount must be > 0")
		}
	case action.Eat, action.Drink:
		if act.Params.Amount == 0 {
			return reject(RejectionSyntax, "Amount must be > 0")
		}
	case action.Move:
		if act.Params.TargetRoute == uuid.Nil {
			return reject(RejectionSyntax, "TargetRoute is required")
		}
	case action.Communicate, action.Teach:
		if act.Params.TargetAgent == uuid.Nil {
			return reject(RejectionSyntax, "TargetAgent is required")
		}
		if act.Kind == action.Teach && act.Params.Message == "" {
			return reject(RejectionSyntax, "Message (the taught concept) must be non-empty")
		}
		if act.Kind == action.Communicate && act.Params.Message == "" {
			return reject(RejectionSyntax, "Message must be non-empty")
		}
	case action.Broadcast, action.Write:
		if act.Params.Message == "" {
			return reject(RejectionSyntax, "Message must be non-empty")
		}
	case action.Build:
		if act.Params.TargetLocation == uuid.Nil {
			return reject(RejectionSyntax, "TargetLocation is required")
		}
	case action.Repair, action.Demolish:
		if act.Params.TargetStructure == uuid.Nil {
			return reject(RejectionSyntax, "TargetStructure is required")
		}
	case action.ImproveRoute:
		if act.Params.TargetRoute == uuid.Nil {
			return reject(RejectionSyntax, "TargetRoute is required")
		}
	case action.Legislate:
		if act.Params.RuleText == "" {
			return reject(RejectionSyntax, "RuleText must be non-empty")
		}
	}
	return nil
}

// validateTravelState rejects any action besides NoAction or continuing
// Move while a Move is already in progress.
func validateTravelState(a *agent.Agent, act action.Action) error {
	if a.Travel.Active && act.Kind != action.NoAction && act.Kind != action.Move {
		return reject(RejectionTravelInProgress, "agent is already traveling")
	}
	return nil
}

// validateVitals rejects actions an agent lacks the energy/health for.
func validateVitals(a *agent.Agent, act action.Action) error {
	if a.Health <= 0 {
		return reject(RejectionInsufficientVitals, "agent has no health")
	}
	if need, ok := minEnergy[act.Kind]; ok && a.Energy < need {
		return reject(RejectionInsufficientVitals, fmt.Sprintf("requires %d energy, has %d", need, a.Energy))
	}
	return nil
}

// validateMaturity rejects actions an agent's life stage is too young for.
func validateMaturity(a *agent.Agent, act action.Action, currentTick uint64) error {
	if need, ok := minMaturity[act.Kind]; ok {
		if a.Maturity(currentTick) < need {
			return reject(RejectionImmature, fmt.Sprintf("requires maturity >= %s", need))
		}
	}
	return nil
}

// validateLocation checks the ACL of the location the action is performed
// at (build site for Build, current position otherwise), plus each action's
// own structure/co-location precondition (spec §4.10 stage 5).
func validateLocation(a *agent.Agent, act action.Action, world *worldmap.Map, deps Deps) error {
	locID := a.Position
	if act.Kind == action.Build && act.Params.TargetLocation != uuid.Nil {
		locID = act.Params.TargetLocation
	}
	loc, ok := world.GetLocation(locID)
	if !ok {
		return reject(RejectionInvalidWorldState, "location does not exist")
	}
	if !loc.ACL.Allows(a.ID, nil) {
		return reject(RejectionLocationAccessDenied, "ACL denies this agent")
	}

	switch act.Kind {
	case action.Communicate:
		target, ok := deps.Agents[act.Params.TargetAgent]
		if !ok || target.Position != a.Position {
			return reject(RejectionLocationAccessDenied, "recipient is not co-located")
		}
	case action.Legislate:
		if !loc.HasMeetingHall {
			return reject(RejectionLocationAccessDenied, "no MeetingHall at this location")
		}
	case action.FarmPlant, action.FarmHarvest:
		if !loc.HasFarmPlot {
			return reject(RejectionLocationAccessDenied, "no FarmPlot at this location")
		}
	case action.Craft:
		if !loc.HasWorkshop {
			return reject(RejectionLocationAccessDenied, "no Workshop at this location")
		}
	case action.Smelt:
		if !loc.HasForge {
			return reject(RejectionLocationAccessDenied, "no Forge at this location")
		}
	case action.Write, action.Read:
		if !loc.HasLibrary {
			return reject(RejectionLocationAccessDenied, "no Library at this location")
		}
	case action.Repair, action.Demolish, action.Claim:
		s, exists := deps.Structures[act.Params.TargetStructure]
		if !exists || s.Location != locID {
			return reject(RejectionLocationAccessDenied, "targeted structure is not at this location")
		}
	}
	return nil
}

// validateResources rejects actions whose requested resource amount exceeds
// what the agent holds, for actions that consume from inventory directly.
func validateResources(a *agent.Agent, act action.Action) error {
	switch act.Kind {
	case action.Eat, action.Drink:
		if !a.HasResource(act.Params.Resource, act.Params.Amount) {
			return reject(RejectionInsufficientResources, "insufficient inventory")
		}
	}
	return nil
}

// validateWorldState rejects actions whose target no longer exists or is in
// an invalid state (missing or closed route, storm blocking travel, resource
// not present at the gather/mine location).
func validateWorldState(a *agent.Agent, act action.Action, world *worldmap.Map, cond weather.Condition) error {
	switch act.Kind {
	case action.Move:
		route, ok := world.RouteByID(act.Params.TargetRoute)
		if !ok || route.Closed() {
			return reject(RejectionInvalidWorldState, "route does not exist or is closed")
		}
		if route.From != a.Position {
			return reject(RejectionInvalidWorldState, "route does not originate at agent's location")
		}
		if !route.ACL.Allows(a.ID, nil) {
			return reject(RejectionLocationAccessDenied, "ACL denies this agent this route")
		}
		if cond.BlocksTravel() {
			return reject(RejectionInvalidWorldState, "weather blocks travel")
		}
	case action.Gather, action.Mine:
		loc, ok := world.GetLocation(a.Position)
		if !ok {
			return reject(RejectionInvalidWorldState, "location does not exist")
		}
		if _, ok := loc.Resources[act.Params.Resource]; !ok {
			return reject(RejectionInvalidWorldState, "resource not present at this location")
		}
	}
	return nil
}

// Concept knowledge items gating non-Build actions (spec §4.10 stage 8):
// each abstract concept the spec names ("governance", "agriculture", ...)
// is mapped to the closest concrete item in internal/knowledge's generated
// era tree.
const (
	knowledgeWrittenLanguage knowledge.ItemID = "Bronze-Writing-Systems"
	knowledgeGovernance      knowledge.ItemID = "Bronze-Law-Codes"
	knowledgeLegislation     knowledge.ItemID = "Iron-Legal-Codification"
	knowledgeAgriculture     knowledge.ItemID = "Agricultural-Plow-Farming"
	knowledgeMining          knowledge.ItemID = "Industrial-Coal-Mining"
	knowledgeSmelting        knowledge.ItemID = "Bronze-Copper-Smelting"
	knowledgeMetalworking    knowledge.ItemID = "Iron-Iron-Smelting"
	knowledgeRoadBuilding    knowledge.ItemID = "Bronze-Road-Building"
)

// validateSkillKnowledge rejects actions requiring a concept or per-recipe
// knowledge item the agent has not learned (spec §4.10 stage 8).
func validateSkillKnowledge(a *agent.Agent, act action.Action, known KnownKnowledge, world *worldmap.Map) error {
	switch act.Kind {
	case action.Build:
		bp, ok := structures.BlueprintTable[structures.Type(act.Params.StructureType)]
		if !ok {
			return reject(RejectionInvalidWorldState, "unknown structure type")
		}
		for _, req := range bp.RequiredKnowledge {
			if !known[string(req)] {
				return reject(RejectionMissingKnowledge, fmt.Sprintf("missing knowledge item %s", req))
			}
		}
	case action.Write, action.Read:
		if !known[string(knowledgeWrittenLanguage)] {
			return reject(RejectionMissingKnowledge, "missing written language knowledge")
		}
	case action.Legislate:
		if !known[string(knowledgeGovernance)] && !known[string(knowledgeLegislation)] {
			return reject(RejectionMissingKnowledge, "missing governance/legislation knowledge")
		}
	case action.FarmPlant, action.FarmHarvest:
		if !known[string(knowledgeAgriculture)] {
			return reject(RejectionMissingKnowledge, "missing agriculture knowledge")
		}
	case action.Mine:
		if !known[string(knowledgeMining)] {
			return reject(RejectionMissingKnowledge, "missing mining knowledge")
		}
	case action.Smelt:
		if !known[string(knowledgeSmelting)] && !known[string(knowledgeMetalworking)] {
			return reject(RejectionMissingKnowledge, "missing smelting/metalworking knowledge")
		}
	case action.Teach:
		if act.Params.Message != "" && !known[act.Params.Message] {
			return reject(RejectionMissingKnowledge, "teacher does not know the taught concept")
		}
	case action.ImproveRoute:
		route, ok := world.RouteByID(act.Params.TargetRoute)
		if ok {
			if _, upgradable := worldmap.NextPathUpgrade(route.PathType); upgradable && route.PathType == worldmap.PathTrail {
				if !known[string(knowledgeRoadBuilding)] {
					return reject(RejectionMissingKnowledge, "missing road-building knowledge")
				}
			}
		}
	}
	return nil
}
