// Package action defines the shared action representation every stage of
// the pipeline (validation, conflict resolution, handlers, the rule engine)
// operates on.
//
// Grounded on the teacher's agents.Action{AgentID, Kind, Detail}
// (internal/agents/behavior.go) and its ActionKind enum, generalized from
// the teacher's 8 Tier-0 kinds to the spec's ~25 handled kinds plus the
// externally-managed stubs (spec §9 Open Questions).
package action

import (
	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/worldmap"
)

// Kind is the closed set of action types an agent may submit.
type Kind uint8

const (
	NoAction Kind = iota
	Gather
	Eat
	Drink
	Rest
	Move
	Communicate
	Broadcast
	Teach
	Build
	Repair
	Demolish
	ImproveRoute
	Claim
	Legislate
	Enforce
	FarmPlant
	FarmHarvest
	Craft
	Mine
	Smelt
	Write
	Read

	// Freeform marks a decision source's natural-language action request
	// that did not map to a concrete Kind at submission time (spec §4.13,
	// §4.15 Resolution step 4a "freeform actions run through the
	// feasibility evaluator first"). Params.Message carries the raw text;
	// internal/feasibility resolves it to a concrete action, a rejection,
	// or NeedsEvaluation before validation ever sees it.
	Freeform

	// Externally managed: these pass validation but Execute is a no-op
	// (spec §9 Open Question — "implemented as validated no-op stubs").
	Reproduce
	TradeAccept
	TradeReject
	Attack
	Steal
	Vote
	Marry
	Divorce
	Conspire
	Pray
	Intimidate
	FormGroup
)

func (k Kind) String() string {
	names := [...]string{
		"NoAction", "Gather", "Eat", "Drink", "Rest", "Move", "Communicate",
		"Broadcast", "Teach", "Build", "Repair", "Demolish", "ImproveRoute",
		"Claim", "Legislate", "Enforce", "FarmPlant", "FarmHarvest", "Craft",
		"Mine", "Smelt", "Write", "Read", "Freeform", "Reproduce", "TradeAccept",
		"TradeReject", "Attack", "Steal", "Vote", "Marry", "Divorce",
		"Conspire", "Pray", "Intimidate", "FormGroup",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// ExternallyManaged reports whether Kind is one of the stub actions the
// core validates but never executes the effects of.
func (k Kind) ExternallyManaged() bool {
	return k >= Reproduce
}

// Params carries every action-specific field. Only the fields relevant to
// Kind are populated by the submitter; handlers and validation read only
// what their action kind defines.
type Params struct {
	TargetLocation  worldmap.LocationID
	TargetAgent     uuid.UUID
	TargetStructure uuid.UUID
	TargetRoute     worldmap.RouteID
	TargetGroup     uuid.UUID
	Resource        worldmap.Resource
	Amount          uint32
	StructureType   uint8 // structures.Type, kept untyped here to avoid an import cycle
	Message         string
	RuleText        string
	Recipient       uuid.UUID
	Broadcast       bool
}

// Action is a single agent's request to act during the current tick,
// doubling as the decision source's ActionRequest (spec §6): GoalUpdates
// carries the decision source's optional overwrite of the agent's goal
// sequence, applied in Reflection (internal/reflection) regardless of
// whether the action itself succeeded.
type Action struct {
	ID             uuid.UUID
	AgentID        uuid.UUID
	Kind           Kind
	Params         Params
	SubmittedTick  uint64
	SequenceNumber uint64   // deterministic submission order within a tick, for conflict resolution
	GoalUpdates    []string // optional; nil means "no change to goals"
}
