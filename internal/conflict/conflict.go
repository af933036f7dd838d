// Package conflict resolves competing gather claims against a single
// (location, resource) supply using one of three configurable strategies
// (spec §4.11): FirstComeFirstServed, EqualShare, ProportionalToRequested.
//
// Grounded on the teacher's sort.Slice usage in
// engine.Simulation.GiniCoefficient (internal/engine/metrics.go) for the
// deterministic-sort idiom; the strategies themselves are new code since
// the teacher's Tier-0 engine has no competing-claims concept (every agent
// gathers from effectively unlimited supply).
package conflict

import (
	"sort"

	"github.com/google/uuid"
)

// Strategy selects which resolution rule a simulation run applies to every
// contested (location, resource) pair for the tick.
type Strategy uint8

const (
	FirstComeFirstServed Strategy = iota
	EqualShare
	ProportionalToRequested
)

func (s Strategy) String() string {
	switch s {
	case FirstComeFirstServed:
		return "FirstComeFirstServed"
	case EqualShare:
		return "EqualShare"
	case ProportionalToRequested:
		return "ProportionalToRequested"
	default:
		return "Unknown"
	}
}

// RejectReason is the closed set of reasons a claim receives zero quantity.
type RejectReason uint8

const (
	RejectNone RejectReason = iota
	RejectConflictLost
)

func (r RejectReason) String() string {
	if r == RejectConflictLost {
		return "ConflictLost"
	}
	return "None"
}

// Claim is one agent's request to gather a quantity of a resource at a
// location, as submitted this tick.
type Claim struct {
	AgentID     uuid.UUID
	Requested   uint32
	SubmittedAt uint64 // tick-local sequence number, ascending submission order
}

// Outcome is the per-claim resolution result. Granted claims have Quantity
// > 0 and Rejected == RejectNone; a claim with Quantity == 0 is always
// treated as conflict-lost regardless of Rejected's value (spec §4.11).
type Outcome struct {
	AgentID  uuid.UUID
	Quantity uint32
	Rejected RejectReason
}

// Resolve grants `supply` units of a resource across `claims` per the given
// Strategy. The input is not required to be pre-sorted; Resolve always
// stable-sorts by SubmittedAt first so results are independent of claim
// slice order (spec's determinism invariant).
func Resolve(strategy Strategy, claims []Claim, supply uint32) []Outcome {
	ordered := make([]Claim, len(claims))
	copy(ordered, claims)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt < ordered[j].SubmittedAt
	})

	switch strategy {
	case EqualShare:
		return resolveEqualShare(ordered, supply)
	case ProportionalToRequested:
		return resolveProportional(ordered, supply)
	default:
		return resolveFCFS(ordered, supply)
	}
}

func resolveFCFS(ordered []Claim, supply uint32) []Outcome {
	out := make([]Outcome, len(ordered))
	remaining := supply
	for i, c := range ordered {
		grant := c.Requested
		if grant > remaining {
			grant = remaining
		}
		remaining -= grant
		out[i] = outcomeFor(c.AgentID, grant)
	}
	return out
}

// resolveEqualShare floor-divides supply evenly across claimants; any
// remainder (from integer division) goes to the earliest submitters, one
// unit each, in SubmittedAt order (spec §4.11).
func resolveEqualShare(ordered []Claim, supply uint32) []Outcome {
	n := uint32(len(ordered))
	if n == 0 {
		return nil
	}
	share := supply / n
	remainder := supply % n

	out := make([]Outcome, len(ordered))
	for i, c := range ordered {
		grant := share
		if uint32(i) < remainder {
			grant++
		}
		if grant > c.Requested {
			grant = c.Requested
		}
		out[i] = outcomeFor(c.AgentID, grant)
	}
	return out
}

// resolveProportional grants each claimant min(requested, floor(requested /
// totalRequested * supply)), then distributes any leftover supply one unit
// at a time, in SubmittedAt order, to claimants still below their request
// (spec §4.11 "distribute remainder").
func resolveProportional(ordered []Claim, supply uint32) []Outcome {
	var total uint64
	for _, c := range ordered {
		total += uint64(c.Requested)
	}
	out := make([]Outcome, len(ordered))
	if total == 0 {
		for i, c := range ordered {
			out[i] = outcomeFor(c.AgentID, 0)
		}
		return out
	}

	grants := make([]uint32, len(ordered))
	var granted uint64
	for i, c := range ordered {
		share := uint64(c.Requested) * uint64(supply) / total
		if share > uint64(c.Requested) {
			share = uint64(c.Requested)
		}
		grants[i] = uint32(share)
		granted += share
	}

	leftover := uint64(supply) - granted
	for i := 0; leftover > 0 && i < len(ordered); i++ {
		if grants[i] < ordered[i].Requested {
			grants[i]++
			leftover--
		}
	}
	// A second pass, under the same below-request condition, hands a further
	// unit to claimants still short of their request if any leftover remains
	// after the first pass.
	for i := 0; leftover > 0 && i < len(ordered); i++ {
		if grants[i] < ordered[i].Requested {
			grants[i]++
			leftover--
		}
	}

	for i, c := range ordered {
		out[i] = outcomeFor(c.AgentID, grants[i])
	}
	return out
}

func outcomeFor(agent uuid.UUID, quantity uint32) Outcome {
	if quantity == 0 {
		return Outcome{AgentID: agent, Quantity: 0, Rejected: RejectConflictLost}
	}
	return Outcome{AgentID: agent, Quantity: quantity, Rejected: RejectNone}
}
