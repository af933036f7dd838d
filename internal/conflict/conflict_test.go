package conflict

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newClaim(requested uint32, submittedAt uint64) Claim {
	return Claim{AgentID: uuid.New(), Requested: requested, SubmittedAt: submittedAt}
}

func TestFCFSGrantsInSubmissionOrderUntilExhausted(t *testing.T) {
	a := newClaim(10, 0)
	b := newClaim(10, 1)
	c := newClaim(10, 2)
	out := Resolve(FirstComeFirstServed, []Claim{c, a, b}, 15) // shuffled input

	byAgent := map[uuid.UUID]Outcome{}
	for _, o := range out {
		byAgent[o.AgentID] = o
	}
	assert.Equal(t, uint32(10), byAgent[a.AgentID].Quantity)
	assert.Equal(t, uint32(5), byAgent[b.AgentID].Quantity)
	assert.Equal(t, uint32(0), byAgent[c.AgentID].Quantity)
	assert.Equal(t, RejectConflictLost, byAgent[c.AgentID].Rejected)
}

func TestEqualShareDividesFloorAndGivesRemainderToEarliest(t *testing.T) {
	a := newClaim(100, 0)
	b := newClaim(100, 1)
	c := newClaim(100, 2)
	out := Resolve(EqualShare, []Claim{a, b, c}, 10) // 10/3 = 3 each, remainder 1

	assert.Equal(t, uint32(4), out[0].Quantity) // earliest gets the remainder unit
	assert.Equal(t, uint32(3), out[1].Quantity)
	assert.Equal(t, uint32(3), out[2].Quantity)
}

func TestEqualShareCapsGrantAtRequested(t *testing.T) {
	a := newClaim(2, 0)
	b := newClaim(100, 1)
	out := Resolve(EqualShare, []Claim{a, b}, 10) // 5 each, but a only wants 2

	assert.Equal(t, uint32(2), out[0].Quantity)
	assert.Equal(t, uint32(5), out[1].Quantity)
}

func TestProportionalGrantsByShareOfTotalRequested(t *testing.T) {
	a := newClaim(30, 0)
	b := newClaim(70, 1)
	out := Resolve(ProportionalToRequested, []Claim{a, b}, 10)

	assert.Equal(t, uint32(3), out[0].Quantity)
	assert.Equal(t, uint32(7), out[1].Quantity)
}

func TestProportionalDistributesRemainderDeterministically(t *testing.T) {
	a := newClaim(1, 0)
	b := newClaim(1, 1)
	c := newClaim(1, 2)
	out := Resolve(ProportionalToRequested, []Claim{a, b, c}, 2) // each entitled to 0.67 -> floor 0

	total := uint32(0)
	for _, o := range out {
		total += o.Quantity
	}
	assert.Equal(t, uint32(2), total)
	assert.Equal(t, uint32(1), out[0].Quantity) // earliest submitters get the leftover first
	assert.Equal(t, uint32(1), out[1].Quantity)
	assert.Equal(t, uint32(0), out[2].Quantity)
}

func TestProportionalWithZeroTotalRequestedGrantsNothing(t *testing.T) {
	a := newClaim(0, 0)
	out := Resolve(ProportionalToRequested, []Claim{a}, 10)
	assert.Equal(t, uint32(0), out[0].Quantity)
	assert.Equal(t, RejectConflictLost, out[0].Rejected)
}

func TestResolveIsInputOrderIndependent(t *testing.T) {
	a := newClaim(10, 0)
	b := newClaim(10, 1)
	out1 := Resolve(FirstComeFirstServed, []Claim{a, b}, 15)
	out2 := Resolve(FirstComeFirstServed, []Claim{b, a}, 15)

	m1 := map[uuid.UUID]uint32{}
	for _, o := range out1 {
		m1[o.AgentID] = o.Quantity
	}
	m2 := map[uuid.UUID]uint32{}
	for _, o := range out2 {
		m2[o.AgentID] = o.Quantity
	}
	assert.Equal(t, m1, m2)
}

func TestFullSupplyGrantsEveryClaimInFull(t *testing.T) {
	a := newClaim(3, 0)
	b := newClaim(4, 1)
	out := Resolve(FirstComeFirstServed, []Claim{a, b}, 100)
	assert.Equal(t, uint32(3), out[0].Quantity)
	assert.Equal(t, uint32(4), out[1].Quantity)
	assert.Equal(t, RejectNone, out[0].Rejected)
	assert.Equal(t, RejectNone, out[1].Rejected)
}
