package validation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/weather"
	"github.com/talgya/crossroads/internal/worldmap"
)

func setupWorld(t *testing.T) (*worldmap.Map, worldmap.LocationID, worldmap.LocationID, worldmap.RouteID) {
	t.Helper()
	m := worldmap.NewMap()
	a := m.AddLocation(&worldmap.Location{
		Name: "A", ACL: worldmap.ACL{Public: true},
		Resources: map[worldmap.Resource]*worldmap.ResourceNode{
			worldmap.ResourceWood: {Resource: worldmap.ResourceWood, Quantity: 100, MaxQuantity: 100, RegenRate: 1},
		},
	})
	b := m.AddLocation(&worldmap.Location{Name: "B", ACL: worldmap.ACL{Public: true}})
	rid, err := m.AddRoute(&worldmap.Route{From: a, To: b, BaseCost: 10, PathType: worldmap.PathTrail, Durability: 100, ACL: worldmap.ACL{Public: true}})
	require.NoError(t, err)
	return m, a, b, rid
}

func rejectReason(t *testing.T, err error) RejectionReason {
	t.Helper()
	rej, ok := err.(*Rejection)
	require.True(t, ok, "expected *Rejection, got %T", err)
	return rej.Reason
}

func TestValidateGatherSucceedsWhenWellFormed(t *testing.T) {
	m, locA, _, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	act := action.Action{Kind: action.Gather, Params: action.Params{Resource: worldmap.ResourceWood, Amount: 5}}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	assert.NoError(t, err)
}

func TestValidateGatherRejectsZeroAmount(t *testing.T) {
	m, locA, _, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	act := action.Action{Kind: action.Gather, Params: action.Params{Resource: worldmap.ResourceWood, Amount: 0}}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	require.Error(t, err)
	assert.Equal(t, RejectionSyntax, rejectReason(t, err))
}

func TestValidateRejectsActionWhileTraveling(t *testing.T) {
	m, locA, _, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	a.Travel.Active = true
	act := action.Action{Kind: action.Gather, Params: action.Params{Resource: worldmap.ResourceWood, Amount: 1}}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	require.Error(t, err)
	assert.Equal(t, RejectionTravelInProgress, rejectReason(t, err))
}

func TestValidateRejectsInsufficientEnergy(t *testing.T) {
	m, locA, _, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	a.Energy = 5
	act := action.Action{Kind: action.Gather, Params: action.Params{Resource: worldmap.ResourceWood, Amount: 1}}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	require.Error(t, err)
	assert.Equal(t, RejectionInsufficientVitals, rejectReason(t, err))
}

func TestValidateRejectsImmatureForCraft(t *testing.T) {
	m, locA, _, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0) // BornTick 0, Age 0 -> Infant
	act := action.Action{Kind: action.Craft, Params: action.Params{Amount: 1}}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	require.Error(t, err)
	assert.Equal(t, RejectionImmature, rejectReason(t, err))
}

func TestValidateRejectsStormBlockingMove(t *testing.T) {
	m, locA, _, rid := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	act := action.Action{Kind: action.Move, Params: action.Params{TargetRoute: rid}}

	err := Validate(a, act, m, weather.Storm, 0, nil, Deps{})
	require.Error(t, err)
	assert.Equal(t, RejectionInvalidWorldState, rejectReason(t, err))
}

func TestValidateMoveSucceedsInClearWeather(t *testing.T) {
	m, locA, _, rid := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	act := action.Action{Kind: action.Move, Params: action.Params{TargetRoute: rid}}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	assert.NoError(t, err)
}

func TestValidateRejectsMoveFromWrongOrigin(t *testing.T) {
	m, _, locB, rid := setupWorld(t)
	a := agent.New("Ada", agent.Female, locB, 0) // agent is at B, route goes A->B
	act := action.Action{Kind: action.Move, Params: action.Params{TargetRoute: rid}}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	require.Error(t, err)
	assert.Equal(t, RejectionInvalidWorldState, rejectReason(t, err))
}

func TestValidateRejectsUnknownRoute(t *testing.T) {
	m, locA, _, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	act := action.Action{Kind: action.Move, Params: action.Params{TargetRoute: uuid.New()}}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	require.Error(t, err)
	assert.Equal(t, RejectionInvalidWorldState, rejectReason(t, err))
}

func TestValidateRejectsInsufficientInventoryForEat(t *testing.T) {
	m, locA, _, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	act := action.Action{Kind: action.Eat, Params: action.Params{Resource: worldmap.ResourceFoodBerry, Amount: 1}}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	require.Error(t, err)
	assert.Equal(t, RejectionInsufficientResources, rejectReason(t, err))
}

func TestValidateEatSucceedsWhenHeld(t *testing.T) {
	m, locA, _, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	a.AddResource(worldmap.ResourceFoodBerry, 3)
	act := action.Action{Kind: action.Eat, Params: action.Params{Resource: worldmap.ResourceFoodBerry, Amount: 1}}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	assert.NoError(t, err)
}

func TestValidateRejectsLocationACLDenial(t *testing.T) {
	m := worldmap.NewMap()
	restricted := m.AddLocation(&worldmap.Location{Name: "Restricted", ACL: worldmap.ACL{Public: false, AllowedAgents: map[uuid.UUID]bool{}}})
	a := agent.New("Ada", agent.Female, restricted, 0)
	act := action.Action{Kind: action.NoAction}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	require.Error(t, err)
	assert.Equal(t, RejectionLocationAccessDenied, rejectReason(t, err))
}

func TestValidateRejectsLegislateWithoutMeetingHall(t *testing.T) {
	m, locA, _, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	a.BornTick = 0
	act := action.Action{Kind: action.Legislate, Params: action.Params{RuleText: "no stealing"}}

	err := Validate(a, act, m, weather.Clear, agent.AgeAdult, nil, Deps{})
	require.Error(t, err)
	assert.Equal(t, RejectionLocationAccessDenied, rejectReason(t, err))
}

func TestValidateLegislateSucceedsWithMeetingHallAndKnowledge(t *testing.T) {
	m, locA, _, _ := setupWorld(t)
	loc, _ := m.GetLocation(locA)
	loc.HasMeetingHall = true
	a := agent.New("Ada", agent.Female, locA, 0)
	act := action.Action{Kind: action.Legislate, Params: action.Params{RuleText: "no stealing"}}
	known := KnownKnowledge{string(knowledgeGovernance): true}

	err := Validate(a, act, m, weather.Clear, agent.AgeAdult, known, Deps{})
	assert.NoError(t, err)
}

func TestValidateRejectsCommunicateWithoutCoLocatedTarget(t *testing.T) {
	m, locA, locB, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	target := agent.New("Bob", agent.Male, locB, 0)
	act := action.Action{Kind: action.Communicate, Params: action.Params{TargetAgent: target.ID, Message: "hi"}}

	err := Validate(a, act, m, weather.Clear, 0, nil, Deps{Agents: map[uuid.UUID]*agent.Agent{target.ID: target}})
	require.Error(t, err)
	assert.Equal(t, RejectionLocationAccessDenied, rejectReason(t, err))
}

func TestValidateRejectsMoveOverDeniedRoute(t *testing.T) {
	m, locA, locB, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	rid, err := m.AddRoute(&worldmap.Route{
		From: locA, To: locB, BaseCost: 5, PathType: worldmap.PathTrail, Durability: 100,
		ACL: worldmap.ACL{Public: true, DeniedAgents: map[uuid.UUID]bool{a.ID: true}},
	})
	require.NoError(t, err)
	act := action.Action{Kind: action.Move, Params: action.Params{TargetRoute: rid}}

	verr := Validate(a, act, m, weather.Clear, 0, nil, Deps{})
	require.Error(t, verr)
	assert.Equal(t, RejectionLocationAccessDenied, rejectReason(t, verr))
}

func TestValidateRejectsImmatureClaimAndTeach(t *testing.T) {
	m, locA, _, _ := setupWorld(t)
	a := agent.New("Ada", agent.Female, locA, 0) // Infant at tick 0

	claimErr := Validate(a, action.Action{Kind: action.Claim, Params: action.Params{TargetStructure: uuid.New()}}, m, weather.Clear, 0, nil, Deps{})
	require.Error(t, claimErr)
	assert.Equal(t, RejectionImmature, rejectReason(t, claimErr))

	teachErr := Validate(a, action.Action{Kind: action.Teach, Params: action.Params{TargetAgent: uuid.New(), Message: "farming"}}, m, weather.Clear, 0, nil, Deps{})
	require.Error(t, teachErr)
	assert.Equal(t, RejectionImmature, rejectReason(t, teachErr))
}
