package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/worldmap"
)

func testWorld(t *testing.T) (*worldmap.Map, worldmap.LocationID, worldmap.LocationID) {
	t.Helper()
	m := worldmap.NewMap()
	a := m.AddLocation(&worldmap.Location{
		Name: "Hearth",
		Resources: map[worldmap.Resource]*worldmap.ResourceNode{
			worldmap.ResourceWood:      {Resource: worldmap.ResourceWood, Quantity: 100, MaxQuantity: 200, RegenRate: 1},
			worldmap.ResourceStone:     {Resource: worldmap.ResourceStone, Quantity: 100, MaxQuantity: 200, RegenRate: 1},
			worldmap.ResourceWater:     {Resource: worldmap.ResourceWater, Quantity: 100, MaxQuantity: 200, RegenRate: 1},
			worldmap.ResourceFoodBerry: {Resource: worldmap.ResourceFoodBerry, Quantity: 50, MaxQuantity: 200, RegenRate: 1},
		},
	})
	b := m.AddLocation(&worldmap.Location{Name: "Outpost"})
	_, err := m.AddRoute(&worldmap.Route{From: a, To: b, BaseCost: 5, Durability: 100})
	require.NoError(t, err)
	return m, a, b
}

func TestNewClampsAndDefaultsSeverity(t *testing.T) {
	assert.Equal(t, uint8(2), New(Plague, "x", 0).Severity)
	assert.Equal(t, uint8(1), New(Plague, "x", -3).Severity)
	assert.Equal(t, uint8(5), New(Plague, "x", 99).Severity)
	assert.Equal(t, uint8(3), New(Plague, "x", 3).Severity)
}

func TestNaturalDisasterDepletesResourcesAndDamagesPresentAgents(t *testing.T) {
	m, locA, _ := testWorld(t)
	ledger := worldmap.NewLedger()
	ag := agent.New("Ada", agent.Female, locA, 0)
	present := map[worldmap.LocationID][]*agent.Agent{locA: {ag}}

	s := NewState(42)
	s.Enqueue(New(NaturalDisaster, "Hearth", 3))
	s.Process(m, ledger, present, func(worldmap.LocationID) int { return 0 }, 10)

	loc, _ := m.GetLocation(locA)
	assert.Equal(t, uint32(40), loc.Resources[worldmap.ResourceWood].Quantity)   // 100 - 3*20
	assert.Equal(t, uint32(40), loc.Resources[worldmap.ResourceStone].Quantity) // 100 - 3*20
	assert.Equal(t, uint32(40), loc.Resources[worldmap.ResourceWater].Quantity) // 100 - 3*20
	assert.Equal(t, uint32(0), loc.Resources[worldmap.ResourceFoodBerry].Quantity) // floored, 50 - 60
	assert.Equal(t, int32(70), ag.Health) // 100 - 3*10
}

func TestResourceBoomAddsAndActivatesRecord(t *testing.T) {
	m, locA, _ := testWorld(t)
	ledger := worldmap.NewLedger()
	s := NewState(42)
	s.Enqueue(New(ResourceBoom, "Hearth", 2))
	s.Process(m, ledger, nil, func(worldmap.LocationID) int { return 0 }, 10)

	loc, _ := m.GetLocation(locA)
	assert.Equal(t, uint32(130), loc.Resources[worldmap.ResourceWood].Quantity) // 100 + 2*15
	require.Len(t, s.Booms, 1)
	assert.Equal(t, locA, s.Booms[0].LocationID)
	assert.Equal(t, uint64(30), s.Booms[0].ExpiresAt) // tick 10 + 2*10
}

func TestResourceBoomCapsAtMaxQuantity(t *testing.T) {
	m, locA, _ := testWorld(t)
	loc, _ := m.GetLocation(locA)
	loc.Resources[worldmap.ResourceWood].Quantity = 195
	ledger := worldmap.NewLedger()
	s := NewState(42)
	s.Enqueue(New(ResourceBoom, "Hearth", 5)) // would add 75, but cap is 200
	s.Process(m, ledger, nil, func(worldmap.LocationID) int { return 0 }, 0)

	assert.Equal(t, uint32(200), loc.Resources[worldmap.ResourceWood].Quantity)
}

func TestPlagueActivatesRecordAndSpreadsDuringAdvance(t *testing.T) {
	m, locA, locB := testWorld(t)
	s := NewState(42)
	s.Enqueue(New(Plague, "Hearth", 4)) // severity >= 3, spreadable
	s.Process(m, worldmap.NewLedger(), nil, func(worldmap.LocationID) int { return 0 }, 0)

	require.Len(t, s.Plagues, 1)
	assert.Equal(t, locA, s.Plagues[0].LocationID)
	assert.Equal(t, int32(20), s.Plagues[0].DamagePerTick) // 4*5
	assert.Equal(t, uint64(32), s.Plagues[0].ExpiresAt)    // 4*8
	assert.True(t, s.Plagues[0].Spreadable)

	ag := agent.New("Ada", agent.Female, locA, 0)
	present := map[worldmap.LocationID][]*agent.Agent{locA: {ag}}
	s.Advance(m, present, 1)

	assert.Equal(t, int32(80), ag.Health) // 100 - 20
	require.Len(t, s.Plagues, 2)
	assert.Equal(t, locA, s.Plagues[0].LocationID)
	assert.False(t, s.Plagues[0].Spreadable) // spread once, cannot re-spread

	var spread *ActivePlague
	for i := range s.Plagues {
		if s.Plagues[i].LocationID == locB {
			spread = &s.Plagues[i]
		}
	}
	require.NotNil(t, spread)
	assert.Equal(t, int32(10), spread.DamagePerTick) // halved
	assert.False(t, spread.Spreadable)
}

func TestLowSeverityPlagueDoesNotSpread(t *testing.T) {
	m, locA, locB := testWorld(t)
	s := NewState(42)
	s.Enqueue(New(Plague, "Hearth", 2))
	s.Process(m, worldmap.NewLedger(), nil, func(worldmap.LocationID) int { return 0 }, 0)
	assert.False(t, s.Plagues[0].Spreadable)

	s.Advance(m, nil, 1)
	require.Len(t, s.Plagues, 1)
	assert.Equal(t, locA, s.Plagues[0].LocationID)
	assert.NotEqual(t, locB, s.Plagues[0].LocationID)
}

func TestPlagueExpiresAndStopsDamaging(t *testing.T) {
	m, locA, _ := testWorld(t)
	s := NewState(42)
	s.Enqueue(New(Plague, "Hearth", 1)) // duration 8 ticks, not spreadable
	s.Process(m, worldmap.NewLedger(), nil, func(worldmap.LocationID) int { return 0 }, 0)

	ag := agent.New("Ada", agent.Female, locA, 0)
	present := map[worldmap.LocationID][]*agent.Agent{locA: {ag}}
	s.Advance(m, present, 8) // tick >= ExpiresAt(8)
	assert.Equal(t, int32(100), ag.Health)
	assert.Empty(t, s.Plagues)
}

func TestBoomExpiresDuringAdvance(t *testing.T) {
	m, _, _ := testWorld(t)
	s := NewState(42)
	s.Enqueue(New(ResourceBoom, "Hearth", 1)) // duration 10 ticks
	s.Process(m, worldmap.NewLedger(), nil, func(worldmap.LocationID) int { return 0 }, 0)
	require.Len(t, s.Booms, 1)

	s.Advance(m, nil, 10)
	assert.Empty(t, s.Booms)
}

func TestMigrationEnqueuesSpawnsAtLeastPopulatedLocation(t *testing.T) {
	m, locA, locB := testWorld(t)
	pop := map[worldmap.LocationID]int{locA: 40, locB: 5}
	s := NewState(42)
	s.Enqueue(New(Migration, "", 3))
	s.Process(m, worldmap.NewLedger(), nil, func(id worldmap.LocationID) int { return pop[id] }, 0)

	spawns := s.DrainSpawns()
	require.Len(t, spawns, 6) // 3*2
	for _, sp := range spawns {
		assert.Equal(t, locB, sp.LocationID)
	}
	assert.Empty(t, s.Spawns, "DrainSpawns should clear the backlog")
}

func TestUnmatchedRegionFallsBackToFirstLocation(t *testing.T) {
	m, _, _ := testWorld(t)
	expected, ok := m.FirstLocationID()
	require.True(t, ok)

	ledger := worldmap.NewLedger()
	s := NewState(42)
	s.Enqueue(New(ResourceBoom, "Nowhere", 1))
	s.Process(m, ledger, nil, func(worldmap.LocationID) int { return 0 }, 0)

	require.Len(t, s.Booms, 1)
	assert.Equal(t, expected, s.Booms[0].LocationID)
}
