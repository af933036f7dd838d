package simstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/clock"
	"github.com/talgya/crossroads/internal/culture"
	"github.com/talgya/crossroads/internal/handlers"
	"github.com/talgya/crossroads/internal/knowledge"
	"github.com/talgya/crossroads/internal/weather"
	"github.com/talgya/crossroads/internal/worldmap"
)

func testState(t *testing.T) (*State, worldmap.LocationID, worldmap.LocationID) {
	t.Helper()
	world := worldmap.NewMap()
	a := world.AddLocation(&worldmap.Location{Name: "Hearth"})
	b := world.AddLocation(&worldmap.Location{Name: "Outpost"})

	c, err := clock.New(clock.Config{TicksPerSeason: 100, Seasons: []string{"Spring", "Summer", "Autumn", "Winter"}, TicksPerDay: 24})
	require.NoError(t, err)

	kt, err := knowledge.New(nil)
	require.NoError(t, err)
	cr := culture.NewRegistry(nil)

	s := New(c, world, weather.New(1), kt, cr, 7)
	return s, a, b
}

func TestNewWiresEveryEmptySubsystem(t *testing.T) {
	s, _, _ := testState(t)
	assert.NotNil(t, s.Ledger)
	assert.NotNil(t, s.Reputation)
	assert.NotNil(t, s.Social)
	assert.NotNil(t, s.Events)
	assert.NotNil(t, s.AgentIndex)
	assert.NotNil(t, s.MessageBoards)
	assert.NotNil(t, s.Structures)
	assert.NotNil(t, s.Library)
	assert.Equal(t, int64(7), s.Seed)
}

func TestAddAgentRegistersInSliceAndIndex(t *testing.T) {
	s, locA, _ := testState(t)
	a := agent.New("Ada", agent.Female, locA, 0)
	s.AddAgent(a)

	require.Len(t, s.Agents, 1)
	assert.Same(t, a, s.AgentIndex[a.ID])
}

func TestAliveAgentsFiltersDead(t *testing.T) {
	s, locA, _ := testState(t)
	alive := agent.New("Ada", agent.Female, locA, 0)
	dead := agent.New("Bo", agent.Male, locA, 0)
	dead.Alive = false
	s.AddAgent(alive)
	s.AddAgent(dead)

	got := s.AliveAgents()
	require.Len(t, got, 1)
	assert.Equal(t, alive.ID, got[0].ID)
}

func TestAgentsAtFiltersByLocationAndIsSorted(t *testing.T) {
	s, locA, locB := testState(t)
	a1 := agent.New("Ada", agent.Female, locA, 0)
	a2 := agent.New("Bo", agent.Male, locB, 0)
	a3 := agent.New("Cy", agent.Male, locA, 0)
	s.AddAgent(a1)
	s.AddAgent(a2)
	s.AddAgent(a3)

	at := s.AgentsAt(locA)
	require.Len(t, at, 2)
	assert.True(t, at[0].ID.String() <= at[1].ID.String())
}

func TestPresentByLocationBucketsAliveAgentsOnly(t *testing.T) {
	s, locA, locB := testState(t)
	a1 := agent.New("Ada", agent.Female, locA, 0)
	a2 := agent.New("Bo", agent.Male, locB, 0)
	a2.Alive = false
	s.AddAgent(a1)
	s.AddAgent(a2)

	present := s.PresentByLocation()
	assert.Len(t, present[locA], 1)
	assert.Empty(t, present[locB])
}

func TestPopulationAtCountsOnlyAliveAgentsAtLocation(t *testing.T) {
	s, locA, locB := testState(t)
	a1 := agent.New("Ada", agent.Female, locA, 0)
	a2 := agent.New("Bo", agent.Male, locA, 0)
	a2.Alive = false
	a3 := agent.New("Cy", agent.Male, locB, 0)
	s.AddAgent(a1)
	s.AddAgent(a2)
	s.AddAgent(a3)

	assert.Equal(t, 1, s.PopulationAt(locA))
	assert.Equal(t, 1, s.PopulationAt(locB))
}

func TestPostMessageAppendsToLocationBoard(t *testing.T) {
	s, locA, _ := testState(t)
	s.PostMessage(handlers.Message{LocationID: locA, Content: "hello", Tick: 3})
	s.PostMessage(handlers.Message{LocationID: locA, Content: "again", Tick: 4})

	require.Len(t, s.MessageBoards[locA], 2)
}

func TestExpireMessagesDropsOldEntriesAndEmptiesBoard(t *testing.T) {
	s, locA, _ := testState(t)
	s.PostMessage(handlers.Message{LocationID: locA, Content: "old", Tick: 1})
	s.PostMessage(handlers.Message{LocationID: locA, Content: "new", Tick: 14})

	s.ExpireMessages(15) // 15-1=14 > 10, expired; 15-14=1 <= 10, kept
	require.Len(t, s.MessageBoards[locA], 1)
	assert.Equal(t, "new", s.MessageBoards[locA][0].Content)
}

func TestExpireMessagesDeletesEmptyBoardEntirely(t *testing.T) {
	s, locA, _ := testState(t)
	s.PostMessage(handlers.Message{LocationID: locA, Content: "old", Tick: 0})
	s.ExpireMessages(100)

	_, ok := s.MessageBoards[locA]
	assert.False(t, ok)
}

func TestSubscribeReceivesEmittedEvents(t *testing.T) {
	s, _, _ := testState(t)
	id, ch := s.Subscribe()
	defer s.Unsubscribe(id)

	s.EmitEvent(WorldEvent{Tick: 5, Description: "a storm passes", Category: "weather"})

	select {
	case got := <-ch:
		assert.Equal(t, uint64(5), got.Tick)
	default:
		t.Fatal("expected event on subscriber channel")
	}
	require.Len(t, s.Log, 1)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s, _, _ := testState(t)
	id, ch := s.Subscribe()
	s.Unsubscribe(id)

	_, open := <-ch
	assert.False(t, open)
}

func TestEmitEventDoesNotBlockOnFullSubscriberBuffer(t *testing.T) {
	s, _, _ := testState(t)
	_, ch := s.Subscribe()
	for i := 0; i < 100; i++ {
		s.EmitEvent(WorldEvent{Tick: uint64(i)})
	}
	assert.Len(t, s.Log, 100)
	assert.NotEmpty(t, ch)
}
