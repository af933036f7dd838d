package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/worldmap"
)

func TestReflectPushesSuccessMemoryWithSuccessWeight(t *testing.T) {
	a := agent.New("Ada", agent.Female, worldmap.LocationID{}, 0)
	act := action.Action{Kind: action.Gather}

	Reflect(a, 5, act, Outcome{Success: true})

	require.Len(t, a.Memories, 1)
	assert.Equal(t, uint64(5), a.Memories[0].Tick)
	assert.Equal(t, SuccessWeight, a.Memories[0].Importance)
	assert.Equal(t, agent.MemoryTypeAction, a.Memories[0].Type)
	assert.Contains(t, a.Memories[0].Content, "succeeded")
}

func TestReflectPushesFailureMemoryWithFailureWeightAndDetail(t *testing.T) {
	a := agent.New("Ada", agent.Female, worldmap.LocationID{}, 0)
	act := action.Action{Kind: action.Move}

	Reflect(a, 5, act, Outcome{Success: false, Detail: "InsufficientEnergy"})

	require.Len(t, a.Memories, 1)
	assert.Equal(t, FailureWeight, a.Memories[0].Importance)
	assert.Contains(t, a.Memories[0].Content, "failed")
	assert.Contains(t, a.Memories[0].Content, "InsufficientEnergy")
}

func TestReflectAppliesGoalUpdatesRegardlessOfOutcome(t *testing.T) {
	a := agent.New("Ada", agent.Female, worldmap.LocationID{}, 0)
	a.SetGoals([]string{"old goal"})
	act := action.Action{Kind: action.Build, GoalUpdates: []string{"build a hut", "gather wood"}}

	Reflect(a, 1, act, Outcome{Success: false})

	assert.Equal(t, []string{"build a hut", "gather wood"}, a.Goals)
}

func TestReflectLeavesGoalsUntouchedWhenNoUpdateSupplied(t *testing.T) {
	a := agent.New("Ada", agent.Female, worldmap.LocationID{}, 0)
	a.SetGoals([]string{"stay alive"})
	act := action.Action{Kind: action.Rest}

	Reflect(a, 1, act, Outcome{Success: true})

	assert.Equal(t, []string{"stay alive"}, a.Goals)
}

func TestMemoryStreamEvictsOldestAtCap(t *testing.T) {
	a := agent.New("Ada", agent.Female, worldmap.LocationID{}, 0)
	for i := uint64(0); i < agent.MaxMemories+5; i++ {
		Reflect(a, i, action.Action{Kind: action.NoAction}, Outcome{Success: true})
	}

	require.Len(t, a.Memories, agent.MaxMemories)
	assert.Equal(t, uint64(5), a.Memories[0].Tick, "the 5 oldest entries (ticks 0-4) should have been evicted")
	assert.Equal(t, uint64(agent.MaxMemories+4), a.Memories[len(a.Memories)-1].Tick)
}

func TestSetGoalsTruncatesToMaxGoals(t *testing.T) {
	a := agent.New("Ada", agent.Female, worldmap.LocationID{}, 0)
	a.SetGoals([]string{"1", "2", "3", "4", "5", "6", "7"})
	assert.Len(t, a.Goals, agent.MaxGoals)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, a.Goals)
}

func TestRecentContentReturnsNewestFirst(t *testing.T) {
	a := agent.New("Ada", agent.Female, worldmap.LocationID{}, 0)
	Reflect(a, 1, action.Action{Kind: action.Gather}, Outcome{Success: true})
	Reflect(a, 2, action.Action{Kind: action.Eat}, Outcome{Success: true})
	Reflect(a, 3, action.Action{Kind: action.Rest}, Outcome{Success: true})

	recent := RecentContent(a, 2)
	require.Len(t, recent, 2)
	assert.Contains(t, recent[0], "Rest")
	assert.Contains(t, recent[1], "Eat")
}

func TestRecentContentCapsAtAvailableMemories(t *testing.T) {
	a := agent.New("Ada", agent.Female, worldmap.LocationID{}, 0)
	Reflect(a, 1, action.Action{Kind: action.Gather}, Outcome{Success: true})

	recent := RecentContent(a, 10)
	assert.Len(t, recent, 1)
}
