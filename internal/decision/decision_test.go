package decision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/perception"
	"github.com/talgya/crossroads/internal/worldmap"
)

func TestStubReturnsNoActionForEveryPerception(t *testing.T) {
	ids := []agent.ID{uuid.New(), uuid.New()}
	perceptions := map[agent.ID]perception.Perception{
		ids[0]: {AgentID: ids[0]},
		ids[1]: {AgentID: ids[1]},
	}

	out := Stub{}.CollectDecisions(context.Background(), 1, perceptions)

	require.Len(t, out, 2)
	for _, id := range ids {
		assert.Equal(t, action.NoAction, out[id].Kind)
		assert.Equal(t, id, out[id].AgentID)
	}
}

func TestRuleEngineAdapterAppliesFastPathRules(t *testing.T) {
	id := uuid.New()
	p := perception.Perception{
		AgentID:   id,
		TimeOfDay: "Morning",
		Self: perception.SelfState{
			Health: 100, Energy: 100, Hunger: 90, Thirst: 10,
			Inventory: map[worldmap.Resource]uint32{worldmap.ResourceFoodBerry: 3},
		},
	}

	adapter := NewRuleEngineAdapter()
	out := adapter.CollectDecisions(context.Background(), 7, map[agent.ID]perception.Perception{id: p})

	require.Contains(t, out, id)
	assert.Equal(t, action.Eat, out[id].Kind)
	assert.Equal(t, worldmap.ResourceFoodBerry, out[id].Params.Resource)
	assert.Equal(t, uint64(7), out[id].SubmittedTick)
}

func TestRuleEngineAdapterFallsBackToNoActionWhenNoRuleMatches(t *testing.T) {
	id := uuid.New()
	p := perception.Perception{
		AgentID:   id,
		TimeOfDay: "Morning",
		Self:      perception.SelfState{Health: 100, Energy: 100, Hunger: 10, Thirst: 10},
		Surroundings: perception.Surroundings{
			ResourceCounts: map[worldmap.Resource]uint32{},
		},
		CoLocatedAgents: []perception.AgentSummary{{AgentID: uuid.New()}},
	}

	adapter := NewRuleEngineAdapter()
	out := adapter.CollectDecisions(context.Background(), 1, map[agent.ID]perception.Perception{id: p})

	assert.Equal(t, action.NoAction, out[id].Kind)
}

func TestRuleEngineAdapterPersistsLoopStateAcrossCalls(t *testing.T) {
	id := uuid.New()
	p := perception.Perception{
		AgentID:   id,
		TimeOfDay: "Morning",
		Self:      perception.SelfState{Health: 100, Energy: 5, Hunger: 0, Thirst: 0},
	}
	adapter := NewRuleEngineAdapter()

	for i := uint64(0); i < 9; i++ {
		out := adapter.CollectDecisions(context.Background(), i, map[agent.ID]perception.Perception{id: p})
		assert.Equal(t, action.Rest, out[id].Kind, "iteration %d", i)
	}
	// The 10th consecutive EnergyLowRest fire hits LoopFireLimit and escalates.
	out := adapter.CollectDecisions(context.Background(), 9, map[agent.ID]perception.Perception{id: p})
	assert.Equal(t, action.NoAction, out[id].Kind)
}

func TestNewLLMClientReturnsNilWithoutAPIKey(t *testing.T) {
	assert.Nil(t, NewLLMClient(""))
	assert.False(t, (*LLMClient)(nil).Enabled())
}

func TestLLMAdapterFallsBackToNoActionWithoutClient(t *testing.T) {
	id := uuid.New()
	adapter := &LLMAdapter{}
	out := adapter.CollectDecisions(context.Background(), 3, map[agent.ID]perception.Perception{
		id: {AgentID: id},
	})
	assert.Equal(t, action.NoAction, out[id].Kind)
}

func TestLLMAdapterResolvesFeasibleActionFromModelResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"text":"{\"action\":\"rest\",\"reasoning\":\"tired\"}"}]}`))
	}))
	defer srv.Close()

	client := NewLLMClient("test-key")
	client.httpClient = srv.Client()
	client.apiURL = srv.URL

	adapter := &LLMAdapter{Client: client}
	id := uuid.New()
	out := adapter.CollectDecisions(context.Background(), 1, map[agent.ID]perception.Perception{
		id: {AgentID: id, Self: perception.SelfState{}},
	})

	assert.Equal(t, action.Rest, out[id].Kind)
}

func TestParseChoiceExtractsJSONEmbeddedInProse(t *testing.T) {
	choice, err := parseChoice(`Sure thing! {"action": "gather wood", "reasoning": "need materials"} hope that helps`)
	require.NoError(t, err)
	assert.Equal(t, "gather wood", choice.Action)
}

func TestParseChoiceRejectsResponseWithoutJSON(t *testing.T) {
	_, err := parseChoice("I cannot decide right now.")
	assert.Error(t, err)
}
