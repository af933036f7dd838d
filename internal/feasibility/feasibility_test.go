package feasibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/worldmap"
)

func TestEvaluateEmptyTextIsInfeasible(t *testing.T) {
	r := Evaluate("   ")
	assert.Equal(t, Infeasible, r.Outcome)
}

func TestEvaluateRestPhraseIsFeasible(t *testing.T) {
	r := Evaluate("I want to take a break and rest")
	assert.Equal(t, Feasible, r.Outcome)
	assert.Equal(t, action.Rest, r.Resolved.Kind)
}

func TestEvaluateGatherWithResourceKeywordIsFeasible(t *testing.T) {
	r := Evaluate("let's go gather some wood")
	assert.Equal(t, Feasible, r.Outcome)
	assert.Equal(t, action.Gather, r.Resolved.Kind)
	assert.Equal(t, worldmap.ResourceWood, r.Resolved.Params.Resource)
}

func TestEvaluateEatWithResourceKeywordIsFeasible(t *testing.T) {
	r := Evaluate("eat some berries")
	assert.Equal(t, Feasible, r.Outcome)
	assert.Equal(t, action.Eat, r.Resolved.Kind)
	assert.Equal(t, worldmap.ResourceFoodBerry, r.Resolved.Params.Resource)
}

func TestEvaluateUnderspecifiedIntentNeedsEvaluation(t *testing.T) {
	r := Evaluate("go find help from the neighbors")
	assert.Equal(t, NeedsEvaluation, r.Outcome)
	assert.Equal(t, "go find help from the neighbors", r.Context)
}

func TestEvaluateGibberishIsInfeasible(t *testing.T) {
	r := Evaluate("asdkjfh qweiour")
	assert.Equal(t, Infeasible, r.Outcome)
}

func TestEvaluateDoNothingResolvesToNoAction(t *testing.T) {
	r := Evaluate("just wait here")
	assert.Equal(t, Feasible, r.Outcome)
	assert.Equal(t, action.NoAction, r.Resolved.Kind)
}
