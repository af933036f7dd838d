package persuasion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluatePerfectInputSucceeds(t *testing.T) {
	score, outcome := Evaluate(Input{
		Honesty: 1, Trust: 1, Reputation: 1, SharedCultureBonus: 10,
	})
	assert.Equal(t, float64(75), score.Float()) // 1*20 + 1*30 + 1*15 + 10
	assert.Equal(t, Succeeded, outcome)
}

func TestEvaluateZeroInputWithPenaltiesFails(t *testing.T) {
	score, outcome := Evaluate(Input{Loyalty: 1, CommitmentPenalty: 1})
	assert.Equal(t, float64(0), score.Float())
	assert.Equal(t, Failed, outcome)
}

func TestEvaluateClampsNegativeToZero(t *testing.T) {
	score, outcome := Evaluate(Input{Loyalty: 2, CommitmentPenalty: 2})
	assert.Equal(t, float64(0), score.Float())
	assert.Equal(t, Failed, outcome)
}

func TestEvaluateBandBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		outcome Outcome
	}{
		{"just below partial", Input{Trust: 1.29}, Failed},   // 1.29*30=38.7 < 40
		{"exactly partial", Input{Trust: 1.34}, PartialSuccess}, // 1.34*30=40.2 >= 40
		{"exactly success", Input{Trust: 2}, Succeeded},       // 2*30=60 >= 60
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, outcome := Evaluate(tt.in)
			assert.Equal(t, tt.outcome, outcome)
		})
	}
}

func TestEvaluateCulturalBonusIsCapped(t *testing.T) {
	scoreCapped, _ := Evaluate(Input{SharedCultureBonus: 10})
	scoreOver, _ := Evaluate(Input{SharedCultureBonus: 999})
	assert.Equal(t, scoreCapped, scoreOver)
}
