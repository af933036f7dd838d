package culture

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/talgya/crossroads/internal/fixedpoint"
)

func testCatalog() []Item {
	return []Item{
		{ID: "potluck", Name: "Potluck Feasts", Modifiers: map[ModifierKey]fixedpoint.Fixed{
			"generosity": fixedpoint.FromFloat(0.6),
		}},
		{ID: "dueling", Name: "Honor Duels", Modifiers: map[ModifierKey]fixedpoint.Fixed{
			"aggression": fixedpoint.FromFloat(0.8),
		}},
		{ID: "storytelling", Name: "Oral Storytelling", Modifiers: map[ModifierKey]fixedpoint.Fixed{
			"generosity": fixedpoint.FromFloat(0.2),
			"aggression": fixedpoint.FromFloat(-0.4),
		}},
	}
}

func TestJaccardOfEmptySetsIsOne(t *testing.T) {
	r := NewRegistry(testCatalog())
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, 1.0, r.Jaccard(a, b))
}

func TestJaccardOfDisjointSetsIsZero(t *testing.T) {
	r := NewRegistry(testCatalog())
	a, b := uuid.New(), uuid.New()
	r.Adopt(a, "potluck")
	r.Adopt(b, "dueling")
	assert.Equal(t, 0.0, r.Jaccard(a, b))
}

func TestJaccardOfIdenticalSetsIsOne(t *testing.T) {
	r := NewRegistry(testCatalog())
	a, b := uuid.New(), uuid.New()
	r.Adopt(a, "potluck")
	r.Adopt(a, "dueling")
	r.Adopt(b, "potluck")
	r.Adopt(b, "dueling")
	assert.Equal(t, 1.0, r.Jaccard(a, b))
}

func TestJaccardOfPartialOverlap(t *testing.T) {
	r := NewRegistry(testCatalog())
	a, b := uuid.New(), uuid.New()
	r.Adopt(a, "potluck")
	r.Adopt(a, "dueling")
	r.Adopt(b, "potluck")
	r.Adopt(b, "storytelling")
	// intersection={potluck}=1, union={potluck,dueling,storytelling}=3
	assert.InDelta(t, 1.0/3.0, r.Jaccard(a, b), 1e-9)
}

func TestAdoptRejectsUnknownItem(t *testing.T) {
	r := NewRegistry(testCatalog())
	a := uuid.New()
	assert.False(t, r.Adopt(a, "unknown-item"))
	assert.Empty(t, r.Items(a))
}

func TestAggregateModifiersIsArithmeticMean(t *testing.T) {
	r := NewRegistry(testCatalog())
	a := uuid.New()
	r.Adopt(a, "potluck")      // generosity 0.6
	r.Adopt(a, "storytelling") // generosity 0.2, aggression -0.4

	mods := r.AggregateModifiers(a)
	assert.InDelta(t, 0.4, mods["generosity"].Float(), 1e-6)
	assert.InDelta(t, -0.2, mods["aggression"].Float(), 1e-6)
}

func TestAggregateModifiersClampsToRange(t *testing.T) {
	catalog := []Item{
		{ID: "extreme", Name: "Extreme Custom", Modifiers: map[ModifierKey]fixedpoint.Fixed{
			"aggression": fixedpoint.FromFloat(5.0),
		}},
	}
	r := NewRegistry(catalog)
	a := uuid.New()
	r.Adopt(a, "extreme")
	mods := r.AggregateModifiers(a)
	assert.Equal(t, ModifierCeiling, mods["aggression"])
}

func TestCohesionOfSingleAgentIsOne(t *testing.T) {
	r := NewRegistry(testCatalog())
	assert.Equal(t, 1.0, r.Cohesion([]uuid.UUID{uuid.New()}))
}

func TestCohesionAveragesAllPairs(t *testing.T) {
	r := NewRegistry(testCatalog())
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	r.Adopt(a, "potluck")
	r.Adopt(b, "potluck")
	r.Adopt(c, "dueling")
	score := r.Cohesion([]uuid.UUID{a, b, c})
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}
