package agent

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/crossroads/internal/worldmap"
)

func TestNewAgentStartsAtFullVitals(t *testing.T) {
	a := New("Ada", Female, uuid.New(), 0)
	assert.Equal(t, int32(100), a.Health)
	assert.Equal(t, int32(100), a.Energy)
	assert.Equal(t, int32(0), a.Hunger)
	assert.True(t, a.Alive)
}

func TestMaturityAtThresholds(t *testing.T) {
	tests := []struct {
		age  uint64
		want Maturity
	}{
		{0, Infant},
		{AgeChild, Child},
		{AgeAdolescent, Adolescent},
		{AgeAdult, Adult},
		{AgeElder, Elder},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaturityAt(tt.age))
	}
}

func TestAgeClampsToZeroBeforeBirth(t *testing.T) {
	a := New("Ada", Female, uuid.New(), 100)
	assert.Equal(t, uint64(0), a.Age(50))
}

func TestResourceHelpers(t *testing.T) {
	a := New("Ada", Female, uuid.New(), 0)
	a.AddResource(worldmap.ResourceWood, 10)
	assert.True(t, a.HasResource(worldmap.ResourceWood, 10))
	assert.False(t, a.HasResource(worldmap.ResourceWood, 11))

	ok := a.RemoveResource(worldmap.ResourceWood, 5)
	require.True(t, ok)
	assert.Equal(t, uint32(5), a.Inventory[worldmap.ResourceWood])

	ok = a.RemoveResource(worldmap.ResourceWood, 100)
	assert.False(t, ok)
	assert.Equal(t, uint32(0), a.Inventory[worldmap.ResourceWood])
}

func TestBestFoodPrefersHighestPriority(t *testing.T) {
	a := New("Ada", Female, uuid.New(), 0)
	a.AddResource(worldmap.ResourceFoodRoot, 1)
	a.AddResource(worldmap.ResourceFoodMeat, 1)

	res, ok := a.BestFood()
	require.True(t, ok)
	assert.Equal(t, worldmap.ResourceFoodMeat, res)
}

func TestBestFoodNoneHeld(t *testing.T) {
	a := New("Ada", Female, uuid.New(), 0)
	_, ok := a.BestFood()
	assert.False(t, ok)
}

func TestClampVitalsRestoresRange(t *testing.T) {
	a := New("Ada", Female, uuid.New(), 0)
	a.Health = -40
	a.Energy = 250
	a.ClampVitals()
	assert.Equal(t, int32(0), a.Health)
	assert.Equal(t, int32(100), a.Energy)
}
