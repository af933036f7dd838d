package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTreeHasOneHundredItems(t *testing.T) {
	assert.Equal(t, 100, Default.Len())
}

func TestDefaultTreeTopologicalOrderRespectsPrerequisites(t *testing.T) {
	order := Default.TopologicalOrder()
	require.Len(t, order, Default.Len())

	position := make(map[ItemID]int, len(order))
	for i, id := range order {
		position[id] = i
	}
	for _, id := range order {
		it, ok := Default.Item(id)
		require.True(t, ok)
		for _, p := range it.Prerequisites {
			assert.Less(t, position[p], position[id], "%s must precede %s", p, id)
		}
	}
}

func TestDefaultTreeIsEraMonotonic(t *testing.T) {
	for _, id := range Default.TopologicalOrder() {
		it, _ := Default.Item(id)
		for _, p := range it.Prerequisites {
			prereq, _ := Default.Item(p)
			assert.LessOrEqual(t, prereq.Era, it.Era)
		}
	}
}

func TestNewRejectsCycles(t *testing.T) {
	_, err := New([]Item{
		{ID: "a", Name: "A", Era: EraPrimitive, Prerequisites: []ItemID{"b"}},
		{ID: "b", Name: "B", Era: EraPrimitive, Prerequisites: []ItemID{"a"}},
	})
	require.Error(t, err)
}

func TestNewRejectsUnknownPrerequisite(t *testing.T) {
	_, err := New([]Item{
		{ID: "a", Name: "A", Era: EraPrimitive, Prerequisites: []ItemID{"ghost"}},
	})
	require.Error(t, err)
}

func TestNewRejectsEraViolation(t *testing.T) {
	_, err := New([]Item{
		{ID: "a", Name: "A", Era: EraInformation},
		{ID: "b", Name: "B", Era: EraPrimitive, Prerequisites: []ItemID{"a"}},
	})
	require.Error(t, err)
}

func TestUnlockedRequiresAllPrerequisites(t *testing.T) {
	tree, err := New([]Item{
		{ID: "fire", Name: "Fire", Era: EraPrimitive},
		{ID: "cooking", Name: "Cooking", Era: EraPrimitive, Prerequisites: []ItemID{"fire"}},
	})
	require.NoError(t, err)

	assert.False(t, tree.Unlocked("cooking", map[ItemID]bool{}))
	assert.True(t, tree.Unlocked("cooking", map[ItemID]bool{"fire": true}))
}

func TestNextUnlockableExcludesAlreadyKnown(t *testing.T) {
	known := map[ItemID]bool{}
	for _, id := range Default.ItemsInEra(EraPrimitive) {
		known[id.ID] = true
		break
	}
	next := Default.NextUnlockable(known)
	for _, id := range next {
		assert.False(t, known[id])
	}
}

func TestItemsInEraOnlyReturnsThatEra(t *testing.T) {
	for _, it := range Default.ItemsInEra(EraBronze) {
		assert.Equal(t, EraBronze, it.Era)
	}
}
