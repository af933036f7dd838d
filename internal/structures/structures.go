// Package structures defines buildable structure types, their static
// blueprints, and the single durability-restoration function both Repair's
// simulated result and the world-map commit share (spec §9 Open Question).
//
// Grounded on original_source/crates/emergence-types/src/structs.rs for the
// StructureBlueprint{structure_type, category, material_costs,
// required_knowledge, max_durability, decay_per_tick, capacity, properties}
// and LocationEffects shapes (adapted into Go structs below), and on the
// teacher's static-table idiom (internal/economy/goods.go) for the
// blueprint catalog itself.
package structures

import (
	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/knowledge"
	"github.com/talgya/crossroads/internal/worldmap"
)

// Type enumerates buildable structure kinds.
type Type uint8

const (
	TypeShelter Type = iota
	TypeStorehouse
	TypeFarm
	TypeWorkshop
	TypeForge
	TypeWell
	TypeWall
	TypeWatchtower
	TypeMarket
	TypeSchool
	TypeMeetingHall
	TypeLibrary
)

func (t Type) String() string {
	names := [...]string{
		"Shelter", "Storehouse", "Farm", "Workshop", "Forge",
		"Well", "Wall", "Watchtower", "Market", "School",
		"MeetingHall", "Library",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "Unknown"
}

// Category groups structure types by their broad purpose.
type Category uint8

const (
	CategoryResidential Category = iota
	CategoryProduction
	CategoryDefense
	CategoryCivic
	CategoryAgricultural
)

// LocationEffects describes what a built, undamaged structure contributes
// to the Location it stands at.
type LocationEffects struct {
	WeatherProtection bool
	BestRestBonusPct  uint32
	TotalStorageSlots uint32
	HasShelter        bool
	HasFire           bool
	HasMeetingHall    bool // Legislate's stage-5 precondition (spec §4.10)
	HasLibrary        bool // Write/Read's stage-5 precondition
	HasWorkshop       bool // Craft's stage-5 precondition
	HasForge          bool // Smelt's stage-5 precondition
	HasFarmPlot       bool // FarmPlant/Harvest's stage-5 precondition
	Production        map[worldmap.Resource]uint32 // passive yield per tick, if any
}

// Blueprint is the static recipe for a structure type.
type Blueprint struct {
	Type              Type
	Category          Category
	MaterialCosts     map[worldmap.Resource]uint32
	RequiredKnowledge []knowledge.ItemID
	MaxDurability     uint32
	DecayPerTick      uint32
	Capacity          uint32
	Effects           LocationEffects
}

// BlueprintTable is the static catalog of every buildable structure.
var BlueprintTable = map[Type]Blueprint{
	TypeShelter: {
		Type:          TypeShelter,
		Category:      CategoryResidential,
		MaterialCosts: map[worldmap.Resource]uint32{worldmap.ResourceWood: 40, worldmap.ResourceStone: 10},
		MaxDurability: 100,
		DecayPerTick:  1,
		Capacity:      4,
		Effects:       LocationEffects{WeatherProtection: true, BestRestBonusPct: 50, HasShelter: true},
	},
	TypeStorehouse: {
		Type:          TypeStorehouse,
		Category:      CategoryProduction,
		MaterialCosts: map[worldmap.Resource]uint32{worldmap.ResourceWood: 60, worldmap.ResourceStone: 30},
		MaxDurability: 150,
		DecayPerTick:  1,
		Capacity:      0,
		Effects:       LocationEffects{TotalStorageSlots: 500},
	},
	TypeFarm: {
		Type:              TypeFarm,
		Category:          CategoryAgricultural,
		MaterialCosts:     map[worldmap.Resource]uint32{worldmap.ResourceWood: 20},
		RequiredKnowledge: []knowledge.ItemID{"Agricultural-Plow-Farming"},
		MaxDurability:     80,
		DecayPerTick:      2,
		Capacity:          0,
		Effects:           LocationEffects{HasFarmPlot: true, Production: map[worldmap.Resource]uint32{worldmap.ResourceFoodFarmed: 5}},
	},
	TypeWorkshop: {
		Type:              TypeWorkshop,
		Category:          CategoryProduction,
		MaterialCosts:     map[worldmap.Resource]uint32{worldmap.ResourceWood: 50, worldmap.ResourceStone: 20},
		RequiredKnowledge: []knowledge.ItemID{"Bronze-Bronze-Casting"},
		MaxDurability:     120,
		DecayPerTick:      1,
		Capacity:          2,
		Effects:           LocationEffects{HasWorkshop: true},
	},
	TypeForge: {
		Type:              TypeForge,
		Category:          CategoryProduction,
		MaterialCosts:     map[worldmap.Resource]uint32{worldmap.ResourceStone: 60, worldmap.ResourceOre: 20},
		RequiredKnowledge: []knowledge.ItemID{"Iron-Iron-Smelting"},
		MaxDurability:     150,
		DecayPerTick:      1,
		Capacity:          1,
		Effects:           LocationEffects{HasFire: true, HasForge: true},
	},
	TypeWell: {
		Type:          TypeWell,
		Category:      CategoryCivic,
		MaterialCosts: map[worldmap.Resource]uint32{worldmap.ResourceStone: 40},
		MaxDurability: 200,
		DecayPerTick:  0,
		Effects:       LocationEffects{Production: map[worldmap.Resource]uint32{worldmap.ResourceWater: 30}},
	},
	TypeWall: {
		Type:          TypeWall,
		Category:      CategoryDefense,
		MaterialCosts: map[worldmap.Resource]uint32{worldmap.ResourceStone: 100},
		MaxDurability: 300,
		DecayPerTick:  1,
	},
	TypeWatchtower: {
		Type:              TypeWatchtower,
		Category:          CategoryDefense,
		MaterialCosts:     map[worldmap.Resource]uint32{worldmap.ResourceWood: 80, worldmap.ResourceStone: 40},
		RequiredKnowledge: []knowledge.ItemID{"Iron-Catapult-Engineering"},
		MaxDurability:     150,
		DecayPerTick:      1,
	},
	TypeMarket: {
		Type:          TypeMarket,
		Category:      CategoryCivic,
		MaterialCosts: map[worldmap.Resource]uint32{worldmap.ResourceWood: 70, worldmap.ResourceStone: 30},
		MaxDurability: 120,
		DecayPerTick:  1,
		Capacity:      10,
	},
	TypeSchool: {
		Type:              TypeSchool,
		Category:          CategoryCivic,
		MaterialCosts:     map[worldmap.Resource]uint32{worldmap.ResourceWood: 90, worldmap.ResourceStone: 50},
		RequiredKnowledge: []knowledge.ItemID{"Agricultural-Written-Tallying"},
		MaxDurability:     150,
		DecayPerTick:      1,
		Capacity:          8,
	},
	TypeMeetingHall: {
		Type:              TypeMeetingHall,
		Category:          CategoryCivic,
		MaterialCosts:     map[worldmap.Resource]uint32{worldmap.ResourceWood: 60, worldmap.ResourceStone: 40},
		RequiredKnowledge: []knowledge.ItemID{"Bronze-Law-Codes"},
		MaxDurability:     150,
		DecayPerTick:      1,
		Capacity:          20,
		Effects:           LocationEffects{HasMeetingHall: true},
	},
	TypeLibrary: {
		Type:              TypeLibrary,
		Category:          CategoryCivic,
		MaterialCosts:     map[worldmap.Resource]uint32{worldmap.ResourceWood: 50, worldmap.ResourceStone: 30},
		RequiredKnowledge: []knowledge.ItemID{"Bronze-Writing-Systems"},
		MaxDurability:     120,
		DecayPerTick:      1,
		Capacity:          5,
		Effects:           LocationEffects{HasLibrary: true},
	},
}

// Structure is a built instance of a Blueprint standing at a Location.
type Structure struct {
	ID         uuid.UUID
	Type       Type
	Location   worldmap.LocationID
	Owner      uuid.UUID
	Durability uint32
	BuiltTick  uint64
}

// New constructs a freshly built Structure at full durability.
func New(t Type, location worldmap.LocationID, owner uuid.UUID, tick uint64) *Structure {
	bp := BlueprintTable[t]
	return &Structure{
		ID:         uuid.New(),
		Type:       t,
		Location:   location,
		Owner:      owner,
		Durability: bp.MaxDurability,
		BuiltTick:  tick,
	}
}

// Decay reduces Durability by the blueprint's DecayPerTick, floored at zero.
func (s *Structure) Decay() {
	bp := BlueprintTable[s.Type]
	if s.Durability > bp.DecayPerTick {
		s.Durability -= bp.DecayPerTick
	} else {
		s.Durability = 0
	}
}

// Demolished reports whether decay has reduced the structure to rubble.
func (s *Structure) Demolished() bool {
	return s.Durability == 0
}

// RestoreAmount computes how much Durability a Repair action restores, given
// the materials actually spent on it, as a fraction of the blueprint's full
// material cost scaled against MaxDurability. This is the single function
// both the Repair handler's simulated result and the world-map commit call
// (spec §9's durability-restore Open Question), so they can never disagree.
func RestoreAmount(bp Blueprint, materialsSpent map[worldmap.Resource]uint32) uint32 {
	var totalCost, totalSpent uint32
	for res, cost := range bp.MaterialCosts {
		totalCost += cost
		spent := materialsSpent[res]
		if spent > cost {
			spent = cost // overpaying a single resource doesn't over-restore
		}
		totalSpent += spent
	}
	if totalCost == 0 {
		return 0
	}
	restored := uint32((uint64(totalSpent) * uint64(bp.MaxDurability)) / uint64(totalCost))
	if restored > bp.MaxDurability {
		restored = bp.MaxDurability
	}
	return restored
}
