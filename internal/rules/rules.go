// Package rules implements the fast-path Rule Engine (spec §4.14): an
// 8-rule priority chain plus a night-cycle rule, each checked against a
// perception.Perception, the first match short-circuiting to an
// action.Action so the external decision source is bypassed entirely.
// A per-agent loop-detection counter (agent.LoopState) escalates to the
// external source when the same rule has fired too many ticks in a row.
//
// Grounded directly on the teacher's decideSurvival/decideSafety/
// decideBelonging/decideEsteem/decideDefault priority-chain idiom
// (internal/agents/behavior.go) — this package is that idiom generalized
// from the teacher's 4-tier Maslow chain to the spec's 8 explicit vitals
// rules, plus the loop detector the teacher's engine never needed (its
// Tier 0 agents have no external decision source to escalate to).
package rules

import (
	"github.com/talgya/crossroads/internal/action"
	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/perception"
	"github.com/talgya/crossroads/internal/worldmap"
)

// LoopFireLimit is how many consecutive ticks the same named rule may fire
// for one agent before the engine escalates to the external decision
// source instead (spec §4.14 "Loop detection").
const LoopFireLimit = 10

// name identifies which rule fired, for loop detection and diagnostics.
type name string

const (
	ruleMedicine     name = "LowHealthMedicine"
	ruleThirstHigh   name = "ThirstHighDrink"
	ruleHungerHigh   name = "HungerHighEatBest"
	ruleEnergyLow    name = "EnergyLowRest"
	ruleThirstMed    name = "ThirstMediumDrink"
	ruleHungerMed    name = "HungerMediumEatBest"
	ruleHungerGather name = "HungerNoFoodGather"
	ruleEnergyMed    name = "EnergyMediumRest"
	ruleNight        name = "NightRest"
)

// Input bundles the Perception plus the small amount of extra context the
// chain needs that Perception doesn't carry directly: Perception's
// CarryLoad is a display string, and it has no full inventory breakdown by
// resource, so the caller (internal/tickcycle) attaches the agent's actual
// inventory/medicine/water-access facts alongside the Perception itself.
type Input struct {
	P                 perception.Perception
	IsNight           bool
	MedicineAvailable bool
	WaterAvailable    bool
	InventoryFood     map[worldmap.Resource]uint32 // food resources currently held, by type
	InventoryHeld     uint32
	InventoryMax      uint32
	BaseGatherYield   uint32
}

// Decide runs the priority chain against p, returning a resolved action and
// true on a match, or false if every rule passed and the external decision
// source must be consulted. loopState is updated in place: a repeat of the
// same rule increments ConsecutiveFires; a different rule (or no match)
// resets the counter. When the limit is reached, Decide itself escalates
// (returns false) even though a rule would otherwise have matched.
func Decide(in Input, loopState *agent.LoopState) (action.Action, bool) {
	matched, fired, act := evaluateChain(in)
	if !matched {
		loopState.LastRuleID = ""
		loopState.ConsecutiveFires = 0
		return action.Action{}, false
	}

	if string(fired) == loopState.LastRuleID {
		loopState.ConsecutiveFires++
	} else {
		loopState.LastRuleID = string(fired)
		loopState.ConsecutiveFires = 1
	}

	if loopState.ConsecutiveFires >= LoopFireLimit {
		return action.Action{}, false
	}
	return act, true
}

// evaluateChain is the pure 8-rule-plus-night-cycle priority chain,
// independent of loop-detection bookkeeping so it can be unit tested on its
// own merits. It returns the specific rule name that matched so Decide can
// track loop detection per distinct rule rather than per resulting action
// kind (two different rules can both resolve to Rest without being the
// same rule for loop-detection purposes).
func evaluateChain(in Input) (bool, name, action.Action) {
	self := in.P.Self

	// Rule 1: health < 20 and has medicine -> Eat(Medicine).
	if self.Health < 20 && hasInventory(in, worldmap.ResourceMedicine) {
		return true, ruleMedicine, eatAction(worldmap.ResourceMedicine)
	}
	// Rule 2: thirst >= 80 and water available -> Drink.
	if self.Thirst >= 80 && waterAvailable(in) {
		return true, ruleThirstHigh, action.Action{Kind: action.Drink}
	}
	// Rule 3: hunger >= 80 and best-food-in-inventory -> Eat(best).
	if self.Hunger >= 80 {
		if res, found := bestFood(in); found {
			return true, ruleHungerHigh, eatAction(res)
		}
	}
	// Rule 4: energy <= 10 -> Rest.
	if self.Energy <= 10 {
		return true, ruleEnergyLow, action.Action{Kind: action.Rest}
	}
	// Rule 5: thirst >= 50 and water available -> Drink.
	if self.Thirst >= 50 && waterAvailable(in) {
		return true, ruleThirstMed, action.Action{Kind: action.Drink}
	}
	// Rule 6: hunger >= 50 and best-food -> Eat.
	if self.Hunger >= 50 {
		if res, found := bestFood(in); found {
			return true, ruleHungerMed, eatAction(res)
		}
	}
	// Rule 7: hunger >= 60, no food, inventory room, food visible -> Gather(food).
	if self.Hunger >= 60 {
		if _, found := bestFood(in); !found {
			if in.InventoryHeld+in.BaseGatherYield <= in.InventoryMax {
				if res, visible := visibleFood(in); visible {
					return true, ruleHungerGather, action.Action{Kind: action.Gather, Params: action.Params{Resource: res}}
				}
			}
		}
	}
	// Rule 8: energy <= 25 -> Rest.
	if self.Energy <= 25 {
		return true, ruleEnergyMed, action.Action{Kind: action.Rest}
	}

	// Night cycle: low energy with rest available, or a quiet location
	// (nobody co-located, no messages/notifications) and moderate hunger.
	if in.IsNight {
		if self.Energy < 50 {
			return true, ruleNight, action.Action{Kind: action.Rest}
		}
		quiet := len(in.P.CoLocatedAgents) == 0 &&
			len(in.P.Surroundings.Messages) == 0 &&
			len(in.P.Notifications) == 0
		if quiet && self.Hunger < 50 {
			return true, ruleNight, action.Action{Kind: action.Rest}
		}
	}

	return false, "", action.Action{}
}

func eatAction(res worldmap.Resource) action.Action {
	return action.Action{Kind: action.Eat, Params: action.Params{Resource: res, Amount: 1}}
}

func hasInventory(in Input, res worldmap.Resource) bool {
	if res == worldmap.ResourceMedicine {
		return in.MedicineAvailable
	}
	return in.InventoryFood[res] > 0
}

func waterAvailable(in Input) bool {
	return in.WaterAvailable
}

func bestFood(in Input) (worldmap.Resource, bool) {
	for _, res := range worldmap.FoodPriority {
		if in.InventoryFood[res] > 0 {
			return res, true
		}
	}
	return 0, false
}

func visibleFood(in Input) (worldmap.Resource, bool) {
	for _, res := range worldmap.FoodPriority {
		if in.P.Surroundings.ResourceCounts[res] > 0 {
			return res, true
		}
	}
	return 0, false
}

