// Package culture implements the Cultural Registry: per-agent sets of
// adopted cultural items, pairwise similarity, and the aggregate behavioral
// modifiers a group's shared culture produces.
//
// Grounded on original_source/crates/emergence-world/src/cultural_knowledge.rs
// for the aggregate-modifier and cohesion formulas, and on the teacher's
// internal/economy/goods.go (Market.ResolvePrice) for the "clamp a weighted
// computation to a floor/ceiling" idiom this package reuses for modifier
// aggregation.
package culture

import (
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/fixedpoint"
)

// ItemID identifies a cultural item (a custom, tradition, belief, or art
// form agents can adopt).
type ItemID string

// ModifierKey names one axis of behavioral influence a cultural item can
// carry (e.g. "aggression", "trade_bonus", "risk_tolerance").
type ModifierKey string

// Item is a single cultural artifact with a set of behavioral modifiers,
// each in the closed range [-1, 1].
type Item struct {
	ID        ItemID
	Name      string
	Modifiers map[ModifierKey]fixedpoint.Fixed
}

// ModifierFloor and ModifierCeiling bound every aggregated modifier.
var (
	ModifierFloor   = fixedpoint.FromFloat(-1.0)
	ModifierCeiling = fixedpoint.FromFloat(1.0)
)

// Registry tracks which cultural items each agent has adopted.
type Registry struct {
	items   map[ItemID]Item
	byAgent map[uuid.UUID]map[ItemID]bool
}

// NewRegistry constructs a Registry seeded with a catalog of known items.
func NewRegistry(catalog []Item) *Registry {
	items := make(map[ItemID]Item, len(catalog))
	for _, it := range catalog {
		items[it.ID] = it
	}
	return &Registry{
		items:   items,
		byAgent: make(map[uuid.UUID]map[ItemID]bool),
	}
}

// Adopt records that an agent has adopted a cultural item. No-op if the item
// is unknown to the catalog.
func (r *Registry) Adopt(agent uuid.UUID, item ItemID) bool {
	if _, ok := r.items[item]; !ok {
		return false
	}
	set, ok := r.byAgent[agent]
	if !ok {
		set = make(map[ItemID]bool)
		r.byAgent[agent] = set
	}
	set[item] = true
	return true
}

// Abandon removes a cultural item from an agent's adopted set.
func (r *Registry) Abandon(agent uuid.UUID, item ItemID) {
	if set, ok := r.byAgent[agent]; ok {
		delete(set, item)
	}
}

// Items returns the sorted list of cultural items an agent has adopted.
func (r *Registry) Items(agent uuid.UUID) []ItemID {
	set := r.byAgent[agent]
	out := make([]ItemID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Jaccard computes the Jaccard similarity of two agents' adopted-item sets:
// |intersection| / |union|, or 1.0 if both sets are empty (two agents with
// no culture are trivially identical in this respect).
func (r *Registry) Jaccard(a, b uuid.UUID) float64 {
	setA := r.byAgent[a]
	setB := r.byAgent[b]
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	intersection := 0
	for id := range setA {
		if setB[id] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// AggregateModifiers returns, for each ModifierKey present in any item the
// agent has adopted, the arithmetic mean of that modifier across adopted
// items, clamped to [ModifierFloor, ModifierCeiling]. Keys absent from an
// item contribute zero to that item's share of the mean.
func (r *Registry) AggregateModifiers(agent uuid.UUID) map[ModifierKey]fixedpoint.Fixed {
	set := r.byAgent[agent]
	out := make(map[ModifierKey]fixedpoint.Fixed)
	if len(set) == 0 {
		return out
	}

	sums := make(map[ModifierKey]fixedpoint.Fixed)
	ids := make([]ItemID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		item := r.items[id]
		for key, val := range item.Modifiers {
			// Overflow is unreachable here: every modifier is bounded to
			// [-1, 1] and at most a few hundred items can be adopted, far
			// below int64's range at this Scale.
			sum, err := sums[key].Add(val)
			if err != nil {
				continue
			}
			sums[key] = sum
		}
	}

	count := fixedpoint.FromFloat(float64(len(set)))
	for key, sum := range sums {
		mean, err := sum.Div(count)
		if err != nil {
			continue
		}
		out[key] = mean.Clamp(ModifierFloor, ModifierCeiling)
	}
	return out
}

// SnapshotAdoptions exposes the per-agent adopted-item sets for
// internal/persistence to marshal as a JSON column — mutating the returned
// map mutates the Registry, so callers outside persistence should treat it
// as read-only. The static catalog (items) is config, not runtime state,
// and is re-supplied to NewRegistry at load time rather than persisted.
func (r *Registry) SnapshotAdoptions() map[uuid.UUID]map[ItemID]bool {
	return r.byAgent
}

// RestoreAdoptions constructs a Registry from the given catalog (loaded
// fresh from config, as at startup) with its per-agent adoptions overlaid
// from data previously returned by SnapshotAdoptions.
func RestoreAdoptions(catalog []Item, byAgent map[uuid.UUID]map[ItemID]bool) *Registry {
	reg := NewRegistry(catalog)
	if byAgent != nil {
		reg.byAgent = byAgent
	}
	return reg
}

// Cohesion scores a group's shared culture as the average pairwise Jaccard
// similarity across all distinct agent pairs, clamped to [0, 1]. A group of
// fewer than two agents has undefined cohesion and returns 1.0 (vacuously
// cohesive).
func (r *Registry) Cohesion(agents []uuid.UUID) float64 {
	if len(agents) < 2 {
		return 1.0
	}
	var total float64
	pairs := 0
	for i := 0; i < len(agents); i++ {
		for j := i + 1; j < len(agents); j++ {
			total += r.Jaccard(agents[i], agents[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 1.0
	}
	score := total / float64(pairs)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
