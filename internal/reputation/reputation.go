// Package reputation implements the Reputation Tracker: nested
// observer → subject → tag → entry maps recording how one agent regards
// another, with decay over time, public aggregation across observers, and a
// perception-visible summary gated by social interaction history.
//
// Grounded on original_source/crates/emergence-agents/src/reputation.rs for
// the action→(tag, delta, reason) effect table and decay semantics, and on
// the teacher's agents.Relationship{TargetID, Sentiment, Trust}
// (internal/agents/types.go) for the nested-map-of-structs Go shape this
// package generalizes into multiple independent tags per relationship.
package reputation

import (
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/fixedpoint"
)

// Tag names one dimension of reputation (e.g. "honesty", "generosity",
// "aggression", "reliability").
type Tag string

// Entry is one observer's opinion of one subject along one Tag.
type Entry struct {
	Value       fixedpoint.Fixed // in [-1, 1]
	LastUpdated uint64           // tick of last Record call
	Reason      string           // most recent reason recorded
}

// Effect describes how a given action shifts reputation: the Tag affected
// and the signed delta applied, with a human-readable reason recorded
// alongside it.
type Effect struct {
	Tag    Tag
	Delta  float64
	Reason string
}

// ActionEffects is the static table mapping action kinds to the reputation
// effects they produce when observed, modeled on the original's per-action
// effect table.
var ActionEffects = map[string][]Effect{
	"Steal":       {{Tag: "trustworthiness", Delta: -0.3, Reason: "caught stealing"}},
	"Attack":      {{Tag: "aggression", Delta: 0.25, Reason: "attacked another agent"}, {Tag: "trustworthiness", Delta: -0.15, Reason: "attacked another agent"}},
	"Teach":       {{Tag: "generosity", Delta: 0.1, Reason: "taught a skill"}},
	"Communicate": {{Tag: "sociability", Delta: 0.02, Reason: "communicated"}},
	"Broadcast":   {{Tag: "sociability", Delta: 0.03, Reason: "broadcast a message"}},
	"Enforce":     {{Tag: "trustworthiness", Delta: 0.1, Reason: "enforced a rule fairly"}},
	"Intimidate":  {{Tag: "aggression", Delta: 0.15, Reason: "intimidated another agent"}},
	"Marry":       {{Tag: "sociability", Delta: 0.2, Reason: "formed a marriage bond"}},
}

// DecayPerTick is the fraction of an Entry's Value lost per tick elapsed
// since it was last updated (reputational opinions fade absent reinforcement).
const DecayPerTick = 0.001

// ValueFloor and ValueCeiling bound every reputation value.
var (
	ValueFloor   = fixedpoint.FromFloat(-1.0)
	ValueCeiling = fixedpoint.FromFloat(1.0)
)

// InteractionHistory is the subset of internal/socialgraph's behavior the
// visibility gate depends on; kept as a narrow interface here so this
// package doesn't import socialgraph directly (spec §4.6's perception
// gate only needs a yes/no on prior interaction).
type InteractionHistory interface {
	HasInteracted(a, b uuid.UUID) bool
}

// Tracker is the nested observer→subject→tag→entry reputation store.
type Tracker struct {
	data map[uuid.UUID]map[uuid.UUID]map[Tag]Entry
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{data: make(map[uuid.UUID]map[uuid.UUID]map[Tag]Entry)}
}

// Record applies a signed delta to (observer, subject, tag), decaying the
// prior value for elapsed ticks first, then clamping the result.
func (t *Tracker) Record(observer, subject uuid.UUID, tag Tag, delta float64, reason string, tick uint64) {
	bySubject, ok := t.data[observer]
	if !ok {
		bySubject = make(map[uuid.UUID]map[Tag]Entry)
		t.data[observer] = bySubject
	}
	byTag, ok := bySubject[subject]
	if !ok {
		byTag = make(map[Tag]Entry)
		bySubject[subject] = byTag
	}

	prior := byTag[tag]
	decayed := decay(prior.Value, tick-minUint64(prior.LastUpdated, tick))
	next := fixedpoint.FromFloat(decayed.Float() + delta).Clamp(ValueFloor, ValueCeiling)

	byTag[tag] = Entry{Value: next, LastUpdated: tick, Reason: reason}
}

// RecordAction applies every Effect from ActionEffects[action], if any are
// registered, as observer's reputation update of subject.
func (t *Tracker) RecordAction(observer, subject uuid.UUID, action string, tick uint64) {
	for _, eff := range ActionEffects[action] {
		t.Record(observer, subject, eff.Tag, eff.Delta, eff.Reason, tick)
	}
}

// Get returns observer's opinion of subject along tag, decayed to `tick`
// without persisting the decay (a read-only projection).
func (t *Tracker) Get(observer, subject uuid.UUID, tag Tag, tick uint64) (Entry, bool) {
	byTag, ok := t.data[observer][subject]
	if !ok {
		return Entry{}, false
	}
	e, ok := byTag[tag]
	if !ok {
		return Entry{}, false
	}
	e.Value = decay(e.Value, tick-minUint64(e.LastUpdated, tick))
	return e, true
}

// PublicAggregate averages every observer's opinion of subject along tag
// into a single value — the "public reputation" spec §4.6 describes.
func (t *Tracker) PublicAggregate(subject uuid.UUID, tag Tag, tick uint64) fixedpoint.Fixed {
	var total float64
	count := 0
	for observer, bySubject := range t.data {
		byTag, ok := bySubject[subject]
		if !ok {
			continue
		}
		e, ok := byTag[tag]
		if !ok {
			continue
		}
		_ = observer
		total += decay(e.Value, tick-minUint64(e.LastUpdated, tick)).Float()
		count++
	}
	if count == 0 {
		return fixedpoint.Zero
	}
	return fixedpoint.FromFloat(total / float64(count))
}

// PerceptionSummary returns the public aggregate for every tag ever recorded
// about subject, the form exposed in an agent's Perception payload.
func (t *Tracker) PerceptionSummary(subject uuid.UUID, tick uint64) map[Tag]fixedpoint.Fixed {
	tags := make(map[Tag]bool)
	for _, bySubject := range t.data {
		for s, byTag := range bySubject {
			if s != subject {
				continue
			}
			for tag := range byTag {
				tags[tag] = true
			}
		}
	}
	tagList := make([]Tag, 0, len(tags))
	for tag := range tags {
		tagList = append(tagList, tag)
	}
	sort.Slice(tagList, func(i, j int) bool { return tagList[i] < tagList[j] })

	out := make(map[Tag]fixedpoint.Fixed, len(tagList))
	for _, tag := range tagList {
		out[tag] = t.PublicAggregate(subject, tag, tick)
	}
	return out
}

// Snapshot exposes the Tracker's full nested opinion map for
// internal/persistence to marshal as a single JSON column (the teacher's
// skills_json/needs_json/soul_json idiom, internal/persistence/db.go) —
// mutating the returned map mutates the Tracker, so callers outside
// persistence should treat it as read-only.
func (t *Tracker) Snapshot() map[uuid.UUID]map[uuid.UUID]map[Tag]Entry {
	return t.data
}

// Restore rebuilds a Tracker from data previously returned by Snapshot.
func Restore(data map[uuid.UUID]map[uuid.UUID]map[Tag]Entry) *Tracker {
	if data == nil {
		data = make(map[uuid.UUID]map[uuid.UUID]map[Tag]Entry)
	}
	return &Tracker{data: data}
}

// VisibleTo reports whether observer may see subject's reputation summary:
// always true for self, otherwise gated on prior interaction (spec §4.6's
// "perception-visible summaries gated by social-graph interaction history").
func VisibleTo(observer, subject uuid.UUID, history InteractionHistory) bool {
	if observer == subject {
		return true
	}
	if history == nil {
		return false
	}
	return history.HasInteracted(observer, subject)
}

func decay(v fixedpoint.Fixed, elapsed uint64) fixedpoint.Fixed {
	if elapsed == 0 {
		return v
	}
	factor := 1.0
	// Bound the loop: after ~2000 ticks of no reinforcement, decay to zero
	// outright rather than iterating to a negligible float.
	steps := elapsed
	if steps > 2000 {
		return fixedpoint.Zero
	}
	for i := uint64(0); i < steps; i++ {
		factor *= 1 - DecayPerTick
	}
	return fixedpoint.FromFloat(v.Float() * factor)
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
