// Package socialgraph tracks pairwise agent relationships and group
// membership: the Social Graph component of spec §4.8.
//
// Grounded on the teacher's agents.Relationship{TargetID, Sentiment, Trust}
// (internal/agents/types.go), generalized from a sentiment/trust pair into
// the spec's single [-1, 1] relationship score with an interaction count,
// and on internal/social/faction.go's Faction{ID, Name, Influence, Members}
// shape, adapted here into Group for the spec's group-membership mechanics
// (ACL allowed_groups, Legislate's group-ownership requirement).
package socialgraph

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/fixedpoint"
)

// GroupID identifies a Group.
type GroupID = uuid.UUID

// ScoreFloor and ScoreCeiling bound every relationship score.
var (
	ScoreFloor   = fixedpoint.FromFloat(-1.0)
	ScoreCeiling = fixedpoint.FromFloat(1.0)
)

// Relationship is one agent's standing with another.
type Relationship struct {
	Score               fixedpoint.Fixed
	InteractionCount    uint32
	LastInteractionTick uint64
}

// Group is a named association of agents — the entity ACLs' allowed_groups
// and Legislate's group-ownership requirement refer to.
type Group struct {
	ID           GroupID
	Name         string
	Founder      uuid.UUID
	Members      map[uuid.UUID]bool
	FormedAtTick uint64
}

// Graph is the full social graph: pairwise relationships plus group
// membership.
type Graph struct {
	peers  map[uuid.UUID]map[uuid.UUID]*Relationship
	groups map[GroupID]*Group
}

// NewGraph constructs an empty social graph.
func NewGraph() *Graph {
	return &Graph{
		peers:  make(map[uuid.UUID]map[uuid.UUID]*Relationship),
		groups: make(map[GroupID]*Group),
	}
}

func (g *Graph) relationship(a, b uuid.UUID) *Relationship {
	byPeer, ok := g.peers[a]
	if !ok {
		byPeer = make(map[uuid.UUID]*Relationship)
		g.peers[a] = byPeer
	}
	rel, ok := byPeer[b]
	if !ok {
		rel = &Relationship{}
		byPeer[b] = rel
	}
	return rel
}

// RecordInteraction applies a signed delta to a's relationship score toward
// b, clamps it, bumps the interaction count, and records the tick. Social
// relationships are directional (a's opinion of b need not equal b's of a);
// callers that want a symmetric update call this twice.
func (g *Graph) RecordInteraction(a, b uuid.UUID, delta float64, tick uint64) {
	rel := g.relationship(a, b)
	rel.Score = fixedpoint.FromFloat(rel.Score.Float() + delta).Clamp(ScoreFloor, ScoreCeiling)
	rel.InteractionCount++
	rel.LastInteractionTick = tick
}

// Score returns a's relationship score toward b, or zero (neutral) if they
// have never interacted.
func (g *Graph) Score(a, b uuid.UUID) fixedpoint.Fixed {
	byPeer, ok := g.peers[a]
	if !ok {
		return fixedpoint.Zero
	}
	rel, ok := byPeer[b]
	if !ok {
		return fixedpoint.Zero
	}
	return rel.Score
}

// HasInteracted reports whether a and b have ever interacted in either
// direction. Satisfies internal/reputation.InteractionHistory.
func (g *Graph) HasInteracted(a, b uuid.UUID) bool {
	if rel, ok := g.peers[a][b]; ok && rel.InteractionCount > 0 {
		return true
	}
	if rel, ok := g.peers[b][a]; ok && rel.InteractionCount > 0 {
		return true
	}
	return false
}

// Peers returns every agent a has an on-record relationship with, sorted.
func (g *Graph) Peers(a uuid.UUID) []uuid.UUID {
	byPeer := g.peers[a]
	out := make([]uuid.UUID, 0, len(byPeer))
	for b := range byPeer {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// CreateGroup founds a new Group with founder as its sole initial member.
func (g *Graph) CreateGroup(name string, founder uuid.UUID, tick uint64) GroupID {
	id := uuid.New()
	g.groups[id] = &Group{
		ID:           id,
		Name:         name,
		Founder:      founder,
		Members:      map[uuid.UUID]bool{founder: true},
		FormedAtTick: tick,
	}
	return id
}

// Join adds an agent to an existing group.
func (g *Graph) Join(group GroupID, agent uuid.UUID) error {
	grp, ok := g.groups[group]
	if !ok {
		return fmt.Errorf("socialgraph: unknown group %s", group)
	}
	grp.Members[agent] = true
	return nil
}

// Leave removes an agent from a group. The founder may leave; the group
// itself is not dissolved and its Founder field is left unchanged.
func (g *Graph) Leave(group GroupID, agent uuid.UUID) error {
	grp, ok := g.groups[group]
	if !ok {
		return fmt.Errorf("socialgraph: unknown group %s", group)
	}
	delete(grp.Members, agent)
	return nil
}

// Group returns a Group by ID.
func (g *Graph) Group(id GroupID) (*Group, bool) {
	grp, ok := g.groups[id]
	return grp, ok
}

// IsMember reports whether agent belongs to group.
func (g *Graph) IsMember(group GroupID, agent uuid.UUID) bool {
	grp, ok := g.groups[group]
	if !ok {
		return false
	}
	return grp.Members[agent]
}

// Snapshot exposes the Graph's peer and group maps for internal/persistence
// to marshal as JSON columns — mutating the returned maps mutates the
// Graph, so callers outside persistence should treat them as read-only.
func (g *Graph) Snapshot() (peers map[uuid.UUID]map[uuid.UUID]*Relationship, groups map[GroupID]*Group) {
	return g.peers, g.groups
}

// Restore rebuilds a Graph from data previously returned by Snapshot.
func Restore(peers map[uuid.UUID]map[uuid.UUID]*Relationship, groups map[GroupID]*Group) *Graph {
	if peers == nil {
		peers = make(map[uuid.UUID]map[uuid.UUID]*Relationship)
	}
	if groups == nil {
		groups = make(map[GroupID]*Group)
	}
	return &Graph{peers: peers, groups: groups}
}

// GroupsOf returns every group an agent belongs to, sorted by ID.
func (g *Graph) GroupsOf(agent uuid.UUID) []GroupID {
	var out []GroupID
	for id, grp := range g.groups {
		if grp.Members[agent] {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
