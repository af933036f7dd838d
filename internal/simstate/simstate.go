// Package simstate defines State, the aggregate that ties every world
// system together for one simulation run: the clock, world map and ledger,
// the weather system, the live agent population, the knowledge/culture
// registries, reputation and social graphs, the operator-injected-event
// backlog, and per-location message boards.
//
// Grounded on the teacher's engine.Simulation (internal/engine/simulation.go):
// same "one struct holds every subsystem, plus an index for fast agent
// lookup and an event-subscriber fan-out" shape, generalized from the
// teacher's settlement-centric fields (Settlements, Factions,
// SettlementAgents) to spec's location-centric world (agents occupy
// Locations directly, no settlement layer exists in this design).
package simstate

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/crossroads/internal/agent"
	"github.com/talgya/crossroads/internal/clock"
	"github.com/talgya/crossroads/internal/culture"
	"github.com/talgya/crossroads/internal/events"
	"github.com/talgya/crossroads/internal/handlers"
	"github.com/talgya/crossroads/internal/knowledge"
	"github.com/talgya/crossroads/internal/reputation"
	"github.com/talgya/crossroads/internal/socialgraph"
	"github.com/talgya/crossroads/internal/structures"
	"github.com/talgya/crossroads/internal/weather"
	"github.com/talgya/crossroads/internal/worldmap"
)

// MessageExpiryTicks is how long a posted message stays on a location's
// board before ExpireMessages removes it (spec §6 "expires messages older
// than 10 ticks by default").
const MessageExpiryTicks uint64 = 10

// WorldEvent is a notable narratable occurrence — a death, a disaster
// landing, a plague spreading — distinct from worldmap.Ledger's resource-
// flow Entry records. Consumed by internal/api for the observation feed.
type WorldEvent struct {
	Tick        uint64
	Description string
	Category    string
}

// State is the complete, mutable state of one simulation run (spec §6
// "Persistence port" names every field this struct carries as part of a
// snapshot: clock state, world map state, all agent identity/state
// records, the alive set, active plagues, booms, pending events, knowledge
// and culture registries, reputation tracker, the operator-injected-event
// backlog).
type State struct {
	Clock   *clock.Clock
	World   *worldmap.Map
	Ledger  *worldmap.Ledger
	Weather *weather.System

	Agents     []*agent.Agent
	AgentIndex map[agent.ID]*agent.Agent

	Knowledge  *knowledge.Tree
	Culture    *culture.Registry
	Reputation *reputation.Tracker
	Social     *socialgraph.Graph

	Events *events.State

	// Structures is the live registry of built structure instances, keyed
	// by ID; worldmap.Location.Structures holds only the IDs present at
	// each location, exactly the split repair/demolish/claim need (spec §9
	// Open Question — handlers.Repair/Demolish/Claim signal intent, the
	// caller holding the live *structures.Structure applies the effect).
	Structures map[uuid.UUID]*structures.Structure

	MessageBoards map[worldmap.LocationID][]handlers.Message

	// Library holds the concepts written at each location by Write, readable
	// by any agent present via Read (spec §4.12's pair of knowledge-sharing
	// actions); a lightweight shared-log rather than a full knowledge-graph
	// model, since nothing else in this design needs more than "has this
	// concept been recorded here."
	Library map[worldmap.LocationID][]string

	Seed int64

	eventSubMu sync.RWMutex
	eventSubs  map[int]chan WorldEvent
	nextSubID  int
	Log        []WorldEvent
}

// New constructs a State from already-built subsystems. Callers (cmd/crossroads,
// internal/config) are responsible for seeding the Clock/World/registries;
// New only wires the aggregate together and initializes the lookup indices.
func New(c *clock.Clock, world *worldmap.Map, w *weather.System, kt *knowledge.Tree, cr *culture.Registry, seed int64) *State {
	return &State{
		Clock:         c,
		World:         world,
		Ledger:        worldmap.NewLedger(),
		Weather:       w,
		AgentIndex:    make(map[agent.ID]*agent.Agent),
		Knowledge:     kt,
		Culture:       cr,
		Reputation:    reputation.NewTracker(),
		Social:        socialgraph.NewGraph(),
		Events:        events.NewState(seed),
		Structures:    make(map[uuid.UUID]*structures.Structure),
		MessageBoards: make(map[worldmap.LocationID][]handlers.Message),
		Library:       make(map[worldmap.LocationID][]string),
		Seed:          seed,
	}
}

// AddAgent registers a newly created agent in both the slice and index
// (spec invariant 1: "every agent in the alive-set has a state record").
func (s *State) AddAgent(a *agent.Agent) {
	s.Agents = append(s.Agents, a)
	s.AgentIndex[a.ID] = a
}

// AliveAgents returns every currently-alive agent, in a stable order
// (Agents is append-only and never reordered, so this is just a filter).
func (s *State) AliveAgents() []*agent.Agent {
	out := make([]*agent.Agent, 0, len(s.Agents))
	for _, a := range s.Agents {
		if a.Alive {
			out = append(out, a)
		}
	}
	return out
}

// AgentsAt returns every alive agent currently at locID, sorted by ID for
// deterministic iteration order across runs.
func (s *State) AgentsAt(locID worldmap.LocationID) []*agent.Agent {
	var out []*agent.Agent
	for _, a := range s.Agents {
		if a.Alive && a.Position == locID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// PresentByLocation buckets every alive agent by current Position, the
// shape internal/events.Process/Advance need for disaster/plague damage
// and internal/perception needs for BuildLocationContext's `present` arg.
func (s *State) PresentByLocation() map[worldmap.LocationID][]*agent.Agent {
	out := make(map[worldmap.LocationID][]*agent.Agent)
	for _, a := range s.AliveAgents() {
		out[a.Position] = append(out[a.Position], a)
	}
	return out
}

// PopulationAt counts alive agents at locID — the callback internal/events'
// Migration handling needs to find the least-populated location.
func (s *State) PopulationAt(locID worldmap.LocationID) int {
	n := 0
	for _, a := range s.Agents {
		if a.Alive && a.Position == locID {
			n++
		}
	}
	return n
}

// PostMessage appends a message to its location's board.
func (s *State) PostMessage(m handlers.Message) {
	s.MessageBoards[m.LocationID] = append(s.MessageBoards[m.LocationID], m)
}

// ExpireMessages drops every message older than MessageExpiryTicks relative
// to currentTick from every location's board (spec §6 message board
// expiry).
func (s *State) ExpireMessages(currentTick uint64) {
	for locID, board := range s.MessageBoards {
		kept := board[:0]
		for _, m := range board {
			if currentTick-m.Tick <= MessageExpiryTicks {
				kept = append(kept, m)
			}
		}
		if len(kept) == 0 {
			delete(s.MessageBoards, locID)
		} else {
			s.MessageBoards[locID] = kept
		}
	}
}

// Subscribe returns a subscriber ID and a buffered channel that receives
// every WorldEvent emitted from this point forward.
func (s *State) Subscribe() (int, chan WorldEvent) {
	s.eventSubMu.Lock()
	defer s.eventSubMu.Unlock()
	if s.eventSubs == nil {
		s.eventSubs = make(map[int]chan WorldEvent)
	}
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan WorldEvent, 64)
	s.eventSubs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *State) Unsubscribe(id int) {
	s.eventSubMu.Lock()
	defer s.eventSubMu.Unlock()
	if ch, ok := s.eventSubs[id]; ok {
		close(ch)
		delete(s.eventSubs, id)
	}
}

// EmitEvent appends e to the retained log and broadcasts it to every
// subscriber, dropping it for any subscriber whose buffer is full rather
// than blocking the tick on a slow consumer (teacher's same trade-off,
// internal/engine/simulation.go EmitEvent).
func (s *State) EmitEvent(e WorldEvent) {
	s.Log = append(s.Log, e)
	s.eventSubMu.RLock()
	defer s.eventSubMu.RUnlock()
	for _, ch := range s.eventSubs {
		select {
		case ch <- e:
		default:
		}
	}
}
