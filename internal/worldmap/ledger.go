package worldmap

import (
	"sync"

	"github.com/google/uuid"
)

// Reason is a closed set of why a ledger Entry was recorded. Every resource
// flow in the simulation — production, regeneration, consumption, decay,
// transfer — emits exactly one Entry (spec §6 "world events and ledger").
type Reason uint8

const (
	ReasonHarvest Reason = iota
	ReasonRegeneration
	ReasonConsumption
	ReasonTransfer
	ReasonDecay
	ReasonCraftInput
	ReasonCraftOutput
	ReasonConstruction
	ReasonDisasterLoss
	ReasonEventBoom
)

func (r Reason) String() string {
	names := [...]string{
		"Harvest", "Regeneration", "Consumption", "Transfer", "Decay",
		"CraftInput", "CraftOutput", "Construction", "DisasterLoss",
		"EventBoom",
	}
	if int(r) < len(names) {
		return names[r]
	}
	return "Unknown"
}

// Entry records a single signed change in the quantity of a Resource at a
// Location (or in an agent's inventory, when Location is the zero UUID and
// Actor identifies the agent instead).
type Entry struct {
	Tick     uint64
	Location LocationID
	Actor    uuid.UUID
	Resource Resource
	Delta    int64 // positive = produced/added, negative = consumed/removed
	Reason   Reason
}

// Ledger is an append-only, thread-safe log of resource flows, used to prove
// the conservation invariant: the sum of all Deltas for a Resource equals the
// net change in total quantity held across the world.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
}

// NewLedger constructs an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// NewLedgerFrom reconstructs a Ledger from entries previously returned by
// Entries, used by internal/persistence to restore the full flow history
// backing the conservation invariant after a snapshot load.
func NewLedgerFrom(entries []Entry) *Ledger {
	return &Ledger{entries: append([]Entry(nil), entries...)}
}

// Append records one Entry.
func (l *Ledger) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a snapshot copy of every recorded Entry, in append order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// NetDelta sums every Entry's Delta for a given Resource, the quantity the
// conservation invariant checks against total world+inventory holdings.
func (l *Ledger) NetDelta(res Resource) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total int64
	for _, e := range l.entries {
		if e.Resource == res {
			total += e.Delta
		}
	}
	return total
}

// SinceTick returns every Entry recorded at or after the given tick.
func (l *Ledger) SinceTick(tick uint64) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Tick >= tick {
			out = append(out, e)
		}
	}
	return out
}
