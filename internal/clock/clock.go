// Package clock provides the world's monotonic tick counter and the
// season/time-of-day partitions derived from it.
//
// Grounded on the teacher's internal/engine.Engine tick cadence constants,
// restructured as a pure value type whose constructor validates configuration
// (spec §4.1 requires construction to fail on degenerate config rather than
// misbehave at runtime).
package clock

import "fmt"

// TimeOfDay partitions a day into four segments.
type TimeOfDay uint8

const (
	Morning TimeOfDay = iota
	Afternoon
	Evening
	Night
)

func (t TimeOfDay) String() string {
	switch t {
	case Morning:
		return "Morning"
	case Afternoon:
		return "Afternoon"
	case Evening:
		return "Evening"
	case Night:
		return "Night"
	default:
		return "Unknown"
	}
}

// Config describes the calendar the clock derives seasons and day/night
// partitions from.
type Config struct {
	TicksPerSeason uint64   // must be > 0
	Seasons        []string // ordered season names, cycled; must be non-empty
	TicksPerDay    uint64   // 0 disables day/night partitioning (always Morning)
}

// Clock is the world's monotonic tick counter.
type Clock struct {
	cfg  Config
	tick uint64
}

// New constructs a Clock. Fails if TicksPerSeason is zero or Seasons is empty
// — per spec §4.1, this is the only place clock construction can fail; no
// runtime errors occur thereafter.
func New(cfg Config) (*Clock, error) {
	if cfg.TicksPerSeason == 0 {
		return nil, fmt.Errorf("clock: TicksPerSeason must be > 0")
	}
	if len(cfg.Seasons) == 0 {
		return nil, fmt.Errorf("clock: Seasons must be non-empty")
	}
	return &Clock{cfg: cfg}, nil
}

// Tick returns the current tick number.
func (c *Clock) Tick() uint64 {
	return c.tick
}

// Advance increments the tick counter by exactly one and returns the new
// value. Clock monotonicity (spec invariant 6) depends on this never being
// called more or less than once per tick cycle.
func (c *Clock) Advance() uint64 {
	c.tick++
	return c.tick
}

// SetTick forces the tick counter to an explicit value, used only by
// internal/persistence to restore a Clock to a previously snapshotted tick
// before a run resumes (spec §6 Persistence port).
func (c *Clock) SetTick(tick uint64) {
	c.tick = tick
}

// Season returns the current season name, derived from tick modulo the
// season-length sequence.
func (c *Clock) Season() string {
	seasonIndex := (c.tick / c.cfg.TicksPerSeason) % uint64(len(c.cfg.Seasons))
	return c.cfg.Seasons[seasonIndex]
}

// TicksUntilSeasonChange returns how many ticks remain before Season() next
// changes.
func (c *Clock) TicksUntilSeasonChange() uint64 {
	into := c.tick % c.cfg.TicksPerSeason
	return c.cfg.TicksPerSeason - into
}

// TimeOfDay partitions the current tick's position within a day into one of
// four segments. If TicksPerDay is 0, always returns Morning (day/night
// tracking disabled).
func (c *Clock) TimeOfDay() TimeOfDay {
	if c.cfg.TicksPerDay == 0 {
		return Morning
	}
	into := c.tick % c.cfg.TicksPerDay
	quarter := c.cfg.TicksPerDay / 4
	if quarter == 0 {
		return Morning
	}
	switch into / quarter {
	case 0:
		return Morning
	case 1:
		return Afternoon
	case 2:
		return Evening
	default:
		return Night
	}
}
