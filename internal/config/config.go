// Package config loads the YAML run configuration a crossroads process
// starts from: the world seed, calendar, procedural-generation parameters,
// the cultural-item catalog, and the out-of-core ports (persistence path,
// observation API, decision source).
//
// Grounded on codenerd's internal/config/config.go (DefaultConfig + Load
// overlaying a YAML file onto hardcoded defaults, env-var overrides for
// secrets, Get*Timeout duration helpers) — the teacher itself has no
// config package at all, main() hardcodes seed/dbPath/apiPort directly
// (cmd/worldsim/main.go), so this package is adopted wholesale from the
// rest of the pack rather than generalized from teacher code.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/crossroads/internal/clock"
	"github.com/talgya/crossroads/internal/culture"
	"github.com/talgya/crossroads/internal/fixedpoint"
	"github.com/talgya/crossroads/internal/worldmap"
)

// Config holds everything a run needs to construct its simstate.State and
// wire its out-of-core ports.
type Config struct {
	Seed int64 `yaml:"seed"`

	Clock   ClockConfig         `yaml:"clock"`
	World   WorldConfig         `yaml:"world"`
	Culture []CultureItemConfig `yaml:"culture"`

	Persistence PersistenceConfig `yaml:"persistence"`
	API         APIConfig         `yaml:"api"`
	Decision    DecisionConfig    `yaml:"decision"`
	Tick        TickConfig        `yaml:"tick"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ClockConfig mirrors clock.Config with YAML tags; converted via BuildClock.
type ClockConfig struct {
	TicksPerSeason uint64   `yaml:"ticks_per_season"`
	Seasons        []string `yaml:"seasons"`
	TicksPerDay    uint64   `yaml:"ticks_per_day"`
}

// WorldConfig parameterizes procedural world generation, mirroring
// worldmap.GenConfig minus Seed (the run's single Seed field is reused so a
// run never carries two independent sources of "the" seed).
type WorldConfig struct {
	Radius        int     `yaml:"radius"`
	SeaLevel      float64 `yaml:"sea_level"`
	MountainLevel float64 `yaml:"mountain_level"`
}

// CultureItemConfig is the YAML shape of one culture.Item; Modifiers keys
// name a culture.ModifierKey axis (e.g. "cooperation", "aggression"),
// values are plain floats in [-1, 1] converted to fixedpoint.Fixed at load.
type CultureItemConfig struct {
	ID        string             `yaml:"id"`
	Name      string             `yaml:"name"`
	Modifiers map[string]float64 `yaml:"modifiers"`
}

// PersistenceConfig names the SQLite snapshot store's file and the
// snapshot/experiment identity a run saves under (spec §6 Persistence
// port's (snapshot_id, experiment_id, tick) key).
type PersistenceConfig struct {
	Path         string `yaml:"path"`
	SnapshotID   string `yaml:"snapshot_id"`
	ExperimentID string `yaml:"experiment_id"`
}

// APIConfig configures the read-only observation API (internal/api).
type APIConfig struct {
	Addr      string `yaml:"addr"`
	JWTSecret string `yaml:"jwt_secret"`
}

// DecisionConfig selects and configures the Decision-source port
// (internal/decision): Source is one of "stub", "rules", "llm".
type DecisionConfig struct {
	Source          string `yaml:"source"`
	LLMAPIKeyEnv    string `yaml:"llm_api_key_env"`
	DecisionTimeout string `yaml:"decision_timeout"`
}

// TickConfig bounds how long a `run` invocation executes.
type TickConfig struct {
	Count    uint64 `yaml:"count"`    // 0 means run until interrupted
	Interval string `yaml:"interval"` // wall-clock pacing between ticks
}

// LoggingConfig configures the slog handler every package logs through.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text" or "json"
}

// defaultCultureCatalog seeds a handful of representative cultural items
// spanning the categories original_source/crates/emergence-world/src/
// cultural_knowledge.rs documents (Philosophy, Ethics, Tradition, ...),
// enough for the Cultural Registry and Reflection's cohesion scoring to
// have real data to operate over out of the box.
func defaultCultureCatalog() []CultureItemConfig {
	return []CultureItemConfig{
		{ID: "communal_harvest", Name: "Communal Harvest Rite", Modifiers: map[string]float64{"cooperation": 0.4, "industriousness": 0.2}},
		{ID: "ancestor_worship", Name: "Ancestor Worship", Modifiers: map[string]float64{"honesty": 0.3, "risk": -0.2}},
		{ID: "warrior_code", Name: "Warrior Code", Modifiers: map[string]float64{"aggression": 0.4, "risk": 0.3}},
		{ID: "market_honesty", Name: "Market Honesty Ethic", Modifiers: map[string]float64{"honesty": 0.4, "cooperation": 0.2}},
		{ID: "wandering_tales", Name: "Wandering Tales Tradition", Modifiers: map[string]float64{"risk": 0.2, "cooperation": 0.1}},
	}
}

// Default returns the configuration a run starts from when no YAML file is
// supplied, matching worldmap.DefaultGenConfig's world and a seasonal
// calendar consistent with internal/clock's own tests.
func Default() *Config {
	return &Config{
		Seed: 42,
		Clock: ClockConfig{
			TicksPerSeason: 480,
			Seasons:        []string{"Spring", "Summer", "Autumn", "Winter"},
			TicksPerDay:    24,
		},
		World: WorldConfig{
			Radius:        12,
			SeaLevel:      0.25,
			MountainLevel: 0.72,
		},
		Culture: defaultCultureCatalog(),
		Persistence: PersistenceConfig{
			Path:         "data/crossroads.db",
			SnapshotID:   "default",
			ExperimentID: "default",
		},
		API: APIConfig{
			Addr: ":8080",
		},
		Decision: DecisionConfig{
			Source:          "rules",
			LLMAPIKeyEnv:    "ANTHROPIC_API_KEY",
			DecisionTimeout: "5s",
		},
		Tick: TickConfig{
			Count:    0,
			Interval: "0s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path as YAML and overlays it onto Default(); a missing file is
// not an error (matches codenerd's internal/config.Load — a fresh run with
// no config file present still starts from sane defaults).
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using defaults", "path", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field a zero-value or malformed YAML document could
// leave in a state that would otherwise fail deep inside construction
// (clock.New, worldmap.Generate) with a less actionable error.
func (c *Config) Validate() error {
	if c.Clock.TicksPerSeason == 0 {
		return fmt.Errorf("config: clock.ticks_per_season must be > 0")
	}
	if len(c.Clock.Seasons) == 0 {
		return fmt.Errorf("config: clock.seasons must be non-empty")
	}
	if c.World.Radius <= 0 {
		return fmt.Errorf("config: world.radius must be > 0")
	}
	for _, it := range c.Culture {
		for key, v := range it.Modifiers {
			if v < -1.0 || v > 1.0 {
				return fmt.Errorf("config: culture item %q modifier %q = %v out of range [-1, 1]", it.ID, key, v)
			}
		}
	}
	switch c.Decision.Source {
	case "stub", "rules", "llm":
	default:
		return fmt.Errorf("config: decision.source must be one of stub, rules, llm (got %q)", c.Decision.Source)
	}
	if _, err := c.DecisionTimeout(); err != nil {
		return fmt.Errorf("config: decision.decision_timeout: %w", err)
	}
	if _, err := c.TickInterval(); err != nil {
		return fmt.Errorf("config: tick.interval: %w", err)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("config: logging.level: %w", err)
	}
	return nil
}

// BuildClock constructs the run's clock.Clock from ClockConfig.
func (c *Config) BuildClock() (*clock.Clock, error) {
	return clock.New(clock.Config{
		TicksPerSeason: c.Clock.TicksPerSeason,
		Seasons:        c.Clock.Seasons,
		TicksPerDay:    c.Clock.TicksPerDay,
	})
}

// BuildWorld procedurally generates the run's worldmap.Map, reusing the
// run's single Seed so world layout and every other seeded mechanic derive
// from one source of randomness (spec §9 determinism invariant).
func (c *Config) BuildWorld() (*worldmap.Map, error) {
	m, _, err := worldmap.Generate(worldmap.GenConfig{
		Radius:      c.World.Radius,
		Seed:        c.Seed,
		SeaLevel:    c.World.SeaLevel,
		MountainLvl: c.World.MountainLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("config: build world: %w", err)
	}
	return m, nil
}

// BuildCultureCatalog converts the YAML CultureItemConfig list into
// culture.Item values, clamping each modifier to culture's own
// ModifierFloor/ModifierCeiling the way culture.Registry's aggregation does,
// so a catalog entry can never hand the registry an out-of-band value.
func (c *Config) BuildCultureCatalog() []culture.Item {
	items := make([]culture.Item, 0, len(c.Culture))
	for _, it := range c.Culture {
		mods := make(map[culture.ModifierKey]fixedpoint.Fixed, len(it.Modifiers))
		for key, v := range it.Modifiers {
			mods[culture.ModifierKey(key)] = fixedpoint.FromFloat(v).Clamp(culture.ModifierFloor, culture.ModifierCeiling)
		}
		items = append(items, culture.Item{
			ID:        culture.ItemID(it.ID),
			Name:      it.Name,
			Modifiers: mods,
		})
	}
	return items
}

// BuildCultureRegistry constructs a culture.Registry seeded with the
// configured catalog.
func (c *Config) BuildCultureRegistry() *culture.Registry {
	return culture.NewRegistry(c.BuildCultureCatalog())
}

// DecisionTimeout parses Decision.DecisionTimeout, defaulting to 5s on an
// empty value (matches codenerd's Get*Timeout fallback idiom); a malformed
// value returns the parse error.
func (c *Config) DecisionTimeout() (time.Duration, error) {
	if c.Decision.DecisionTimeout == "" {
		return 5 * time.Second, nil
	}
	return time.ParseDuration(c.Decision.DecisionTimeout)
}

// TickInterval parses Tick.Interval, defaulting to 0 (no pacing — run as
// fast as possible) on an empty value.
func (c *Config) TickInterval() (time.Duration, error) {
	if c.Tick.Interval == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Tick.Interval)
}

// LogLevel parses Logging.Level into a slog.Level, defaulting to Info.
func (c *Config) LogLevel() (slog.Level, error) {
	switch c.Logging.Level {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", c.Logging.Level)
	}
}

// NewLogger builds the slog.Logger every command entry point installs as
// the default logger, honoring Logging.Format the way the teacher's
// cmd/worldsim/main.go always installs a slog.NewTextHandler (format is new
// here since SPEC_FULL's API also wants machine-readable logs available).
func (c *Config) NewLogger() (*slog.Logger, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch c.Logging.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	default:
		return nil, fmt.Errorf("config: unknown logging.format %q", c.Logging.Format)
	}
}
