package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysYAMLOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seed: 7
clock:
  ticks_per_season: 10
  seasons: ["Spring", "Winter"]
  ticks_per_day: 4
decision:
  source: stub
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, uint64(10), cfg.Clock.TicksPerSeason)
	assert.Equal(t, []string{"Spring", "Winter"}, cfg.Clock.Seasons)
	assert.Equal(t, "stub", cfg.Decision.Source)
	// Fields the override omitted keep their Default() values.
	assert.Equal(t, 12, cfg.World.Radius)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsZeroTicksPerSeason(t *testing.T) {
	cfg := Default()
	cfg.Clock.TicksPerSeason = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownDecisionSource(t *testing.T) {
	cfg := Default()
	cfg.Decision.Source = "magic"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeCultureModifier(t *testing.T) {
	cfg := Default()
	cfg.Culture = []CultureItemConfig{{ID: "x", Modifiers: map[string]float64{"risk": 2.0}}}
	assert.Error(t, cfg.Validate())
}

func TestBuildClockHonorsConfig(t *testing.T) {
	cfg := Default()
	cfg.Clock.TicksPerSeason = 5
	cfg.Clock.Seasons = []string{"A", "B"}
	c, err := cfg.BuildClock()
	require.NoError(t, err)
	assert.Equal(t, "A", c.Season())
}

func TestBuildWorldIsDeterministic(t *testing.T) {
	cfg := Default()
	cfg.World.Radius = 2
	a, err := cfg.BuildWorld()
	require.NoError(t, err)
	b, err := cfg.BuildWorld()
	require.NoError(t, err)
	assert.Equal(t, len(a.AllLocationIDs()), len(b.AllLocationIDs()))
}

func TestBuildCultureCatalogClampsModifiers(t *testing.T) {
	cfg := Default()
	cfg.Culture = []CultureItemConfig{{ID: "x", Name: "X", Modifiers: map[string]float64{"risk": 0.5}}}
	items := cfg.BuildCultureCatalog()
	require.Len(t, items, 1)
	assert.InDelta(t, 0.5, items[0].Modifiers["risk"].Float(), 0.001)
}

func TestDecisionTimeoutDefaultsWhenEmpty(t *testing.T) {
	cfg := Default()
	cfg.Decision.DecisionTimeout = ""
	d, err := cfg.DecisionTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5e9, float64(d))
}
