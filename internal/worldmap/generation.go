package worldmap

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// hexCoord is an axial hex coordinate, used only internally during
// procedural generation (grounded on the teacher's internal/world/hex.go).
// It never appears in the public graph model: Generate collapses the
// lattice into plain Locations connected by directed Routes, matching
// spec §3's "graph of locations," not a hex grid.
type hexCoord struct{ q, r int }

func (h hexCoord) s() int { return -h.q - h.r }

var hexDirections = []hexCoord{
	{1, 0}, {1, -1}, {0, -1}, {-1, 0}, {-1, 1}, {0, 1},
}

func (h hexCoord) neighbors() []hexCoord {
	out := make([]hexCoord, len(hexDirections))
	for i, d := range hexDirections {
		out[i] = hexCoord{h.q + d.q, h.r + d.r}
	}
	return out
}

// GenConfig parameterizes procedural world generation.
type GenConfig struct {
	Radius      int     // hex lattice radius; ~2*Radius^2 locations result
	Seed        int64   // 0 uses a fixed fallback seed (determinism invariant forbids rand.Int63())
	SeaLevel    float64 // elevation threshold below which a hex becomes ocean (no Location emitted)
	MountainLvl float64 // elevation threshold above which a hex's resources skew to Stone/Ore
}

// DefaultGenConfig returns a reasonably sized starting world.
func DefaultGenConfig() GenConfig {
	return GenConfig{Radius: 12, Seed: 42, SeaLevel: 0.25, MountainLvl: 0.72}
}

// Generate procedurally lays out a Map: elevation/rainfall/temperature noise
// (grounded on the teacher's internal/world/generation.go) seed each
// Location's initial resource nodes, and each hex adjacency becomes a pair of
// directed Routes at PathTrail tier.
func Generate(cfg GenConfig) (*Map, map[hexCoord]LocationID, error) {
	if cfg.Radius <= 0 {
		return nil, nil, fmt.Errorf("worldmap: Radius must be > 0")
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 42 // deterministic fallback; never draw from a nondeterministic source here
	}

	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)
	tempNoise := opensimplex.NewNormalized(seed + 2)

	m := NewMap()
	ids := make(map[hexCoord]LocationID)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			h := hexCoord{q, r}
			if abs(h.s()) > cfg.Radius || abs(q) > cfg.Radius || abs(r) > cfg.Radius {
				continue
			}
			x, y := float64(q), float64(r)
			elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)
			if elev < cfg.SeaLevel {
				continue // ocean: no Location
			}
			rain := octaveNoise(rainNoise, x, y, 3, 0.06, 0.5)
			temp := octaveNoise(tempNoise, x, y, 3, 0.05, 0.5)

			loc := &Location{
				Name:      fmt.Sprintf("hex(%d,%d)", q, r),
				Resources: resourcesFor(elev, rain, temp, cfg.MountainLvl),
				ACL:       ACL{Public: true},
			}
			id := m.AddLocation(loc)
			ids[h] = id
		}
	}

	// One directed Route per adjacent pair of generated Locations. Iterating
	// by sorted hex key keeps Route IDs assigned in a deterministic order
	// across runs with the same seed.
	keys := sortedHexKeys(ids)
	for _, h := range keys {
		fromID := ids[h]
		for _, n := range h.neighbors() {
			toID, ok := ids[n]
			if !ok {
				continue
			}
			if _, err := m.AddRoute(&Route{
				From:       fromID,
				To:         toID,
				BaseCost:   15,
				PathType:   PathTrail,
				Durability: 100,
				ACL:        ACL{Public: true},
			}); err != nil {
				return nil, nil, err
			}
		}
	}

	return m, ids, nil
}

func resourcesFor(elev, rain, temp, mountainLvl float64) map[Resource]*ResourceNode {
	res := make(map[Resource]*ResourceNode)
	switch {
	case elev >= mountainLvl:
		res[ResourceStone] = &ResourceNode{Resource: ResourceStone, Quantity: 200, MaxQuantity: 200, RegenRate: 1}
		res[ResourceOre] = &ResourceNode{Resource: ResourceOre, Quantity: 100, MaxQuantity: 100, RegenRate: 1}
	case rain >= 0.6:
		res[ResourceWood] = &ResourceNode{Resource: ResourceWood, Quantity: 150, MaxQuantity: 150, RegenRate: 3}
		res[ResourceFoodBerry] = &ResourceNode{Resource: ResourceFoodBerry, Quantity: 80, MaxQuantity: 80, RegenRate: 4}
		res[ResourceHerb] = &ResourceNode{Resource: ResourceHerb, Quantity: 40, MaxQuantity: 40, RegenRate: 1}
	default:
		res[ResourceFoodRoot] = &ResourceNode{Resource: ResourceFoodRoot, Quantity: 60, MaxQuantity: 60, RegenRate: 2}
		res[ResourceWood] = &ResourceNode{Resource: ResourceWood, Quantity: 50, MaxQuantity: 50, RegenRate: 1}
	}
	if rain >= 0.4 && temp >= 0.3 {
		res[ResourceWater] = &ResourceNode{Resource: ResourceWater, Quantity: 500, MaxQuantity: 500, RegenRate: 20}
	}
	return res
}

// octaveNoise layers noise at decreasing amplitude/increasing frequency,
// exactly the teacher's fractal-noise idiom (internal/world/generation.go).
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxAmplitude := 0.0
	freq := frequency
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*freq, y*freq) * amplitude
		maxAmplitude += amplitude
		amplitude *= persistence
		freq *= 2
	}
	if maxAmplitude == 0 {
		return 0
	}
	return total / maxAmplitude
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sortedHexKeys(m map[hexCoord]LocationID) []hexCoord {
	out := make([]hexCoord, 0, len(m))
	for h := range m {
		out = append(out, h)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func less(a, b hexCoord) bool {
	if a.q != b.q {
		return a.q < b.q
	}
	return a.r < b.r
}
