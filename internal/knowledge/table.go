package knowledge

import "fmt"

// eraItemNames lists the item names introduced in each era, in unlock order
// within that era. Each item after the first in an era depends on the item
// before it in the same list; each era's first item depends on the final
// item of the previous era (Primitive's first item has no prerequisite).
// This keeps the generated graph a single connected DAG while still
// allowing branch prerequisites, added explicitly below for items that also
// require an out-of-line ancestor.
var eraItemNames = map[Era][]string{
	EraPrimitive: {
		"Fire-Making", "Stone Knapping", "Basket Weaving", "Animal Tracking",
		"Hide Tanning", "Cordage", "Spear Crafting", "Shelter Building",
		"Foraging Lore", "Bone Tool Carving", "Fishing with Spears", "Fire Tending",
		"Simple Traps", "Cave Painting", "Wound Binding", "Seasonal Migration", "Flint Trading",
	},
	EraAgricultural: {
		"Seed Saving", "Irrigation Ditches", "Plow Farming", "Animal Husbandry",
		"Granary Storage", "Pottery", "Weaving Looms", "Dyeing",
		"Well Digging", "Crop Rotation", "Beekeeping", "Herbal Medicine",
		"Sun Calendar", "Mudbrick Masonry", "Market Trading", "Census Taking", "Written Tallying",
	},
	EraBronze: {
		"Copper Smelting", "Tin Alloying", "Bronze Casting", "Wheel Construction",
		"Chariot Building", "Sail Rigging", "Writing Systems", "Law Codes",
		"Census Registries", "Temple Architecture", "Standing Armies", "Currency Minting",
		"Road Building", "Aqueduct Engineering", "Siege Craft", "Astronomy", "Diplomacy",
	},
	EraIron: {
		"Iron Smelting", "Steel Tempering", "Iron Tool Forging", "Coinage Standards",
		"Shipbuilding", "Cartography", "Catapult Engineering", "Viaduct Construction",
		"Legal Codification", "Postal Relay", "Glassblowing", "Papermaking",
		"Printing Blocks", "Gunpowder Mixing", "Compass Navigation", "Banking", "Universities",
	},
	EraIndustrial: {
		"Steam Power", "Coal Mining", "Mechanized Looms", "Railway Engineering",
		"Telegraphy", "Factory Organization", "Assembly Lines", "Electrification",
		"Internal Combustion", "Chemical Refining", "Mass Production", "Public Sanitation",
		"Vaccination", "Photography", "Telephony", "Structural Steel",
	},
	EraInformation: {
		"Transistor Design", "Computing Machines", "Satellite Communication", "The Internet",
		"Software Engineering", "Renewable Power Grids", "Genetic Sequencing", "Machine Learning",
		"Cryptographic Protocols", "Global Logistics Networks", "Autonomous Machinery",
		"Distributed Databases", "Synthetic Materials", "Fusion Research", "Open Knowledge Networks",
		"Climate Modeling",
	},
}

// extraPrerequisites adds cross-era or cross-branch dependencies beyond the
// default linear chain within an era, so the graph isn't a single path.
var extraPrerequisites = map[string][]string{
	"Bronze-Casting":          {"Agricultural-Pottery"},
	"Writing-Systems":         {"Agricultural-Written-Tallying"},
	"Iron-Smelting":           {"Bronze-Copper-Smelting"},
	"Gunpowder-Mixing":        {"Iron-Iron-Smelting"},
	"Steam-Power":             {"Iron-Coinage-Standards"},
	"Electrification":         {"Industrial-Telegraphy"},
	"Computing-Machines":      {"Industrial-Telephony"},
	"Machine-Learning":        {"Information-Software-Engineering"},
	"Genetic-Sequencing":      {"Information-Computing-Machines"},
	"Fusion-Research":         {"Industrial-Electrification"},
	"Distributed-Databases":   {"Information-The-Internet"},
	"Autonomous-Machinery":    {"Information-Machine-Learning"},
	"Climate-Modeling":        {"Information-Renewable-Power-Grids"},
}

func slug(name string) string {
	out := make([]byte, 0, len(name))
	for _, r := range name {
		if r == ' ' {
			out = append(out, '-')
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}

func buildItems() []Item {
	var items []Item
	var prevEraLastID ItemID

	for _, era := range eraOrder {
		names := eraItemNames[era]
		var prevInEraID ItemID
		for i, name := range names {
			id := ItemID(fmt.Sprintf("%s-%s", era, slug(name)))
			var prereqs []ItemID
			switch {
			case i == 0 && prevEraLastID != "":
				prereqs = append(prereqs, prevEraLastID)
			case i > 0:
				prereqs = append(prereqs, prevInEraID)
			}
			if extra, ok := extraPrerequisites[slug(name)]; ok {
				for _, e := range extra {
					prereqs = append(prereqs, ItemID(e))
				}
			}
			items = append(items, Item{ID: id, Name: name, Era: era, Prerequisites: prereqs})
			prevInEraID = id
		}
		if len(names) > 0 {
			prevEraLastID = prevInEraID
		}
	}
	return items
}

// Default is the validated knowledge tree every simulation run shares.
// Built once at package init from the static table above; a construction
// failure here means the static table itself is malformed and must panic —
// there is no runtime input that could cause it.
var Default = mustBuild()

func mustBuild() *Tree {
	tree, err := New(buildItems())
	if err != nil {
		panic(fmt.Sprintf("knowledge: static table is invalid: %v", err))
	}
	return tree
}
