package mapgen

// Kind selects which of the three parallel evaluators runs: item loot,
// furniture, or terrain. They share the same traversal and differ only
// in the mapping/place fields they read and the sentinel id they strip.
type Kind int

const (
	// KindItem evaluates item loot: `item`, `items`, `sealed_item`
	// mappings plus `place_item`, `place_items`, `place_loot`, `add`.
	KindItem Kind = iota

	// KindFurniture evaluates furniture: `furniture` mappings plus
	// `place_furniture` and furniture-kind `set` entries.
	KindFurniture

	// KindTerrain evaluates terrain: `terrain` mappings, `place_terrain`,
	// terrain-kind `set` entries, and the mapgen's `fill_ter`.
	KindTerrain
)

// Sentinel returns the null id this kind strips from its final result.
func (k Kind) Sentinel() string {
	switch k {
	case KindFurniture:
		return "f_null"
	case KindTerrain:
		return "t_null"
	default:
		return "null"
	}
}

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindFurniture:
		return "furniture"
	case KindTerrain:
		return "terrain"
	default:
		return "item"
	}
}

// setKindName is the `set` entry kind string this evaluator kind accepts.
// KindItem has no matching set entries.
func (k Kind) setKindName() string {
	switch k {
	case KindFurniture:
		return "furniture"
	case KindTerrain:
		return "terrain"
	default:
		return ""
	}
}
