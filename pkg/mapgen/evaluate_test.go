package mapgen

import (
	"math"
	"strings"
	"testing"

	"github.com/dshills/contentguide/pkg/inherit"
	"github.com/dshills/contentguide/pkg/itemgroup"
	"github.com/dshills/contentguide/pkg/loot"
	"github.com/dshills/contentguide/pkg/store"
)

const epsilon = 1e-9

func newEvaluator(t *testing.T, records ...map[string]any) (*Evaluator, *store.Store) {
	t.Helper()
	s := store.New()
	for _, r := range records {
		rawType, _ := r["type"].(string)
		if rawType == "" {
			rawType = "mapgen"
		}
		fields := make(map[string]any, len(r))
		for k, v := range r {
			if k == "type" {
				continue
			}
			fields[k] = v
		}
		s.Register(rawType, fields)
	}
	fl := inherit.New(s)
	return New(s, fl, itemgroup.New(s, fl)), s
}

func mustRecord(t *testing.T, s *store.Store, canonicalType, key string) *store.Record {
	t.Helper()
	rec, err := s.ById(canonicalType, key)
	if err != nil {
		t.Fatalf("ById(%s, %s) failed: %v", canonicalType, key, err)
	}
	return rec
}

func checkChance(t *testing.T, table loot.Table, id string, prob, expected float64) {
	t.Helper()
	c, ok := table[id]
	if !ok {
		t.Fatalf("id %s missing from table %v", id, table)
	}
	if math.Abs(c.Prob-prob) > epsilon {
		t.Errorf("%s prob = %v, want %v", id, c.Prob, prob)
	}
	if math.Abs(c.Expected-expected) > epsilon {
		t.Errorf("%s expected = %v, want %v", id, c.Expected, expected)
	}
}

// Four occurrences of a symbol placing an item at 50% each: the tile
// rolls are independent.
func TestEvaluate_SymbolCount(t *testing.T) {
	ev, s := newEvaluator(t, map[string]any{
		"om_terrain": "quarry",
		"object": map[string]any{
			"rows": []any{"AA", "AA"},
			"item": map[string]any{
				"A": map[string]any{"item": "stone", "chance": float64(50)},
			},
		},
	})

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "quarry"), KindItem)
	checkChance(t, table, "stone", 0.9375, 2)
}

// A referenced palette record contributes its symbol tables.
func TestEvaluate_PaletteReference(t *testing.T) {
	ev, s := newEvaluator(t,
		map[string]any{
			"type": "palette",
			"id":   "quarry_pal",
			"item": map[string]any{
				"A": map[string]any{"item": "stone", "chance": float64(50)},
			},
		},
		map[string]any{
			"om_terrain": "quarry",
			"object": map[string]any{
				"rows":    []any{"AA", "AA"},
				"palette": []any{"quarry_pal"},
			},
		},
	)

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "quarry"), KindItem)
	checkChance(t, table, "stone", 0.9375, 2)
}

// A weighted distribution of palettes scales each sub-palette by its
// normalized weight.
func TestEvaluate_PaletteDistribution(t *testing.T) {
	ev, s := newEvaluator(t,
		map[string]any{
			"type": "palette",
			"id":   "rich",
			"item": map[string]any{"A": map[string]any{"item": "gold"}},
		},
		map[string]any{
			"type": "palette",
			"id":   "poor",
			"item": map[string]any{"A": map[string]any{"item": "dirt"}},
		},
		map[string]any{
			"om_terrain": "mine",
			"object": map[string]any{
				"rows": []any{"A"},
				"palette": []any{
					map[string]any{"distribution": []any{
						[]any{"rich", float64(1)},
						[]any{"poor", float64(3)},
					}},
				},
			},
		},
	)

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "mine"), KindItem)
	checkChance(t, table, "gold", 0.25, 0.25)
	checkChance(t, table, "dirt", 0.75, 0.75)
}

// Excess chance above 100% caps probability and flows into expected.
func TestEvaluate_PlaceItemChanceCap(t *testing.T) {
	ev, s := newEvaluator(t, map[string]any{
		"om_terrain": "depot",
		"object": map[string]any{
			"rows": []any{},
			"place_item": []any{
				map[string]any{"item": "crate", "chance": float64(250)},
			},
		},
	})

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "depot"), KindItem)
	checkChance(t, table, "crate", 1, 2.5)
}

func TestEvaluate_PlaceItemAmountAndRepeat(t *testing.T) {
	ev, s := newEvaluator(t, map[string]any{
		"om_terrain": "depot",
		"object": map[string]any{
			"rows": []any{},
			"place_item": []any{
				map[string]any{
					"item":   "nail",
					"chance": float64(50),
					"amount": []any{float64(2), float64(4)},
					"repeat": []any{float64(2), float64(2)},
				},
			},
		},
	})

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "depot"), KindItem)
	// Per roll: prob .5, expected .5*3. Two rolls: prob 1-(.5)^2, expected x2.
	checkChance(t, table, "nail", 0.75, 3)
}

func TestEvaluate_PlaceItems(t *testing.T) {
	ev, s := newEvaluator(t,
		map[string]any{
			"type":    "item_group",
			"id":      "tools",
			"subtype": "collection",
			"entries": []any{
				map[string]any{"item": "hammer", "prob": float64(50)},
			},
		},
		map[string]any{
			"om_terrain": "shed",
			"object": map[string]any{
				"rows": []any{},
				"place_items": []any{
					map[string]any{"item": "tools", "chance": float64(50)},
				},
			},
		},
	)

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "shed"), KindItem)
	checkChance(t, table, "hammer", 0.25, 0.25)
}

// place_loot's ammo/magazine percentages derive extra entries at the
// item's probability scaled by the percentage.
func TestEvaluate_PlaceLootAmmoMagazine(t *testing.T) {
	ev, s := newEvaluator(t, map[string]any{
		"om_terrain": "armory",
		"object": map[string]any{
			"rows": []any{},
			"place_loot": []any{
				map[string]any{
					"item":     "rifle",
					"chance":   float64(50),
					"ammo":     float64(50),
					"magazine": float64(100),
				},
			},
		},
	})

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "armory"), KindItem)
	checkChance(t, table, "rifle", 0.5, 0.5)
	checkChance(t, table, "rifle_ammo", 0.25, 0.25)
	checkChance(t, table, "rifle_magazine", 0.5, 0.5)
}

// Conditional nested chunks split 50/50 between chunks and else_chunks.
func TestEvaluate_ConditionalNestedChunks(t *testing.T) {
	ev, s := newEvaluator(t,
		map[string]any{
			"om_terrain": "loot_chunk",
			"object": map[string]any{
				"rows": []any{},
				"place_item": []any{
					map[string]any{"item": "treasure"},
				},
			},
		},
		map[string]any{
			"om_terrain": "site",
			"object": map[string]any{
				"rows": []any{},
				"place_nested": []any{
					map[string]any{
						"chunks":    []any{"loot_chunk"},
						"neighbors": map[string]any{"north": "field"},
					},
				},
			},
		},
	)

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "site"), KindItem)
	// One branch has the chunk, the padded else branch is null.
	checkChance(t, table, "treasure", 0.5, 0.5)
}

// Without conditions, chunks wins outright over else_chunks.
func TestEvaluate_UnconditionalPrefersChunks(t *testing.T) {
	ev, s := newEvaluator(t,
		map[string]any{
			"om_terrain": "a_chunk",
			"object": map[string]any{
				"rows":       []any{},
				"place_item": []any{map[string]any{"item": "a_item"}},
			},
		},
		map[string]any{
			"om_terrain": "b_chunk",
			"object": map[string]any{
				"rows":       []any{},
				"place_item": []any{map[string]any{"item": "b_item"}},
			},
		},
		map[string]any{
			"om_terrain": "site",
			"object": map[string]any{
				"rows": []any{},
				"place_nested": []any{
					map[string]any{
						"chunks":      []any{"a_chunk"},
						"else_chunks": []any{"b_chunk"},
					},
				},
			},
		},
	)

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "site"), KindItem)
	checkChance(t, table, "a_item", 1, 1)
	if _, ok := table["b_item"]; ok {
		t.Error("else_chunks must not contribute when chunks is present without conditions")
	}
}

// A nested-mapgen cycle degrades to empty loot for the re-entered
// branch instead of recursing forever.
func TestEvaluate_NestedRecursionGuard(t *testing.T) {
	ev, s := newEvaluator(t, map[string]any{
		"om_terrain": "ouroboros",
		"object": map[string]any{
			"rows":       []any{},
			"place_item": []any{map[string]any{"item": "scale"}},
			"place_nested": []any{
				map[string]any{"chunks": []any{"ouroboros"}},
			},
		},
	})

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "ouroboros"), KindItem)
	// The direct placement survives; the self-recursion contributes the
	// outer evaluation's own result lazily as empty.
	c, ok := table["scale"]
	if !ok {
		t.Fatal("scale missing from table")
	}
	if c.Prob < 1-epsilon {
		t.Errorf("scale prob = %v, want 1", c.Prob)
	}
}

// Furniture mappings are weighted exclusive alternatives.
func TestEvaluate_FurnitureAlternatives(t *testing.T) {
	ev, s := newEvaluator(t, map[string]any{
		"om_terrain": "office",
		"object": map[string]any{
			"rows": []any{"D"},
			"furniture": map[string]any{
				"D": []any{"f_desk", []any{"f_table", float64(3)}},
			},
		},
	})

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "office"), KindFurniture)
	checkChance(t, table, "f_desk", 0.25, 0.25)
	checkChance(t, table, "f_table", 0.75, 0.75)
}

// The furniture sentinel strips from the final result.
func TestEvaluate_SentinelStripped(t *testing.T) {
	ev, s := newEvaluator(t, map[string]any{
		"om_terrain": "office",
		"object": map[string]any{
			"rows": []any{"D"},
			"furniture": map[string]any{
				"D": []any{"f_null", "f_desk"},
			},
		},
	})

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "office"), KindFurniture)
	if _, ok := table["f_null"]; ok {
		t.Error("f_null sentinel must be stripped")
	}
	checkChance(t, table, "f_desk", 0.5, 0.5)
}

// A terrain set square covers (|dx|+1)*(|dy|+1) tiles.
func TestEvaluate_SetSquare(t *testing.T) {
	ev, s := newEvaluator(t, map[string]any{
		"om_terrain": "yard",
		"object": map[string]any{
			"rows": []any{},
			"set": []any{
				map[string]any{
					"square": "terrain", "id": "t_floor",
					"x": float64(0), "y": float64(0),
					"x2": float64(2), "y2": float64(1),
					"chance": float64(50),
				},
			},
		},
	})

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "yard"), KindTerrain)
	// 6 tiles at 50% each.
	checkChance(t, table, "t_floor", 1-math.Pow(0.5, 6), 3)
}

func TestEvaluate_SetLine(t *testing.T) {
	ev, s := newEvaluator(t, map[string]any{
		"om_terrain": "road",
		"object": map[string]any{
			"rows": []any{},
			"set": []any{
				map[string]any{
					"line": "terrain", "id": "t_pavement",
					"x": float64(0), "y": float64(0),
					"x2": float64(4), "y2": float64(2),
				},
			},
		},
	})

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "road"), KindTerrain)
	// max(4, 2)+1 = 5 tiles at 100%.
	checkChance(t, table, "t_pavement", 1, 5)
}

// fill_ter covers every cell whose symbol contributed no terrain.
func TestEvaluate_FillTerrain(t *testing.T) {
	ev, s := newEvaluator(t, map[string]any{
		"om_terrain": "field",
		"object": map[string]any{
			"rows":     []any{"A.", ".."},
			"fill_ter": "t_grass",
			"terrain": map[string]any{
				"A": "t_tree",
			},
		},
	})

	table := ev.Evaluate(mustRecord(t, s, "mapgen", "field"), KindTerrain)
	checkChance(t, table, "t_tree", 1, 1)
	// 3 uncovered cells, each certainly grass.
	checkChance(t, table, "t_grass", 1, 3)
}

// Variants of one overmap-terrain merge weighted by their `weight`.
func TestForOmt_WeightedVariants(t *testing.T) {
	ev, _ := newEvaluator(t,
		map[string]any{
			"om_terrain": "house",
			"weight":     float64(1000),
			"object": map[string]any{
				"rows":       []any{},
				"place_item": []any{map[string]any{"item": "couch"}},
			},
		},
		map[string]any{
			"om_terrain": "house",
			"weight":     float64(3000),
			"object": map[string]any{
				"rows":       []any{},
				"place_item": []any{map[string]any{"item": "chair"}},
			},
		},
	)

	table := ev.ForOmt("house", KindItem)
	checkChance(t, table, "couch", 0.25, 0.25)
	checkChance(t, table, "chair", 0.75, 0.75)
}

func TestForOmt_Cached(t *testing.T) {
	ev, _ := newEvaluator(t, map[string]any{
		"om_terrain": "house",
		"object": map[string]any{
			"rows":       []any{},
			"place_item": []any{map[string]any{"item": "couch"}},
		},
	})

	first := ev.ForOmt("house", KindItem)
	second := ev.ForOmt("house", KindItem)

	// The cached table comes back on the second call: mutation through
	// one handle is visible through the other.
	first["sentinel_probe"] = loot.Chance{}
	if _, ok := second["sentinel_probe"]; !ok {
		t.Error("Expected the cached table on the second call")
	}
}

// A mapgen value switch prices its fallback.
func TestResolveValue_Switch(t *testing.T) {
	dist := ResolveValue(map[string]any{
		"switch":   map[string]any{"param": "wall_type"},
		"fallback": "t_wall",
	}, nil)

	if math.Abs(dist["t_wall"]-1) > epsilon {
		t.Errorf("Expected t_wall at 1, got %v", dist)
	}
}

func TestResolveValue_ParamWithScope(t *testing.T) {
	scope := NewScope(nil, map[string]any{
		"carpet_color": map[string]any{
			"type":    "ter_str_id",
			"default": map[string]any{"distribution": []any{"t_red", "t_blue"}},
		},
	})

	dist := ResolveValue(map[string]any{"param": "carpet_color", "fallback": "t_gray"}, scope)
	if math.Abs(dist["t_red"]-0.5) > epsilon || math.Abs(dist["t_blue"]-0.5) > epsilon {
		t.Errorf("Expected 50/50 red/blue, got %v", dist)
	}
}

func TestResolveValue_ParamFallback(t *testing.T) {
	dist := ResolveValue(map[string]any{"param": "unknown", "fallback": "t_gray"}, nil)
	if math.Abs(dist["t_gray"]-1) > epsilon {
		t.Errorf("Expected fallback t_gray at 1, got %v", dist)
	}
}

func TestDistribution_ArgMax(t *testing.T) {
	d := Distribution{"a": 0.2, "b": 0.5, "c": 0.3}
	id, ok := d.ArgMax()
	if !ok || id != "b" {
		t.Errorf("ArgMax = %q, want b", id)
	}

	if _, ok := (Distribution{}).ArgMax(); ok {
		t.Error("empty distribution has no arg-max")
	}
}

// A 2D om_terrain grid splits into 24x24 cells: each id sees only its
// own slice of rows and only the place-entries inside its cell.
func TestEvaluate_GridTiling(t *testing.T) {
	row := strings.Repeat("L", TileSize) + strings.Repeat("R", TileSize)
	ev, s := newEvaluator(t, map[string]any{
		"om_terrain": []any{[]any{"left_half", "right_half"}},
		"object": map[string]any{
			"rows": []any{row},
			"item": map[string]any{
				"L": map[string]any{"item": "l_item"},
				"R": map[string]any{"item": "r_item"},
			},
			"place_item": []any{
				map[string]any{"item": "crate", "x": float64(30), "y": float64(0)},
			},
		},
	})

	left := ev.Evaluate(mustRecord(t, s, "mapgen", "left_half"), KindItem)
	if _, ok := left["r_item"]; ok {
		t.Error("left cell must not see the right cell's symbols")
	}
	if _, ok := left["crate"]; ok {
		t.Error("left cell must not see a place_item at x=30")
	}
	checkChance(t, left, "l_item", 1, float64(TileSize))

	right := ev.Evaluate(mustRecord(t, s, "mapgen", "right_half"), KindItem)
	if _, ok := right["l_item"]; ok {
		t.Error("right cell must not see the left cell's symbols")
	}
	checkChance(t, right, "crate", 1, 1)
	checkChance(t, right, "r_item", 1, float64(TileSize))
}

// sealed_item contributes items to the item evaluator and its furniture
// to the furniture evaluator.
func TestEvaluate_SealedItem(t *testing.T) {
	records := map[string]any{
		"om_terrain": "pantry",
		"object": map[string]any{
			"rows": []any{"S"},
			"sealed_item": map[string]any{
				"S": map[string]any{
					"furniture": "f_crate",
					"item":      map[string]any{"item": "jar", "chance": float64(50)},
				},
			},
		},
	}

	ev, s := newEvaluator(t, records)
	items := ev.Evaluate(mustRecord(t, s, "mapgen", "pantry"), KindItem)
	checkChance(t, items, "jar", 0.5, 0.5)

	furniture := ev.Evaluate(mustRecord(t, s, "mapgen", "pantry"), KindFurniture)
	checkChance(t, furniture, "f_crate", 1, 1)
}
