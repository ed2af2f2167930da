package mapgen

import (
	"github.com/dshills/contentguide/pkg/inherit"
	"github.com/dshills/contentguide/pkg/itemgroup"
	"github.com/dshills/contentguide/pkg/loot"
	"github.com/dshills/contentguide/pkg/memo"
	"github.com/dshills/contentguide/pkg/store"
)

type paletteKey struct {
	rec  *store.Record
	kind Kind
}

type mapgenKey struct {
	rec  *store.Record
	kind Kind
}

type omtKey struct {
	id   string
	kind Kind
}

// Evaluator is the per-corpus analytic loot engine. All of its caches
// key by record identity (or by overmap-terrain id, which is stable for
// one corpus) and live exactly as long as the corpus they were built
// against.
type Evaluator struct {
	store     *store.Store
	flattener *inherit.Flattener
	groups    *itemgroup.Resolver

	palettes *memo.Cache[paletteKey, loot.Palette]
	mapgens  *memo.Cache[mapgenKey, loot.Table]
	omts     *memo.Cache[omtKey, loot.Table]
}

// New creates an Evaluator over one store/flattener pair.
func New(s *store.Store, fl *inherit.Flattener, groups *itemgroup.Resolver) *Evaluator {
	return &Evaluator{
		store:     s,
		flattener: fl,
		groups:    groups,
		palettes:  memo.NewCache[paletteKey, loot.Palette](),
		mapgens:   memo.NewCache[mapgenKey, loot.Table](),
		omts:      memo.NewCache[omtKey, loot.Table](),
	}
}

// Evaluate computes rec's full distribution for kind: symbol-grid
// contributions, every place-list, nested chunks, and set entries, with
// the kind's sentinel id stripped.
func (ev *Evaluator) Evaluate(rec *store.Record, kind Kind) loot.Table {
	return ev.evaluate(rec, kind, map[*store.Record]bool{})
}

// ForOmt computes the weighted merge of every mapgen variant registered
// under an overmap-terrain id, weights taken from each variant's
// `weight` field with a default of 1000.
func (ev *Evaluator) ForOmt(omtID string, kind Kind) loot.Table {
	key := omtKey{id: omtID, kind: kind}
	if cached, ok := ev.omts.Get(key); ok {
		return *cached
	}

	variants := ev.mapgenVariants(omtID)
	merged := make([]loot.Weighted2, 0, len(variants))
	for _, rec := range variants {
		merged = append(merged, loot.Weighted2{
			Table:  ev.Evaluate(rec, kind),
			Weight: mapgenWeight(rec),
		})
	}

	result := loot.MergeTables(merged)
	ev.omts.Set(key, &result)
	return result
}

func (ev *Evaluator) evaluate(rec *store.Record, kind Kind, inProgress map[*store.Record]bool) loot.Table {
	key := mapgenKey{rec: rec, kind: kind}
	if cached, ok := ev.mapgens.Get(key); ok {
		return *cached
	}
	if inProgress[rec] {
		// Re-entry through a nested-mapgen cycle yields empty loot and
		// is never cached: the empty result is an artifact of the cycle,
		// not the record's true distribution.
		return loot.NewTable()
	}
	inProgress[rec] = true
	defer delete(inProgress, rec)

	flat := ev.flattener.Flatten(rec)
	obj := objectFields(flat.Fields)

	var result loot.Table
	if cells := gridCells(flat.Fields, obj, rec.Key); len(cells) > 0 {
		// A 2D om_terrain grid realizes one 24x24 cell per id position;
		// multiple positions of the same id average as variants.
		merged := make([]loot.Weighted2, 0, len(cells))
		for _, cell := range cells {
			merged = append(merged, loot.Weighted2{
				Table:  ev.evaluateObject(cell, kind, inProgress),
				Weight: 1,
			})
		}
		result = loot.MergeTables(merged)
	} else {
		result = ev.evaluateObject(obj, kind, inProgress)
	}

	result = result.Strip(kind.Sentinel())
	ev.mapgens.Set(key, &result)
	return result
}

// evaluateObject runs the core per-mapgen algorithm over one mapgen
// object's fields: resolve the palette, count symbols, repeat each
// symbol's table by its occurrence count, fold in the place-lists, and
// combine everything via independent rolls.
func (ev *Evaluator) evaluateObject(obj map[string]any, kind Kind, inProgress map[*store.Record]bool) loot.Table {
	scope := NewScope(nil, obj["parameters"])
	pal := ev.symbolTables(obj, kind, scope, inProgress)

	rows := stringRows(obj["rows"])
	counts := symbolCounts(rows)

	result := loot.NewTable()
	for sym, c := range counts {
		t, ok := pal[sym]
		if !ok {
			continue
		}
		result = loot.AddTables(result, loot.RepeatTable(t, c, c))
	}

	for _, field := range placeFields(kind) {
		for _, e := range entryObjects(obj[field.name]) {
			result = loot.AddTables(result, field.eval(ev, e, scope, kind, inProgress))
		}
	}

	if kind == KindTerrain {
		result = loot.AddTables(result, ev.fillTerrain(obj, pal, counts, scope))
	}

	return result
}

// placeField binds one place-list field name to its entry evaluator.
type placeField struct {
	name string
	eval func(ev *Evaluator, e map[string]any, scope *Scope, kind Kind, inProgress map[*store.Record]bool) loot.Table
}

func placeFields(kind Kind) []placeField {
	evalItem := func(ev *Evaluator, e map[string]any, scope *Scope, _ Kind, _ map[*store.Record]bool) loot.Table {
		return ev.itemSpecTable(e, scope)
	}
	evalNested := func(ev *Evaluator, e map[string]any, scope *Scope, kind Kind, inProgress map[*store.Record]bool) loot.Table {
		return ev.nestedTable(e, kind, scope, inProgress)
	}

	switch kind {
	case KindItem:
		return []placeField{
			{"place_item", evalItem},
			{"add", evalItem},
			{"place_items", func(ev *Evaluator, e map[string]any, _ *Scope, _ Kind, _ map[*store.Record]bool) loot.Table {
				return ev.groupSpecTable(e)
			}},
			{"place_loot", func(ev *Evaluator, e map[string]any, scope *Scope, _ Kind, _ map[*store.Record]bool) loot.Table {
				return ev.placeLootTable(e, scope)
			}},
			{"place_nested", evalNested},
		}
	case KindFurniture:
		return []placeField{
			{"place_furniture", func(ev *Evaluator, e map[string]any, scope *Scope, _ Kind, _ map[*store.Record]bool) loot.Table {
				return placeValueTable(e, "furn", scope)
			}},
			{"place_nested", evalNested},
			{"set", func(_ *Evaluator, e map[string]any, _ *Scope, kind Kind, _ map[*store.Record]bool) loot.Table {
				return setTable(e, kind)
			}},
		}
	case KindTerrain:
		return []placeField{
			{"place_terrain", func(ev *Evaluator, e map[string]any, scope *Scope, _ Kind, _ map[*store.Record]bool) loot.Table {
				return placeValueTable(e, "ter", scope)
			}},
			{"place_nested", evalNested},
			{"set", func(_ *Evaluator, e map[string]any, _ *Scope, kind Kind, _ map[*store.Record]bool) loot.Table {
				return setTable(e, kind)
			}},
		}
	}
	return nil
}

// placeLootTable evaluates one place_loot entry, which carries either a
// single item or a group reference plus optional ammo/magazine
// percentages: the derived `{id}_ammo` and `{id}_magazine` entries
// appear with the item's own probability scaled by those percentages.
func (ev *Evaluator) placeLootTable(e map[string]any, scope *Scope) loot.Table {
	inner := make(map[string]any, len(e))
	for k, v := range e {
		if k == "repeat" || k == "ammo" || k == "magazine" {
			continue
		}
		inner[k] = v
	}

	var base loot.Table
	if g, _ := e["group"].(string); g != "" {
		base = ev.groupSpecTable(inner)
	} else {
		base = ev.itemSpecTable(inner, scope)
	}

	ammo := pctFraction(e["ammo"])
	magazine := pctFraction(e["magazine"])
	if ammo > 0 || magazine > 0 {
		extra := loot.NewTable()
		for id, c := range base {
			if ammo > 0 {
				extra[id+"_ammo"] = loot.Scale(c, ammo)
			}
			if magazine > 0 {
				extra[id+"_magazine"] = loot.Scale(c, magazine)
			}
		}
		base = loot.AddTables(base, extra)
	}

	n0, n1 := intRange(e["repeat"], 1)
	return loot.RepeatTable(base, n0, n1)
}

// placeValueTable evaluates one place_furniture/place_terrain entry: a
// mapgen value under key, scaled by chance and repeated.
func placeValueTable(e map[string]any, key string, scope *Scope) loot.Table {
	v, ok := e[key]
	if !ok {
		v = e["id"]
	}
	t := valueTable(v, scope)
	if len(t) == 0 {
		return nil
	}

	p := chanceFraction(e)
	if p > 1 {
		p = 1
	}
	if p < 1 {
		t = loot.ScaleTable(t, p)
	}

	n0, n1 := intRange(e["repeat"], 1)
	return loot.RepeatTable(t, n0, n1)
}

// setTable evaluates one `set` entry of the evaluator's kind. Tile count
// follows the geometry: 1 for a point, max(dx, dy)+1 for a line,
// (|dx|+1)*(|dy|+1) for a square.
func setTable(e map[string]any, kind Kind) loot.Table {
	want := kind.setKindName()
	if want == "" {
		return nil
	}

	var geometry string
	for _, g := range []string{"point", "line", "square"} {
		if s, _ := e[g].(string); s == want {
			geometry = g
			break
		}
	}
	if geometry == "" {
		return nil
	}

	id, _ := e["id"].(string)
	if id == "" {
		return nil
	}

	x := coordMin(e["x"])
	y := coordMin(e["y"])
	x2 := coordMin(e["x2"])
	y2 := coordMin(e["y2"])
	dx := absInt(x2 - x)
	dy := absInt(y2 - y)

	tiles := 1
	switch geometry {
	case "line":
		tiles = maxInt(dx, dy) + 1
	case "square":
		tiles = (dx + 1) * (dy + 1)
	}

	p := chanceFraction(e)
	if p > 1 {
		p = 1
	}

	t := loot.Table{id: loot.Repeat(loot.Chance{Prob: p, Expected: p}, tiles, tiles)}
	n0, n1 := intRange(e["repeat"], 1)
	return loot.RepeatTable(t, n0, n1)
}

// fillTerrain prices the mapgen's fill_ter: it covers every grid cell
// whose symbol contributed no terrain of its own.
func (ev *Evaluator) fillTerrain(obj map[string]any, pal loot.Palette, counts map[rune]int, scope *Scope) loot.Table {
	fill, ok := obj["fill_ter"]
	if !ok {
		return nil
	}

	total := 0
	covered := 0
	for sym, c := range counts {
		total += c
		if t, ok := pal[sym]; ok && len(t) > 0 {
			covered += c
		}
	}
	remainder := total - covered
	if remainder <= 0 {
		return nil
	}

	return loot.RepeatTable(valueTable(fill, scope), remainder, remainder)
}

// objectFields unwraps a mapgen record's `object` block; some records
// carry their rows and place-lists at top level instead.
func objectFields(fields map[string]any) map[string]any {
	if obj, ok := fields["object"].(map[string]any); ok {
		return obj
	}
	return fields
}

func stringRows(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func symbolCounts(rows []string) map[rune]int {
	counts := map[rune]int{}
	for _, row := range rows {
		for _, sym := range row {
			counts[sym]++
		}
	}
	return counts
}

func pctFraction(v any) float64 {
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	return f / 100
}

func coordMin(v any) int {
	lo, _ := intRange(v, 0)
	return lo
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
