package mapgen

import (
	"github.com/dshills/contentguide/pkg/loot"
	"github.com/dshills/contentguide/pkg/store"
)

// paletteFor resolves one palette record into its sym → Table mapping
// for kind, consulting the per-(identity, kind) cache first. Parameter
// defaults come from the palette's own `parameters` block only; caching
// per palette identity regardless of the enclosing scope is a recorded
// engineering decision (see DESIGN.md).
func (ev *Evaluator) paletteFor(rec *store.Record, kind Kind, inProgress map[*store.Record]bool) loot.Palette {
	key := paletteKey{rec: rec, kind: kind}
	if cached, ok := ev.palettes.Get(key); ok {
		return *cached
	}

	flat := ev.flattener.Flatten(rec)
	scope := NewScope(nil, flat.Fields["parameters"])
	pal := ev.symbolTables(flat.Fields, kind, scope, inProgress)

	ev.palettes.Set(key, &pal)
	return pal
}

// symbolTables builds the sym → Table mapping contributed by one
// palette-shaped field set: its own `item`/`items`/`sealed_item`/
// `furniture`/`terrain`/`nested` mappings, its `mapping` block, and
// every palette it references through `palettes`. Symbols present in
// multiple contributing tables combine via independent rolls.
func (ev *Evaluator) symbolTables(fields map[string]any, kind Kind, scope *Scope, inProgress map[*store.Record]bool) loot.Palette {
	pal := loot.Palette{}

	// Palette records reference sub-palettes through `palettes`; mapgen
	// objects use the singular `palette` for the same list.
	for _, field := range []string{"palettes", "palette"} {
		for _, ref := range listOf(fields[field]) {
			sub := ev.referencedPalette(ref, kind, scope, inProgress)
			mergePaletteInto(pal, sub)
		}
	}

	mergePaletteInto(pal, ev.ownMappings(fields, kind, scope, inProgress))

	if mapping, ok := fields["mapping"].(map[string]any); ok {
		for sym, raw := range mapping {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			mergeSymbolInto(pal, sym, ev.mappingEntryTable(entry, kind, scope, inProgress))
		}
	}

	return pal
}

// mappingEntryTable evaluates one `mapping` block entry: unlike the
// top-level palette fields, which map symbols to specs, a mapping entry
// is the per-symbol object itself, with the specs directly under
// `item`/`items`/`furniture`/`terrain`/`nested`.
func (ev *Evaluator) mappingEntryTable(entry map[string]any, kind Kind, scope *Scope, inProgress map[*store.Record]bool) loot.Table {
	out := loot.NewTable()

	switch kind {
	case KindItem:
		for _, e := range entryObjects(entry["item"]) {
			out = loot.AddTables(out, ev.itemSpecTable(e, scope))
		}
		for _, e := range entryObjects(entry["items"]) {
			out = loot.AddTables(out, ev.groupSpecTable(e))
		}
	case KindFurniture:
		if v, ok := entry["furniture"]; ok {
			out = loot.AddTables(out, valueTable(v, scope))
		}
	case KindTerrain:
		if v, ok := entry["terrain"]; ok {
			out = loot.AddTables(out, valueTable(v, scope))
		}
	}

	if nested := entryObjects(entry["nested"]); len(nested) > 0 {
		alts := make([]loot.Weighted2, 0, len(nested))
		for _, e := range nested {
			alts = append(alts, loot.Weighted2{Table: ev.nestedTable(e, kind, scope, inProgress), Weight: 1})
		}
		out = loot.AddTables(out, loot.MergeTables(alts))
	}

	return out
}

// ownMappings processes the palette-shaped fields that map symbols
// directly to placements. Item-family fields use the independent
// strategy; furniture, terrain, and nested use the alternative strategy.
func (ev *Evaluator) ownMappings(fields map[string]any, kind Kind, scope *Scope, inProgress map[*store.Record]bool) loot.Palette {
	pal := loot.Palette{}

	switch kind {
	case KindItem:
		ev.processMapping(pal, fields["item"], func(e map[string]any) loot.Table {
			return ev.itemSpecTable(e, scope)
		})
		ev.processMapping(pal, fields["items"], func(e map[string]any) loot.Table {
			return ev.groupSpecTable(e)
		})
		ev.processMapping(pal, fields["sealed_item"], func(e map[string]any) loot.Table {
			return ev.sealedItemTable(e, scope)
		})
	case KindFurniture:
		ev.processAlternative(pal, fields["furniture"], scope)
		ev.processMapping(pal, fields["sealed_item"], func(e map[string]any) loot.Table {
			return valueTable(e["furniture"], scope)
		})
	case KindTerrain:
		ev.processAlternative(pal, fields["terrain"], scope)
	}

	ev.processNested(pal, fields["nested"], kind, scope, inProgress)

	return pal
}

// processMapping handles a sym → entry-object(s) field under the
// independent strategy: multiple entries on one symbol roll
// independently and combine with And.
func (ev *Evaluator) processMapping(pal loot.Palette, field any, eval func(map[string]any) loot.Table) {
	mapping, ok := field.(map[string]any)
	if !ok {
		return
	}
	for sym, raw := range mapping {
		for _, e := range entryObjects(raw) {
			mergeSymbolInto(pal, sym, eval(e))
		}
	}
}

// processAlternative handles a sym → mapgen-value field under the
// alternative strategy: the value's weighted alternatives are exclusive
// choices, so probability distributes across them.
func (ev *Evaluator) processAlternative(pal loot.Palette, field any, scope *Scope) {
	mapping, ok := field.(map[string]any)
	if !ok {
		return
	}
	for sym, raw := range mapping {
		mergeSymbolInto(pal, sym, valueTable(raw, scope))
	}
}

// processNested handles a sym → nested-chunk field: each entry object's
// chunk distribution recurses into the referenced mapgens, and multiple
// entry objects on one symbol are weighted exclusive alternatives.
func (ev *Evaluator) processNested(pal loot.Palette, field any, kind Kind, scope *Scope, inProgress map[*store.Record]bool) {
	mapping, ok := field.(map[string]any)
	if !ok {
		return
	}
	for sym, raw := range mapping {
		entries := entryObjects(raw)
		if len(entries) == 0 {
			continue
		}
		alts := make([]loot.Weighted2, 0, len(entries))
		for _, e := range entries {
			alts = append(alts, loot.Weighted2{Table: ev.nestedTable(e, kind, scope, inProgress), Weight: 1})
		}
		mergeSymbolInto(pal, sym, loot.MergeTables(alts))
	}
}

// referencedPalette resolves one element of a `palettes` reference list:
// a bare palette id, a {distribution: [[id, w], ...]} of weighted
// sub-palettes, or a {param: name} whose default resolves in scope.
func (ev *Evaluator) referencedPalette(ref any, kind Kind, scope *Scope, inProgress map[*store.Record]bool) loot.Palette {
	dist := ResolveValue(ref, scope)
	if len(dist) == 0 {
		return nil
	}

	// Collect every symbol across the weighted sub-palettes, then merge
	// per symbol: a distribution of palettes is an exclusive choice, so
	// each sub-palette's tables scale by its probability.
	subs := make(map[string]loot.Palette, len(dist))
	syms := map[rune]bool{}
	for id := range dist {
		rec, ok := ev.store.ByIdMaybe("palette", id)
		if !ok {
			continue
		}
		sub := ev.paletteFor(rec, kind, inProgress)
		subs[id] = sub
		for sym := range sub {
			syms[sym] = true
		}
	}

	out := loot.Palette{}
	for sym := range syms {
		entries := make([]loot.Weighted2, 0, len(subs))
		for id, sub := range subs {
			entries = append(entries, loot.Weighted2{Table: sub[sym], Weight: dist[id]})
		}
		// Weight mass lost to unresolvable ids stays lost: MergeTables
		// normalizes over the weights it is given, so pad with an empty
		// alternative carrying the missing probability.
		total := 0.0
		for _, e := range entries {
			total += e.Weight
		}
		if total < 1 {
			entries = append(entries, loot.Weighted2{Table: nil, Weight: 1 - total})
		}
		out[sym] = loot.MergeTables(entries)
	}
	return out
}

// mergePaletteInto folds src into dst symbol-by-symbol via independent
// rolls.
func mergePaletteInto(dst loot.Palette, src loot.Palette) {
	for sym, t := range src {
		if existing, ok := dst[sym]; ok {
			dst[sym] = loot.AddTables(existing, t)
		} else {
			dst[sym] = t
		}
	}
}

// mergeSymbolInto folds one table into dst under the first codepoint of
// sym. Multi-codepoint mapping keys are malformed and skipped.
func mergeSymbolInto(dst loot.Palette, sym string, t loot.Table) {
	runes := []rune(sym)
	if len(runes) != 1 || len(t) == 0 {
		return
	}
	r := runes[0]
	if existing, ok := dst[r]; ok {
		dst[r] = loot.AddTables(existing, t)
	} else {
		dst[r] = t
	}
}

// entryObjects normalizes a mapping value to its list of entry objects:
// a single object stands alone, an array contributes each object
// element.
func entryObjects(raw any) []map[string]any {
	switch t := raw.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func listOf(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}
