package mapgen

import (
	"github.com/dshills/contentguide/pkg/loot"
	"github.com/dshills/contentguide/pkg/store"
)

// itemSpecTable evaluates one single-item spec: {item: <value>, amount?,
// chance?, repeat?}. Probability is chance/100 capped at 1; excess
// chance raises the expected count instead.
func (ev *Evaluator) itemSpecTable(e map[string]any, scope *Scope) loot.Table {
	dist := ResolveValue(e["item"], scope)
	if len(dist) == 0 {
		return nil
	}

	raw := chanceFraction(e)
	prob := raw
	if prob > 1 {
		prob = 1
	}
	lo, hi := intRange(e["amount"], 1)
	avg := float64(lo+hi) / 2

	t := loot.NewTable()
	for id, p := range dist {
		t[id] = loot.Chance{Prob: prob * p, Expected: raw * avg * p}
	}

	n0, n1 := intRange(e["repeat"], 1)
	return loot.RepeatTable(t, n0, n1)
}

// groupSpecTable evaluates one item-group spec: {item|group: groupID,
// chance?, repeat?}. The group expands through the item-group flattener
// and every resulting entry scales by chance/100.
func (ev *Evaluator) groupSpecTable(e map[string]any) loot.Table {
	groupID, _ := e["item"].(string)
	if groupID == "" {
		groupID, _ = e["group"].(string)
	}
	if groupID == "" {
		return nil
	}

	entries, err := ev.groups.ExpandById(groupID)
	if err != nil {
		// Dangling group references contribute nothing.
		return nil
	}

	scale := chanceFraction(e)
	if scale > 1 {
		scale = 1
	}

	t := loot.NewTable()
	for _, entry := range entries {
		c := loot.Scale(entry.Chance, scale)
		if existing, ok := t[entry.ID]; ok {
			c = loot.And(existing, c)
		}
		t[entry.ID] = c
	}

	n0, n1 := intRange(e["repeat"], 1)
	return loot.RepeatTable(t, n0, n1)
}

// sealedItemTable evaluates the item-bearing half of a sealed_item
// entry: {furniture: id, item: {...}, items: {...}}. The furniture half
// is the furniture evaluator's concern.
func (ev *Evaluator) sealedItemTable(e map[string]any, scope *Scope) loot.Table {
	out := loot.NewTable()
	for _, inner := range entryObjects(e["item"]) {
		out = loot.AddTables(out, ev.itemSpecTable(inner, scope))
	}
	for _, inner := range entryObjects(e["items"]) {
		out = loot.AddTables(out, ev.groupSpecTable(inner))
	}
	return out
}

// valueTable reduces a mapgen value to a Table where each alternative id
// appears with its selection probability — the alternative strategy's
// exclusive-choice semantics.
func valueTable(v any, scope *Scope) loot.Table {
	dist := ResolveValue(v, scope)
	if len(dist) == 0 {
		return nil
	}
	t := make(loot.Table, len(dist))
	for id, p := range dist {
		t[id] = loot.Chance{Prob: p, Expected: p}
	}
	return t
}

// weightedChunk is one nested-chunk alternative: a nested mapgen id (or
// "null") and its selection weight.
type weightedChunk struct {
	id     string
	weight float64
}

// nestedTable evaluates one nested-chunk entry: {chunks?, else_chunks?,
// neighbors?, connections?, joins?, repeat?}. When any condition field
// is set, the two branches become 50/50 alternatives with else_chunks
// rescaled so both branches carry equal total weight; an empty branch is
// padded with a null chunk of the opposite branch's weight. Without
// conditions, chunks wins outright when present.
func (ev *Evaluator) nestedTable(e map[string]any, kind Kind, scope *Scope, inProgress map[*store.Record]bool) loot.Table {
	chunks := parseChunks(e["chunks"])
	elseChunks := parseChunks(e["else_chunks"])

	conditional := false
	for _, cond := range []string{"neighbors", "connections", "joins"} {
		if _, ok := e[cond]; ok {
			conditional = true
			break
		}
	}

	var combined []weightedChunk
	switch {
	case conditional:
		chunkTotal := chunkWeight(chunks)
		elseTotal := chunkWeight(elseChunks)
		if len(chunks) == 0 {
			chunks = []weightedChunk{{id: "null", weight: elseTotal}}
			chunkTotal = elseTotal
		}
		if len(elseChunks) == 0 {
			elseChunks = []weightedChunk{{id: "null", weight: chunkTotal}}
			elseTotal = chunkTotal
		}
		if elseTotal > 0 {
			factor := chunkTotal / elseTotal
			for i := range elseChunks {
				elseChunks[i].weight *= factor
			}
		}
		combined = append(chunks, elseChunks...)
	case len(chunks) > 0:
		combined = chunks
	default:
		combined = elseChunks
	}

	if len(combined) == 0 {
		return nil
	}

	alts := make([]loot.Weighted2, 0, len(combined))
	for _, c := range combined {
		var t loot.Table
		if c.id != "null" && c.id != "" {
			t = ev.evaluateNested(c.id, kind, inProgress)
		}
		alts = append(alts, loot.Weighted2{Table: t, Weight: c.weight})
	}

	n0, n1 := intRange(e["repeat"], 1)
	return loot.RepeatTable(loot.MergeTables(alts), n0, n1)
}

// evaluateNested resolves a nested mapgen id and evaluates it with the
// shared in-progress guard, so a chunk cycle degrades to empty loot
// rather than recursing forever.
func (ev *Evaluator) evaluateNested(id string, kind Kind, inProgress map[*store.Record]bool) loot.Table {
	variants := ev.mapgenVariants(id)
	if len(variants) == 0 {
		return nil
	}
	merged := make([]loot.Weighted2, 0, len(variants))
	for _, rec := range variants {
		merged = append(merged, loot.Weighted2{
			Table:  ev.evaluate(rec, kind, inProgress),
			Weight: mapgenWeight(rec),
		})
	}
	return loot.MergeTables(merged)
}

// mapgenVariants returns every concrete mapgen record registered under
// id, in registration order — coexisting variants of one
// overmap-terrain all contribute, weighted by their `weight` field.
func (ev *Evaluator) mapgenVariants(id string) []*store.Record {
	history := ev.store.History("mapgen", id)
	out := make([]*store.Record, 0, len(history))
	for _, rec := range history {
		if !rec.Abstract {
			out = append(out, rec)
		}
	}
	return out
}

// mapgenWeight reads a mapgen's declared variant weight, defaulting to
// 1000.
func mapgenWeight(rec *store.Record) float64 {
	if v, ok := rec.Get("weight"); ok {
		if w, ok := toFloat(v); ok && w > 0 {
			return w
		}
	}
	return 1000
}

func parseChunks(v any) []weightedChunk {
	list, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && s != "" {
			return []weightedChunk{{id: s, weight: 1}}
		}
		return nil
	}
	out := make([]weightedChunk, 0, len(list))
	for _, e := range list {
		switch t := e.(type) {
		case string:
			out = append(out, weightedChunk{id: t, weight: 1})
		case []any:
			if len(t) == 2 {
				id, _ := t[0].(string)
				w, ok := toFloat(t[1])
				if id != "" && ok && w > 0 {
					out = append(out, weightedChunk{id: id, weight: w})
				}
			}
		}
	}
	return out
}

func chunkWeight(chunks []weightedChunk) float64 {
	total := 0.0
	for _, c := range chunks {
		total += c.weight
	}
	return total
}

// chanceFraction reads an entry's `chance` percentage as a fraction,
// defaulting to 1 when absent. The result is deliberately uncapped;
// callers cap probability at 1 and let excess flow into expected count.
func chanceFraction(e map[string]any) float64 {
	v, ok := e["chance"]
	if !ok {
		return 1
	}
	f, ok := toFloat(v)
	if !ok {
		return 1
	}
	return f / 100
}

// intRange normalizes a count-like field: a bare number means [n, n], a
// one-element list [a] means [a, a], a two-element list is [lo, hi] with
// reversed bounds swapped. def is the value used when the field is
// absent or malformed.
func intRange(v any, def int) (int, int) {
	switch t := v.(type) {
	case nil:
		return def, def
	case []any:
		switch len(t) {
		case 1:
			if f, ok := toFloat(t[0]); ok {
				return int(f), int(f)
			}
		case 2:
			lo, ok1 := toFloat(t[0])
			hi, ok2 := toFloat(t[1])
			if ok1 && ok2 {
				if lo > hi {
					lo, hi = hi, lo
				}
				return int(lo), int(hi)
			}
		}
		return def, def
	default:
		if f, ok := toFloat(v); ok {
			return int(f), int(f)
		}
		return def, def
	}
}
