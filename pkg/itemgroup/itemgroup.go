package itemgroup

import (
	"fmt"

	"github.com/dshills/contentguide/pkg/inherit"
	"github.com/dshills/contentguide/pkg/loot"
	"github.com/dshills/contentguide/pkg/store"
)

// Entry is one flattened item-group result: an item id, the count range it
// places in, and the probability/expected-count it carries once every
// ancestor group's probability (or distribution weight) has been folded in.
type Entry struct {
	ID      string
	CountLo int
	CountHi int
	Chance  loot.Chance
}

// Resolver expands item-group records against a Store/Flattener pair,
// attaching default containers and substituting nested group references.
type Resolver struct {
	store     *store.Store
	flattener *inherit.Flattener
}

// New creates a Resolver.
func New(s *store.Store, fl *inherit.Flattener) *Resolver {
	return &Resolver{store: s, flattener: fl}
}

// ExpandById flattens and expands the item_group registered under key.
func (r *Resolver) ExpandById(key string) ([]Entry, error) {
	flat, err := r.flattener.FlattenById("item_group", key)
	if err != nil {
		return nil, fmt.Errorf("itemgroup: %w", err)
	}
	return r.Expand(flat)
}

// Expand flattens an already-resolved item_group Flat into a list of
// Entry in first-seen insertion order, deduplicated by id with later
// occurrences combined independently.
func (r *Resolver) Expand(group *inherit.Flat) ([]Entry, error) {
	acc := newAccum()
	if err := r.expandGroup(group.GetString("subtype"), group.GetList("entries"), 0, acc); err != nil {
		return nil, err
	}
	return acc.list(), nil
}

// accum collects merged-by-id entries while remembering the order each
// id was first seen, so expansion output preserves insertion order.
type accum struct {
	entries map[string]Entry
	order   []string
}

func newAccum() *accum {
	return &accum{entries: map[string]Entry{}}
}

// add folds (id, lo, hi, c) into the accumulator, And-combining the
// probability with any existing entry for the same id and widening the
// count range.
func (a *accum) add(id string, lo, hi int, c loot.Chance) {
	if existing, ok := a.entries[id]; ok {
		if lo < existing.CountLo {
			existing.CountLo = lo
		}
		if hi > existing.CountHi {
			existing.CountHi = hi
		}
		existing.Chance = loot.And(existing.Chance, c)
		a.entries[id] = existing
		return
	}
	a.entries[id] = Entry{ID: id, CountLo: lo, CountHi: hi, Chance: c}
	a.order = append(a.order, id)
}

// mergeScaled folds sub into a, scaling every sub entry's Chance by p
// before combining, in sub's own insertion order.
func (a *accum) mergeScaled(sub *accum, p float64) {
	for _, id := range sub.order {
		e := sub.entries[id]
		a.add(id, e.CountLo, e.CountHi, loot.Scale(e.Chance, p))
	}
}

func (a *accum) list() []Entry {
	out := make([]Entry, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.entries[id])
	}
	return out
}

// expandGroup recursively expands one collection/distribution's entries
// list into acc. depth guards against runaway nested-group cycles.
func (r *Resolver) expandGroup(subtype string, entries []any, depth int, acc *accum) error {
	if depth > 64 {
		return nil
	}

	switch subtype {
	case "distribution":
		total := 0.0
		weights := make([]float64, len(entries))
		for i, raw := range entries {
			e, _ := raw.(map[string]any)
			weights[i] = entryWeight(e)
			total += weights[i]
		}
		if total <= 0 {
			return nil
		}
		for i, raw := range entries {
			e, _ := raw.(map[string]any)
			p := weights[i] / total
			if err := r.expandEntry(e, p, depth, acc); err != nil {
				return err
			}
		}
	default: // "collection" and unspecified default to independent-probability
		for _, raw := range entries {
			e, _ := raw.(map[string]any)
			p := entryProb(e)
			if err := r.expandEntry(e, p, depth, acc); err != nil {
				return err
			}
		}
	}

	return nil
}

// expandEntry handles one entry object: a bare item, a reference to
// another named group, or an anonymous inline nested group. p is the
// probability this entry fires, already folded in from the parent scope.
func (r *Resolver) expandEntry(e map[string]any, p float64, depth int, acc *accum) error {
	if e == nil {
		return nil
	}

	if id, ok := e["item"].(string); ok && id != "" {
		lo, hi := entryCount(e)
		c := loot.Chance{Prob: p, Expected: p * float64(lo+hi) / 2}
		acc.add(id, lo, hi, c)

		if container, ok := e["container-item"].(string); ok && container != "" {
			acc.add(container, 1, 1, c)
		}
		if def := r.defaultContainer(id); def != "" {
			acc.add(def, 1, 1, c)
		}
		return nil
	}

	if groupID, ok := e["group"].(string); ok && groupID != "" {
		nested, err := r.flattener.FlattenById("item_group", groupID)
		if err != nil {
			// A dangling group reference contributes nothing rather than
			// failing the whole expansion.
			return nil
		}
		sub := newAccum()
		if err := r.expandGroup(nested.GetString("subtype"), nested.GetList("entries"), depth+1, sub); err != nil {
			return err
		}
		acc.mergeScaled(sub, p)
		return nil
	}

	if subtype, ok := e["collection"]; ok {
		list, _ := subtype.([]any)
		sub := newAccum()
		if err := r.expandGroup("collection", list, depth+1, sub); err != nil {
			return err
		}
		acc.mergeScaled(sub, p)
		return nil
	}
	if subtype, ok := e["distribution"]; ok {
		list, _ := subtype.([]any)
		sub := newAccum()
		if err := r.expandGroup("distribution", list, depth+1, sub); err != nil {
			return err
		}
		acc.mergeScaled(sub, p)
		return nil
	}

	return nil
}

// defaultContainer returns the item's own `container` field, if its
// flattened record has one, so a resolved item implicitly carries its
// canonical container even when the group entry didn't spell out
// container-item.
func (r *Resolver) defaultContainer(itemID string) string {
	flat, err := r.flattener.FlattenById("item", itemID)
	if err != nil || flat == nil {
		return ""
	}
	return flat.GetString("container")
}

func entryProb(e map[string]any) float64 {
	if e == nil {
		return 1
	}
	if v, ok := e["prob"]; ok {
		if f, ok := toFloat(v); ok {
			return f / 100
		}
	}
	return 1
}

func entryWeight(e map[string]any) float64 {
	if e == nil {
		return 0
	}
	if v, ok := e["weight"]; ok {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return 100
}

func entryCount(e map[string]any) (int, int) {
	if v, ok := e["count"]; ok {
		switch t := v.(type) {
		case []any:
			if len(t) == 2 {
				lo, _ := toFloat(t[0])
				hi, _ := toFloat(t[1])
				if lo > hi {
					lo, hi = hi, lo
				}
				return int(lo), int(hi)
			}
		default:
			if f, ok := toFloat(v); ok {
				return int(f), int(f)
			}
		}
	}
	return 1, 1
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	return 0, false
}
