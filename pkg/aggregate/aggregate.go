package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/contentguide/pkg/inherit"
	"github.com/dshills/contentguide/pkg/loot"
	"github.com/dshills/contentguide/pkg/mapgen"
	"github.com/dshills/contentguide/pkg/memo"
	"github.com/dshills/contentguide/pkg/schedule"
	"github.com/dshills/contentguide/pkg/store"
)

// UnknownAppearance is the per-tile sentinel used when a ground tile's
// overmap-terrain record cannot be resolved.
const UnknownAppearance = "?"

var directionSuffixes = []string{"_north", "_south", "_east", "_west"}

type specialKey struct {
	id   string
	kind mapgen.Kind
}

// Aggregator computes whole-location distributions for overmap-specials.
// It owns a per-(special, kind) cache that lives as long as the corpus
// it was built against.
type Aggregator struct {
	store     *store.Store
	flattener *inherit.Flattener
	evaluator *mapgen.Evaluator

	specials *memo.Cache[specialKey, loot.Table]
}

// New creates an Aggregator.
func New(s *store.Store, fl *inherit.Flattener, ev *mapgen.Evaluator) *Aggregator {
	return &Aggregator{
		store:     s,
		flattener: fl,
		evaluator: ev,
		specials:  memo.NewCache[specialKey, loot.Table](),
	}
}

// ForSpecial computes the kind distribution of one overmap-special: for
// each ground-level tile, the weighted merge of its overmap-terrain's
// mapgen variants, then independent combination across tiles — "at
// least one in any of its tiles". Specials of subtype `mutable` are
// opaque and yield an empty table. The traversal relinquishes at each
// overmap boundary and abandons its result if guard reports the corpus
// moved.
func (a *Aggregator) ForSpecial(ctx context.Context, y schedule.Yielder, guard *schedule.Guard, omsID string, kind mapgen.Kind) (loot.Table, error) {
	key := specialKey{id: omsID, kind: kind}
	if cached, ok := a.specials.Get(key); ok {
		return *cached, nil
	}

	flat, err := a.flattener.FlattenById("overmap_special", omsID)
	if err != nil {
		return nil, fmt.Errorf("aggregate: special %q: %w", omsID, err)
	}

	if flat.GetString("subtype") == "mutable" {
		empty := loot.NewTable()
		a.specials.Set(key, &empty)
		return empty, nil
	}

	result := loot.NewTable()
	for _, omtID := range groundTerrains(flat) {
		result = loot.AddTables(result, a.evaluator.ForOmt(omtID, kind))

		if err := schedule.Relinquish(ctx, y, guard); err != nil {
			return nil, err
		}
	}

	a.specials.Set(key, &result)
	return result, nil
}

// Appearance returns the special's appearance key: the concatenation of
// sym, color, and name of each ground tile's overmap-terrain, with a
// sentinel for tiles whose terrain is unknown.
func (a *Aggregator) Appearance(omsID string) (string, error) {
	flat, err := a.flattener.FlattenById("overmap_special", omsID)
	if err != nil {
		return "", fmt.Errorf("aggregate: special %q: %w", omsID, err)
	}

	parts := make([]string, 0, 8)
	for _, omtID := range groundTerrains(flat) {
		parts = append(parts, a.terrainAppearance(omtID))
	}
	return strings.Join(parts, ";"), nil
}

// GroupByAppearance buckets every overmap-special by appearance key, the
// ids inside each bucket sorted lexicographically so the grouping is
// itself deterministic. Relinquishes at each per-special boundary.
func (a *Aggregator) GroupByAppearance(ctx context.Context, y schedule.Yielder, guard *schedule.Guard) (map[string][]string, error) {
	groups := map[string][]string{}
	for _, rec := range a.store.ByType("overmap_special") {
		appearance, err := a.Appearance(rec.Key)
		if err != nil {
			continue
		}
		groups[appearance] = append(groups[appearance], rec.Key)

		if err := schedule.Relinquish(ctx, y, guard); err != nil {
			return nil, err
		}
	}

	for _, ids := range groups {
		sort.Strings(ids)
	}
	return groups, nil
}

// terrainAppearance renders one overmap-terrain's sym/color/name triple.
func (a *Aggregator) terrainAppearance(omtID string) string {
	flat, err := a.flattener.FlattenById("overmap_terrain", omtID)
	if err != nil {
		return UnknownAppearance
	}

	sym := appearanceField(flat, "sym")
	color := appearanceField(flat, "color")
	name := appearanceField(flat, "name")
	if sym == "" && color == "" && name == "" {
		return UnknownAppearance
	}
	return sym + "|" + color + "|" + name
}

// appearanceField renders a field that may be a string, a number (sym
// as a codepoint), or a {str: ...} translation object.
func appearanceField(flat *inherit.Flat, field string) string {
	v, ok := flat.Get(field)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return string(rune(int(t)))
	case map[string]any:
		s, _ := t["str"].(string)
		return s
	default:
		return ""
	}
}

// groundTerrains extracts the overmap-terrain ids of the special's
// ground-level (z == 0) tiles, with directional suffixes stripped.
func groundTerrains(flat *inherit.Flat) []string {
	var out []string
	for _, raw := range flat.GetList("overmaps") {
		e, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if z, ok := pointZ(e["point"]); !ok || z != 0 {
			continue
		}
		id, _ := e["overmap"].(string)
		if id == "" {
			continue
		}
		out = append(out, StripDirection(id))
	}
	return out
}

// StripDirection removes a trailing _north/_south/_east/_west rotation
// suffix from an overmap id.
func StripDirection(id string) string {
	for _, suffix := range directionSuffixes {
		if strings.HasSuffix(id, suffix) {
			return strings.TrimSuffix(id, suffix)
		}
	}
	return id
}

func pointZ(v any) (int, bool) {
	p, ok := v.([]any)
	if !ok || len(p) != 3 {
		return 0, false
	}
	z, ok := toFloat(p[2])
	if !ok {
		return 0, false
	}
	return int(z), true
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
