package inherit

import (
	"reflect"

	"github.com/dshills/contentguide/pkg/units"
)

// unitFamily records which dimensioned-string parser/formatter pair a
// field name uses, so `relative`/`proportional` can add or multiply the
// parsed magnitude and re-render it in the same unit the value already
// carried.
type unitFamily int

const (
	unitNone unitFamily = iota
	unitMass
	unitVolume
)

var fieldUnitFamily = map[string]unitFamily{
	"weight": unitMass,
	"volume": unitVolume,
}

// applyModifiers mutates base in place, applying child's direct field
// overrides first, then its relative, proportional, extend, and delete
// directives in that order.
func applyModifiers(base map[string]any, child map[string]any) {
	reserved := map[string]bool{
		"copy-from": true, "relative": true, "proportional": true,
		"extend": true, "delete": true,
	}

	for k, v := range child {
		if reserved[k] {
			continue
		}
		base[k] = v
	}

	if rel, ok := child["relative"].(map[string]any); ok {
		for field, delta := range rel {
			applyRelative(base, field, delta)
		}
	}

	if prop, ok := child["proportional"].(map[string]any); ok {
		for field, factor := range prop {
			applyProportional(base, field, factor)
		}
	}

	if ext, ok := child["extend"].(map[string]any); ok {
		for field, added := range ext {
			applyExtend(base, field, added)
		}
	}

	if del, ok := child["delete"].(map[string]any); ok {
		for field, removed := range del {
			applyDelete(base, field, removed)
		}
	}
}

func applyRelative(base map[string]any, field string, delta any) {
	current, exists := base[field]
	if !exists {
		base[field] = delta
		return
	}

	if merged, ok := mergeDamageList(current, delta, true); ok {
		base[field] = merged
		return
	}
	if merged, ok := mergeQualityList(current, delta, true); ok {
		base[field] = merged
		return
	}
	if merged, ok := addNumericOrDimensioned(field, current, delta); ok {
		base[field] = merged
		return
	}
	// Unknown shape: leave untouched.
}

func applyProportional(base map[string]any, field string, factor any) {
	current, exists := base[field]
	if !exists {
		return
	}

	f, ok := toFloat(factor)
	if !ok {
		return
	}

	if merged, ok := scaleNumericOrDimensioned(field, current, f); ok {
		base[field] = merged
		return
	}
	// Unknown shape: leave untouched.
}

func applyExtend(base map[string]any, field string, added any) {
	addedList, ok := added.([]any)
	if !ok {
		return
	}
	existing, _ := base[field].([]any)
	base[field] = append(append([]any{}, existing...), addedList...)
}

func applyDelete(base map[string]any, field string, removed any) {
	if removedList, ok := removed.([]any); ok {
		existing, ok := base[field].([]any)
		if !ok {
			return
		}
		out := make([]any, 0, len(existing))
		for _, e := range existing {
			keep := true
			for _, r := range removedList {
				if reflect.DeepEqual(e, r) {
					keep = false
					break
				}
			}
			if keep {
				out = append(out, e)
			}
		}
		base[field] = out
		return
	}
	delete(base, field)
}

// addNumericOrDimensioned adds delta to current, treating both as plain
// numbers or as dimensioned strings of the field's unit family.
func addNumericOrDimensioned(field string, current, delta any) (any, bool) {
	family := fieldUnitFamily[field]

	if cs, ok := current.(string); ok && family != unitNone {
		base, err := parseByFamily(family, cs)
		if err != nil {
			return nil, false
		}
		df, ok := dimensionedDelta(family, delta)
		if !ok {
			return nil, false
		}
		return formatByFamily(family, cs, base+df), true
	}

	cf, ok1 := toFloat(current)
	df, ok2 := toFloat(delta)
	if ok1 && ok2 {
		return cf + df, true
	}
	return nil, false
}

func scaleNumericOrDimensioned(field string, current any, factor float64) (any, bool) {
	family := fieldUnitFamily[field]

	if cs, ok := current.(string); ok && family != unitNone {
		base, err := parseByFamily(family, cs)
		if err != nil {
			return nil, false
		}
		return formatByFamily(family, cs, base*factor), true
	}

	cf, ok := toFloat(current)
	if !ok {
		return nil, false
	}
	return cf * factor, true
}

// dimensionedDelta interprets delta either as a dimensioned string in
// the same family, or as a bare number in the family's default display
// unit: grams for mass, milliliters for volume. A bare relative delta
// of 500 against "1 kg" means 500 g, not 500 of the internal base unit.
func dimensionedDelta(family unitFamily, delta any) (float64, bool) {
	if s, ok := delta.(string); ok {
		v, err := parseByFamily(family, s)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	f, ok := toFloat(delta)
	if !ok {
		return 0, false
	}
	switch family {
	case unitMass:
		return f * units.GramMilligrams, true
	default:
		return f, true
	}
}

func parseByFamily(family unitFamily, s string) (float64, error) {
	switch family {
	case unitMass:
		return units.ParseMass(s)
	case unitVolume:
		return units.ParseVolume(s)
	default:
		return units.ParseNumeric(s)
	}
}

func formatByFamily(family unitFamily, reference string, value float64) string {
	switch family {
	case unitMass:
		return units.FormatMassLike(reference, value)
	case unitVolume:
		return units.FormatVolumeLike(reference, value)
	default:
		return reference
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// mergeDamageList merges two damage-instance lists by `damage_type`,
// summing `amount` and `armor_penetration`. Returns
// ok=false if either side isn't shaped like a damage-instance list.
func mergeDamageList(current, delta any, additive bool) (any, bool) {
	curList, ok := current.([]any)
	if !ok {
		return nil, false
	}
	deltaList, ok := delta.([]any)
	if !ok {
		return nil, false
	}
	if !looksLikeDamageList(curList) || !looksLikeDamageList(deltaList) {
		return nil, false
	}

	byType := map[string]map[string]any{}
	order := make([]string, 0, len(curList))
	for _, e := range curList {
		m, _ := e.(map[string]any)
		dt, _ := m["damage_type"].(string)
		clone := make(map[string]any, len(m))
		for k, v := range m {
			clone[k] = v
		}
		byType[dt] = clone
		order = append(order, dt)
	}

	for _, e := range deltaList {
		m, _ := e.(map[string]any)
		dt, _ := m["damage_type"].(string)
		existing, found := byType[dt]
		if !found {
			clone := make(map[string]any, len(m))
			for k, v := range m {
				clone[k] = v
			}
			byType[dt] = clone
			order = append(order, dt)
			continue
		}
		for _, field := range []string{"amount", "armor_penetration"} {
			a, _ := toFloat(existing[field])
			b, _ := toFloat(m[field])
			if !additive {
				a = b
			} else {
				a += b
			}
			existing[field] = a
		}
	}

	out := make([]any, 0, len(order))
	for _, dt := range order {
		out = append(out, byType[dt])
	}
	return out, true
}

func looksLikeDamageList(list []any) bool {
	if len(list) == 0 {
		return false
	}
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := m["damage_type"]; !ok {
			return false
		}
	}
	return true
}

// mergeQualityList merges `[qualityId, level]` tuples by id, summing
// level.
func mergeQualityList(current, delta any, additive bool) (any, bool) {
	curList, ok := current.([]any)
	if !ok {
		return nil, false
	}
	deltaList, ok := delta.([]any)
	if !ok {
		return nil, false
	}
	if !looksLikeQualityList(curList) || !looksLikeQualityList(deltaList) {
		return nil, false
	}

	levels := map[string]float64{}
	order := make([]string, 0, len(curList))
	for _, e := range curList {
		pair, _ := e.([]any)
		id, _ := pair[0].(string)
		level, _ := toFloat(pair[1])
		levels[id] = level
		order = append(order, id)
	}
	for _, e := range deltaList {
		pair, _ := e.([]any)
		id, _ := pair[0].(string)
		level, _ := toFloat(pair[1])
		if _, found := levels[id]; !found {
			order = append(order, id)
		}
		if additive {
			levels[id] += level
		} else {
			levels[id] = level
		}
	}

	out := make([]any, 0, len(order))
	for _, id := range order {
		out = append(out, []any{id, levels[id]})
	}
	return out, true
}

func looksLikeQualityList(list []any) bool {
	if len(list) == 0 {
		return false
	}
	for _, e := range list {
		pair, ok := e.([]any)
		if !ok || len(pair) != 2 {
			return false
		}
		if _, ok := pair[0].(string); !ok {
			return false
		}
	}
	return true
}
