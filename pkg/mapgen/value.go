package mapgen

import "sort"

// Scope is a parameter lookup chain: a `{param: name}` value finds its
// default in the nearest scope that declares it. Mapgen objects and
// palettes both declare `parameters`; the Evaluator builds each one's
// scope from its own `parameters` with no parent, so a palette's scope
// does not see the enclosing mapgen's parameters.
type Scope struct {
	parent *Scope
	params map[string]any
}

// NewScope builds a Scope from a raw `parameters` field, chaining to
// parent. A nil or malformed field yields an empty scope that simply
// delegates upward.
func NewScope(parent *Scope, parameters any) *Scope {
	m, _ := parameters.(map[string]any)
	return &Scope{parent: parent, params: m}
}

// defaultValue returns the default mapgen value declared for the named
// parameter, walking outward through enclosing scopes.
func (s *Scope) defaultValue(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.params == nil {
			continue
		}
		p, ok := cur.params[name]
		if !ok {
			continue
		}
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if def, ok := pm["default"]; ok {
			return def, true
		}
	}
	return nil, false
}

// Distribution maps an id to the probability it is the selected value.
// Probabilities sum to at most 1; an empty Distribution means the value
// could not be resolved.
type Distribution map[string]float64

// ArgMax returns the most probable id, for point-estimate callers.
// Ties break lexicographically so the estimate is deterministic.
func (d Distribution) ArgMax() (string, bool) {
	if len(d) == 0 {
		return "", false
	}
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	best := ids[0]
	for _, id := range ids[1:] {
		if d[id] > d[best] {
			best = id
		}
	}
	return best, true
}

// ResolveValue reduces a mapgen value to a Distribution. A mapgen value
// may be: a plain id string; an array of alternatives (bare ids weighted
// equally, or [id, weight] pairs); a {ter: v} / {furn: v} tag; a switch
// with fallback; an explicit {distribution: [...]}; or a {param: name,
// fallback?: id} resolved against scope.
func ResolveValue(v any, scope *Scope) Distribution {
	out := make(Distribution)
	resolveInto(out, v, scope, 1, 0)
	return out
}

const maxValueDepth = 16

func resolveInto(out Distribution, v any, scope *Scope, p float64, depth int) {
	if depth > maxValueDepth || p <= 0 {
		return
	}

	switch t := v.(type) {
	case string:
		if t != "" {
			out[t] += p
		}

	case []any:
		resolveAlternatives(out, t, scope, p, depth)

	case map[string]any:
		if inner, ok := t["ter"]; ok {
			resolveInto(out, inner, scope, p, depth+1)
			return
		}
		if inner, ok := t["furn"]; ok {
			resolveInto(out, inner, scope, p, depth+1)
			return
		}
		if _, ok := t["switch"]; ok {
			// The switch condition depends on runtime state the analytic
			// evaluator cannot observe; the fallback is the only branch
			// it can price.
			resolveInto(out, t["fallback"], scope, p, depth+1)
			return
		}
		if dist, ok := t["distribution"]; ok {
			if list, ok := dist.([]any); ok {
				resolveAlternatives(out, list, scope, p, depth)
			}
			return
		}
		if name, ok := t["param"].(string); ok {
			if def, found := scopeDefault(scope, name); found {
				resolveInto(out, def, scope, p, depth+1)
				return
			}
			resolveInto(out, t["fallback"], scope, p, depth+1)
			return
		}
	}
}

// resolveAlternatives distributes p across a list of alternatives. Each
// element is a bare value at weight 1 or an [value, weight] pair.
func resolveAlternatives(out Distribution, list []any, scope *Scope, p float64, depth int) {
	type alt struct {
		value  any
		weight float64
	}

	alts := make([]alt, 0, len(list))
	total := 0.0
	for _, e := range list {
		a := alt{value: e, weight: 1}
		if pair, ok := e.([]any); ok && len(pair) == 2 {
			if w, ok := toFloat(pair[1]); ok {
				a = alt{value: pair[0], weight: w}
			}
		}
		if a.weight <= 0 {
			continue
		}
		alts = append(alts, a)
		total += a.weight
	}
	if total <= 0 {
		return
	}

	for _, a := range alts {
		resolveInto(out, a.value, scope, p*a.weight/total, depth+1)
	}
}

func scopeDefault(scope *Scope, name string) (any, bool) {
	if scope == nil {
		return nil, false
	}
	return scope.defaultValue(name)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
