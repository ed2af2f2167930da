package requirement

import (
	"fmt"

	"github.com/dshills/contentguide/pkg/inherit"
	"github.com/dshills/contentguide/pkg/store"
)

// Alternative is one disjunct of a component or tool requirement: any one
// of the alternatives at its listed count satisfies the requirement.
type Alternative struct {
	ID    string
	Count int
}

// QualityReq is one required tool quality at a minimum level.
type QualityReq struct {
	ID    string
	Level int
}

// Requirement is the fully expanded components/qualities/tools needed to
// build or disassemble something. Components and Tools are
// parallel arrays of alternative-groups: every group must be satisfied,
// and within a group any one alternative suffices.
type Requirement struct {
	Components [][]Alternative
	Qualities  []QualityReq
	Tools      [][]Alternative
}

// Resolver expands requirement records, following `using` indirection and
// substituting tool alternatives that share a tool's `sub` field.
type Resolver struct {
	store     *store.Store
	flattener *inherit.Flattener
}

// New creates a Resolver.
func New(s *store.Store, fl *inherit.Flattener) *Resolver {
	return &Resolver{store: s, flattener: fl}
}

// ResolveById flattens and fully resolves the requirement registered under
// key, including `using` indirection and tool substitution.
func (r *Resolver) ResolveById(key string) (*Requirement, error) {
	flat, err := r.flattener.FlattenById("requirement", key)
	if err != nil {
		return nil, fmt.Errorf("requirement: %w", err)
	}
	return r.Resolve(flat)
}

// Resolve expands an already-flattened requirement Flat, substituting
// `using` references and `sub`-matched tool alternatives.
func (r *Resolver) Resolve(flat *inherit.Flat) (*Requirement, error) {
	req, err := r.expand(flat, map[string]bool{})
	if err != nil {
		return nil, err
	}
	r.substituteTools(req)
	return req, nil
}

// expand reads components/qualities/tools off flat and folds in every
// `using` reference, scaling the referenced requirement's own
// components/tools by the listed multiplier. visiting guards against a
// `using` cycle.
func (r *Resolver) expand(flat *inherit.Flat, visiting map[string]bool) (*Requirement, error) {
	req := &Requirement{}

	for _, raw := range flat.GetList("components") {
		if alts := parseAltGroup(raw); len(alts) > 0 {
			req.Components = append(req.Components, alts)
		}
	}
	for _, raw := range flat.GetList("qualities") {
		if q, ok := parseQuality(raw); ok {
			req.Qualities = append(req.Qualities, q)
		}
	}
	for _, raw := range flat.GetList("tools") {
		if alts := parseAltGroup(raw); len(alts) > 0 {
			req.Tools = append(req.Tools, alts)
		}
	}

	for _, raw := range flat.GetList("using") {
		usingID, mult, ok := parseUsing(raw)
		if !ok || visiting[usingID] {
			continue
		}

		subFlat, err := r.flattener.FlattenById("requirement", usingID)
		if err != nil {
			continue
		}

		visiting[usingID] = true
		sub, err := r.expand(subFlat, visiting)
		delete(visiting, usingID)
		if err != nil {
			return nil, err
		}

		req.Components = append(req.Components, scaleGroups(sub.Components, mult)...)
		req.Tools = append(req.Tools, scaleGroups(sub.Tools, mult)...)
		req.Qualities = append(req.Qualities, sub.Qualities...)
	}

	return req, nil
}

// substituteTools widens every tool alternative-group with any item that
// shares the same `sub` (tool subtype) field as one of its existing
// alternatives: tool substitution matches on subtype.
func (r *Resolver) substituteTools(req *Requirement) {
	allItems := r.store.ByType("item")

	for gi, group := range req.Tools {
		seen := map[string]bool{}
		for _, alt := range group {
			seen[alt.ID] = true
		}

		var additions []Alternative
		for _, alt := range group {
			sub := r.toolSub(alt.ID)
			if sub == "" {
				continue
			}
			for _, candidate := range allItems {
				if seen[candidate.Key] {
					continue
				}
				candFlat := r.flattener.Flatten(candidate)
				if candFlat.GetString("sub") == sub {
					additions = append(additions, Alternative{ID: candidate.Key, Count: alt.Count})
					seen[candidate.Key] = true
				}
			}
		}
		req.Tools[gi] = append(group, additions...)
	}
}

func (r *Resolver) toolSub(itemID string) string {
	flat, err := r.flattener.FlattenById("item", itemID)
	if err != nil || flat == nil {
		return ""
	}
	return flat.GetString("sub")
}

// FilterRecoverable removes component alternatives whose resolved item
// carries the UNRECOVERABLE flag, used when computing disassembly
// yield. Qualities and tools are untouched — only material components
// are ever unrecoverable.
func (r *Resolver) FilterRecoverable(req *Requirement) *Requirement {
	out := &Requirement{
		Qualities: req.Qualities,
		Tools:     req.Tools,
	}

	for _, group := range req.Components {
		var kept []Alternative
		for _, alt := range group {
			flat, err := r.flattener.FlattenById("item", alt.ID)
			if err == nil && flat.HasFlag("UNRECOVERABLE") {
				continue
			}
			kept = append(kept, alt)
		}
		if len(kept) > 0 {
			out.Components = append(out.Components, kept)
		}
	}

	return out
}

func parseAltGroup(raw any) []Alternative {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []Alternative
	for _, item := range list {
		if alt, ok := parseAlt(item); ok {
			out = append(out, alt)
		}
	}
	return out
}

func parseAlt(raw any) (Alternative, bool) {
	switch t := raw.(type) {
	case []any:
		if len(t) < 1 {
			return Alternative{}, false
		}
		id, _ := t[0].(string)
		count := 1
		if len(t) > 1 {
			if f, ok := toFloat(t[1]); ok {
				count = int(f)
			}
		}
		if id == "" {
			return Alternative{}, false
		}
		return Alternative{ID: id, Count: count}, true
	case map[string]any:
		id, _ := t["id"].(string)
		if id == "" {
			id, _ = t["item"].(string)
		}
		if id == "" {
			return Alternative{}, false
		}
		count := 1
		if v, ok := t["count"]; ok {
			if f, ok := toFloat(v); ok {
				count = int(f)
			}
		}
		return Alternative{ID: id, Count: count}, true
	default:
		return Alternative{}, false
	}
}

func parseQuality(raw any) (QualityReq, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return QualityReq{}, false
	}
	id, _ := m["id"].(string)
	if id == "" {
		return QualityReq{}, false
	}
	level := 1
	if v, ok := m["level"]; ok {
		if f, ok := toFloat(v); ok {
			level = int(f)
		}
	}
	return QualityReq{ID: id, Level: level}, true
}

func parseUsing(raw any) (id string, mult int, ok bool) {
	switch t := raw.(type) {
	case []any:
		if len(t) < 1 {
			return "", 0, false
		}
		id, _ = t[0].(string)
		mult = 1
		if len(t) > 1 {
			if f, ok := toFloat(t[1]); ok {
				mult = int(f)
			}
		}
		return id, mult, id != ""
	case map[string]any:
		id, _ = t["requirement"].(string)
		mult = 1
		if v, ok := t["count"]; ok {
			if f, ok := toFloat(v); ok {
				mult = int(f)
			}
		}
		return id, mult, id != ""
	default:
		return "", 0, false
	}
}

func scaleGroups(groups [][]Alternative, mult int) [][]Alternative {
	out := make([][]Alternative, len(groups))
	for i, g := range groups {
		scaled := make([]Alternative, len(g))
		for j, a := range g {
			scaled[j] = Alternative{ID: a.ID, Count: a.Count * mult}
		}
		out[i] = scaled
	}
	return out
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
