package store

import "fmt"

// canonicalFamily collapses a raw `type` tag onto the broad family it
// belongs to. Several item sub-tags (weapon, armor, tool, ...) all read
// and write through the same `item` machinery downstream, so the store
// indexes them together.
var canonicalFamily = map[string]string{
	"weapon":      "item",
	"armor":       "item",
	"tool":        "item",
	"tool_armor":  "item",
	"comestible":  "item",
	"book":        "item",
	"container":   "item",
	"gun":         "item",
	"gunmod":      "item",
	"magazine":    "item",
	"ammunition":  "item",
	"bionic_item": "item",
	"generic":     "item",
	"pet_armor":   "item",
	"wheel":       "item",
	"engine":      "item",

	"recipe":  "recipe",
	"uncraft": "recipe",
}

// CanonicalType returns the family a raw type tag resolves to. Types not
// present in the table pass through unchanged.
func CanonicalType(rawType string) string {
	if canon, ok := canonicalFamily[rawType]; ok {
		return canon
	}
	return rawType
}

// Record is one flattened-free (raw) entry loaded from the corpus. Fields
// holds every JSON field the raw record carried, including inheritance
// directives (`copy-from`, `relative`, ...); the Store never interprets
// them beyond extracting identity. Record is an open-extension
// representation: the Flattener and per-family facades
// (pkg/mapgen, pkg/itemgroup, pkg/requirement) read Fields directly rather
// than through a closed struct hierarchy.
type Record struct {
	Type          string
	CanonicalType string
	Key           string
	Abstract      bool
	Fields        map[string]any

	// seq is the Store-global insertion sequence number, used to break
	// ties when a caller needs a stable total order across types (e.g.
	// All()).
	seq int
}

// String returns a human-readable identifier for the record, useful in
// error messages and logs.
func (r *Record) String() string {
	if r == nil {
		return "<nil record>"
	}
	kind := "concrete"
	if r.Abstract {
		kind = "abstract"
	}
	return fmt.Sprintf("%s:%s (%s, type=%s)", r.CanonicalType, r.Key, kind, r.Type)
}

// Get returns a raw field by name and whether it was present.
func (r *Record) Get(field string) (any, bool) {
	if r == nil || r.Fields == nil {
		return nil, false
	}
	v, ok := r.Fields[field]
	return v, ok
}

// GetString returns a string field, or "" if absent or not a string.
func (r *Record) GetString(field string) string {
	v, ok := r.Get(field)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetStringList returns a field as a list of strings, accepting either a
// bare string (treated as a single-element list) or a JSON array of
// strings. Non-string elements are skipped.
func (r *Record) GetStringList(field string) []string {
	v, ok := r.Get(field)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// HasField reports whether field is present on the record at all,
// distinguishing "absent" from "present but zero value" — needed by the
// Flattener's `delete` modifier and by facades checking for optional
// blocks.
func (r *Record) HasField(field string) bool {
	_, ok := r.Get(field)
	return ok
}

// extractKeys derives the primary key(s) a raw record registers under,
// and whether the record is abstract. Precedence: an
// explicit `abstract` field always wins (it marks a template regardless
// of type family); otherwise `id` (string or list, each element
// registered separately under the same record); otherwise `result`
// (recipes); otherwise `om_terrain` (mapgen, which may be a string, a
// list, or a 2D grid of strings — every distinct id found is returned,
// since overmap-terrain ids may have several coexisting mapgen variants
// rather than one key per record); otherwise `name`.
func extractKeys(fields map[string]any) (keys []string, abstract bool) {
	if v, ok := fields["abstract"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}, true
		}
	}

	if v, ok := fields["id"]; ok {
		if ks := stringOrList(v); len(ks) > 0 {
			return ks, false
		}
	}

	if v, ok := fields["result"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}, false
		}
	}

	if v, ok := fields["om_terrain"]; ok {
		if ks := flattenOmTerrain(v); len(ks) > 0 {
			return ks, false
		}
	}

	if v, ok := fields["name"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}, false
		}
	}

	return nil, false
}

func stringOrList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// flattenOmTerrain collects every distinct id string out of an om_terrain
// value, whatever shape it takes: a bare string, a flat list, or a 2D
// grid (list of lists).
func flattenOmTerrain(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		seen := make(map[string]bool)
		for _, e := range t {
			for _, s := range flattenOmTerrain(e) {
				if !seen[s] {
					seen[s] = true
					out = append(out, s)
				}
			}
		}
		return out
	default:
		return nil
	}
}
