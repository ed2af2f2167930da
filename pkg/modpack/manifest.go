package modpack

import "fmt"

// CoreID is the special mod id representing the base game corpus. It is
// never part of a dependency closure computation even if a mod lists it
// as a dependency, and it is always loaded first.
const CoreID = "core"

// RawRecord is one undecoded JSON object tagged with its `type` field,
// ready for registration into a store.Store.
type RawRecord struct {
	Type   string
	Fields map[string]any
}

// Source is one loadable record stream: the core corpus or a single mod.
// Dependencies lists other mod ids (by convention, never CoreID) that
// must load before this one.
type Source struct {
	ID           string
	Dependencies []string
	Records      []RawRecord
}

// Catalog holds every known Source (core plus however many mods are
// installed), keyed by id, so LoadOrder can resolve dependency closures
// without the caller having to pre-flatten the mod graph itself. The
// whole graph is small and in memory, so a plain adjacency list with a
// DFS covers every query.
type Catalog struct {
	core *Source
	mods map[string]*Source
}

// NewCatalog creates a Catalog seeded with the core source.
func NewCatalog(core Source) *Catalog {
	c := core
	return &Catalog{core: &c, mods: make(map[string]*Source)}
}

// AddMod registers a mod source in the catalog.
func (c *Catalog) AddMod(m Source) {
	stored := m
	c.mods[m.ID] = &stored
}

// LoadOrder computes the deterministic dependency-closed load order for
// the user-selected mod ids: the transitive closure of
// their declared dependencies, excluding CoreID, emitted so that every
// mod appears after everything it depends on, and with user-selected
// mods otherwise appearing in the order the user listed them.
func (c *Catalog) LoadOrder(selected []string) ([]string, error) {
	var order []string
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if id == CoreID || visited[id] {
			return nil
		}
		if visiting[id] {
			// Dependency cycle: treat as already resolved rather than
			// recursing forever, matching how cycles degrade silently
			// elsewhere in the engine.
			return nil
		}
		mod, ok := c.mods[id]
		if !ok {
			return fmt.Errorf("modpack: unknown mod %q", id)
		}

		visiting[id] = true
		for _, dep := range mod.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[id] = false

		visited[id] = true
		order = append(order, id)
		return nil
	}

	for _, id := range selected {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// Sources returns the core source followed by the given mod ids' sources,
// in that order. It assumes ids is already a valid load order (the
// output of LoadOrder).
func (c *Catalog) Sources(ids []string) ([]*Source, error) {
	out := make([]*Source, 0, len(ids)+1)
	out = append(out, c.core)
	for _, id := range ids {
		mod, ok := c.mods[id]
		if !ok {
			return nil, fmt.Errorf("modpack: unknown mod %q", id)
		}
		out = append(out, mod)
	}
	return out, nil
}
