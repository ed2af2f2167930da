package modpack

import "github.com/dshills/contentguide/pkg/store"

// selectorSet is one blacklist/whitelist entry's match criteria: the
// union of its explicit monster ids, species, categories, and expanded
// monstergroup membership.
type selectorSet struct {
	monsters      map[string]bool
	species       map[string]bool
	categories    map[string]bool
	monsterGroups map[string]bool
	exclusive     bool
}

func newSelectorSet(rec *store.Record) selectorSet {
	sel := selectorSet{
		monsters:      toSet(rec.GetStringList("monsters")),
		species:       toSet(rec.GetStringList("species")),
		categories:    toSet(rec.GetStringList("categories")),
		monsterGroups: toSet(rec.GetStringList("monster_groups")),
		exclusive:     rec.GetString("mode") == "EXCLUSIVE",
	}
	return sel
}

func toSet(vals []string) map[string]bool {
	out := make(map[string]bool, len(vals))
	for _, v := range vals {
		out[v] = true
	}
	return out
}

// Policy is the resolved monster blacklist/whitelist, built once per
// Store after a Load.
type Policy struct {
	blacklists []selectorSet
	whitelists []selectorSet
}

// BuildPolicy scans s for MONSTER_BLACKLIST/MONSTER_WHITELIST records and
// returns the resulting Policy. An empty Policy (no selectors at all)
// makes every monster visible.
func BuildPolicy(s *store.Store) *Policy {
	p := &Policy{}
	for _, rec := range s.RecordsOfType("MONSTER_BLACKLIST") {
		p.blacklists = append(p.blacklists, newSelectorSet(rec))
	}
	for _, rec := range s.RecordsOfType("MONSTER_WHITELIST") {
		p.whitelists = append(p.whitelists, newSelectorSet(rec))
	}
	return p
}

// Visible reports whether the monster registered under key is visible:
// not matched by any blacklist selector, or matched but re-admitted by a
// whitelist selector; and, if any whitelist selector is EXCLUSIVE mode,
// also matched by some exclusive-mode selector.
func (p *Policy) Visible(s *store.Store, key string) bool {
	if p == nil || (len(p.blacklists) == 0 && len(p.whitelists) == 0) {
		return true
	}

	rec, ok := s.ByIdMaybe("monster", key)
	if !ok {
		return false
	}

	blacklisted := p.matchesAny(s, p.blacklists, key, rec)
	whitelisted := p.matchesAny(s, p.whitelists, key, rec)

	visible := !blacklisted || whitelisted
	if !visible {
		return false
	}

	hasExclusive := false
	for _, sel := range p.whitelists {
		if sel.exclusive {
			hasExclusive = true
			break
		}
	}
	if !hasExclusive {
		return true
	}

	for _, sel := range p.whitelists {
		if sel.exclusive && p.matches(s, sel, key, rec) {
			return true
		}
	}
	return false
}

func (p *Policy) matchesAny(s *store.Store, sets []selectorSet, key string, rec *store.Record) bool {
	for _, sel := range sets {
		if p.matches(s, sel, key, rec) {
			return true
		}
	}
	return false
}

func (p *Policy) matches(s *store.Store, sel selectorSet, key string, rec *store.Record) bool {
	if sel.monsters[key] {
		return true
	}
	for _, sp := range rec.GetStringList("species") {
		if sel.species[sp] {
			return true
		}
	}
	for _, cat := range rec.GetStringList("categories") {
		if sel.categories[cat] {
			return true
		}
	}
	for group := range sel.monsterGroups {
		if monstergroupMembers(s, group)[key] {
			return true
		}
	}
	return false
}

// monstergroupMembers expands a `monstergroup` record's membership into a
// set of monster ids. Each entry may be a bare monster id string or an
// object carrying a `monster` field.
func monstergroupMembers(s *store.Store, groupID string) map[string]bool {
	rec, ok := s.ByIdMaybe("monstergroup", groupID)
	if !ok {
		return nil
	}
	members := map[string]bool{}
	list, _ := rec.Fields["monsters"].([]any)
	for _, e := range list {
		switch v := e.(type) {
		case string:
			members[v] = true
		case map[string]any:
			if m, ok := v["monster"].(string); ok {
				members[m] = true
			}
		}
	}
	return members
}
