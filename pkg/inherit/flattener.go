package inherit

import (
	"github.com/dshills/contentguide/pkg/memo"
	"github.com/dshills/contentguide/pkg/store"
)

// Flattener resolves copy-from chains against one Store, memoizing
// results by the original record's identity.
// A Flattener is safe for concurrent use; its cache is additive for the
// lifetime of the Store it was built against.
type Flattener struct {
	store *store.Store
	cache *memo.Cache[*store.Record, Flat]
}

// New creates a Flattener over s.
func New(s *store.Store) *Flattener {
	return &Flattener{
		store: s,
		cache: memo.NewCache[*store.Record, Flat](),
	}
}

// Flatten resolves rec's full inheritance chain. It never returns an
// error: malformed modifier shapes are left as-is and copy-from cycles
// resolve to the record unflattened, so one bad record never blocks
// other queries.
func (fl *Flattener) Flatten(rec *store.Record) *Flat {
	if rec == nil {
		return nil
	}
	if cached, ok := fl.cache.Get(rec); ok {
		return cached
	}

	result := fl.flatten(rec, map[*store.Record]bool{})
	fl.cache.Set(rec, result)
	return result
}

// FlattenById looks up and flattens (canonicalType, key) in one step.
func (fl *Flattener) FlattenById(canonicalType, key string) (*Flat, error) {
	rec, err := fl.store.ById(canonicalType, key)
	if err != nil {
		return nil, err
	}
	return fl.Flatten(rec), nil
}

func (fl *Flattener) flatten(rec *store.Record, inProgress map[*store.Record]bool) *Flat {
	copyFrom, hasCopyFrom := rec.Get("copy-from")
	copyFromKey, _ := copyFrom.(string)

	if !hasCopyFrom || copyFromKey == "" {
		return &Flat{
			CanonicalType: rec.CanonicalType,
			Key:           rec.Key,
			Fields:        cloneFields(rec.Fields),
		}
	}

	var parent *store.Record
	if copyFromKey == rec.Key {
		// Self-referential override: a mod "extends" its own id, so the
		// true parent is whatever was registered under this key just
		// before rec.
		parent = fl.store.PreviousInHistory(rec)
	} else {
		parent, _ = fl.store.ByIdMaybe(rec.CanonicalType, copyFromKey)
	}

	if parent == nil {
		// Dangling copy-from: nothing to inherit from, degrade to the
		// record's own fields.
		return &Flat{
			CanonicalType: rec.CanonicalType,
			Key:           rec.Key,
			Fields:        cloneFields(rec.Fields),
		}
	}

	if inProgress[parent] {
		// Cycle: return rec unresolved rather than recursing forever.
		return &Flat{
			CanonicalType: rec.CanonicalType,
			Key:           rec.Key,
			Fields:        cloneFields(rec.Fields),
		}
	}

	inProgress[parent] = true
	baseFlat := fl.flattenCachedOrRecurse(parent, inProgress)
	delete(inProgress, parent)

	base := cloneFields(baseFlat.Fields)
	applyModifiers(base, rec.Fields)

	return &Flat{
		CanonicalType: rec.CanonicalType,
		Key:           rec.Key,
		Fields:        base,
	}
}

// flattenCachedOrRecurse consults the shared cache for parent before
// recursing, so a diamond of copy-from chains (several children sharing a
// grandparent) only resolves the grandparent once.
func (fl *Flattener) flattenCachedOrRecurse(parent *store.Record, inProgress map[*store.Record]bool) *Flat {
	if cached, ok := fl.cache.Get(parent); ok {
		return cached
	}
	result := fl.flatten(parent, inProgress)
	fl.cache.Set(parent, result)
	return result
}
