package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by ById when neither a concrete nor an abstract
// entry exists for the requested key, after alias resolution.
var ErrNotFound = errors.New("store: not found")

type typeKey struct {
	canonicalType string
	key           string
}

// Store is the raw index over every loaded record, built once at load
// time and never mutated afterward except by appending new registrations
// during the load pass itself.
type Store struct {
	concrete map[typeKey]*Record
	abstract map[typeKey]*Record
	history  map[typeKey][]*Record

	byType map[string][]*Record // concrete with a primary key, insertion order
	all    []*Record            // concrete, global insertion order

	// rawByType holds every registered record of a type, keyed or not,
	// abstract or not. Policy records (MONSTER_BLACKLIST and friends)
	// carry no primary key, so the post-load scan reads this view.
	rawByType map[string][]*Record

	aliases map[typeKey]typeKey

	nextSeq int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		concrete:  make(map[typeKey]*Record),
		abstract:  make(map[typeKey]*Record),
		history:   make(map[typeKey][]*Record),
		byType:    make(map[string][]*Record),
		rawByType: make(map[string][]*Record),
		aliases:   make(map[typeKey]typeKey),
	}
}

// Register loads one raw JSON record (already decoded into fields) into
// the store, under whatever canonical type/key(s) it resolves to. A
// record whose `id` is a list is registered once per element, each under
// its own *Record that shares the same underlying Fields.
//
// Later registrations under the same key shadow earlier ones for byId
// purposes — concrete entries shadow abstract entries of the same key,
// and among concrete entries the most recently registered one wins — but
// History retains every record ever registered under the key, which the
// Flattener needs for self-referential `copy-from` chains and
// which pkg/mapgen needs to enumerate coexisting mapgen variants for one
// overmap-terrain id.
func (s *Store) Register(rawType string, fields map[string]any) []*Record {
	keys, abstract := extractKeys(fields)
	canonical := CanonicalType(rawType)

	rec := &Record{
		Type:          rawType,
		CanonicalType: canonical,
		Abstract:      abstract,
		Fields:        fields,
		seq:           s.nextSeq,
	}
	s.nextSeq++

	s.rawByType[canonical] = append(s.rawByType[canonical], rec)

	registered := make([]*Record, 0, len(keys))
	for _, key := range keys {
		// Each id in a list-id record gets its own *Record view sharing
		// Fields but carrying its own Key, so downstream lookups report
		// the right key.
		perKey := rec
		if len(keys) > 1 {
			clone := *rec
			clone.Key = key
			perKey = &clone
		} else {
			rec.Key = key
		}

		tk := typeKey{canonical, key}
		s.history[tk] = append(s.history[tk], perKey)

		if abstract {
			s.abstract[tk] = perKey
		} else {
			s.concrete[tk] = perKey
			s.byType[canonical] = append(s.byType[canonical], perKey)
			s.all = append(s.all, perKey)
		}

		registered = append(registered, perKey)
	}

	return registered
}

// RegisterAlias makes byId(type, aliasKey) resolve as though it had been
// called with targetKey, one hop. Used for monster id renames the policy
// layer or mod data may introduce.
func (s *Store) RegisterAlias(canonicalType, aliasKey, targetKey string) {
	s.aliases[typeKey{canonicalType, aliasKey}] = typeKey{canonicalType, targetKey}
}

func (s *Store) resolveAlias(tk typeKey) typeKey {
	seen := map[typeKey]bool{}
	for {
		target, ok := s.aliases[tk]
		if !ok || seen[tk] {
			return tk
		}
		seen[tk] = true
		tk = target
	}
}

// ById returns the concrete-or-abstract record for (canonicalType, key),
// resolving aliases first. Concrete entries shadow abstract ones.
func (s *Store) ById(canonicalType, key string) (*Record, error) {
	rec, ok := s.ByIdMaybe(canonicalType, key)
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", canonicalType, key, ErrNotFound)
	}
	return rec, nil
}

// ByIdMaybe is the non-failing variant of ById.
func (s *Store) ByIdMaybe(canonicalType, key string) (*Record, bool) {
	tk := s.resolveAlias(typeKey{canonicalType, key})
	if rec, ok := s.concrete[tk]; ok {
		return rec, true
	}
	if rec, ok := s.abstract[tk]; ok {
		return rec, true
	}
	return nil, false
}

// AbstractById returns only the abstract entry for (canonicalType, key),
// ignoring any concrete entry under the same key.
func (s *Store) AbstractById(canonicalType, key string) (*Record, bool) {
	tk := s.resolveAlias(typeKey{canonicalType, key})
	rec, ok := s.abstract[tk]
	return rec, ok
}

// ByType returns every concrete record of canonicalType, in insertion
// order. Abstract entries are never included.
func (s *Store) ByType(canonicalType string) []*Record {
	recs := s.byType[canonicalType]
	out := make([]*Record, len(recs))
	copy(out, recs)
	return out
}

// RecordsOfType returns every registered record of canonicalType in
// insertion order, including keyless and abstract entries. This is the
// policy scanner's view; queries that respect the concrete/abstract
// distinction use ByType instead.
func (s *Store) RecordsOfType(canonicalType string) []*Record {
	recs := s.rawByType[canonicalType]
	out := make([]*Record, len(recs))
	copy(out, recs)
	return out
}

// All returns every concrete record across all types, in global insertion
// order.
func (s *Store) All() []*Record {
	out := make([]*Record, len(s.all))
	copy(out, s.all)
	return out
}

// History returns every record ever registered under (canonicalType, key),
// concrete or abstract, in registration order. The Flattener uses this to
// find "the previous entry under this key" for self-referential
// `copy-from` chains; pkg/mapgen uses it to
// enumerate every mapgen variant sharing an overmap-terrain id.
func (s *Store) History(canonicalType, key string) []*Record {
	tk := s.resolveAlias(typeKey{canonicalType, key})
	recs := s.history[tk]
	out := make([]*Record, len(recs))
	copy(out, recs)
	return out
}

// PreviousInHistory returns the record registered immediately before rec
// under its own (canonicalType, key), or nil if rec was the first. The
// Flattener treats this previous entry as the parent of a record whose
// copy-from names its own key.
func (s *Store) PreviousInHistory(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	history := s.history[typeKey{rec.CanonicalType, rec.Key}]
	for i, h := range history {
		if h == rec && i > 0 {
			return history[i-1]
		}
	}
	return nil
}
