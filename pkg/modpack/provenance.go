package modpack

import (
	"sync"

	"github.com/dshills/contentguide/pkg/store"
)

type provKey struct {
	canonicalType string
	key           string
}

// Provenance tracks which mods touched which keys, kept strictly
// outside the records themselves: entity records are never mutated to
// carry it. It answers two queries: which mods
// directly supplied an entry under a key, and which mods contributed to
// it either directly or by way of a `copy-from` ancestor.
type Provenance struct {
	mu     sync.RWMutex
	direct map[provKey][]string
}

// NewProvenance creates an empty Provenance sidecar.
func NewProvenance() *Provenance {
	return &Provenance{direct: make(map[provKey][]string)}
}

func (p *Provenance) record(canonicalType, key, modID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pk := provKey{canonicalType, key}
	for _, existing := range p.direct[pk] {
		if existing == modID {
			return
		}
	}
	p.direct[pk] = append(p.direct[pk], modID)
}

// Direct returns the ordered list of mod ids that registered an entry
// directly under (canonicalType, key).
func (p *Provenance) Direct(canonicalType, key string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	src := p.direct[provKey{canonicalType, key}]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Contributing returns Direct(canonicalType, key) unioned with the direct
// mods of every ancestor reached by following `copy-from` (but not a
// self-referential `copy-from == key`, whose contributors are already
// folded into Direct for that same key). Order is first-contribution
// order, nearest ancestor first.
func (p *Provenance) Contributing(s *store.Store, canonicalType, key string) []string {
	seenMods := map[string]bool{}
	seenKeys := map[provKey]bool{}
	var order []string

	var walk func(ct, k string)
	walk = func(ct, k string) {
		pk := provKey{ct, k}
		if seenKeys[pk] {
			return
		}
		seenKeys[pk] = true

		for _, m := range p.Direct(ct, k) {
			if !seenMods[m] {
				seenMods[m] = true
				order = append(order, m)
			}
		}

		rec, ok := s.ByIdMaybe(ct, k)
		if !ok {
			return
		}
		cf, _ := rec.Get("copy-from")
		cfKey, _ := cf.(string)
		if cfKey == "" || cfKey == k {
			return
		}
		walk(ct, cfKey)
	}

	walk(canonicalType, key)
	return order
}
