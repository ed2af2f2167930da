package content

import (
	"fmt"

	"github.com/dshills/contentguide/pkg/aggregate"
	"github.com/dshills/contentguide/pkg/inherit"
	"github.com/dshills/contentguide/pkg/itemgroup"
	"github.com/dshills/contentguide/pkg/mapgen"
	"github.com/dshills/contentguide/pkg/modpack"
	"github.com/dshills/contentguide/pkg/requirement"
	"github.com/dshills/contentguide/pkg/store"
)

// Corpus is one loaded content version: the raw store, the monster
// policy resolved over it, the provenance sidecar, and every derived
// resolver. All caches hang off the Corpus, so replacing it discards
// every derived table at once.
type Corpus struct {
	store       *store.Store
	provenance  *modpack.Provenance
	policy      *modpack.Policy
	flattener   *inherit.Flattener
	groups      *itemgroup.Resolver
	requirement *requirement.Resolver
	evaluator   *mapgen.Evaluator
	aggregator  *aggregate.Aggregator
}

// NewCorpus builds the full derived stack over a loaded store. The
// monster policy is resolved here, before the Corpus answers any query.
func NewCorpus(st *store.Store, prov *modpack.Provenance) *Corpus {
	fl := inherit.New(st)
	groups := itemgroup.New(st, fl)
	ev := mapgen.New(st, fl, groups)

	return &Corpus{
		store:       st,
		provenance:  prov,
		policy:      modpack.BuildPolicy(st),
		flattener:   fl,
		groups:      groups,
		requirement: requirement.New(st, fl),
		evaluator:   ev,
		aggregator:  aggregate.New(st, fl, ev),
	}
}

// Resolve returns the fully flattened record for (type, key). Monsters
// hidden by the blacklist/whitelist policy act as if absent.
func (c *Corpus) Resolve(rawType, key string) (*inherit.Flat, error) {
	canonical := store.CanonicalType(rawType)
	if canonical == "monster" && !c.policy.Visible(c.store, key) {
		return nil, fmt.Errorf("monster %q: %w", key, store.ErrNotFound)
	}

	rec, err := c.store.ById(canonical, key)
	if err != nil {
		return nil, err
	}
	return c.flattener.Flatten(rec), nil
}

// ResolveMaybe is the non-failing variant of Resolve.
func (c *Corpus) ResolveMaybe(rawType, key string) (*inherit.Flat, bool) {
	flat, err := c.Resolve(rawType, key)
	if err != nil {
		return nil, false
	}
	return flat, true
}

// Enumerate returns every concrete record of a type, flattened, in
// insertion order. Abstract entries never appear, and hidden monsters
// are filtered out.
func (c *Corpus) Enumerate(rawType string) []*inherit.Flat {
	canonical := store.CanonicalType(rawType)
	recs := c.store.ByType(canonical)

	out := make([]*inherit.Flat, 0, len(recs))
	for _, rec := range recs {
		if canonical == "monster" && !c.policy.Visible(c.store, rec.Key) {
			continue
		}
		out = append(out, c.flattener.Flatten(rec))
	}
	return out
}

// DirectMods returns the mods that supplied an entry directly under
// (type, key), in contribution order.
func (c *Corpus) DirectMods(rawType, key string) []string {
	return c.provenance.Direct(store.CanonicalType(rawType), key)
}

// ContributingMods returns DirectMods unioned with the mods whose
// contributions flowed in via copy-from ancestors.
func (c *Corpus) ContributingMods(rawType, key string) []string {
	return c.provenance.Contributing(c.store, store.CanonicalType(rawType), key)
}

// Store exposes the underlying raw index for collaborators that need
// record-level access (the CLI, tests).
func (c *Corpus) Store() *store.Store { return c.store }

// Groups exposes the item-group flattener built over this corpus.
func (c *Corpus) Groups() *itemgroup.Resolver { return c.groups }

// Requirements exposes the requirement resolver built over this corpus.
func (c *Corpus) Requirements() *requirement.Resolver { return c.requirement }

// Evaluator exposes the per-mapgen analytic engine built over this
// corpus.
func (c *Corpus) Evaluator() *mapgen.Evaluator { return c.evaluator }

// Aggregator exposes the location aggregator built over this corpus.
func (c *Corpus) Aggregator() *aggregate.Aggregator { return c.aggregator }
