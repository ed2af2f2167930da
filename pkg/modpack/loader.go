package modpack

import (
	"context"
	"fmt"

	"github.com/dshills/contentguide/pkg/schedule"
	"github.com/dshills/contentguide/pkg/store"
)

// Load merges the core stream with the given user-selected mods, in
// dependency order, and registers every record into a fresh store.Store
// while recording provenance. It is the
// non-yielding variant; see LoadWithSchedule for the cooperative version.
func Load(catalog *Catalog, selected []string) (*store.Store, *Provenance, error) {
	return LoadWithSchedule(context.Background(), catalog, selected, nil)
}

// LoadWithSchedule is Load, relinquishing to y at each mod boundary so a
// single-threaded host stays responsive through a large load. A nil
// Yielder behaves synchronously.
func LoadWithSchedule(ctx context.Context, catalog *Catalog, selected []string, y schedule.Yielder) (*store.Store, *Provenance, error) {
	order, err := catalog.LoadOrder(selected)
	if err != nil {
		return nil, nil, fmt.Errorf("modpack: computing load order: %w", err)
	}

	sources, err := catalog.Sources(order)
	if err != nil {
		return nil, nil, fmt.Errorf("modpack: resolving sources: %w", err)
	}

	st := store.New()
	prov := NewProvenance()

	for _, src := range sources {
		for _, rr := range src.Records {
			recs := st.Register(rr.Type, rr.Fields)
			for _, rec := range recs {
				prov.record(rec.CanonicalType, rec.Key, src.ID)
			}
		}

		if err := schedule.Relinquish(ctx, y, nil); err != nil {
			return nil, nil, err
		}
	}

	return st, prov, nil
}
