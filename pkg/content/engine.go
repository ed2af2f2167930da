package content

import (
	"context"
	"sync/atomic"

	"github.com/dshills/contentguide/pkg/loot"
	"github.com/dshills/contentguide/pkg/mapgen"
	"github.com/dshills/contentguide/pkg/schedule"
)

// Engine owns the current Corpus behind an atomic pointer and the
// generation counter that in-flight aggregations guard against. Every
// long operation captures the corpus once, snapshots the generation,
// and abandons its result with schedule.ErrCorpusReplaced if Replace
// runs underneath it.
type Engine struct {
	current atomic.Pointer[Corpus]
	gen     schedule.Counter
}

// NewEngine creates an Engine serving corpus.
func NewEngine(corpus *Corpus) *Engine {
	e := &Engine{}
	e.current.Store(corpus)
	return e
}

// Current returns the corpus this engine is presently serving.
// Consumers must refetch after a Replace; handles into the old corpus
// keep working but answer against stale content.
func (e *Engine) Current() *Corpus {
	return e.current.Load()
}

// Replace atomically swaps in a new corpus and bumps the generation,
// invalidating every outstanding Guard. The old corpus's derived tables
// become unreachable along with it.
func (e *Engine) Replace(corpus *Corpus) {
	e.current.Store(corpus)
	e.gen.Bump()
}

// Generation implements schedule.GenerationSource.
func (e *Engine) Generation() uint64 {
	return e.gen.Generation()
}

// LootForSpecial computes the item distribution across every
// ground-level tile of an overmap-special, relinquishing to y at each
// overmap boundary.
func (e *Engine) LootForSpecial(ctx context.Context, y schedule.Yielder, omsID string) (loot.Table, error) {
	return e.forSpecial(ctx, y, omsID, mapgen.KindItem)
}

// FurnitureForSpecial is LootForSpecial for furniture tiles.
func (e *Engine) FurnitureForSpecial(ctx context.Context, y schedule.Yielder, omsID string) (loot.Table, error) {
	return e.forSpecial(ctx, y, omsID, mapgen.KindFurniture)
}

// TerrainForSpecial is LootForSpecial for terrain tiles.
func (e *Engine) TerrainForSpecial(ctx context.Context, y schedule.Yielder, omsID string) (loot.Table, error) {
	return e.forSpecial(ctx, y, omsID, mapgen.KindTerrain)
}

func (e *Engine) forSpecial(ctx context.Context, y schedule.Yielder, omsID string, kind mapgen.Kind) (loot.Table, error) {
	corpus := e.Current()
	guard := schedule.NewGuard(e)
	return corpus.Aggregator().ForSpecial(ctx, y, guard, omsID, kind)
}

// GroupSpecialsByAppearance buckets every overmap-special by appearance
// key, each bucket's ids sorted.
func (e *Engine) GroupSpecialsByAppearance(ctx context.Context, y schedule.Yielder) (map[string][]string, error) {
	corpus := e.Current()
	guard := schedule.NewGuard(e)
	return corpus.Aggregator().GroupByAppearance(ctx, y, guard)
}
