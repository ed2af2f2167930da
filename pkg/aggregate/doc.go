// Package aggregate merges per-mapgen distributions up to whole
// locations: across the weighted mapgen variants of an overmap-terrain,
// then independently across every ground-level tile of an
// overmap-special. It also groups overmap-specials by their visual
// appearance so hosts can dedupe identical-looking variants.
//
// Aggregations are the engine's long traversals: they relinquish to the
// cooperative scheduler at per-overmap boundaries and abandon their
// results when the corpus is replaced underneath them.
package aggregate
