// Package memo is the memoization substrate shared by the Flattener,
// Item-Group Flattener, Mapgen/Palette Evaluator, and Location
// Aggregator. A cache over records is keyed by the *identity* of its
// input record, not its content — two structurally equal records must not
// share a slot, because a corpus swap can replace one with an unrelated
// value at the same content. The overmap-terrain and overmap-special
// caches are keyed by id string instead. Entries are held strongly and never evicted — a cache
// only ever grows — and each cache is owned by exactly one Corpus, so a
// corpus swap reclaims the whole cache along with everything it holds.
package memo
