// Package content assembles the engine's public query surface: a Corpus
// bundles one loaded record store with every derived resolver and cache
// built over it, and an Engine holds the atomically swappable current
// Corpus. Consumers resolve flattened entities by (type, id), enumerate
// entities of a type, and compute loot/furniture/terrain distributions
// for overmap-specials through the cooperative scheduler.
//
// Replacing the corpus swaps the whole value: every derived table dies
// with the Corpus that owns it, and in-flight aggregations notice the
// generation moved and abandon their results.
package content
