// Package loot defines the analytic probability values the rest of the
// engine computes over: ItemChance, Loot tables, and Palettes, plus the
// combinators (and, scale, repeat, merge, add) that combine them.
// Nothing in this package samples anything — every value
// is a closed-form probability and expectation, never a drawn outcome.
package loot
