// Package mapgen is the analytic loot engine: it computes, for each map
// generator record, the probability and expected count of every item,
// furniture tile, and terrain tile it may place — traversing symbol
// grids, weighted palettes, conditional nested chunks, place-lists, and
// set lines/squares without ever sampling.
//
// Three parallel evaluators (item, furniture, terrain) share one
// traversal and differ only in which mapping and place fields they
// consider and which sentinel id they strip from the final result.
package mapgen
