// Package itemgroup implements the Item-Group Flattener: it
// expands a nested `collection`/`distribution` item-group record into a
// flat list of {id, count range, probability, expected} tuples, attaching
// implicit container items along the way. pkg/mapgen calls into this
// package wherever a mapgen's place_items/place_loot references a group.
package itemgroup
