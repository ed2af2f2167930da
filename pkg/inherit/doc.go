// Package inherit implements the Flattener: it resolves a
// record's `copy-from` chain and inheritance modifiers (`relative`,
// `proportional`, `extend`, `delete`) into a fully self-contained
// flattened record, memoizing by the original record's identity and
// breaking cycles without surfacing an error.
package inherit
