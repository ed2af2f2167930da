// Package store implements the Entity Store: the raw,
// mod-agnostic index over every loaded JSON record, keyed by
// (canonical-type, key), preserving insertion order and distinguishing
// concrete entries from abstract templates. It knows nothing about
// copy-from resolution (pkg/inherit), mod ordering, or monster policy
// (pkg/modpack) — those layers sit on top and consult the Store's
// History to do their own jobs.
package store
