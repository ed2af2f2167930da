// Package modpack implements the Mod Loader & Policy Filter:
// it merges the core record stream with an ordered, dependency-closed set
// of mod overlays, records which mods touched which (type, key) entries,
// and applies the monster blacklist/whitelist policy that determines
// which monster records are visible to queries at all.
package modpack
