// Package requirement implements the Requirement Resolver: it
// expands a construction/recipe requirement's components, qualities, and
// tools arrays, substituting `using` indirection and tool alternatives
// that share a tool's `sub` field, and filters out unrecoverable components for disassembly
// yield queries.
package requirement
