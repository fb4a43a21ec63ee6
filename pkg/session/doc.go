// Package session provides per-identity serialization over the persistence
// store. One logical worker per identity: turns for the same identity run
// one at a time, while distinct identities proceed concurrently with no
// shared mutable state beyond the read-only catalog.
package session
