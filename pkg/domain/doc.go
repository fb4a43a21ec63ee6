// Package domain contains the core data structures of the Parley engine:
// command and step definitions, per-identity conversation state, session
// records, and the sentinel errors shared across adapters.
//
// Everything here is pure data. Behavior lives in the runtime and the
// adapters; stores and transports depend on this package, never the other
// way around.
package domain
