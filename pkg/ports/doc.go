// Package ports defines the boundary interfaces of the engine: persistence,
// the outbound API gateway, speech-to-text, catalog sources, and distributed
// locking. Adapters under pkg/adapters implement them.
package ports
