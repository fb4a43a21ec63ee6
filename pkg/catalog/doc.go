// Package catalog loads, merges and validates command definitions into an
// immutable Catalog shared read-only across all identities.
//
// Validation is exhaustive at load time: unknown kinds, duplicate intents,
// missing prompts, dangling goto targets and forced cycles are all rejected
// before the engine starts, so conversation-time code never discovers a
// malformed graph.
package catalog
