// Package memorykeep manages a bounded context window for a chat agent.
//
// The engine keeps an ordered, token-limited stream of turns per
// conversation (working memory), compacts it into a summary plus a short
// continuity window when it grows past a threshold (a "memory keep"), and
// resurfaces durable experiences on demand to enrich the next prompt.
//
// # Quick Start
//
//	store := memstore.New()
//	engine, err := memorykeep.New(store, authority, sidecar,
//	    memorykeep.WithConfig(memorykeep.Config{Capacity: 8192}),
//	    memorykeep.WithDirectives(memorykeep.FileDirectives{Dir: "./directives"}),
//	)
//
//	var usage memorykeep.Usage
//	res, err := engine.Intake(ctx, "conv-1", usage, memorykeep.RoleUser, "I prefer tea")
//	usage = res.Usage
//
//	messages, err := engine.Assemble(ctx, "conv-1", "what do I drink?")
//
// # Capabilities
//
// The engine calls out to two language-model capabilities:
//
//   - Authority judges the importance of user turns and decides whether a
//     message needs a search over past experience.
//   - Sidecar summarizes the stream during a memory keep.
//
// Both are failure tolerant: any error or malformed output degrades to a
// neutral default and never fails the calling operation. Token costs are
// tracked in Usage, separately from the stream occupancy that drives
// consolidation.
//
// # Storage
//
// Persistence goes through storage.Store. Implementations ship for pgx
// (driver/pgxv5), database/sql with Postgres or SQLite (driver/databasesql)
// and an in-memory store (storage/memstore). Storage failures are returned
// as errors matching ErrStorageUnavailable.
//
// # Concurrency
//
// Intake, Consolidate and Assemble serialize per conversation. Different
// conversations proceed concurrently.
package memorykeep
