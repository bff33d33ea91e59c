// Package storage persists execution trace records.
//
// Every rule or rule set execution can be captured as a TraceRecord: the
// outcome, the effects applied to the context, and the ordered trace events.
// Two backends implement the Store interface:
//
//   - MemoryStore: in-memory map, for tests and short-lived runs
//   - SQLiteStore: durable single-file database with WAL mode, for long-lived
//     deployments whose optimizer wants history across restarts
//
// Records are append-only. The optimizer reads them back through Query to
// mine execution patterns; nothing ever updates a stored record in place.
package storage
