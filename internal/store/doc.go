// Package store provides SQLite-backed durable storage for the auction
// aggregate.
//
// The database holds exactly one aggregate. Save writes the whole thing in a
// single transaction - counters, current round, bid log, presence - and
// appends any history entries it has not seen before. History rows are never
// updated or deleted; closed rounds survive even if a caller hands Save a
// truncated aggregate.
//
// All ordering columns are logical seq integers, never timestamps.
// Timestamps are stored as integer Unix nanoseconds so they round-trip
// through the driver without string parsing.
//
// Database configuration:
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// The connection pool is capped at a single connection; the engine is the
// only writer and SQLite rewards not fighting it for the write lock.
package store
