// Package store provides SQLite-backed durable storage for scenario runs.
//
// The store is an append-only log with:
//   - Runs: one row per scenario execution, carrying the scenario source so
//     the run can be replayed, its content hash and the resulting trace hash
//   - Events: the run's trace, one row per recorded render-port event
//
// # Ordering
//
// Runs are ordered by their insertion seq and events by their logical seq,
// never by wall time. All queries use ORDER BY seq ASC (ties broken by id
// COLLATE BINARY) so reads are identical across replays.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING. Writing the same run twice leaves the
// first copy in place.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
