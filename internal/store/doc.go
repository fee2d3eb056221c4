// Package store provides a SQLite-backed document store for keyed entities.
//
// Each entity belongs to a kind and carries a flat map of scalar properties
// (see ir.KindOf). Properties are stored as canonical JSON of their encoded
// form, so comparisons in SQL agree with Go-side ordering:
//
//	int, float   JSON number
//	time         fixed-width UTC string (lexical = chronological)
//	[]byte       lowercase hex
//	ir.Key       "kind/name"
//
// Queries are plan.Plan values compiled by querysql. Every row query is
// ordered with a key COLLATE BINARY ASC tiebreaker.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single connection: a Tx holds it until Commit or Rollback
package store
