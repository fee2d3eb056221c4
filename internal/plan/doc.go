// Package plan defines the query plan handed to the document store.
//
// A Plan is a flat description of one query against one kind:
//
//	[kind] → [filters (AND)] → [sorts] → [keys-only?]
//
// There is no OR, no nesting and no joins. Filters are conjoined in the
// order they were added; sorts apply in the order they were added, with
// ties broken by the store.
//
// IMMUTABILITY:
//
// Plan is a value type. WithFilter, WithSort and KeysOnly return a new Plan
// and never touch the receiver's backing arrays, and the accessors return
// copies. A plan already handed to an executor cannot change underfoot:
//
//	base := plan.New("Widget")
//	a := base.WithFilter(f1)
//	b := base.WithFilter(f2) // a still has exactly one filter: f1
//
// IDENTITY:
//
// KeyField names an entity's intrinsic identity rather than a stored
// property. A filter on KeyField carries an ir.Key value (or a list of them
// for IN); a sort on KeyField orders by key.
//
// PORTABILITY:
//
// Validate reports plan shapes that a datastore-style index planner would
// refuse (several inequality properties, a first sort that differs from the
// inequality property, and so on). They are warnings: the SQLite store runs
// every plan.
package plan
