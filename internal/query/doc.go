// Package query turns caller constraints into query plans.
//
// A caller describes what it wants as two insertion-ordered sets:
//
//	Constraints  field → (operator, value)   all must hold
//	Sorts        field → direction
//
// Validate checks every constraint value against the store's allow-list of
// kinds (see ir.KindOf) and fails on the first unsupported one. Build folds
// both sets into one immutable plan.Plan:
//
//	constraints empty      → every sort, in set order; no filters
//	constraints non-empty  → per field, in set order:
//	                           filter (identity-aware), then that field's
//	                           sort if one exists
//	                         then the remaining sorts, in set order
//
// The identity pseudo-field ("_id") targets the entity key instead of a
// stored property: its value is turned into ir.NewKey(kind, fmt.Sprint(v)).
//
// Build never mutates its inputs. Sorts matched to a filter are consumed
// from an internal working copy only.
package query
