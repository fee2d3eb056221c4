// Package querystore is the caller-facing query API.
//
// A QueryStore builds plans with package query, hands them to a Datastore
// and returns lazy result sequences:
//
//	Query          constraints + sorts → mapped records, optionally windowed
//	QueryEntities  constraints + sorts → raw entities
//	Check          constraints → Exists | DoesNotExist | CheckFailed
//
// Build errors (INVALID_ARGUMENT) are returned synchronously. A failure to
// execute a plan is logged and returned as EXECUTION_FAILURE with a nil
// sequence; a nil sequence therefore always means "could not complete",
// never "no matches".
//
// Existence checks run as a single keys-only count inside a transaction.
// Every exit path commits or rolls back; there is no retry.
package querystore
