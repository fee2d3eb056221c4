// Package ir defines the value model shared by the query builder, the SQL
// compiler and the document store: the allow-list of storable value kinds,
// opaque entity identity keys, raw entity records, and the canonical JSON
// encoding used to persist property documents and fingerprint plans.
package ir
