// Package store is the table-oriented record service the engine runs
// against. Records travel as column-keyed maps and queries are built
// from a small set of conditions, which keeps the engine decoupled from
// the backing database the same way the original client was decoupled
// from its hosted store.
//
// The SQLite backend is the only driver; the schema is closed (unknown
// tables or columns are errors, not silent no-ops).
package store
