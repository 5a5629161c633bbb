// Package dbcap names the capability set a concrete database client must
// provide for the source protocol engine and row applier to run against
// it, per §9's "template-per-database-client" design note. It is modeled
// as an interface (a record of function values) rather than an
// inheritance hierarchy, the way pkg/ccr/base's Specer interface is
// implemented by multiple independent database-facing types.
package dbcap

import "github.com/rowsync/rowsync/pkg/schema"

// RowConsumer receives one retrieved row at a time, in primary-key order.
// RowHasher and the row applier's loader both implement this.
type RowConsumer func(row []*string)

// Rows is the minimal result-set iteration surface pkg/rowretriever needs.
// *sql.Rows satisfies it without any adapter, but the interface also lets
// tests supply an in-memory fake instead of a real database connection.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

// DatabaseClient is everything the core needs from a concrete database
// connection. Out of scope per §1: schema introspection, DDL, snapshot
// handling — a DatabaseClient already has a loaded *schema.Table to work
// against.
type DatabaseClient interface {
	// QuoteIdentifier quotes a table or column name for inclusion in SQL.
	QuoteIdentifier(name string) string

	// EscapeValue escapes a raw string value for inclusion inside SQL
	// string-literal quotes.
	EscapeValue(value string) string

	// ReplaceSQLPrefix returns the "REPLACE INTO t VALUES" (or engine
	// equivalent) prefix for table. Used by the row applier's insert
	// batch builder.
	ReplaceSQLPrefix(table *schema.Table) string

	// NeedPrimaryKeyClearerToReplace reports whether this engine lacks
	// an atomic REPLACE, so the applier must explicitly DELETE a row by
	// primary key before it can INSERT a new value for that key (§4.4
	// step 3, "Present and different" case).
	NeedPrimaryKeyClearerToReplace() bool

	// AddReplaceClearers appends one UniqueKeyClearer-eligible key
	// (identified by its column index list) per non-primary unique key
	// that REPLACE would not itself cover, onto dst. When the engine
	// supports REPLACE across every unique key, it leaves dst
	// unchanged.
	AddReplaceClearers(table *schema.Table, dst *[]schema.Key)

	// Execute runs a non-query SQL statement (INSERT/DELETE/REPLACE),
	// returning the number of affected rows.
	Execute(sqlText string) (int64, error)

	// Query runs a SELECT, returning a driver-agnostic result-set
	// iterator. Query is the one place the core touches a raw
	// connection; everything it needs beyond this is expressed in SQL
	// text built by pkg/rowretriever and pkg/applier.
	Query(sqlText string) (Rows, error)
}
