// Package sqlclient provides the concrete dbcap.DatabaseClient
// implementations the core is built against: one per engine the source
// and destination sides can speak, following the same
// one-file-per-engine layout as storage/mysql.go, storage/sqlite.go, and
// pkg/storage/postgresql.go. Each client differs only in how it quotes
// identifiers, escapes string literals, and what REPLACE-equivalent its
// engine natively supports — everything else (query shape, batching,
// convergence) lives in the engine-agnostic core packages.
package sqlclient

import (
	"strings"

	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// Open constructs the dbcap.DatabaseClient for engine, dialing
// host/port/user/password/database for "mysql"/"postgres" or opening
// path for "sqlite3". It is the one place that needs to know about all
// three engines at once; everything else in the core is written against
// dbcap.DatabaseClient only.
func Open(engine, host string, port int, user, password, database, path string) (dbcap.DatabaseClient, error) {
	switch engine {
	case "mysql":
		return NewMySQLClient(host, port, user, password, database)
	case "postgres":
		return NewPostgreSQLClient(host, port, user, password, database)
	case "sqlite3":
		return NewSQLiteClient(path)
	default:
		return nil, xerror.Errorf(xerror.Normal, "unknown database engine %q", engine)
	}
}

// nonPrimaryUniqueKeys returns every unique key of table other than the
// primary key itself, as the Columns index lists AddReplaceClearers
// needs.
func nonPrimaryUniqueKeys(table *schema.Table) []schema.Key {
	var keys []schema.Key
	for _, k := range table.Keys {
		if !k.Unique || sameColumns(k.Columns, table.PrimaryKeyColumns) {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

func sameColumns(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// doubleQuoteEscape escapes value for inclusion between ANSI SQL single
// quotes by doubling embedded quote characters, the rule PostgreSQL and
// SQLite both follow.
func doubleQuoteEscape(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
