package sqlclient

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// PostgreSQLClient is a dbcap.DatabaseClient backed by *sql.DB via
// lib/pq, grounded on pkg/storage/postgresql.go's NewPostgresqlDB
// connection-opening idiom.
type PostgreSQLClient struct {
	db *sql.DB
}

// NewPostgreSQLClient opens a connection to host:port/database as user.
func NewPostgreSQLClient(host string, port int, user, password, database string) (*PostgreSQLClient, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", user, password, host, port, database)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "postgresql: open %s:%d failed", host, port)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, xerror.Wrapf(err, xerror.Database, "postgresql: ping %s:%d failed", host, port)
	}
	return &PostgreSQLClient{db: db}, nil
}

func (c *PostgreSQLClient) Close() error { return c.db.Close() }

func (c *PostgreSQLClient) QuoteIdentifier(name string) string {
	return `"` + doubleQuoteEscape(name) + `"`
}

func (c *PostgreSQLClient) EscapeValue(value string) string {
	return doubleQuoteEscape(value)
}

// ReplaceSQLPrefix is a plain INSERT: Postgres has no REPLACE equivalent
// that covers an arbitrary set of unique keys the way MySQL's does, so
// NeedPrimaryKeyClearerToReplace and AddReplaceClearers both report that
// every unique key needs an explicit clearer first.
func (c *PostgreSQLClient) ReplaceSQLPrefix(table *schema.Table) string {
	return "INSERT INTO " + c.QuoteIdentifier(table.Name) + " (" + dbcap.QuoteColumnList(c, table, allColumns(table)) + ") VALUES"
}

func (c *PostgreSQLClient) NeedPrimaryKeyClearerToReplace() bool { return true }

func (c *PostgreSQLClient) AddReplaceClearers(table *schema.Table, dst *[]schema.Key) {
	*dst = append(*dst, nonPrimaryUniqueKeys(table)...)
}

func (c *PostgreSQLClient) Execute(sqlText string) (int64, error) {
	result, err := c.db.Exec(sqlText)
	if err != nil {
		return 0, xerror.Wrapf(err, xerror.Database, "postgresql: exec failed")
	}
	return result.RowsAffected()
}

func (c *PostgreSQLClient) Query(sqlText string) (dbcap.Rows, error) {
	rows, err := c.db.Query(sqlText)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "postgresql: query failed")
	}
	return rows, nil
}
