package sqlclient

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// SQLiteClient is a dbcap.DatabaseClient backed by *sql.DB via
// mattn/go-sqlite3, grounded on storage/sqlite.go's NewSqliteDB
// connection-opening idiom.
type SQLiteClient struct {
	db *sql.DB
}

// NewSQLiteClient opens (creating if absent) the database file at path.
func NewSQLiteClient(path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "sqlite: open %s failed", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, xerror.Wrapf(err, xerror.Database, "sqlite: ping %s failed", path)
	}
	return &SQLiteClient{db: db}, nil
}

func (c *SQLiteClient) Close() error { return c.db.Close() }

func (c *SQLiteClient) QuoteIdentifier(name string) string {
	return `"` + doubleQuoteEscape(name) + `"`
}

func (c *SQLiteClient) EscapeValue(value string) string {
	return doubleQuoteEscape(value)
}

// ReplaceSQLPrefix uses SQLite's "INSERT OR REPLACE INTO", which (like
// MySQL's REPLACE INTO) deletes any row violating the primary key or any
// other unique key before inserting, so no clearer is required.
func (c *SQLiteClient) ReplaceSQLPrefix(table *schema.Table) string {
	return "INSERT OR REPLACE INTO " + c.QuoteIdentifier(table.Name) + " (" + dbcap.QuoteColumnList(c, table, allColumns(table)) + ") VALUES"
}

func (c *SQLiteClient) NeedPrimaryKeyClearerToReplace() bool { return false }

func (c *SQLiteClient) AddReplaceClearers(table *schema.Table, dst *[]schema.Key) {
	// INSERT OR REPLACE already clears every unique key's conflicting row.
}

func (c *SQLiteClient) Execute(sqlText string) (int64, error) {
	result, err := c.db.Exec(sqlText)
	if err != nil {
		return 0, xerror.Wrapf(err, xerror.Database, "sqlite: exec failed")
	}
	return result.RowsAffected()
}

func (c *SQLiteClient) Query(sqlText string) (dbcap.Rows, error) {
	rows, err := c.db.Query(sqlText)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "sqlite: query failed")
	}
	return rows, nil
}
