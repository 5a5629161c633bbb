package sqlclient

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// MySQLClient is a dbcap.DatabaseClient backed by *sql.DB via
// go-sql-driver/mysql, grounded on storage/mysql.go's NewMysqlDB
// connection-opening idiom.
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient opens a connection to host:port/database as user.
func NewMySQLClient(host string, port int, user, password, database string) (*MySQLClient, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", user, password, host, port, database)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "mysql: open %s@tcp(%s:%d)/%s failed", user, host, port, database)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, xerror.Wrapf(err, xerror.Database, "mysql: ping %s:%d failed", host, port)
	}
	return &MySQLClient{db: db}, nil
}

func (c *MySQLClient) Close() error { return c.db.Close() }

func (c *MySQLClient) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (c *MySQLClient) EscapeValue(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return r.Replace(value)
}

// ReplaceSQLPrefix uses MySQL's native REPLACE INTO, which deletes any
// row violating the primary key OR any other unique key before
// inserting, so no clearer is ever required.
func (c *MySQLClient) ReplaceSQLPrefix(table *schema.Table) string {
	return "REPLACE INTO " + c.QuoteIdentifier(table.Name) + " (" + dbcap.QuoteColumnList(c, table, allColumns(table)) + ") VALUES"
}

func (c *MySQLClient) NeedPrimaryKeyClearerToReplace() bool { return false }

func (c *MySQLClient) AddReplaceClearers(table *schema.Table, dst *[]schema.Key) {
	// REPLACE INTO already clears every unique key's conflicting row.
}

func (c *MySQLClient) Execute(sqlText string) (int64, error) {
	result, err := c.db.Exec(sqlText)
	if err != nil {
		return 0, xerror.Wrapf(err, xerror.Database, "mysql: exec failed")
	}
	return result.RowsAffected()
}

func (c *MySQLClient) Query(sqlText string) (dbcap.Rows, error) {
	rows, err := c.db.Query(sqlText)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "mysql: query failed")
	}
	return rows, nil
}

func allColumns(table *schema.Table) []int {
	cols := make([]int, len(table.Columns))
	for i := range cols {
		cols[i] = i
	}
	return cols
}
