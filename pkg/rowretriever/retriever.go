// Package rowretriever implements §4.2's row retriever: a bounded
// half-open key-range SELECT that streams each row to a caller-provided
// consumer.
package rowretriever

import (
	"fmt"
	"strings"

	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// NoRowCountLimit disables the LIMIT clause — used when no primary key is
// available, since the batching strategy in §4.3 only works with one.
const NoRowCountLimit = 0

// Retrieve issues a SELECT over (prevKey, lastKey] against table, in
// primary_key_columns ascending order, capped at limit rows (NoRowCountLimit
// for unbounded), feeding every column of each row to consume. It returns
// the number of rows produced.
func Retrieve(client dbcap.DatabaseClient, table *schema.Table, prevKey, lastKey []string, limit int, consume dbcap.RowConsumer) (int, error) {
	sqlText := selectSQL(client, table, prevKey, lastKey, limit)

	rows, err := client.Query(sqlText)
	if err != nil {
		return 0, xerror.Wrapf(err, xerror.Database, "retrieve rows for %s failed", table.Name)
	}
	defer rows.Close()

	count := 0
	scanArgs := make([]interface{}, len(table.Columns))
	scanDest := make([]*string, len(table.Columns))
	nullFlags := make([]bool, len(table.Columns))
	for i := range scanArgs {
		scanArgs[i] = &nullableScanner{dest: &scanDest[i], null: &nullFlags[i]}
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return count, xerror.Wrapf(err, xerror.Database, "scan row for %s failed", table.Name)
		}

		row := make([]*string, len(table.Columns))
		for i := range row {
			if !nullFlags[i] {
				v := *scanDest[i]
				row[i] = &v
			}
		}
		consume(row)
		count++
	}
	if err := rows.Err(); err != nil {
		return count, xerror.Wrapf(err, xerror.Database, "iterate rows for %s failed", table.Name)
	}
	return count, nil
}

func selectSQL(client dbcap.DatabaseClient, table *schema.Table, prevKey, lastKey []string, limit int) string {
	return selectSQLOrdered(client, table, prevKey, lastKey, limit, false)
}

func selectSQLOrdered(client dbcap.DatabaseClient, table *schema.Table, prevKey, lastKey []string, limit int, descending bool) string {
	columnList := make([]string, len(table.Columns))
	for i := range table.Columns {
		columnList[i] = client.QuoteIdentifier(table.Columns[i].Name)
	}

	orderBy := ""
	if len(table.PrimaryKeyColumns) > 0 {
		orderColumns := make([]string, len(table.PrimaryKeyColumns))
		for i, col := range table.PrimaryKeyColumns {
			orderColumns[i] = client.QuoteIdentifier(table.Columns[col].Name)
			if descending {
				orderColumns[i] += " DESC"
			}
		}
		orderBy = " ORDER BY " + strings.Join(orderColumns, ",")
	}

	sqlText := fmt.Sprintf("SELECT %s FROM %s%s%s",
		strings.Join(columnList, ","),
		client.QuoteIdentifier(table.Name),
		dbcap.WhereRangeSQL(client, table, prevKey, lastKey),
		orderBy,
	)
	if limit > 0 {
		sqlText += fmt.Sprintf(" LIMIT %d", limit)
	}
	return sqlText
}

// FirstKey returns the primary key tuple of table's least row, or an
// empty ColumnValues if the table is empty (§4.3's RANGE verb).
func FirstKey(client dbcap.DatabaseClient, table *schema.Table) ([]string, error) {
	return edgeKey(client, table, false)
}

// LastKey returns the primary key tuple of table's greatest row, or an
// empty ColumnValues if the table is empty (§4.3's RANGE verb).
func LastKey(client dbcap.DatabaseClient, table *schema.Table) ([]string, error) {
	return edgeKey(client, table, true)
}

func edgeKey(client dbcap.DatabaseClient, table *schema.Table, descending bool) ([]string, error) {
	sqlText := selectSQLOrdered(client, table, nil, nil, 1, descending)

	rows, err := client.Query(sqlText)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "find edge key for %s failed", table.Name)
	}
	defer rows.Close()

	var key []string
	if rows.Next() {
		scanDest := make([]*string, len(table.Columns))
		nullFlags := make([]bool, len(table.Columns))
		scanArgs := make([]interface{}, len(table.Columns))
		for i := range scanArgs {
			scanArgs[i] = &nullableScanner{dest: &scanDest[i], null: &nullFlags[i]}
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, xerror.Wrapf(err, xerror.Database, "scan edge key for %s failed", table.Name)
		}
		key = make([]string, len(table.PrimaryKeyColumns))
		for i, col := range table.PrimaryKeyColumns {
			if scanDest[col] != nil {
				key[i] = *scanDest[col]
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "iterate edge key for %s failed", table.Name)
	}
	return key, nil
}

// nullableScanner adapts database/sql's Scanner protocol to the
// nil-means-null []*string row representation the rest of the core uses,
// without needing a sql.RawBytes-per-column slice kept alive by the
// caller across every row.
type nullableScanner struct {
	dest **string
	null *bool
}

func (s *nullableScanner) Scan(src interface{}) error {
	if src == nil {
		*s.null = true
		*s.dest = nil
		return nil
	}
	*s.null = false
	switch v := src.(type) {
	case string:
		*s.dest = &v
	case []byte:
		str := string(v)
		*s.dest = &str
	default:
		str := fmt.Sprintf("%v", v)
		*s.dest = &str
	}
	return nil
}
