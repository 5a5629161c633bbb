package dbcap

import (
	"strings"

	"github.com/rowsync/rowsync/pkg/schema"
)

// QuoteColumnList quotes and comma-joins the declared names of columns, in
// order — the "columns_list" helper the original implementation threads
// through every range query and range delete.
func QuoteColumnList(client DatabaseClient, table *schema.Table, columns []int) string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = client.QuoteIdentifier(table.Columns[col].Name)
	}
	return strings.Join(names, ",")
}

func quoteTuple(client DatabaseClient, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + client.EscapeValue(v) + "'"
	}
	return strings.Join(quoted, ",")
}

// WhereRangeSQL builds the " WHERE (c1,c2,...) > (v1,v2,...) AND
// (c1,c2,...) <= (w1,w2,...)" clause of §6 for the half-open range
// (prevKey, lastKey]. An empty prevKey/lastKey omits its half of the
// clause (§2's "open" range end); a fully open range returns "".
func WhereRangeSQL(client DatabaseClient, table *schema.Table, prevKey, lastKey []string) string {
	columnList := QuoteColumnList(client, table, table.PrimaryKeyColumns)

	var clauses []string
	if len(prevKey) > 0 {
		clauses = append(clauses, "("+columnList+") > ("+quoteTuple(client, prevKey)+")")
	}
	if len(lastKey) > 0 {
		clauses = append(clauses, "("+columnList+") <= ("+quoteTuple(client, lastKey)+")")
	}
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}
