package applier

import (
	"fmt"
	"strings"

	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/wire"
)

// UniqueKeyClearer batches DELETEs keyed on one key's columns, so that
// rows about to be inserted don't collide with an existing row under a
// key other than the primary key (§4.4 step 4). The primary key clearer
// and each non-primary unique key clearer are separate instances sharing
// this same batching shape.
type UniqueKeyClearer struct {
	client      dbcap.DatabaseClient
	table       *schema.Table
	columns     []int
	columnList  string
	values      []wire.ColumnValues
	pendingSize int
}

// NewUniqueKeyClearer builds a clearer that deletes rows of table matched
// on columns (a primary key or other unique key's column indices).
func NewUniqueKeyClearer(client dbcap.DatabaseClient, table *schema.Table, columns []int) *UniqueKeyClearer {
	return &UniqueKeyClearer{
		client:     client,
		table:      table,
		columns:    columns,
		columnList: dbcap.QuoteColumnList(client, table, columns),
	}
}

// Row records row's key-column values for clearing on the next Apply, and
// flushes early if the batch has grown past MaxSensibleInsertCommandSize.
func (c *UniqueKeyClearer) Row(row []*string) {
	key := make(wire.ColumnValues, len(c.columns))
	for i, col := range c.columns {
		if row[col] == nil {
			// primary/unique key columns cannot be null (§4.1 invariant)
			key[i] = ""
		} else {
			key[i] = *row[col]
		}
	}
	c.values = append(c.values, key)
	c.pendingSize += key.Size()

	if c.pendingSize > MaxSensibleInsertCommandSize {
		c.Apply()
	}
}

// Apply issues the accumulated DELETE, if any, and resets the batch.
func (c *UniqueKeyClearer) Apply() (int64, error) {
	if len(c.values) == 0 {
		return 0, nil
	}

	tuples := make([]string, len(c.values))
	for i, key := range c.values {
		quoted := make([]string, len(key))
		for j, v := range key {
			quoted[j] = "'" + c.client.EscapeValue(v) + "'"
		}
		tuples[i] = "(" + strings.Join(quoted, ",") + ")"
	}

	sqlText := fmt.Sprintf("DELETE FROM %s WHERE (%s) IN (%s)",
		c.client.QuoteIdentifier(c.table.Name), c.columnList, strings.Join(tuples, ","))

	c.values = nil
	c.pendingSize = 0
	return c.client.Execute(sqlText)
}
