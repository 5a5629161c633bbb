// Package applier implements §4.4's row applier: the destination-side
// convergence of one key range onto an incoming row stream, replacing
// whatever rows currently occupy that range at the destination with
// whatever the source end sent for it.
package applier

import (
	"github.com/tidwall/btree"

	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/rowretriever"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/wire"
	"github.com/rowsync/rowsync/pkg/xerror"
)

const degree = 32

// RowsByPrimaryKey holds the destination's existing rows in a range,
// ordered by primary key, so they can be diffed against the incoming
// stream and any unmatched survivor cleared at the end.
type RowsByPrimaryKey = btree.Map[string, []*string]

func newRowsByPrimaryKey() *RowsByPrimaryKey {
	return btree.NewMap[string, []*string](degree)
}

// RowApplier converges the destination's copy of one key range with the
// rows streamed in from the source end. The C++ original relies on a
// destructor to flush pending batches; here that's Apply, which the
// caller must invoke explicitly (typically via defer) once done feeding
// rows.
type RowApplier struct {
	client             dbcap.DatabaseClient
	table              *schema.Table
	primaryKeyClearer  *UniqueKeyClearer
	uniqueKeysClearers []*UniqueKeyClearer
	insertSQL          *BaseSQL
	rowsChanged        int
}

// NewRowApplier prepares an applier for table against client. The
// returned value accumulates batched statements across calls to
// ApplyRange; call Apply when done to flush anything still pending.
func NewRowApplier(client dbcap.DatabaseClient, table *schema.Table) *RowApplier {
	a := &RowApplier{
		client:            client,
		table:             table,
		primaryKeyClearer: NewUniqueKeyClearer(client, table, table.PrimaryKeyColumns),
		insertSQL:         NewBaseSQL(client.ReplaceSQLPrefix(table)+"\n", ""),
	}

	var clearerKeys []schema.Key
	client.AddReplaceClearers(table, &clearerKeys)
	for _, k := range clearerKeys {
		a.uniqueKeysClearers = append(a.uniqueKeysClearers, NewUniqueKeyClearer(client, table, k.Columns))
	}

	return a
}

// RowsChanged returns the total number of rows inserted, replaced, or
// deleted across every range fed to this applier so far.
func (a *RowApplier) RowsChanged() int {
	return a.rowsChanged
}

// ApplyRange converges the half-open range (matchedUpToKey,
// lastNotMatchingKey] against rows, which must be exactly the rows the
// source end sent for that range, in order, with no terminator row
// included. It returns the number of rows the range contained (matching
// or not), which the caller reports back upstream as the new
// matched_up_to_key checkpoint advances.
func (a *RowApplier) ApplyRange(matchedUpToKey, lastNotMatchingKey wire.ColumnValues, rows []wire.NullableRow) (int, error) {
	existingRows := newRowsByPrimaryKey()

	if lastNotMatchingKey.Empty() {
		// range runs to the end of the table: clear everything remaining
		if err := a.deleteRange(matchedUpToKey, lastNotMatchingKey); err != nil {
			return 0, err
		}
	} else {
		_, err := rowretriever.Retrieve(a.client, a.table, matchedUpToKey, lastNotMatchingKey, rowretriever.NoRowCountLimit,
			func(row []*string) {
				key := wire.ColumnValues(stringsAt(row, a.table.PrimaryKeyColumns)).Key()
				existingRows.Set(key, row)
			})
		if err != nil {
			return 0, xerror.Wrapf(err, xerror.Database, "load existing rows for %s failed", a.table.Name)
		}
	}

	rowsInRange := 0
	for _, row := range rows {
		rowsInRange++

		if lastNotMatchingKey.Empty() {
			// inserting to the end of the table: no later row can already
			// hold these unique key values, so no clearing needed
			if err := a.addToInsert(row); err != nil {
				return rowsInRange, err
			}
			a.rowsChanged++
		} else {
			changed, err := a.considerReplace(existingRows, row)
			if err != nil {
				return rowsInRange, err
			}
			if changed {
				a.rowsChanged++
			}
		}
	}

	// clear whatever the other end didn't send us a replacement for
	existingRows.Scan(func(_ string, row []*string) bool {
		a.primaryKeyClearer.Row(row)
		return true
	})
	a.rowsChanged += existingRows.Len()
	rowsInRange += existingRows.Len()

	return rowsInRange, nil
}

func (a *RowApplier) considerReplace(existingRows *RowsByPrimaryKey, row wire.NullableRow) (bool, error) {
	key := row.PrimaryKey(a.table.PrimaryKeyColumns).Key()

	existingRow, found := existingRows.Get(key)
	if found {
		existingRows.Delete(key)

		if wire.RowFromPtrs(existingRow).Equal(row) {
			return false, nil
		}

		if a.client.NeedPrimaryKeyClearerToReplace() {
			a.primaryKeyClearer.Row(existingRow)
		}
	}

	a.addToUniqueKeysClearers(row.PtrRow())
	if err := a.addToInsert(row); err != nil {
		return false, err
	}

	return true, nil
}

// addToInsert appends row's tuple to the pending insert batch, flushing
// every pending batch once the insert batch crosses the byte threshold.
// It flushes via Apply, not insertSQL.Apply directly, because §4.4 step 5
// requires clearers to always be applied before the insert batch they
// guard: flushing the insert alone here could ship an INSERT ahead of
// the primary-key/unique-key DELETEs that make room for it.
func (a *RowApplier) addToInsert(row wire.NullableRow) error {
	a.insertSQL.AddRowTuple(insertTuple(a.client, row))

	if a.insertSQL.Size() > MaxSensibleInsertCommandSize {
		return a.Apply()
	}
	return nil
}

func (a *RowApplier) addToUniqueKeysClearers(row []*string) {
	// before inserting we must also clear any later row that already
	// holds these unique key values - unless the engine supports REPLACE
	// across every unique key, in which case there are no clearers here.
	for _, c := range a.uniqueKeysClearers {
		c.Row(row)
	}
}

func (a *RowApplier) deleteRange(matchedUpToKey, lastNotMatchingKey wire.ColumnValues) error {
	sqlText := "DELETE FROM " + a.client.QuoteIdentifier(a.table.Name) +
		dbcap.WhereRangeSQL(a.client, a.table, matchedUpToKey, lastNotMatchingKey)
	_, err := a.client.Execute(sqlText)
	if err != nil {
		return xerror.Wrapf(err, xerror.Database, "delete range on %s failed", a.table.Name)
	}
	return nil
}

// Apply flushes every batch still pending: the primary key clearer, each
// unique key clearer, and the accumulated insert statement, in that
// order so that inserted rows never collide with a not-yet-cleared
// unique key value.
func (a *RowApplier) Apply() error {
	if _, err := a.primaryKeyClearer.Apply(); err != nil {
		return xerror.Wrapf(err, xerror.Database, "clear primary keys on %s failed", a.table.Name)
	}
	for _, c := range a.uniqueKeysClearers {
		if _, err := c.Apply(); err != nil {
			return xerror.Wrapf(err, xerror.Database, "clear unique keys on %s failed", a.table.Name)
		}
	}
	if _, err := a.insertSQL.Apply(a.client); err != nil {
		return xerror.Wrapf(err, xerror.Database, "insert rows on %s failed", a.table.Name)
	}
	return nil
}

func insertTuple(client dbcap.DatabaseClient, row wire.NullableRow) string {
	var tuple []byte
	tuple = append(tuple, '(')
	for i, v := range row {
		if i > 0 {
			tuple = append(tuple, ',')
		}
		if v.Null {
			tuple = append(tuple, "NULL"...)
		} else {
			tuple = append(tuple, '\'')
			tuple = append(tuple, client.EscapeValue(v.Value)...)
			tuple = append(tuple, '\'')
		}
	}
	tuple = append(tuple, ')')
	return string(tuple)
}

func stringsAt(row []*string, columns []int) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		if row[col] != nil {
			out[i] = *row[col]
		}
	}
	return out
}
