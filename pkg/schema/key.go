package schema

// Key is a named, ordered set of column indices, optionally unique.
type Key struct {
	Name    string
	Unique  bool
	Columns []int // indices into Table.Columns
}

// hasNullableOrReplacedColumn reports whether any of the key's columns is
// unusable for range comparisons.
func (k *Key) hasNullableOrReplacedColumn(table *Table) bool {
	for _, col := range k.Columns {
		if table.Columns[col].NullableOrReplaced() {
			return true
		}
	}
	return false
}
