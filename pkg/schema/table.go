package schema

// PrimaryKeyType classifies how a Table's primary_key_columns were derived.
type PrimaryKeyType int

const (
	// NoPrimaryKeyType means primary_key_type has not been computed yet.
	NoPrimaryKeyType PrimaryKeyType = iota
	// Explicit means the table has a declared primary key.
	Explicit
	// SuitableUniqueKey means a non-nullable unique key stood in for a
	// missing primary key.
	SuitableUniqueKey
	// EntireRowAsKey means no usable key existed, so every column
	// (extended to a full permutation) became the key.
	EntireRowAsKey
	// NoAvailableKey means the table has a nullable column and no usable
	// unique key, so range queries are disabled for it.
	NoAvailableKey
)

func (t PrimaryKeyType) String() string {
	switch t {
	case Explicit:
		return "explicit"
	case SuitableUniqueKey:
		return "suitable_unique_key"
	case EntireRowAsKey:
		return "entire_row_as_key"
	case NoAvailableKey:
		return "no_available_key"
	default:
		return "unset"
	}
}

// Table is the data model §3 of the spec describes: name, columns, keys,
// and the computed primary-key fields every range operation is built on.
type Table struct {
	Name    string
	Columns []Column
	Keys    []Key

	// ExplicitPrimaryKey is the declared primary key's column indices,
	// or nil if the table has none declared.
	ExplicitPrimaryKey []int

	PrimaryKeyType    PrimaryKeyType
	PrimaryKeyColumns []int
}

// ColumnNames returns the declared names of a column index list, in order.
func (t *Table) ColumnNames(columns []int) []string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = t.Columns[col].Name
	}
	return names
}

// ChoosePrimaryKeyFor implements §4.1's four-step key-range policy,
// mutating PrimaryKeyType and PrimaryKeyColumns. It must be called once,
// after ExplicitPrimaryKey and Keys are populated from schema
// introspection, before any range operation runs against the table.
//
// The policy runs the full four steps per the canonical (non-truncated)
// definition: stopping after step 2 would leave keyless tables with
// PrimaryKeyType unset and range queries undefined.
func ChoosePrimaryKeyFor(t *Table) {
	if len(t.ExplicitPrimaryKey) > 0 {
		t.PrimaryKeyType = Explicit
		t.PrimaryKeyColumns = t.ExplicitPrimaryKey
		return
	}

	// Step 2: the first unique key, in declared order, none of whose
	// columns is nullable or filter-replaced.
	for i := range t.Keys {
		key := &t.Keys[i]
		if key.Unique && !key.hasNullableOrReplacedColumn(t) {
			t.PrimaryKeyType = SuitableUniqueKey
			t.PrimaryKeyColumns = key.Columns
			return
		}
	}

	// Step 3: any nullable column anywhere in the table rules out
	// entire-row-as-key too, since NULL comparisons are unknown in SQL.
	for i := range t.Columns {
		if t.Columns[i].Nullable {
			t.PrimaryKeyType = NoAvailableKey
			t.PrimaryKeyColumns = nil
			return
		}
	}

	// Step 4: entire_row_as_key. Start from the longest declared key
	// (first-declared wins ties), then extend with any missing column
	// index in declared order to form a full permutation.
	t.PrimaryKeyType = EntireRowAsKey
	t.PrimaryKeyColumns = longestKeyColumns(t)

	present := make([]bool, len(t.Columns))
	for _, col := range t.PrimaryKeyColumns {
		present[col] = true
	}
	for col := range t.Columns {
		if !present[col] {
			t.PrimaryKeyColumns = append(t.PrimaryKeyColumns, col)
		}
	}
}

func longestKeyColumns(t *Table) []int {
	var best []int
	for i := range t.Keys {
		cols := t.Keys[i].Columns
		if len(cols) > len(best) {
			best = cols
		}
	}
	// copy so later append doesn't alias the Key's own slice
	out := make([]int, len(best))
	copy(out, best)
	return out
}
