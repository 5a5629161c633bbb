package wire

import "strings"

// ColumnValues is the ordered sequence of raw string column encodings that
// make up a key tuple (§3). An empty ColumnValues marks the open end of a
// range: before-first when used as prev_key, after-last when used as
// last_key.
type ColumnValues []string

// Empty reports whether cv marks an open range end.
func (cv ColumnValues) Empty() bool { return len(cv) == 0 }

// Key renders cv as a single comparable string suitable for use as a Go
// map key, preserving byte-exact distinctions between tuples (§9: "MUST
// preserve byte-exact equality... between the load query and the incoming
// stream"). Values are length-prefixed rather than separator-joined so
// that no value's content, however it's encoded, can forge a collision.
func (cv ColumnValues) Key() string {
	var b strings.Builder
	for _, v := range cv {
		b.WriteString(itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}

// Size returns the total byte length of cv's values, used to bound
// batched statement sizes.
func (cv ColumnValues) Size() int {
	n := 0
	for _, v := range cv {
		n += len(v)
	}
	return n
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// NullableValue is one column of a NullableRow: either SQL NULL (Null
// true, Value ignored) or a raw string encoding.
type NullableValue struct {
	Null  bool
	Value string
}

// NullableRow is the ordered sequence of (null | string) column values of
// one row, length equal to the table's column count (§3).
type NullableRow []NullableValue

// Equal reports whether two NullableRows carry the same values in the
// same order.
func (r NullableRow) Equal(other NullableRow) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i].Null != other[i].Null {
			return false
		}
		if !r[i].Null && r[i].Value != other[i].Value {
			return false
		}
	}
	return true
}

// PrimaryKey projects the columns named by columns out of r into a
// ColumnValues key tuple. Primary-key columns are guaranteed non-null by
// construction (§3 invariants), so this never observes a null entry for a
// well-formed table.
func (r NullableRow) PrimaryKey(columns []int) ColumnValues {
	key := make(ColumnValues, len(columns))
	for i, col := range columns {
		key[i] = r[col].Value
	}
	return key
}

// PtrRow converts r to the nil-means-null []*string representation that
// pkg/hashalgo and pkg/dbcap exchange rows in.
func (r NullableRow) PtrRow() []*string {
	out := make([]*string, len(r))
	for i := range r {
		if !r[i].Null {
			v := r[i].Value
			out[i] = &v
		}
	}
	return out
}

// RowFromPtrs converts the nil-means-null []*string representation back
// into a NullableRow.
func RowFromPtrs(row []*string) NullableRow {
	out := make(NullableRow, len(row))
	for i, v := range row {
		if v == nil {
			out[i] = NullableValue{Null: true}
		} else {
			out[i] = NullableValue{Value: *v}
		}
	}
	return out
}
