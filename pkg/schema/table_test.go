package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChoosePrimaryKeyFor_Explicit(t *testing.T) {
	table := &Table{
		Columns:            []Column{{Name: "id"}, {Name: "v"}},
		ExplicitPrimaryKey: []int{0},
	}
	ChoosePrimaryKeyFor(table)
	assert.Equal(t, Explicit, table.PrimaryKeyType)
	assert.Equal(t, []int{0}, table.PrimaryKeyColumns)
}

func TestChoosePrimaryKeyFor_SuitableUniqueKey(t *testing.T) {
	table := &Table{
		Columns: []Column{{Name: "id"}, {Name: "email"}, {Name: "bio", Nullable: true}},
		Keys: []Key{
			{Name: "not_unique_idx", Unique: false, Columns: []int{2}},
			{Name: "email_idx", Unique: true, Columns: []int{1}},
		},
	}
	ChoosePrimaryKeyFor(table)
	assert.Equal(t, SuitableUniqueKey, table.PrimaryKeyType)
	assert.Equal(t, []int{1}, table.PrimaryKeyColumns)
}

func TestChoosePrimaryKeyFor_UniqueKeyWithNullableColumnIsSkipped(t *testing.T) {
	table := &Table{
		Columns: []Column{{Name: "a"}, {Name: "b", Nullable: true}},
		Keys: []Key{
			{Name: "ab_idx", Unique: true, Columns: []int{0, 1}},
		},
	}
	ChoosePrimaryKeyFor(table)
	assert.Equal(t, NoAvailableKey, table.PrimaryKeyType)
	assert.Empty(t, table.PrimaryKeyColumns)
}

func TestChoosePrimaryKeyFor_UniqueKeyWithFilterExpressionIsSkipped(t *testing.T) {
	table := &Table{
		Columns: []Column{{Name: "a", FilterExpression: "'redacted'"}},
		Keys: []Key{
			{Name: "a_idx", Unique: true, Columns: []int{0}},
		},
	}
	ChoosePrimaryKeyFor(table)
	assert.Equal(t, EntireRowAsKey, table.PrimaryKeyType)
}

func TestChoosePrimaryKeyFor_NoAvailableKey(t *testing.T) {
	table := &Table{
		Columns: []Column{{Name: "a"}, {Name: "b", Nullable: true}},
	}
	ChoosePrimaryKeyFor(table)
	assert.Equal(t, NoAvailableKey, table.PrimaryKeyType)
	assert.Empty(t, table.PrimaryKeyColumns)
}

func TestChoosePrimaryKeyFor_EntireRowAsKeyWithFullIndex(t *testing.T) {
	table := &Table{
		Columns: []Column{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		Keys: []Key{
			{Name: "a_idx", Unique: false, Columns: []int{0}},
			{Name: "full_idx", Unique: false, Columns: []int{2, 1, 0}},
		},
	}
	ChoosePrimaryKeyFor(table)
	assert.Equal(t, EntireRowAsKey, table.PrimaryKeyType)
	assert.Equal(t, []int{2, 1, 0}, table.PrimaryKeyColumns)
}

func TestChoosePrimaryKeyFor_EntireRowAsKeyExtendsShorterIndex(t *testing.T) {
	table := &Table{
		Columns: []Column{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		Keys: []Key{
			{Name: "ab_idx", Unique: false, Columns: []int{1, 0}},
		},
	}
	ChoosePrimaryKeyFor(table)
	assert.Equal(t, EntireRowAsKey, table.PrimaryKeyType)
	assert.Equal(t, []int{1, 0, 2}, table.PrimaryKeyColumns)
}

func TestChoosePrimaryKeyFor_EntireRowAsKeyNoKeysAtAll(t *testing.T) {
	table := &Table{
		Columns: []Column{{Name: "a"}, {Name: "b"}},
	}
	ChoosePrimaryKeyFor(table)
	assert.Equal(t, EntireRowAsKey, table.PrimaryKeyType)
	assert.Equal(t, []int{0, 1}, table.PrimaryKeyColumns)
}
