package wire

import (
	"bytes"
	"testing"

	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/stretchr/testify/assert"
)

func TestPackLegacyColumn_OmitsDefaultedFields(t *testing.T) {
	var buf bytes.Buffer
	p := NewPacker(&buf)
	col := &schema.Column{Name: "id", ColumnType: "int", Nullable: true}
	assert.NoError(t, p.PackLegacyColumn(col))
	assert.NoError(t, p.Flush())

	u := NewUnpacker(&buf)
	v, err := u.unpackValue()
	assert.NoError(t, err)
	m := v.(map[string]interface{})

	assert.Equal(t, "id", m["name"])
	assert.Equal(t, "int", m["column_type"])
	_, hasNullable := m["nullable"]
	assert.False(t, hasNullable, "nullable key must be omitted when column is nullable (the default)")
	_, hasSize := m["size"]
	assert.False(t, hasSize)
}

func TestPackLegacyColumn_IncludesDeviatingFields(t *testing.T) {
	var buf bytes.Buffer
	p := NewPacker(&buf)
	col := &schema.Column{
		Name:        "amount",
		ColumnType:  "decimal",
		Size:        10,
		Scale:       2,
		Nullable:    false,
		DefaultType: schema.DefaultValue,
		DefaultValue: "0.00",
	}
	assert.NoError(t, p.PackLegacyColumn(col))
	assert.NoError(t, p.Flush())

	u := NewUnpacker(&buf)
	v, err := u.unpackValue()
	assert.NoError(t, err)
	m := v.(map[string]interface{})

	assert.Equal(t, int64(10), m["size"])
	assert.Equal(t, int64(2), m["scale"])
	assert.Equal(t, false, m["nullable"])
	assert.Equal(t, "0.00", m["default_value"])
	_, hasFunction := m["default_function"]
	assert.False(t, hasFunction)
}

func TestPackLegacyKey(t *testing.T) {
	var buf bytes.Buffer
	p := NewPacker(&buf)
	key := &schema.Key{Name: "pk", Unique: true, Columns: []int{0, 2}}
	assert.NoError(t, p.PackLegacyKey(key))
	assert.NoError(t, p.Flush())

	u := NewUnpacker(&buf)
	v, err := u.unpackValue()
	assert.NoError(t, err)
	m := v.(map[string]interface{})

	assert.Equal(t, "pk", m["name"])
	assert.Equal(t, true, m["unique"])
	assert.Equal(t, []interface{}{int64(0), int64(2)}, m["columns"])
}
