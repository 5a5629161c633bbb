package wire

import "github.com/rowsync/rowsync/pkg/schema"

// PackLegacyColumn writes a Column the way protocol version ≤7 does:
// a map with "name" and "column_type" always present, and every other
// key present only when it deviates from its default. Field presence
// mirrors original_source/src/legacy_schema_serialization.h exactly.
func (p *Packer) PackLegacyColumn(c *schema.Column) error {
	m := map[string]interface{}{
		"name":        c.Name,
		"column_type": c.ColumnType,
	}
	if c.Size != 0 {
		m["size"] = c.Size
	}
	if c.Scale != 0 {
		m["scale"] = c.Scale
	}
	if !c.Nullable {
		m["nullable"] = c.Nullable
	}
	if c.DbTypeDef != "" {
		m["db_type_def"] = c.DbTypeDef
	}
	switch c.DefaultType {
	case schema.NoDefault:
		// no key written
	case schema.DefaultSequence:
		m["sequence"] = c.DefaultValue
	case schema.DefaultValue:
		m["default_value"] = c.DefaultValue
	case schema.DefaultExpression:
		m["default_function"] = c.DefaultValue
	}
	if c.Flags.MysqlTimestamp {
		m["mysql_timestamp"] = true
	}
	if c.Flags.MysqlOnUpdateTimestamp {
		m["mysql_on_update_timestamp"] = true
	}
	if c.Flags.TimeZone {
		m["time_zone"] = true
	}
	return p.packValue(m)
}

// PackLegacyKey writes a Key the way protocol version ≤7 does: a
// {name, unique, columns} map.
func (p *Packer) PackLegacyKey(k *schema.Key) error {
	cols := make([]interface{}, len(k.Columns))
	for i, c := range k.Columns {
		cols[i] = int64(c)
	}
	return p.packValue(map[string]interface{}{
		"name":    k.Name,
		"unique":  k.Unique,
		"columns": cols,
	})
}
