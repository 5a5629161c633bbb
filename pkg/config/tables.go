package config

import (
	"encoding/json"
	"os"

	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// tableDoc is the on-disk JSON shape of one schema.Table, naming fields
// explicitly rather than reusing schema.Table's Go field names directly
// so the file format doesn't move every time the in-memory type does.
type tableDoc struct {
	Name               string      `json:"name"`
	Columns            []columnDoc `json:"columns"`
	Keys               []keyDoc    `json:"keys"`
	ExplicitPrimaryKey []int       `json:"explicit_primary_key"`
}

type columnDoc struct {
	Name             string `json:"name"`
	ColumnType       string `json:"column_type"`
	Size             int64  `json:"size"`
	Scale            int64  `json:"scale"`
	Nullable         bool   `json:"nullable"`
	FilterExpression string `json:"filter_expression"`
}

type keyDoc struct {
	Name    string `json:"name"`
	Unique  bool   `json:"unique"`
	Columns []int  `json:"columns"`
}

// LoadTables reads a JSON file listing the tables one rowsync process
// should serve or converge, computing each table's primary-key policy
// via schema.ChoosePrimaryKeyFor the same way schema discovery would.
func LoadTables(path string) ([]*schema.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Normal, "read table config %s failed", path)
	}

	var docs []tableDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, xerror.Wrapf(err, xerror.Normal, "parse table config %s failed", path)
	}

	tables := make([]*schema.Table, 0, len(docs))
	for _, doc := range docs {
		columns := make([]schema.Column, len(doc.Columns))
		for i, c := range doc.Columns {
			columns[i] = schema.Column{
				Name:             c.Name,
				ColumnType:       c.ColumnType,
				Size:             c.Size,
				Scale:            c.Scale,
				Nullable:         c.Nullable,
				FilterExpression: c.FilterExpression,
			}
		}
		keys := make([]schema.Key, len(doc.Keys))
		for i, k := range doc.Keys {
			keys[i] = schema.Key{Name: k.Name, Unique: k.Unique, Columns: k.Columns}
		}

		table := &schema.Table{
			Name:               doc.Name,
			Columns:            columns,
			Keys:               keys,
			ExplicitPrimaryKey: doc.ExplicitPrimaryKey,
		}
		schema.ChoosePrimaryKeyFor(table)
		tables = append(tables, table)
	}
	return tables, nil
}
