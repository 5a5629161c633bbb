package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadEndpoint_ParsesKeyValueFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "source.conf")
	contents := "# source endpoint\ntype = mysql\nhost = 10.0.0.1\nport = 3306\nuser = root\npassword = secret\ndatabase = orders\n"
	assert.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	endpoint, err := ReadEndpoint(path)
	assert.NoError(t, err)
	assert.Equal(t, Endpoint{
		Type:     "mysql",
		Host:     "10.0.0.1",
		Port:     3306,
		User:     "root",
		Password: "secret",
		Database: "orders",
	}, endpoint)
}

func TestReadEndpoint_RejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.conf")
	assert.NoError(t, os.WriteFile(path, []byte("not-an-assignment\n"), 0o644))

	_, err := ReadEndpoint(path)
	assert.Error(t, err)
}

func TestLoadTables_ComputesPrimaryKeyPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.json")
	contents := `[
		{
			"name": "orders",
			"columns": [
				{"name": "id", "column_type": "bigint"},
				{"name": "sku", "column_type": "varchar(64)"},
				{"name": "total", "column_type": "decimal(10,2)"}
			],
			"keys": [
				{"name": "PRIMARY", "unique": true, "columns": [0]}
			],
			"explicit_primary_key": [0]
		}
	]`
	assert.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	tables, err := LoadTables(path)
	assert.NoError(t, err)
	assert.Len(t, tables, 1)
	assert.Equal(t, "orders", tables[0].Name)
	assert.Equal(t, []int{0}, tables[0].PrimaryKeyColumns)
}
