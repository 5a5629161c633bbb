package sqlclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rowsync/rowsync/pkg/schema"
)

func testTable() *schema.Table {
	t := &schema.Table{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "id", ColumnType: "int"},
			{Name: "sku", ColumnType: "varchar"},
			{Name: "total", ColumnType: "decimal"},
		},
		PrimaryKeyType:    schema.Explicit,
		PrimaryKeyColumns: []int{0},
		Keys: []schema.Key{
			{Name: "PRIMARY", Unique: true, Columns: []int{0}},
			{Name: "sku_uk", Unique: true, Columns: []int{1}},
		},
	}
	return t
}

func TestMySQLClient_QuotingAndEscaping(t *testing.T) {
	c := &MySQLClient{}
	assert.Equal(t, "`orders`", c.QuoteIdentifier("orders"))
	assert.Equal(t, "`wei`` rd`", c.QuoteIdentifier("wei` rd"))
	assert.Equal(t, `it\'s`, c.EscapeValue(`it's`))
}

func TestMySQLClient_ReplaceSQLPrefixCoversEveryUniqueKey(t *testing.T) {
	c := &MySQLClient{}
	table := testTable()

	assert.Equal(t, "REPLACE INTO `orders` (`id`,`sku`,`total`) VALUES", c.ReplaceSQLPrefix(table))
	assert.False(t, c.NeedPrimaryKeyClearerToReplace())

	var clearers []schema.Key
	c.AddReplaceClearers(table, &clearers)
	assert.Empty(t, clearers)
}

func TestPostgreSQLClient_NeedsExplicitClearers(t *testing.T) {
	c := &PostgreSQLClient{}
	table := testTable()

	assert.Equal(t, `"orders"`, c.QuoteIdentifier("orders"))
	assert.Equal(t, `it''s`, c.EscapeValue(`it's`))
	assert.Equal(t, `INSERT INTO "orders" ("id","sku","total") VALUES`, c.ReplaceSQLPrefix(table))
	assert.True(t, c.NeedPrimaryKeyClearerToReplace())

	var clearers []schema.Key
	c.AddReplaceClearers(table, &clearers)
	if assert.Len(t, clearers, 1) {
		assert.Equal(t, "sku_uk", clearers[0].Name)
	}
}

func TestSQLiteClient_ReplaceSQLPrefixCoversEveryUniqueKey(t *testing.T) {
	c := &SQLiteClient{}
	table := testTable()

	assert.Equal(t, `INSERT OR REPLACE INTO "orders" ("id","sku","total") VALUES`, c.ReplaceSQLPrefix(table))
	assert.False(t, c.NeedPrimaryKeyClearerToReplace())

	var clearers []schema.Key
	c.AddReplaceClearers(table, &clearers)
	assert.Empty(t, clearers)
}
