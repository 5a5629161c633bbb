package syncfrom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/hashalgo"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/wire"
)

type fakeRows struct {
	data [][]interface{}
	pos  int
}

func (r *fakeRows) Next() bool { return r.pos < len(r.data) }
func (r *fakeRows) Scan(dest ...interface{}) error {
	row := r.data[r.pos]
	r.pos++
	for i, v := range row {
		if err := dest[i].(interface{ Scan(interface{}) error }).Scan(v); err != nil {
			return err
		}
	}
	return nil
}
func (r *fakeRows) Err() error   { return nil }
func (r *fakeRows) Close() error { return nil }

type fakeClient struct {
	rows [][]interface{}
}

func (c *fakeClient) QuoteIdentifier(name string) string { return "`" + name + "`" }
func (c *fakeClient) EscapeValue(value string) string    { return value }
func (c *fakeClient) ReplaceSQLPrefix(table *schema.Table) string {
	return "REPLACE INTO `" + table.Name + "` VALUES"
}
func (c *fakeClient) NeedPrimaryKeyClearerToReplace() bool                      { return false }
func (c *fakeClient) AddReplaceClearers(table *schema.Table, dst *[]schema.Key) {}
func (c *fakeClient) Execute(sqlText string) (int64, error)                    { return 0, nil }
func (c *fakeClient) Query(sqlText string) (dbcap.Rows, error) {
	return &fakeRows{data: c.rows}, nil
}

func testTable() *schema.Table {
	return &schema.Table{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "id", ColumnType: "int"},
			{Name: "total", ColumnType: "decimal"},
		},
		PrimaryKeyType:    schema.Explicit,
		PrimaryKeyColumns: []int{0},
	}
}

// exchange drives one verb through an engine and returns the single
// reply frame it produced.
func exchange(t *testing.T, client dbcap.DatabaseClient, tables []*schema.Table, verbFrame []interface{}) []interface{} {
	t.Helper()

	var requestBuf bytes.Buffer
	req := wire.NewPacker(&requestBuf)
	require.NoError(t, req.PackFrame(verbFrame...))
	require.NoError(t, req.Flush())

	var quitBuf bytes.Buffer
	quit := wire.NewPacker(&quitBuf)
	require.NoError(t, quit.PackFrame(int64(wire.Quit)))
	require.NoError(t, quit.Flush())

	requestBuf.Write(quitBuf.Bytes())

	var replyBuf bytes.Buffer
	engine := NewEngine(client, tables, wire.NewUnpacker(&requestBuf), wire.NewPacker(&replyBuf), NopSnapshotWorker{}, nil)
	require.NoError(t, engine.HandleCommands())

	reply := wire.NewUnpacker(&replyBuf)
	frame, err := reply.UnpackFrame()
	require.NoError(t, err)
	return frame
}

func TestHandleRange_EmptyTable(t *testing.T) {
	client := &fakeClient{}
	table := testTable()

	reply := exchange(t, client, []*schema.Table{table}, []interface{}{int64(wire.Range), "orders"})

	assert.Equal(t, int64(wire.Range), reply[0])
	assert.Equal(t, "orders", reply[1])
	assert.Empty(t, reply[2])
	assert.Empty(t, reply[3])
}

func TestHandleRange_NonEmptyTable(t *testing.T) {
	client := &fakeClient{rows: [][]interface{}{{"1", "a"}, {"5", "b"}}}
	table := testTable()

	reply := exchange(t, client, []*schema.Table{table}, []interface{}{int64(wire.Range), "orders"})

	// the fake client ignores ORDER BY/LIMIT and always serves rows[0], so
	// this only exercises that both edges are populated non-empty keys,
	// not actual ascending/descending query construction (covered by
	// pkg/rowretriever's SQL-building tests instead).
	firstKey := reply[2].([]interface{})
	lastKey := reply[3].([]interface{})
	require.Len(t, firstKey, 1)
	require.Len(t, lastKey, 1)
	assert.Equal(t, "1", firstKey[0])
	assert.Equal(t, "1", lastKey[0])
}

func TestHandleHash_ReturnsRowCountAndDigest(t *testing.T) {
	client := &fakeClient{rows: [][]interface{}{{"1", "a"}, {"2", "b"}}}
	table := testTable()

	reply := exchange(t, client, []*schema.Table{table}, []interface{}{
		int64(wire.Hash), "orders", []interface{}{}, []interface{}{}, int64(100),
	})

	assert.Equal(t, int64(wire.Hash), reply[0])
	assert.Equal(t, int64(2), reply[5])
	assert.NotEmpty(t, reply[6])
}

func TestHandleRows_StreamsRowsThenTerminator(t *testing.T) {
	client := &fakeClient{rows: [][]interface{}{{"1", "a"}, {"2", "b"}}}
	table := testTable()

	var requestBuf bytes.Buffer
	req := wire.NewPacker(&requestBuf)
	require.NoError(t, req.PackFrame(int64(wire.Rows), "orders", []interface{}{}, []interface{}{}))
	require.NoError(t, req.Flush())
	require.NoError(t, req.PackFrame(int64(wire.Quit)))
	require.NoError(t, req.Flush())

	var replyBuf bytes.Buffer
	engine := NewEngine(client, []*schema.Table{table}, wire.NewUnpacker(&requestBuf), wire.NewPacker(&replyBuf), NopSnapshotWorker{}, nil)
	require.NoError(t, engine.HandleCommands())

	reply := wire.NewUnpacker(&replyBuf)

	header, err := reply.UnpackFrame()
	require.NoError(t, err)
	assert.Equal(t, int64(wire.Rows), header[0])

	row1, err := reply.UnpackFrame()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"1", "a"}, row1)

	row2, err := reply.UnpackFrame()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"2", "b"}, row2)

	terminator, err := reply.UnpackFrame()
	require.NoError(t, err)
	assert.Empty(t, terminator)
}

func TestHandleHashAlgorithm_StickyUpgrade(t *testing.T) {
	client := &fakeClient{}
	table := testTable()

	var requestBuf bytes.Buffer
	req := wire.NewPacker(&requestBuf)
	require.NoError(t, req.PackFrame(int64(wire.HashAlgorithm), int64(hashalgo.SHA256)))
	require.NoError(t, req.Flush())
	require.NoError(t, req.PackFrame(int64(wire.HashAlgorithm), int64(hashalgo.XXH64)))
	require.NoError(t, req.Flush())
	require.NoError(t, req.PackFrame(int64(wire.Quit)))
	require.NoError(t, req.Flush())

	var replyBuf bytes.Buffer
	engine := NewEngine(client, []*schema.Table{table}, wire.NewUnpacker(&requestBuf), wire.NewPacker(&replyBuf), NopSnapshotWorker{}, nil)
	require.NoError(t, engine.HandleCommands())

	reply := wire.NewUnpacker(&replyBuf)

	first, err := reply.UnpackFrame()
	require.NoError(t, err)
	assert.Equal(t, int64(hashalgo.SHA256), first[1])

	second, err := reply.UnpackFrame()
	require.NoError(t, err)
	assert.Equal(t, int64(hashalgo.SHA256), second[1])
}
