package syncjob

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/syncfrom"
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

// fakeClient is an in-memory DatabaseClient double shared by both ends of
// the pipe: the "source" instance is seeded with rows and never
// executes anything; the "destination" instance starts seeded (or
// empty) and records every statement the job issues against it.
type fakeClient struct {
	rows     [][]interface{}
	executed []string
}

func (c *fakeClient) QuoteIdentifier(name string) string { return "`" + name + "`" }
func (c *fakeClient) EscapeValue(value string) string    { return value }
func (c *fakeClient) ReplaceSQLPrefix(table *schema.Table) string {
	return "REPLACE INTO `" + table.Name + "` VALUES"
}
func (c *fakeClient) NeedPrimaryKeyClearerToReplace() bool                      { return false }
func (c *fakeClient) AddReplaceClearers(table *schema.Table, dst *[]schema.Key) {}
func (c *fakeClient) Execute(sqlText string) (int64, error) {
	c.executed = append(c.executed, sqlText)
	return 1, nil
}
func (c *fakeClient) Query(sqlText string) (dbcap.Rows, error) {
	return &fakeRows{data: c.rows}, nil
}

func testTable() *schema.Table {
	return &schema.Table{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "id", ColumnType: "int"},
			{Name: "value", ColumnType: "text"},
		},
		PrimaryKeyType:    schema.Explicit,
		PrimaryKeyColumns: []int{0},
	}
}

// runAgainstSource wires up a Job talking to a real syncfrom.Engine over
// an in-memory duplex pipe and runs both to completion.
func runAgainstSource(t *testing.T, sourceRows [][]interface{}, destRows [][]interface{}) (*Job, *fakeClient) {
	t.Helper()

	table := testTable()
	sourceClient := &fakeClient{rows: sourceRows}
	destClient := &fakeClient{rows: destRows}

	jobOutR, jobOutW := io.Pipe()
	engineOutR, engineOutW := io.Pipe()

	engine := syncfrom.NewEngine(sourceClient, []*schema.Table{table}, wire.NewUnpacker(jobOutR), wire.NewPacker(engineOutW), syncfrom.NopSnapshotWorker{}, nil)
	job := NewJob(destClient, table, wire.NewUnpacker(engineOutR), wire.NewPacker(jobOutW), NopCheckpointer{}, nil)

	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.HandleCommands() }()

	err := job.Run()
	require.NoError(t, err)

	select {
	case engineErr := <-engineDone:
		assert.NoError(t, engineErr)
	case <-time.After(2 * time.Second):
		t.Fatal("source engine did not exit after QUIT")
	}

	return job, destClient
}

func TestJob_EmptySourceClearsDestination(t *testing.T) {
	job, dest := runAgainstSource(t, nil, [][]interface{}{{"1", "stale"}})

	require.NotEmpty(t, dest.executed)
	assert.Contains(t, dest.executed[0], "DELETE FROM")
	// a range-to-end delete is issued without first loading the rows it
	// clears, so (matching the original's own counting) it doesn't
	// contribute to RowsConverged the way a diffed delete would.
	assert.Equal(t, 0, job.RowsConverged())
}

func TestJob_EmptyDestinationInsertsAllSourceRows(t *testing.T) {
	job, dest := runAgainstSource(t, [][]interface{}{{"1", "a"}, {"2", "b"}, {"3", "c"}}, nil)

	require.NotEmpty(t, dest.executed)
	assert.Contains(t, dest.executed[len(dest.executed)-1], "REPLACE INTO")
	assert.Equal(t, 3, job.RowsConverged())
}

func TestJob_MatchingRowsConvergeWithoutChanges(t *testing.T) {
	rows := [][]interface{}{{"1", "a"}, {"2", "b"}}
	job, dest := runAgainstSource(t, rows, rows)

	assert.Empty(t, dest.executed)
	assert.Equal(t, 0, job.RowsConverged())
}
